package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Compiler hooks
	p := NoopCompilerHooks{}
	p.OnCompile(ctx, "add", "plusMinusAverage", 3, time.Millisecond, nil)

	// Resolver hooks
	r := NoopResolverHooks{}
	r.OnSet(ctx, "A.tx")
	r.OnConnect(ctx, "B.ty", "A.tx")
	r.OnConsolidate(ctx, "B.translate", "A.translate", 3)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "eval")
	c.OnCacheMiss(ctx, "eval")
	c.OnCacheSet(ctx, "eval", 1024)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "/v1/eval")
	h.OnResponse(ctx, "POST", "/v1/eval", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Compiler().(NoopCompilerHooks); !ok {
		t.Error("Compiler() should return NoopCompilerHooks by default")
	}
	if _, ok := Resolver().(NoopResolverHooks); !ok {
		t.Error("Resolver() should return NoopResolverHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	// Set custom hooks
	customCompiler := &testCompilerHooks{}
	SetCompilerHooks(customCompiler)
	if Compiler() != customCompiler {
		t.Error("SetCompilerHooks should set custom hooks")
	}

	customResolver := &testResolverHooks{}
	SetResolverHooks(customResolver)
	if Resolver() != customResolver {
		t.Error("SetResolverHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Compiler().(NoopCompilerHooks); !ok {
		t.Error("Reset() should restore NoopCompilerHooks")
	}
	if _, ok := Resolver().(NoopResolverHooks); !ok {
		t.Error("Reset() should restore NoopResolverHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testCompilerHooks{}
	SetCompilerHooks(custom)

	// Setting nil should be ignored
	SetCompilerHooks(nil)

	if Compiler() != custom {
		t.Error("SetCompilerHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testCompilerHooks struct{ NoopCompilerHooks }
type testResolverHooks struct{ NoopResolverHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
