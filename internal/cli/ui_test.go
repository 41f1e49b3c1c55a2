package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/nodecalc/pkg/cache"
	"github.com/matzehuels/nodecalc/pkg/pipeline"
)

// captureOutput redirects the CLI's stdout for the rest of the test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func TestPlural(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 nodes"},
		{1, "1 node"},
		{3, "3 nodes"},
	}
	for _, tt := range tests {
		if got := plural(tt.n, "node"); got != tt.want {
			t.Errorf("plural(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestStatsLine(t *testing.T) {
	stats := pipeline.Stats{NodeCount: 3, EdgeCount: 1, EvalTime: 2 * time.Millisecond}
	tests := []struct {
		cached bool
		want   []string
	}{
		{false, []string{"3 nodes", "1 connection", "2ms", "fresh"}},
		{true, []string{"cached"}},
	}
	for _, tt := range tests {
		got := statsLine(stats, tt.cached)
		for _, w := range tt.want {
			if !strings.Contains(got, w) {
				t.Errorf("statsLine(cached=%v) = %q, missing %q", tt.cached, got, w)
			}
		}
	}
}

func TestRenderTrace(t *testing.T) {
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = "cmds.setAttr('A.tx', 1)"
	}
	got := strings.Split(renderTrace(lines), "\n")
	if len(got) != 10 {
		t.Fatalf("renderTrace() lines = %d, want 10", len(got))
	}
	if !strings.Contains(got[0], " 1") || !strings.Contains(got[9], "10") {
		t.Errorf("renderTrace() numbering = %q ... %q", got[0], got[9])
	}
	if renderTrace(nil) != "" {
		t.Error("renderTrace(nil) should be empty")
	}
}

func TestPrintHelpers(t *testing.T) {
	buf := captureOutput(t)
	printSuccess("Evaluated %s", "rig.nc")
	printWarning("No operators match %q", "zz")
	printFile("out.toml")
	printKeyValue("Cache", "file")

	out := buf.String()
	for _, want := range []string{"Evaluated rig.nc", `No operators match "zz"`, "out.toml", "Cache", "file"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestClearCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	if n, err := clearCache(dir); err != nil || n != 0 {
		t.Fatalf("clearCache(missing) = %d, %v, want 0, nil", n, err)
	}

	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, key := range []string{"a", "b"} {
		if err := fc.Set(ctx, key, []byte(`{}`), time.Hour); err != nil {
			t.Fatal(err)
		}
	}

	n, err := clearCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("clearCache() = %d, want 2", n)
	}
	if _, ok, _ := fc.Get(ctx, "a"); ok {
		t.Error("entry survived clearCache()")
	}
}
