package pipeline

import (
	"context"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/nodecalc/pkg/cache"
	"github.com/matzehuels/nodecalc/pkg/config"
	"github.com/matzehuels/nodecalc/pkg/errors"
	"github.com/matzehuels/nodecalc/pkg/render/nodelink"
)

const testScene = `
[[node]]
name = "A"
type = "transform"

[[node]]
name = "B"
type = "transform"
`

func newTestRunner(t *testing.T, c cache.Cache) *Runner {
	t.Helper()
	return NewRunner(c, log.NewWithOptions(io.Discard, log.Options{}))
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"dot", false},
		{"svg", false},
		{"toml", false},
		{"png", true},
		{"SVG", true},
		{"", true},
	}
	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"dot", "toml"}); err != nil {
		t.Errorf("ValidateFormats() error = %v", err)
	}
	if err := ValidateFormats([]string{"dot", "pdf"}); err == nil {
		t.Error("ValidateFormats() accepted pdf")
	}
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("ValidateFormats(nil) error = %v", err)
	}
}

func TestOptionsValidate(t *testing.T) {
	opts := Options{Script: "A.tx = 1"}
	if err := opts.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if opts.ScriptName != DefaultScriptName {
		t.Errorf("ScriptName = %q, want %q", opts.ScriptName, DefaultScriptName)
	}
	if opts.Logger == nil {
		t.Error("Validate() left Logger nil")
	}

	empty := Options{}
	if err := empty.Validate(); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Validate() on empty script error = %v, want INVALID_INPUT", err)
	}
}

func TestResolveConfig(t *testing.T) {
	base := config.Default()
	base.NodePrefix = "rig"
	base.Extensions = []string{"a.toml"}

	opts := Options{BaseConfig: &base, Config: "auto_consolidate = false"}
	cfg, err := opts.ResolveConfig()
	if err != nil {
		t.Fatalf("ResolveConfig() error = %v", err)
	}
	if cfg.NodePrefix != "rig" || cfg.AutoConsolidate {
		t.Errorf("ResolveConfig() = %+v, want rig prefix without consolidation", cfg)
	}

	cfg.Extensions[0] = "b.toml"
	if base.Extensions[0] != "a.toml" {
		t.Error("ResolveConfig() shared the base extension slice")
	}

	bad := Options{Config: "no_such_key = 1"}
	if _, err := bad.ResolveConfig(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("ResolveConfig() error = %v, want INVALID_CONFIG", err)
	}
}

func TestLoadScene(t *testing.T) {
	g, err := LoadScene("")
	if err != nil {
		t.Fatalf("LoadScene(\"\") error = %v", err)
	}
	if n := len(g.Nodes()); n != 0 {
		t.Errorf("len(Nodes()) = %d, want 0", n)
	}

	g, err = LoadScene(testScene)
	if err != nil {
		t.Fatalf("LoadScene() error = %v", err)
	}
	if n := len(g.Nodes()); n != 2 {
		t.Errorf("len(Nodes()) = %d, want 2", n)
	}

	if _, err := LoadScene("[[node]\n"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("LoadScene(bad) error = %v, want INVALID_INPUT", err)
	}
}

func TestExecute(t *testing.T) {
	r := newTestRunner(t, nil)
	res, err := r.Execute(context.Background(), Options{
		Script:  "A.translateX = B.translateY + 2",
		Scene:   testScene,
		Trace:   true,
		Formats: []string{FormatDOT, FormatScene},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(res.Trace) != 5 {
		t.Fatalf("len(Trace) = %d, want 5: %q", len(res.Trace), res.Trace)
	}
	want := "var1 = cmds.createNode('plusMinusAverage', name='nc_ADD_list_plusMinusAverage')"
	if res.Trace[0] != want {
		t.Errorf("Trace[0] = %q, want %q", res.Trace[0], want)
	}

	wantCreated := []Node{{Name: "nc_ADD_list_plusMinusAverage", Type: "plusMinusAverage"}}
	if !slices.Equal(res.Created, wantCreated) {
		t.Errorf("Created = %v, want %v", res.Created, wantCreated)
	}
	if len(res.Connections) != 2 {
		t.Fatalf("len(Connections) = %d, want 2", len(res.Connections))
	}
	if got := res.Connections[1].Destination; got != "A.translateX" {
		t.Errorf("Connections[1].Destination = %q, want A.translateX", got)
	}
	if res.Stats.NodeCount != 3 || res.Stats.EdgeCount != 2 {
		t.Errorf("Stats = %+v, want 3 nodes and 2 edges", res.Stats)
	}

	dot := string(res.Artifacts[FormatDOT])
	if !strings.Contains(dot, "nc_ADD_list_plusMinusAverage") || !strings.Contains(dot, "fillcolor=lightgrey") {
		t.Errorf("dot artifact missing the shaded generated node:\n%s", dot)
	}
	if scene := string(res.Artifacts[FormatScene]); !strings.Contains(scene, `name = "nc_ADD_list_plusMinusAverage"`) {
		t.Errorf("scene artifact missing generated node:\n%s", scene)
	}
	if res.CacheInfo.Hit {
		t.Error("CacheInfo.Hit = true with a null cache")
	}
}

func TestExecuteWithoutTrace(t *testing.T) {
	r := newTestRunner(t, nil)
	res, err := r.Execute(context.Background(), Options{Script: "A.translateX = B.translateY", Scene: testScene})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Trace != nil {
		t.Errorf("Trace = %q, want nil", res.Trace)
	}
	if len(res.Created) != 0 {
		t.Errorf("Created = %v, want none", res.Created)
	}
	if res.Artifacts != nil {
		t.Errorf("Artifacts = %v, want nil", res.Artifacts)
	}
}

func TestExecuteCached(t *testing.T) {
	fc, err := cache.NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	r := newTestRunner(t, fc)
	defer r.Close()

	opts := Options{Script: "A.translateX = B.translateY * 2", Scene: testScene, Trace: true}
	first, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	second, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if first.CacheInfo.Hit || !second.CacheInfo.Hit {
		t.Errorf("cache hits = %v, %v, want false, true", first.CacheInfo.Hit, second.CacheInfo.Hit)
	}
	if !slices.Equal(first.Trace, second.Trace) {
		t.Errorf("cached Trace = %q, want %q", second.Trace, first.Trace)
	}
	if first.CacheInfo.Key != second.CacheInfo.Key {
		t.Errorf("cache keys differ: %s != %s", first.CacheInfo.Key, second.CacheInfo.Key)
	}

	opts.Refresh = true
	third, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheInfo.Hit {
		t.Error("Execute() with Refresh hit the cache")
	}

	opts.Refresh = false
	opts.Config = "node_prefix = \"rig\""
	fourth, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if fourth.CacheInfo.Hit {
		t.Error("Execute() with a different config hit the cache")
	}
	if !strings.HasPrefix(fourth.Created[0].Name, "rig_MUL_") {
		t.Errorf("Created[0] = %q, want rig_MUL_ prefix", fourth.Created[0].Name)
	}
}

func TestExecuteErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want errors.Code
	}{
		{"empty script", Options{}, errors.ErrCodeInvalidInput},
		{"bad format", Options{Script: "x = 1", Formats: []string{"gif"}}, errors.ErrCodeInvalidInput},
		{"bad config", Options{Script: "x = 1", Config: "node_prefix = 3"}, errors.ErrCodeInvalidConfig},
		{"bad scene", Options{Script: "x = 1", Scene: "node = ["}, errors.ErrCodeInvalidInput},
		{"syntax", Options{Script: "A.tx = (", Scene: testScene}, errors.ErrCodeScriptSyntax},
		{"missing extension", Options{Script: "x = 1", Config: `extensions = ["/no/such/ops.toml"]`}, errors.ErrCodeFileNotFound},
	}
	r := newTestRunner(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Execute(context.Background(), tt.opts)
			if got := errors.GetCode(err); got != tt.want {
				t.Errorf("Execute() code = %v, want %v (err = %v)", got, tt.want, err)
			}
		})
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	g, err := LoadScene(testScene)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Render(context.Background(), g, []string{"png"}, nodelink.Options{}); err == nil {
		t.Error("Render() accepted png")
	}
	out, err := Render(context.Background(), g, nil, nodelink.Options{})
	if err != nil || out != nil {
		t.Errorf("Render(no formats) = %v, %v, want nil, nil", out, err)
	}
}
