package buildinfo

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	got := Get()
	if got.Version != Version || got.Commit != Commit || got.Date != Date {
		t.Errorf("Get() = %+v, want the package variables", got)
	}
}

func TestTemplate(t *testing.T) {
	old := Version
	Version = "v9.9.9"
	t.Cleanup(func() { Version = old })

	if tmpl := Template(); !strings.Contains(tmpl, "v9.9.9") || !strings.HasPrefix(tmpl, "{{.Name}}") {
		t.Errorf("Template() = %q", tmpl)
	}
	if s := String(); !strings.HasPrefix(s, "version: v9.9.9\n") {
		t.Errorf("String() = %q", s)
	}
}
