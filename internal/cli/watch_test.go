package cli

import (
	"context"
	stderrors "errors"
	"os"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestRelevant(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want bool
	}{
		{fsnotify.Write, true},
		{fsnotify.Create, true},
		{fsnotify.Rename, true},
		{fsnotify.Remove, false},
		{fsnotify.Chmod, false},
		{fsnotify.Write | fsnotify.Chmod, true},
	}
	for _, tt := range tests {
		if got := relevant(tt.op); got != tt.want {
			t.Errorf("relevant(%v) = %v, want %v", tt.op, got, tt.want)
		}
	}
}

func TestWatchRerunsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rig.nc", "x = 1\n")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runs := 0
	err := watch(ctx, []string{path}, func() error {
		runs++
		switch runs {
		case 1:
			if err := os.WriteFile(path, []byte("x = 2\n"), 0o644); err != nil {
				return err
			}
		case 2:
			cancel()
		}
		return nil
	})
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("watch() error = %v, want context.Canceled", err)
	}
	if runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
}

func TestWatchStopsOnRunError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rig.nc", "x = 1\n")
	boom := stderrors.New("boom")

	err := watch(context.Background(), []string{path}, func() error { return boom })
	if !stderrors.Is(err, boom) {
		t.Errorf("watch() error = %v, want %v", err, boom)
	}
}
