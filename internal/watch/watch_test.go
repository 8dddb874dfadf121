package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherDebounce(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sketch.json")
	other := filepath.Join(dir, "other.json")
	for _, f := range []string{file, other} {
		if err := os.WriteFile(f, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	w, err := New(100*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Add(file); err != nil {
		t.Fatal(err)
	}

	calls := make(chan string, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func(p string) { calls <- p }) }()

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(file, []byte(`{"strokes":[]}`), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(other, []byte(`{}`), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case got := <-calls:
		want, _ := filepath.Abs(file)
		if got != want {
			t.Errorf("callback for %q, want %q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no callback")
	}
	select {
	case got := <-calls:
		t.Errorf("burst produced a second callback for %q", got)
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcherAddMissingDir(t *testing.T) {
	w, err := New(time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Add(filepath.Join(t.TempDir(), "missing", "f.json")); err == nil {
		t.Error("expected error watching file in missing directory")
	}
}
