package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jensroland/git-blameview/internal/engine"
)

type recordingSink struct {
	mu      sync.Mutex
	signals []engine.Signal
}

func (r *recordingSink) Signal(s engine.Signal) {
	r.mu.Lock()
	r.signals = append(r.signals, s)
	r.mu.Unlock()
}

func (r *recordingSink) snapshot() []engine.Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]engine.Signal(nil), r.signals...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestTrackedWriteEmitsEdit(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "app.go"), []byte("a\nb\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sink := &recordingSink{}
	w, err := New(root, sink, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Track("app.go"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := os.WriteFile(filepath.Join(root, "app.go"), []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		for _, s := range sink.snapshot() {
			if e, ok := s.(engine.EditSignal); ok && e.Doc == "app.go" && e.LineCount == 3 {
				return true
			}
		}
		return false
	})
}

func TestUntrackedFileIgnored(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "app.go"), []byte("a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "other.go"), []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sink := &recordingSink{}
	w, err := New(root, sink, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Track("app.go"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// other.go shares the watched directory but is not tracked.
	if err := os.WriteFile(filepath.Join(root, "other.go"), []byte("x\ny\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "app.go"), []byte("a\nz\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		return len(sink.snapshot()) > 0
	})
	for _, s := range sink.snapshot() {
		if e, ok := s.(engine.EditSignal); ok && e.Doc == "other.go" {
			t.Error("untracked document should not emit signals")
		}
	}
}

func TestRemoveEmitsClose(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "app.go")
	if err := os.WriteFile(path, []byte("a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sink := &recordingSink{}
	w, err := New(root, sink, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Track("app.go"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		for _, s := range sink.snapshot() {
			if c, ok := s.(engine.CloseSignal); ok && c.Doc == "app.go" {
				return true
			}
		}
		return false
	})
}

func TestUntrackStopsSignals(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "app.go")
	if err := os.WriteFile(path, []byte("a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sink := &recordingSink{}
	w, err := New(root, sink, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Track("app.go"); err != nil {
		t.Fatal(err)
	}
	w.Untrack("app.go")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := os.WriteFile(path, []byte("a\nb\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(200 * time.Millisecond)
	if got := sink.snapshot(); len(got) != 0 {
		t.Errorf("expected no signals after Untrack, got %v", got)
	}
}
