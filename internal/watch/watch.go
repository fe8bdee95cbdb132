// Package watch translates filesystem changes on tracked documents into
// engine signals, so external edits (another editor, a git checkout, the
// agent itself) keep the projections current.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/jensroland/git-blameview/internal/engine"
	"github.com/jensroland/git-blameview/internal/lineset"
)

// Signaler receives document lifecycle signals.
type Signaler interface {
	Signal(engine.Signal)
}

// Watcher forwards change events for tracked repo-relative documents.
// Parent directories are watched rather than the files themselves because
// editors that write atomically replace the inode on every save.
type Watcher struct {
	root string
	sink Signaler
	log  *log.Logger
	fs   *fsnotify.Watcher

	mu   sync.Mutex
	docs map[string]bool
}

// New creates a watcher rooted at the repo root.
func New(root string, sink Signaler, logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.Default()
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root: root,
		sink: sink,
		log:  logger,
		fs:   fs,
		docs: make(map[string]bool),
	}, nil
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Track starts watching a repo-relative document.
func (w *Watcher) Track(doc string) error {
	w.mu.Lock()
	w.docs[doc] = true
	w.mu.Unlock()

	dir := filepath.Dir(filepath.Join(w.root, doc))
	if err := w.fs.Add(dir); err != nil {
		return err
	}
	w.log.Debug("watching", "doc", doc)
	return nil
}

// Untrack stops forwarding events for a document. The directory watch
// stays; other tracked documents may share it.
func (w *Watcher) Untrack(doc string) {
	w.mu.Lock()
	delete(w.docs, doc)
	w.mu.Unlock()
}

// Run processes events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ev)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher error", "err", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	w.mu.Lock()
	tracked := w.docs[rel]
	w.mu.Unlock()
	if !tracked {
		return
	}

	abs := filepath.Join(w.root, rel)
	switch {
	case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
		n, err := countLines(abs)
		if err != nil {
			return
		}
		w.log.Debug("external edit", "doc", rel)
		w.sink.Signal(engine.EditSignal{Doc: rel, LineCount: n})

	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// Atomic saves rename the file away and recreate it; only a file
		// that stays gone counts as closed.
		if _, statErr := os.Stat(abs); statErr == nil {
			return
		}
		w.log.Debug("document removed", "doc", rel)
		w.sink.Signal(engine.CloseSignal{Doc: rel})
	}
}

func countLines(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return len(lineset.SplitLines(string(data))), nil
}
