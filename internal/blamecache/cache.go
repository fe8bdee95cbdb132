// Package blamecache holds the single-slot authorship cache: at most one
// resolved mapping and at most one in-flight lookup, for the document the
// session is currently focused on.
package blamecache

import (
	"context"
	"sync"

	"github.com/jensroland/git-blameview/internal/authorship"
)

// Priority of a lookup request, forwarded to the underlying capability.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

// Fetcher is the external authorship lookup capability. All three entry
// points are idempotent and safe to call redundantly. Cancellation is
// cooperative: a cancelled fetch may still run to completion, and callers
// must tolerate its orphaned result arriving later.
type Fetcher interface {
	RequestBlame(ctx context.Context, doc string, priority Priority) (authorship.LineAuthorMap, error)
	InvalidateCache(doc string)
	CancelForURI(doc string)
}

// inflight is a pending fetch shared by every caller that requested the
// same document before it resolved.
type inflight struct {
	done    chan struct{}
	mapping authorship.LineAuthorMap
}

// Cache is the per-focus single-slot cache. The generation counter gates
// late resolutions: any invalidation or focus switch bumps it, so a fetch
// started under an older generation cannot populate the slot.
type Cache struct {
	fetcher Fetcher

	mu       sync.Mutex
	doc      string
	gen      uint64
	resolved authorship.LineAuthorMap
	hasValue bool
	pending  *inflight
}

// New creates a cache over the given lookup capability.
func New(fetcher Fetcher) *Cache {
	return &Cache{fetcher: fetcher}
}

// Request returns the authorship mapping for doc. A resolved entry is
// returned immediately; a pending fetch is joined (exactly one underlying
// lookup runs no matter how many callers arrive before it resolves);
// otherwise a new fetch is issued. Lookup failure resolves to a nil
// mapping: callers render nothing rather than erroring.
//
// Request blocks until the mapping is available or ctx is done.
func (c *Cache) Request(ctx context.Context, doc string, priority Priority) (authorship.LineAuthorMap, error) {
	c.mu.Lock()
	if doc != c.doc {
		c.focusLocked(doc)
	}
	if c.hasValue {
		m := c.resolved
		c.mu.Unlock()
		return m, nil
	}
	if p := c.pending; p != nil {
		c.mu.Unlock()
		select {
		case <-p.done:
			return p.mapping, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p := &inflight{done: make(chan struct{})}
	c.pending = p
	gen := c.gen
	c.mu.Unlock()

	m, err := c.fetcher.RequestBlame(ctx, doc, priority)
	if err != nil {
		// LookupUnavailable: treat as "no attribution available".
		m = nil
	}
	p.mapping = m
	close(p.done)

	c.mu.Lock()
	// Store only if nothing invalidated or refocused while in flight and
	// this is still the fetch the slot is waiting on.
	if c.pending == p && c.gen == gen && c.doc == doc {
		c.pending = nil
		if m != nil {
			c.resolved = m
			c.hasValue = true
		}
	}
	c.mu.Unlock()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return m, nil
}

// Peek returns the resolved mapping for doc without triggering a fetch.
func (c *Cache) Peek(doc string) (authorship.LineAuthorMap, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if doc != c.doc || !c.hasValue {
		return nil, false
	}
	return c.resolved, true
}

// Invalidate clears the entry for doc to empty, dropping any reference to
// an in-flight fetch. The fetch itself keeps running (cancellation is
// cooperative-ignore) but its eventual result will not be stored.
func (c *Cache) Invalidate(doc string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if doc != c.doc {
		return
	}
	c.clearLocked()
}

// Focus makes doc the cache's current document. Switching discards the
// previous entry: a late resolution for the old focus must not overwrite
// the new focus's state.
func (c *Cache) Focus(doc string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if doc != c.doc {
		c.focusLocked(doc)
	}
}

// Doc returns the current focus document identity ("" when unfocused).
func (c *Cache) Doc() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc
}

func (c *Cache) focusLocked(doc string) {
	c.doc = doc
	c.clearLocked()
}

func (c *Cache) clearLocked() {
	c.gen++
	c.resolved = nil
	c.hasValue = false
	c.pending = nil
}
