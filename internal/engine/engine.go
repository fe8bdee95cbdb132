// Package engine owns the authorship session state machine: it subscribes
// to document lifecycle signals, drives cache invalidation and re-fetch
// scheduling, and emits derived view states to the rendering sinks.
//
// Concurrency model: a single event-loop goroutine owns all session state.
// Fetches run on their own goroutines but re-enter the loop as resolution
// signals tagged with the generation that requested them; anything stale is
// silently discarded there. Only the fetch boundary and the debounce timer
// suspend.
package engine

import (
	"context"
	"time"

	charmlog "github.com/charmbracelet/log"

	"github.com/jensroland/git-blameview/internal/blamecache"
	"github.com/jensroland/git-blameview/internal/view"
)

// DebounceInterval is how long after the last edit signal a re-fetch is
// scheduled. Content-change signals can fire once per keystroke; fetching
// on each one would flood the lookup capability and thrash the UI.
const DebounceInterval = 300 * time.Millisecond

// Config carries the feature flags the engine honors.
type Config struct {
	// ShowOnSelect enables selection-driven highlighting. When false,
	// selection changes are ignored entirely; toggle mode is unaffected.
	ShowOnSelect bool
	// StatusBar enables the optional fourth projection.
	StatusBar bool
	// Debounce overrides DebounceInterval (tests); zero means the default.
	Debounce time.Duration
}

// Selection is the transient selection state: anchor and active line.
type Selection struct {
	Anchor, Active int
}

// IsMultiLine reports whether the selection spans more than one line. Only
// multi-line selections drive annotation in non-toggle mode.
func (s Selection) IsMultiLine() bool { return s.Anchor != s.Active }

// Bounds returns the selection as an ordered [start, end] line range.
func (s Selection) Bounds() (int, int) {
	if s.Anchor <= s.Active {
		return s.Anchor, s.Active
	}
	return s.Active, s.Anchor
}

// State is the session context: created per viewer session, reset when the
// session ends. One toggle flag per session, never persisted.
type State struct {
	Focus     string
	LineCount int
	Selection *Selection
	Toggle    bool
	Viewport  [2]int

	// selSeq implements last-selection-wins: a selection-driven fetch
	// captures the current value and its resolution is discarded if the
	// selection changed in the meantime.
	selSeq uint64
	// editSeq implements last-edit-wins for the debounce timer.
	editSeq uint64
}

type handlerFunc func(e *Engine, sig Signal) []effect

// DetailFunc builds the detail content for an activated marker.
type DetailFunc func(m view.Marker) string

// Engine is the edit synchronizer. Construct with New, feed signals with
// Signal, and run the loop with Run.
type Engine struct {
	cfg     Config
	cache   *blamecache.Cache
	fetcher blamecache.Fetcher
	sink    view.Sink
	status  view.StatusSink
	detail  DetailFunc
	log     *charmlog.Logger

	state    State
	handlers map[kind]handlerFunc
	signals  chan Signal
	debounce *time.Timer
}

// New wires an engine over the lookup capability and rendering sink.
// status may be nil (the status projection is disabled by default) and
// detail may be nil (markers then activate to an empty detail).
func New(cfg Config, fetcher blamecache.Fetcher, sink view.Sink, status view.StatusSink, detail DetailFunc, logger *charmlog.Logger) *Engine {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DebounceInterval
	}
	if logger == nil {
		logger = charmlog.Default()
	}
	e := &Engine{
		cfg:     cfg,
		cache:   blamecache.New(fetcher),
		fetcher: fetcher,
		sink:    sink,
		status:  status,
		detail:  detail,
		log:     logger,
		signals: make(chan Signal, 64),
	}
	// Explicit signal table: one handler per signal kind, each a function
	// from (state, signal) to effects, testable without a host runtime.
	e.handlers = map[kind]handlerFunc{
		kindSave:     (*Engine).onSave,
		kindEdit:     (*Engine).onEdit,
		kindClose:    (*Engine).onClose,
		kindSwitch:   (*Engine).onSwitch,
		kindScroll:   (*Engine).onScroll,
		kindSelect:   (*Engine).onSelect,
		kindToggle:   (*Engine).onToggle,
		kindResolved: (*Engine).onResolved,
		kindDebounce: (*Engine).onDebounce,
	}
	return e
}

// Signal enqueues a lifecycle signal for the event loop. Never blocks the
// loop itself; external callers may block briefly when the queue is full.
func (e *Engine) Signal(sig Signal) {
	e.signals <- sig
}

// Run processes signals until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if e.debounce != nil {
				e.debounce.Stop()
			}
			return
		case sig := <-e.signals:
			e.process(sig)
		}
	}
}

func (e *Engine) process(sig Signal) {
	h, ok := e.handlers[sig.kind()]
	if !ok {
		return
	}
	for _, eff := range h(e, sig) {
		e.apply(eff)
	}
}

// --- signal handlers ---

func (e *Engine) onSave(sig Signal) []effect {
	s := sig.(SaveSignal)
	effects := []effect{invalidateEffect{doc: s.Doc}}
	if s.Doc != e.state.Focus {
		return effects
	}
	if e.state.Toggle || e.multiLineSelection() {
		effects = append(effects, fetchEffect{doc: s.Doc, priority: blamecache.PriorityHigh, scope: scopeRefresh})
	}
	return effects
}

func (e *Engine) onEdit(sig Signal) []effect {
	s := sig.(EditSignal)
	if s.Doc != e.state.Focus {
		// The lookup capability may memoize per document; an edited
		// unfocused document must not serve its old mapping when it
		// regains focus. No views or debounce: nothing is showing it.
		return []effect{invalidateEffect{doc: s.Doc}}
	}
	if s.LineCount > 0 {
		e.state.LineCount = s.LineCount
	}
	e.state.editSeq++
	// Views must not show now-misaligned attributions even transiently:
	// drop the mapping and clear everything before the debounce elapses.
	return []effect{
		invalidateEffect{doc: s.Doc},
		clearViewsEffect{},
		debounceEffect{doc: s.Doc, seq: e.state.editSeq},
	}
}

func (e *Engine) onDebounce(sig Signal) []effect {
	s := sig.(debounceSignal)
	if s.doc != e.state.Focus || s.seq != e.state.editSeq {
		// A newer edit or focus change superseded this timer.
		return nil
	}
	return []effect{fetchEffect{doc: s.doc, priority: blamecache.PriorityNormal, scope: scopeRefresh}}
}

func (e *Engine) onClose(sig Signal) []effect {
	s := sig.(CloseSignal)
	effects := []effect{cancelEffect{doc: s.Doc}, invalidateEffect{doc: s.Doc}}
	if s.Doc == e.state.Focus {
		e.state.Focus = ""
		e.state.Selection = nil
		e.state.selSeq++
		e.state.editSeq++
		effects = append(effects, clearViewsEffect{})
	}
	return effects
}

func (e *Engine) onSwitch(sig Signal) []effect {
	s := sig.(SwitchSignal)
	// Transient UI state belongs to the old focus.
	e.state.Selection = nil
	e.state.selSeq++
	if s.Doc == e.state.Focus {
		return nil
	}
	e.state.Focus = s.Doc
	e.state.editSeq++
	if s.LineCount > 0 {
		e.state.LineCount = s.LineCount
	}
	effects := []effect{focusEffect{doc: s.Doc}, clearViewsEffect{}}
	if e.state.Toggle {
		effects = append(effects, fetchEffect{doc: s.Doc, priority: blamecache.PriorityHigh, scope: scopeToggle})
	}
	return effects
}

func (e *Engine) onScroll(sig Signal) []effect {
	s := sig.(ScrollSignal)
	e.state.Viewport = [2]int{s.First, s.Last}
	if _, ok := e.cache.Peek(e.state.Focus); !ok {
		return nil
	}
	if !e.state.Toggle && e.state.Selection == nil {
		return nil
	}
	// Marker placement depends on the viewport; highlights do not.
	return []effect{deriveEffect{markersOnly: true}}
}

func (e *Engine) onSelect(sig Signal) []effect {
	s := sig.(SelectSignal)
	if !e.cfg.ShowOnSelect {
		return nil
	}
	if s.Doc != e.state.Focus {
		return nil
	}

	if s.None || s.Anchor == s.Active {
		e.state.Selection = nil
		e.state.selSeq++
		if e.state.Toggle {
			// Toggle mode owns highlighting independently.
			return nil
		}
		return []effect{clearViewsEffect{}}
	}

	e.state.Selection = &Selection{Anchor: s.Anchor, Active: s.Active}
	e.state.selSeq++
	return []effect{fetchEffect{
		doc:      s.Doc,
		priority: blamecache.PriorityHigh,
		scope:    scopeSelection,
		selSeq:   e.state.selSeq,
	}}
}

func (e *Engine) onToggle(Signal) []effect {
	e.state.Toggle = !e.state.Toggle
	if !e.state.Toggle {
		if e.multiLineSelection() {
			return []effect{deriveEffect{}}
		}
		return []effect{clearViewsEffect{}}
	}
	if e.state.Focus == "" {
		return nil
	}
	if _, ok := e.cache.Peek(e.state.Focus); ok {
		// Mapping still cached from this lifetime: no re-fetch needed.
		return []effect{deriveEffect{}}
	}
	return []effect{fetchEffect{doc: e.state.Focus, priority: blamecache.PriorityHigh, scope: scopeToggle}}
}

func (e *Engine) onResolved(sig Signal) []effect {
	s := sig.(resolvedSignal)
	// StaleResolution gates: never an error, just discarded.
	if s.doc != e.state.Focus {
		e.log.Debug("discarding resolution for unfocused document", "doc", s.doc)
		return nil
	}
	if s.scope == scopeSelection {
		if s.selSeq != e.state.selSeq || !e.multiLineSelection() {
			e.log.Debug("discarding superseded selection resolution", "doc", s.doc)
			return nil
		}
	}
	if s.mapping == nil {
		// No attribution available: render nothing, surface no error.
		return []effect{clearViewsEffect{}}
	}
	return []effect{deriveEffect{}}
}

// --- effect execution ---

func (e *Engine) apply(eff effect) {
	switch ef := eff.(type) {
	case invalidateEffect:
		e.cache.Invalidate(ef.doc)
		e.fetcher.InvalidateCache(ef.doc)
	case cancelEffect:
		e.fetcher.CancelForURI(ef.doc)
	case focusEffect:
		e.cache.Focus(ef.doc)
	case clearViewsEffect:
		e.sink.ClearHighlights()
		e.sink.ClearMarkers()
		if e.status != nil && e.cfg.StatusBar {
			e.status.SetStatus("")
		}
	case debounceEffect:
		e.resetDebounce(ef)
	case fetchEffect:
		e.startFetch(ef)
	case deriveEffect:
		e.derive(ef.markersOnly)
	}
}

// resetDebounce (re)arms the single pending timer: only the most recent
// scheduled re-fetch per document survives.
func (e *Engine) resetDebounce(ef debounceEffect) {
	fire := func() {
		e.Signal(debounceSignal{doc: ef.doc, seq: ef.seq})
	}
	if e.debounce != nil {
		e.debounce.Stop()
	}
	e.debounce = time.AfterFunc(e.cfg.Debounce, fire)
}

// startFetch issues the lookup off-loop. The cache coalesces concurrent
// requests for the same document; the completion re-enters the loop as a
// resolution signal for gating.
func (e *Engine) startFetch(ef fetchEffect) {
	go func() {
		m, err := e.cache.Request(context.Background(), ef.doc, ef.priority)
		if err != nil {
			return
		}
		e.Signal(resolvedSignal{doc: ef.doc, scope: ef.scope, selSeq: ef.selSeq, mapping: m})
	}()
}

func (e *Engine) multiLineSelection() bool {
	return e.state.Selection != nil && e.state.Selection.IsMultiLine()
}

// scope returns the line range views should derive from, or false when no
// projection is active (no toggle, no multi-line selection).
func (e *Engine) scope() ([2]int, bool) {
	if e.state.Toggle {
		last := e.state.LineCount
		if last < 1 {
			last = 1
		}
		return [2]int{1, last}, true
	}
	if e.multiLineSelection() {
		lo, hi := e.state.Selection.Bounds()
		return [2]int{lo, hi}, true
	}
	return [2]int{}, false
}

// derive recomputes the projections from the cached mapping and pushes
// them to the sinks. Emissions are fire-and-forget.
func (e *Engine) derive(markersOnly bool) {
	scope, active := e.scope()
	if !active {
		e.apply(clearViewsEffect{})
		return
	}
	mapping, ok := e.cache.Peek(e.state.Focus)
	if !ok {
		return
	}

	p := view.Project(mapping, view.Inputs{
		Scope:     scope,
		Viewport:  e.state.Viewport,
		LineCount: e.state.LineCount,
	})

	if !markersOnly {
		e.sink.ClearHighlights()
		for _, h := range p.Highlights {
			e.sink.ApplyHighlight(h.ColorIndex, h.Ranges)
		}
	}

	e.sink.ClearMarkers()
	for _, m := range p.Markers {
		marker := m
		e.sink.SetMarker(marker, func() {
			content := ""
			if e.detail != nil {
				content = e.detail(marker)
			}
			e.sink.ShowDetail(content)
		})
	}

	if e.status != nil && e.cfg.StatusBar && !markersOnly {
		e.status.SetStatus(p.Status)
	}
}
