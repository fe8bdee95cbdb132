package engine

import (
	"github.com/jensroland/git-blameview/internal/authorship"
	"github.com/jensroland/git-blameview/internal/blamecache"
)

// Signal is one document lifecycle event. External collaborators (TUI,
// file watcher) construct the exported signal types; resolution and
// debounce signals are internal re-entries into the event loop.
type Signal interface {
	kind() kind
}

type kind int

const (
	kindSave kind = iota
	kindEdit
	kindClose
	kindSwitch
	kindScroll
	kindSelect
	kindToggle
	kindResolved
	kindDebounce
)

// SaveSignal: the document was explicitly (re)validated.
type SaveSignal struct {
	Doc string
}

// EditSignal: document content changed. Fires once per mutation burst
// source (keystroke, external write); the engine debounces re-fetching.
type EditSignal struct {
	Doc       string
	LineCount int
}

// CloseSignal: the document was closed.
type CloseSignal struct {
	Doc string
}

// SwitchSignal: the focused document changed.
type SwitchSignal struct {
	Doc       string
	LineCount int
}

// ScrollSignal: the visible line range changed. Never triggers a fetch.
type ScrollSignal struct {
	First, Last int
}

// SelectSignal: the selection changed. None reports a cleared selection;
// otherwise Anchor and Active are 1-based lines (equal for single-line).
type SelectSignal struct {
	Doc            string
	Anchor, Active int
	None           bool
}

// ToggleSignal flips "show all AI code" for the session.
type ToggleSignal struct{}

// fetchScope records why a fetch was issued, so its resolution can be
// gated against the state that requested it.
type fetchScope int

const (
	scopeRefresh   fetchScope = iota // save/debounced edit: current state decides the views
	scopeToggle                      // toggle mode eager fetch
	scopeSelection                   // selection-driven; subject to last-selection-wins
)

// resolvedSignal re-enters the loop when a fetch completes.
type resolvedSignal struct {
	doc     string
	scope   fetchScope
	selSeq  uint64
	mapping authorship.LineAuthorMap
}

// debounceSignal re-enters the loop when the edit debounce timer fires.
type debounceSignal struct {
	doc string
	seq uint64
}

func (SaveSignal) kind() kind     { return kindSave }
func (EditSignal) kind() kind     { return kindEdit }
func (CloseSignal) kind() kind    { return kindClose }
func (SwitchSignal) kind() kind   { return kindSwitch }
func (ScrollSignal) kind() kind   { return kindScroll }
func (SelectSignal) kind() kind   { return kindSelect }
func (ToggleSignal) kind() kind   { return kindToggle }
func (resolvedSignal) kind() kind { return kindResolved }
func (debounceSignal) kind() kind { return kindDebounce }

// effect is a deferred action a handler requests. Handlers mutate session
// state and return effects; the loop executes them after the handler
// returns, so state is always consistent before anything observable runs.
type effect interface {
	isEffect()
}

type fetchEffect struct {
	doc      string
	priority blamecache.Priority
	scope    fetchScope
	selSeq   uint64
}

// deriveEffect recomputes projections from the cached mapping and current
// state. markersOnly restricts emission to the annotation view (scroll).
type deriveEffect struct {
	markersOnly bool
}

type clearViewsEffect struct{}

type invalidateEffect struct {
	doc string
}

type cancelEffect struct {
	doc string
}

type focusEffect struct {
	doc string
}

type debounceEffect struct {
	doc string
	seq uint64
}

func (fetchEffect) isEffect()      {}
func (deriveEffect) isEffect()     {}
func (clearViewsEffect) isEffect() {}
func (invalidateEffect) isEffect() {}
func (cancelEffect) isEffect()     {}
func (focusEffect) isEffect()      {}
func (debounceEffect) isEffect()   {}
