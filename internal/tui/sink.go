package tui

import (
	"sync"

	bubbletea "github.com/charmbracelet/bubbletea"

	"github.com/jensroland/git-blameview/internal/view"
)

// Engine emissions arrive on the engine's loop goroutine; bubbletea wants
// them as program messages. The sink translates and forwards.

type applyHighlightMsg struct {
	colorIndex int
	ranges     [][2]int
}

type clearHighlightsMsg struct{}

type setMarkerMsg struct {
	marker     view.Marker
	onActivate func()
}

type clearMarkersMsg struct{}

type showDetailMsg struct {
	content string
}

type setStatusMsg struct {
	text string
}

// reloadMsg tells the model to re-read a document from disk.
type reloadMsg struct {
	doc string
}

// Sink implements view.Sink and view.StatusSink over a bubbletea program.
// Emissions before the program starts are buffered and flushed on Bind.
type Sink struct {
	mu      sync.Mutex
	send    func(bubbletea.Msg)
	pending []bubbletea.Msg
}

var (
	_ view.Sink       = (*Sink)(nil)
	_ view.StatusSink = (*Sink)(nil)
)

// NewSink creates an unbound sink.
func NewSink() *Sink {
	return &Sink{}
}

// Bind attaches the running program and flushes buffered emissions.
func (s *Sink) Bind(p *bubbletea.Program) {
	s.mu.Lock()
	s.send = p.Send
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, msg := range pending {
		p.Send(msg)
	}
}

func (s *Sink) emit(msg bubbletea.Msg) {
	s.mu.Lock()
	send := s.send
	if send == nil {
		s.pending = append(s.pending, msg)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	send(msg)
}

func (s *Sink) ApplyHighlight(colorIndex int, ranges [][2]int) {
	s.emit(applyHighlightMsg{colorIndex: colorIndex, ranges: ranges})
}

func (s *Sink) ClearHighlights() {
	s.emit(clearHighlightsMsg{})
}

func (s *Sink) SetMarker(m view.Marker, onActivate func()) {
	s.emit(setMarkerMsg{marker: m, onActivate: onActivate})
}

func (s *Sink) ClearMarkers() {
	s.emit(clearMarkersMsg{})
}

func (s *Sink) ShowDetail(content string) {
	s.emit(showDetailMsg{content: content})
}

func (s *Sink) SetStatus(text string) {
	s.emit(setStatusMsg{text: text})
}

// Reload asks the model to re-read a document.
func (s *Sink) Reload(doc string) {
	s.emit(reloadMsg{doc: doc})
}
