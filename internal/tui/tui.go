// Package tui renders the authorship viewer: the focused document with a
// colored provenance gutter, one marker per prompt, an optional status
// line, and a detail overlay. All document lifecycle events are forwarded
// to the engine as signals; everything drawn comes back as sink emissions.
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jensroland/git-blameview/internal/detail"
	"github.com/jensroland/git-blameview/internal/engine"
	"github.com/jensroland/git-blameview/internal/lineset"
	"github.com/jensroland/git-blameview/internal/view"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	lineNumStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("252"))
	selectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("110"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236"))

	// One style per provenance color index; must stay in sync with the
	// palette size used for color assignment.
	palette = [8]lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("111")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("176")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("80")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("147")),
	}
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding
	Select key.Binding
	Clear  key.Binding
	Toggle key.Binding
	Detail key.Binding
	Next   key.Binding
	Prev   key.Binding
	Close  key.Binding
	Reval  key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Select, k.Toggle, k.Detail, k.Next, k.Reval, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Down, k.Up, k.Top, k.Bottom, k.Select, k.Clear, k.Detail},
		{k.Toggle, k.Next, k.Prev, k.Close, k.Reval, k.Quit},
	}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		Top:    key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "top")),
		Bottom: key.NewBinding(key.WithKeys("G"), key.WithHelp("G", "bottom")),
		Select: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "select")),
		Clear:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		Toggle: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "all AI")),
		Detail: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "detail")),
		Next:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next doc")),
		Prev:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev doc")),
		Close:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "close doc")),
		Reval:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "revalidate")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type markerEntry struct {
	marker   view.Marker
	activate func()
}

type overlayState struct {
	rendered string
	commits  []string
}

// Model is the bubbletea model for the viewer.
type Model struct {
	eng  *engine.Engine
	root string

	docs    []string
	current int
	lines   []string

	offset int // first visible line, 0-based
	cursor int // 0-based

	width  int
	height int

	selecting bool
	selAnchor int // 0-based

	highlights map[int]int // 1-based line → color index
	markers    map[int]markerEntry
	status     string
	overlay    *overlayState
	toggled    bool

	keys keyMap
	help help.Model
}

// NewModel creates the model over an engine and the documents to browse.
func NewModel(eng *engine.Engine, root string, docs []string) Model {
	m := Model{
		eng:        eng,
		root:       root,
		docs:       docs,
		highlights: make(map[int]int),
		markers:    make(map[int]markerEntry),
		keys:       defaultKeyMap(),
		help:       help.New(),
	}
	m.loadContent()
	return m
}

func (m *Model) doc() string {
	if len(m.docs) == 0 {
		return ""
	}
	return m.docs[m.current]
}

func (m *Model) loadContent() {
	m.lines = nil
	if m.doc() == "" {
		return
	}
	data, err := os.ReadFile(filepath.Join(m.root, m.doc()))
	if err != nil {
		m.lines = []string{fmt.Sprintf("(cannot read %s: %v)", m.doc(), err)}
		return
	}
	m.lines = lineset.SplitLines(string(data))
	if m.cursor >= len(m.lines) {
		m.cursor = max(len(m.lines)-1, 0)
	}
	if m.offset > m.cursor {
		m.offset = m.cursor
	}
}

func (m Model) Init() bubbletea.Cmd {
	return func() bubbletea.Msg {
		m.eng.Signal(engine.SwitchSignal{Doc: m.doc(), LineCount: len(m.lines)})
		m.eng.Signal(m.scrollSignal())
		return nil
	}
}

func (m Model) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.eng.Signal(m.scrollSignal())
		return m, nil

	case applyHighlightMsg:
		for _, r := range msg.ranges {
			for line := r[0]; line <= r[1]; line++ {
				m.highlights[line] = msg.colorIndex
			}
		}
		return m, nil

	case clearHighlightsMsg:
		m.highlights = make(map[int]int)
		return m, nil

	case setMarkerMsg:
		m.markers[msg.marker.Line] = markerEntry{marker: msg.marker, activate: msg.onActivate}
		return m, nil

	case clearMarkersMsg:
		m.markers = make(map[int]markerEntry)
		return m, nil

	case showDetailMsg:
		m.openOverlay(msg.content, nil)
		return m, nil

	case setStatusMsg:
		m.status = msg.text
		return m, nil

	case reloadMsg:
		if msg.doc == m.doc() {
			m.loadContent()
		}
		return m, nil

	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	if m.overlay != nil {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, bubbletea.Quit
		case key.Matches(msg, m.keys.Clear), key.Matches(msg, m.keys.Detail):
			m.overlay = nil
			return m, nil
		}
		// Digit shortcuts open historical diffs by position.
		if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			idx := int(s[0] - '1')
			if idx < len(m.overlay.commits) {
				md := detail.HistoricalDiff(m.root, m.overlay.commits[idx], m.doc())
				m.openOverlay(md, m.overlay.commits)
			}
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, bubbletea.Quit

	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.cursor = 0
		m.clampScroll()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.cursor = max(len(m.lines)-1, 0)
		m.clampScroll()
		return m, nil

	case key.Matches(msg, m.keys.Select):
		m.selecting = true
		m.selAnchor = m.cursor
		m.sendSelection()
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		if m.selecting {
			m.selecting = false
			m.eng.Signal(engine.SelectSignal{Doc: m.doc(), None: true})
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		m.toggled = !m.toggled
		m.eng.Signal(engine.ToggleSignal{})
		return m, nil

	case key.Matches(msg, m.keys.Detail):
		if entry, ok := m.markers[m.cursor+1]; ok && entry.activate != nil {
			entry.activate()
		}
		return m, nil

	case key.Matches(msg, m.keys.Next):
		return m.switchDoc(1), nil

	case key.Matches(msg, m.keys.Prev):
		return m.switchDoc(-1), nil

	case key.Matches(msg, m.keys.Close):
		return m.closeDoc()

	case key.Matches(msg, m.keys.Reval):
		m.eng.Signal(engine.SaveSignal{Doc: m.doc()})
		return m, nil
	}
	return m, nil
}

func (m *Model) openOverlay(markdown string, commits []string) {
	if commits == nil {
		commits = commitsIn(markdown, m.markers, m.cursor+1)
	}
	m.overlay = &overlayState{
		rendered: renderMarkdown(markdown, m.width),
		commits:  commits,
	}
}

// commitsIn pulls the commit list from the marker under the cursor so the
// overlay can offer digit shortcuts for historical diffs.
func commitsIn(_ string, markers map[int]markerEntry, line int) []string {
	entry, ok := markers[line]
	if !ok {
		return nil
	}
	if p := entry.marker.Group.Sample.Prompt; p != nil {
		return p.Commits
	}
	return nil
}

// renderMarkdown renders with glamour, degrading to the raw text when the
// renderer fails. Detail is never lost to a styling error.
func renderMarkdown(markdown string, width int) string {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(min(width-2, 100)),
	)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}

func (m *Model) moveCursor(delta int) {
	if len(m.lines) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.lines)-1)
	m.clampScroll()
	if m.selecting {
		m.sendSelection()
	}
}

func (m *Model) sendSelection() {
	m.eng.Signal(engine.SelectSignal{
		Doc:    m.doc(),
		Anchor: m.selAnchor + 1,
		Active: m.cursor + 1,
	})
}

// clampScroll keeps the cursor visible and reports viewport changes.
func (m *Model) clampScroll() {
	h := m.contentHeight()
	oldOffset := m.offset
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if m.offset != oldOffset {
		m.eng.Signal(m.scrollSignal())
	}
}

func (m *Model) scrollSignal() engine.ScrollSignal {
	first := m.offset + 1
	last := min(m.offset+m.contentHeight(), max(len(m.lines), 1))
	return engine.ScrollSignal{First: first, Last: last}
}

func (m *Model) contentHeight() int {
	chrome := 3 // header, rule, footer
	if m.status != "" {
		chrome++
	}
	h := m.height - chrome
	if h < 1 {
		h = 20
	}
	return h
}

func (m Model) switchDoc(dir int) Model {
	if len(m.docs) < 2 {
		return m
	}
	m.current = (m.current + dir + len(m.docs)) % len(m.docs)
	m.resetDocState()
	m.eng.Signal(engine.SwitchSignal{Doc: m.doc(), LineCount: len(m.lines)})
	m.eng.Signal(m.scrollSignal())
	return m
}

func (m Model) closeDoc() (bubbletea.Model, bubbletea.Cmd) {
	if len(m.docs) == 0 {
		return m, bubbletea.Quit
	}
	closed := m.doc()
	m.docs = append(m.docs[:m.current], m.docs[m.current+1:]...)
	m.eng.Signal(engine.CloseSignal{Doc: closed})
	if len(m.docs) == 0 {
		return m, bubbletea.Quit
	}
	if m.current >= len(m.docs) {
		m.current = 0
	}
	m.resetDocState()
	m.eng.Signal(engine.SwitchSignal{Doc: m.doc(), LineCount: len(m.lines)})
	m.eng.Signal(m.scrollSignal())
	return m, nil
}

func (m *Model) resetDocState() {
	m.offset = 0
	m.cursor = 0
	m.selecting = false
	m.overlay = nil
	m.highlights = make(map[int]int)
	m.markers = make(map[int]markerEntry)
	m.status = ""
	m.loadContent()
}

func (m Model) View() string {
	if m.overlay != nil {
		return m.viewOverlay()
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", max(m.width, 1))))
	b.WriteString("\n")

	h := m.contentHeight()
	for i := m.offset; i < m.offset+h; i++ {
		if i >= 0 && i < len(m.lines) {
			b.WriteString(m.viewLine(i))
		}
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString(statusStyle.Render(padRight(" "+m.status, max(m.width, 1))))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) viewHeader() string {
	left := titleStyle.Render("blameview · " + m.doc())
	right := ""
	if len(m.docs) > 1 {
		right = fmt.Sprintf("%d/%d", m.current+1, len(m.docs))
	}
	if m.toggled {
		right = strings.TrimSpace(right + " [all AI]")
	}
	right = mutedStyle.Render(right)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) viewLine(i int) string {
	lineNo := i + 1
	num := lineNumStyle.Render(fmt.Sprintf("%4d", lineNo))

	gutter := " "
	if idx, ok := m.highlights[lineNo]; ok {
		gutter = palette[idx%len(palette)].Render("▌")
	}

	text := ""
	if i < len(m.lines) {
		text = strings.ReplaceAll(m.lines[i], "\t", "    ")
	}
	maxText := max(m.width-8, 10)
	if len([]rune(text)) > maxText {
		text = string([]rune(text)[:maxText])
	}

	switch {
	case i == m.cursor:
		text = cursorStyle.Render(text)
	case m.selecting && inSelection(i, m.selAnchor, m.cursor):
		text = selectionStyle.Render(text)
	}

	line := num + " " + gutter + " " + text
	if entry, ok := m.markers[lineNo]; ok {
		label := palette[entry.marker.ColorIndex%len(palette)].Render("● " + entry.marker.Label)
		line += "  " + label
	}
	return line
}

func (m Model) viewOverlay() string {
	var b strings.Builder
	b.WriteString(m.overlay.rendered)
	if !strings.HasSuffix(m.overlay.rendered, "\n") {
		b.WriteString("\n")
	}
	hint := "esc close"
	if len(m.overlay.commits) > 0 {
		hint = fmt.Sprintf("1-%d commit diff · %s", len(m.overlay.commits), hint)
	}
	b.WriteString(mutedStyle.Render(hint))
	return b.String()
}

func inSelection(i, anchor, cursor int) bool {
	lo, hi := anchor, cursor
	if lo > hi {
		lo, hi = hi, lo
	}
	return i >= lo && i <= hi
}

func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// Relay forwards watcher signals to the engine and mirrors content changes
// to the model so the displayed text tracks the file on disk.
type Relay struct {
	Engine *engine.Engine
	Sink   *Sink
}

func (r *Relay) Signal(sig engine.Signal) {
	r.Engine.Signal(sig)
	if e, ok := sig.(engine.EditSignal); ok && r.Sink != nil {
		r.Sink.Reload(e.Doc)
	}
}
