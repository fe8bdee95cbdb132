// Package view derives the concurrent view states (highlight set, marker
// set, status line) from an authorship mapping plus transient UI inputs.
// Projection is pure: the engine decides when to project, sinks decide how
// to draw.
package view

import (
	"fmt"

	"github.com/jensroland/git-blameview/internal/authorship"
	"github.com/jensroland/git-blameview/internal/colors"
	"github.com/jensroland/git-blameview/internal/grouping"
)

// Highlight is one colored set of line ranges.
type Highlight struct {
	ColorIndex int
	Ranges     [][2]int
}

// Marker is a single annotation for one provenance identity. Exactly one
// marker exists per identity in scope, never one per line.
type Marker struct {
	Line       int // placement line (first visible, else first of group)
	ColorIndex int
	Identity   string
	Label      string
	Group      grouping.Group
}

// Inputs are the transient UI state a projection depends on.
type Inputs struct {
	Scope     [2]int // line range to derive from (whole document in toggle mode)
	Viewport  [2]int // currently visible line range, vertical only
	LineCount int    // total document lines, for percentages
}

// Projection is the derived view state handed to sinks.
type Projection struct {
	Highlights []Highlight
	Markers    []Marker
	Status     string
}

// Sink consumes derived view state. Calls are fire-and-forget; the engine
// does not await rendering confirmation.
type Sink interface {
	ApplyHighlight(colorIndex int, ranges [][2]int)
	ClearHighlights()
	SetMarker(m Marker, onActivate func())
	ClearMarkers()
	ShowDetail(content string)
}

// StatusSink is the optional fourth projection: a one-line summary of the
// document's AI share. Enabled by a capability flag in config.
type StatusSink interface {
	SetStatus(text string)
}

// Project derives highlights, markers, and the status line from a mapping.
// Safe to call with a nil mapping (returns an empty projection: "no
// attribution" renders as nothing).
func Project(m authorship.LineAuthorMap, in Inputs) Projection {
	groups := grouping.ByIdentity(m, in.Scope[0], in.Scope[1])
	if len(groups) == 0 {
		return Projection{}
	}

	var p Projection
	aiTotal := 0
	for _, g := range groups {
		idx := colors.ColorIndex(g.Identity)
		p.Highlights = append(p.Highlights, Highlight{
			ColorIndex: idx,
			Ranges:     g.Lines.Ranges(),
		})
		p.Markers = append(p.Markers, Marker{
			Line:       placeMarker(g, in.Viewport),
			ColorIndex: idx,
			Identity:   g.Identity,
			Label:      markerLabel(g, in.LineCount),
			Group:      g,
		})
		aiTotal += g.Total
	}

	p.Status = fmt.Sprintf("%d AI lines · %d prompts · %d%% of file",
		aiTotal, len(groups), grouping.Percent(aiTotal, in.LineCount))
	return p
}

// placeMarker picks the first line of the group that falls within the
// viewport, or the group's first line overall when none are visible. Keeps
// at least one marker reachable without scrolling whenever possible, and
// must be recomputed on every viewport change without re-fetching.
func placeMarker(g grouping.Group, viewport [2]int) int {
	for _, line := range g.Lines.Lines() {
		if line >= viewport[0] && line <= viewport[1] {
			return line
		}
	}
	return g.Lines.Min()
}

func markerLabel(g grouping.Group, lineCount int) string {
	noun := "lines"
	if g.Total == 1 {
		noun = "line"
	}
	label := fmt.Sprintf("%d %s · %d%%", g.Total, noun, grouping.Percent(g.Total, lineCount))
	if tool := g.Sample.AuthorTool; tool != "" {
		label += " · " + tool
	}
	return label
}
