package view

import (
	"reflect"
	"strings"
	"testing"

	"github.com/jensroland/git-blameview/internal/authorship"
	"github.com/jensroland/git-blameview/internal/colors"
)

func ai(identity string) authorship.Authorship {
	return authorship.Authorship{IsAIAuthored: true, Identity: identity, AuthorTool: "claude-code"}
}

// Scenario: lines 3-5 belong to p1, lines 7-8 to p2, others human.
func scenarioMap() authorship.LineAuthorMap {
	m := authorship.LineAuthorMap{}
	for _, n := range []int{3, 4, 5} {
		m[n] = ai("p1")
	}
	for _, n := range []int{7, 8} {
		m[n] = ai("p2")
	}
	return m
}

func TestProject_SelectionScenario(t *testing.T) {
	// Selecting lines 2-9 must highlight 3,4,5 and 7,8 with two distinct
	// color keys, and produce exactly 2 markers at each group's first line.
	p := Project(scenarioMap(), Inputs{
		Scope:     [2]int{2, 9},
		Viewport:  [2]int{1, 10},
		LineCount: 10,
	})

	if len(p.Highlights) != 2 {
		t.Fatalf("highlights = %d, want 2", len(p.Highlights))
	}
	if !reflect.DeepEqual(p.Highlights[0].Ranges, [][2]int{{3, 5}}) {
		t.Errorf("p1 ranges = %v, want [[3,5]]", p.Highlights[0].Ranges)
	}
	if !reflect.DeepEqual(p.Highlights[1].Ranges, [][2]int{{7, 8}}) {
		t.Errorf("p2 ranges = %v, want [[7,8]]", p.Highlights[1].Ranges)
	}
	if p.Highlights[0].ColorIndex != colors.ColorIndex("p1") {
		t.Errorf("p1 color = %d, want %d", p.Highlights[0].ColorIndex, colors.ColorIndex("p1"))
	}
	if p.Highlights[1].ColorIndex != colors.ColorIndex("p2") {
		t.Errorf("p2 color = %d, want %d", p.Highlights[1].ColorIndex, colors.ColorIndex("p2"))
	}

	if len(p.Markers) != 2 {
		t.Fatalf("markers = %d, want exactly one per identity", len(p.Markers))
	}
	if p.Markers[0].Line != 3 || p.Markers[1].Line != 7 {
		t.Errorf("marker lines = %d,%d, want 3,7", p.Markers[0].Line, p.Markers[1].Line)
	}
}

func TestProject_MarkerUniqueness(t *testing.T) {
	m := authorship.LineAuthorMap{}
	for n := 1; n <= 50; n++ {
		m[n] = ai("only")
	}
	p := Project(m, Inputs{Scope: [2]int{1, 50}, Viewport: [2]int{1, 20}, LineCount: 50})
	if len(p.Markers) != 1 {
		t.Fatalf("markers = %d, want 1 for a single identity over 50 lines", len(p.Markers))
	}
	if p.Markers[0].Line != 1 {
		t.Errorf("marker line = %d, want 1", p.Markers[0].Line)
	}
}

func TestProject_ViewportMarkerFallback(t *testing.T) {
	// Identity lines [5,6,7], viewport [100,120]: marker falls back to the
	// group's first line.
	m := authorship.LineAuthorMap{5: ai("p1"), 6: ai("p1"), 7: ai("p1")}
	p := Project(m, Inputs{Scope: [2]int{1, 200}, Viewport: [2]int{100, 120}, LineCount: 200})
	if len(p.Markers) != 1 {
		t.Fatalf("markers = %d, want 1", len(p.Markers))
	}
	if p.Markers[0].Line != 5 {
		t.Errorf("marker line = %d, want 5 (first of group)", p.Markers[0].Line)
	}
}

func TestProject_MarkerMovesIntoViewport(t *testing.T) {
	m := authorship.LineAuthorMap{}
	for _, n := range []int{5, 6, 40, 41} {
		m[n] = ai("p1")
	}
	p := Project(m, Inputs{Scope: [2]int{1, 100}, Viewport: [2]int{30, 50}, LineCount: 100})
	if len(p.Markers) != 1 {
		t.Fatalf("markers = %d, want 1", len(p.Markers))
	}
	if p.Markers[0].Line != 40 {
		t.Errorf("marker line = %d, want 40 (first visible line of group)", p.Markers[0].Line)
	}
}

func TestProject_LabelUsesFileWideTotal(t *testing.T) {
	m := authorship.LineAuthorMap{}
	for n := 1; n <= 10; n++ {
		m[n*3] = ai("X") // lines 3,6,...,30
	}
	// Scope covers only three of X's lines; label still reports all ten.
	p := Project(m, Inputs{Scope: [2]int{1, 10}, Viewport: [2]int{1, 10}, LineCount: 100})
	if len(p.Markers) != 1 {
		t.Fatalf("markers = %d, want 1", len(p.Markers))
	}
	if !strings.HasPrefix(p.Markers[0].Label, "10 lines · 10%") {
		t.Errorf("label = %q, want file-wide \"10 lines · 10%%\" prefix", p.Markers[0].Label)
	}
}

func TestProject_EmptyAndNil(t *testing.T) {
	if p := Project(nil, Inputs{Scope: [2]int{1, 10}, LineCount: 10}); len(p.Highlights) != 0 || len(p.Markers) != 0 {
		t.Errorf("nil mapping should project nothing, got %+v", p)
	}
	m := authorship.LineAuthorMap{1: {IsAIAuthored: false}}
	if p := Project(m, Inputs{Scope: [2]int{1, 10}, LineCount: 10}); len(p.Markers) != 0 {
		t.Errorf("human-only mapping should project nothing, got %+v", p)
	}
}
