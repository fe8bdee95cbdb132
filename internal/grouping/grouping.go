// Package grouping buckets attributed lines by provenance identity and
// computes file-wide totals for display.
package grouping

import (
	"math"
	"sort"

	"github.com/jensroland/git-blameview/internal/authorship"
	"github.com/jensroland/git-blameview/internal/lineset"
)

// Group collects the AI-authored lines of one provenance identity within a
// requested range. Total always counts the identity's lines across the
// entire mapping, not just the range: a grouping confined to a viewport or
// selection still reports "N lines, P% of file" file-wide.
type Group struct {
	Identity string
	Lines    lineset.LineSet
	Sample   authorship.Authorship
	Total    int
}

// ByIdentity iterates [start, end] of the mapping, filters to AI-authored
// lines, and buckets them by identity. Groups are ordered by their first
// line for deterministic output.
func ByIdentity(m authorship.LineAuthorMap, start, end int) []Group {
	if len(m) == 0 || end < start {
		return nil
	}

	totals := Totals(m)

	byID := make(map[string]*Group)
	for line, a := range m {
		if !a.IsAIAuthored || a.Identity == "" {
			continue
		}
		if line < start || line > end {
			continue
		}
		g, ok := byID[a.Identity]
		if !ok {
			g = &Group{Identity: a.Identity, Sample: a, Total: totals[a.Identity]}
			byID[a.Identity] = g
		}
		g.Lines = g.Lines.Add(line)
	}

	groups := make([]Group, 0, len(byID))
	for _, g := range byID {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if a, b := groups[i].Lines.Min(), groups[j].Lines.Min(); a != b {
			return a < b
		}
		return groups[i].Identity < groups[j].Identity
	})
	return groups
}

// Totals counts AI-authored lines per identity over the whole mapping.
func Totals(m authorship.LineAuthorMap) map[string]int {
	totals := make(map[string]int)
	for _, a := range m {
		if a.IsAIAuthored && a.Identity != "" {
			totals[a.Identity]++
		}
	}
	return totals
}

// Percent returns round(total/lineCount*100), the identity's share of the
// document.
func Percent(total, lineCount int) int {
	if lineCount <= 0 {
		return 0
	}
	return int(math.Round(float64(total) / float64(lineCount) * 100))
}
