// Package linemap computes where recorded edits live in the current file
// by forward-simulating the effects of every later edit.
package linemap

import (
	"github.com/jensroland/git-blameview/internal/authorship"
	"github.com/jensroland/git-blameview/internal/lineset"
)

// Adjusted pairs a provenance record with its computed current line
// positions. Superseded records were fully overwritten by later edits.
type Adjusted struct {
	Record       *authorship.Record
	CurrentLines lineset.LineSet
	Superseded   bool
}

// AdjustPositions takes records for a single file sorted by timestamp
// (oldest first) and computes each record's current line positions.
//
// For each record i, iterate through all later records j. Each record j's
// hunk tells us where j edited (OldStart), how many lines it replaced
// (OldLines), and how many it inserted (NewLines). For each line in record
// i's set:
//   - lines before the edit region are unchanged,
//   - lines within the overwritten region are removed (superseded by j),
//   - lines after the edit region shift by delta (NewLines - OldLines).
func AdjustPositions(records []*authorship.Record) []*Adjusted {
	results := make([]*Adjusted, len(records))

	for i, rec := range records {
		adj := &Adjusted{Record: rec}

		currentLines := recordLines(rec)
		if currentLines.IsEmpty() {
			results[i] = adj
			continue
		}

		for j := i + 1; j < len(records); j++ {
			rj := records[j]

			// A whole-file rewrite supersedes all prior records.
			if rj.Tool == "Write" {
				adj.Superseded = true
				break
			}

			if rj.Hunk == nil {
				continue
			}

			currentLines = shiftThroughHunk(currentLines, rj.Hunk)
			if currentLines.IsEmpty() {
				adj.Superseded = true
				break
			}
		}

		if !adj.Superseded {
			adj.CurrentLines = currentLines
		}

		results[i] = adj
	}

	return results
}

func shiftThroughHunk(lines lineset.LineSet, h *authorship.HunkInfo) lineset.LineSet {
	editStart := h.OldStart
	oldCount := h.OldLines
	newCount := h.NewLines
	delta := newCount - oldCount

	var shifted []int
	for _, line := range lines.Lines() {
		if oldCount == 0 {
			// Pure insertion at editStart.
			if line >= editStart {
				shifted = append(shifted, line+newCount)
			} else {
				shifted = append(shifted, line)
			}
			continue
		}

		editEnd := editStart + oldCount - 1
		switch {
		case line < editStart:
			shifted = append(shifted, line)
		case line <= editEnd:
			// Within the overwritten region: removed.
		default:
			shifted = append(shifted, line+delta)
		}
	}
	return lineset.New(shifted...)
}

// recordLines extracts the record's line set, preferring the precise
// changed-lines set and falling back to the hunk's bounding range.
func recordLines(rec *authorship.Record) lineset.LineSet {
	if !rec.Lines.IsEmpty() {
		return rec.Lines
	}
	if rec.Hunk != nil && rec.Hunk.NewLines > 0 {
		return lineset.FromRange(rec.Hunk.NewStart, rec.Hunk.NewStart+rec.Hunk.NewLines-1)
	}
	return lineset.LineSet{}
}
