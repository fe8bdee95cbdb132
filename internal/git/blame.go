package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// BlameEntry holds parsed git blame data for a single line.
type BlameEntry struct {
	SHA      string // 40-char commit SHA (0000... for uncommitted)
	Line     int    // 1-based line number in current file
	OrigLine int    // 1-based line number in the original commit
}

// IsUncommitted returns true if the blame entry is for uncommitted content.
func (e BlameEntry) IsUncommitted() bool {
	return strings.TrimLeft(e.SHA, "0") == ""
}

// BlameFile runs git blame on the working-tree version of a file and
// returns entries keyed by current line number.
func BlameFile(root, file string) (map[int]BlameEntry, error) {
	cmd := exec.Command("git", "blame", "--porcelain", "--", file)
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git blame %s: %w", file, err)
	}
	return parsePorcelainBlame(out), nil
}

// BlameFileAt runs git blame on the version of a file at a given ref,
// keyed by line number in that version.
func BlameFileAt(root, ref, file string) (map[int]BlameEntry, error) {
	cmd := exec.Command("git", "blame", "--porcelain", ref, "--", file)
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git blame %s %s: %w", ref, file, err)
	}
	return parsePorcelainBlame(out), nil
}

// parsePorcelainBlame parses git blame --porcelain output.
//
// Porcelain format:
//
//	<40-byte SHA> <orig-line> <final-line> [<num-lines>]
//	header lines...
//	\t<actual line content>
//
// Only the SHA lines matter here; header and content lines are skipped.
func parsePorcelainBlame(out []byte) map[int]BlameEntry {
	entries := make(map[int]BlameEntry)

	for _, line := range strings.Split(string(out), "\n") {
		if line == "" || strings.HasPrefix(line, "\t") {
			continue
		}
		if strings.HasPrefix(line, "author") ||
			strings.HasPrefix(line, "committer") ||
			strings.HasPrefix(line, "summary") ||
			strings.HasPrefix(line, "previous") ||
			strings.HasPrefix(line, "filename") ||
			strings.HasPrefix(line, "boundary") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) >= 3 && len(fields[0]) == 40 {
			var origLine, finalLine int
			_, _ = fmt.Sscanf(fields[1], "%d", &origLine)
			_, _ = fmt.Sscanf(fields[2], "%d", &finalLine)
			if finalLine > 0 {
				entries[finalLine] = BlameEntry{
					SHA:      fields[0],
					Line:     finalLine,
					OrigLine: origLine,
				}
			}
		}
	}

	return entries
}
