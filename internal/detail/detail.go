// Package detail builds the markdown payload shown when a provenance
// marker is activated, and keeps built entries around so historical
// commit diffs can be opened from inside the overlay.
package detail

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/jensroland/git-blameview/internal/authorship"
	"github.com/jensroland/git-blameview/internal/git"
	"github.com/jensroland/git-blameview/internal/view"
)

// Entry is one built detail payload.
type Entry struct {
	Key      string
	Identity string
	Commits  []string
	Markdown string
	Created  time.Time
}

// Store holds built entries keyed by "{identity}-{unix-millis}" and by
// commit SHA. Entries are small and session-scoped; nothing is evicted.
type Store struct {
	mu       sync.Mutex
	byKey    map[string]*Entry
	byCommit map[string]*Entry
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		byKey:    make(map[string]*Entry),
		byCommit: make(map[string]*Entry),
		now:      time.Now,
	}
}

// Put builds and stores the detail entry for a marker group.
func (s *Store) Put(identity string, pr *authorship.PromptRecord, lines int) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &Entry{
		Key:      fmt.Sprintf("%s-%d", identity, s.now().UnixMilli()),
		Identity: identity,
		Markdown: Render(identity, pr, lines),
		Created:  s.now(),
	}
	if pr != nil {
		e.Commits = pr.Commits
	}

	s.byKey[e.Key] = e
	for _, sha := range e.Commits {
		s.byCommit[sha] = e
	}
	return e
}

// Get returns an entry by its key.
func (s *Store) Get(key string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byKey[key]
	return e, ok
}

// ByCommit returns the entry that references a commit SHA.
func (s *Store) ByCommit(sha string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byCommit[sha]
	return e, ok
}

// Render builds the markdown detail content for one provenance identity.
func Render(identity string, pr *authorship.PromptRecord, lines int) string {
	var b strings.Builder

	b.WriteString("## AI-authored code\n\n")
	if pr != nil {
		agent := pr.Agent.Tool
		if pr.Agent.Model != "" {
			agent += " (" + pr.Agent.Model + ")"
		}
		if agent != "" {
			fmt.Fprintf(&b, "**Agent**: %s\n\n", agent)
		}
		if pr.HumanAuthor != "" {
			fmt.Fprintf(&b, "**Driven by**: %s\n\n", pr.HumanAuthor)
		}
	}
	fmt.Fprintf(&b, "**Lines in this file**: %d\n", lines)

	if pr != nil && len(pr.OtherFiles) > 0 {
		b.WriteString("\n**Also touched**:\n")
		for _, f := range pr.OtherFiles {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
	}

	if pr != nil && len(pr.Messages) > 0 {
		b.WriteString("\n### Conversation\n\n")
		for _, m := range pr.Messages {
			role := m.Type
			if role == "" {
				role = "assistant"
			}
			fmt.Fprintf(&b, "> **%s**: %s\n>\n", role, strings.ReplaceAll(m.Text, "\n", "\n> "))
		}
	}

	if pr != nil && len(pr.Commits) > 0 {
		b.WriteString("\n### Commits\n\n")
		for i, sha := range pr.Commits {
			fmt.Fprintf(&b, "%d. `%s` (press %d for the diff)\n", i+1, shortSHA(sha), i+1)
		}
	}

	if identity != "" {
		fmt.Fprintf(&b, "\n---\n*provenance %s*\n", identity)
	}
	return b.String()
}

// Renderer adapts the store into the engine's marker detail callback.
func Renderer(store *Store) func(view.Marker) string {
	return func(m view.Marker) string {
		e := store.Put(m.Identity, m.Group.Sample.Prompt, m.Group.Total)
		return e.Markdown
	}
}

// HistoricalDiff renders the change a commit made to a file as a fenced
// diff block, computed from the parent and child contents.
func HistoricalDiff(root, sha, file string) string {
	before, _ := git.ShowFile(root, sha+"^", file) // empty for root commits and new files
	after, err := git.ShowFile(root, sha, file)
	if err != nil {
		return fmt.Sprintf("*no content for `%s` at `%s`*\n", file, shortSHA(sha))
	}

	var b strings.Builder
	summary := git.CommitSummary(root, sha)
	if summary != "" {
		fmt.Fprintf(&b, "## %s: %s\n\n", shortSHA(sha), summary)
	} else {
		fmt.Fprintf(&b, "## %s\n\n", shortSHA(sha))
	}
	b.WriteString("```diff\n")
	b.WriteString(unifiedLines(before, after))
	b.WriteString("```\n")
	return b.String()
}

// unifiedLines produces +/- prefixed lines from a line-mode diff.
func unifiedLines(before, after string) string {
	dmp := diffmatchpatch.New()
	a, bb, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, bb, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var out strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			out.WriteString(prefix)
			out.WriteString(line)
			out.WriteString("\n")
		}
	}
	return out.String()
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
