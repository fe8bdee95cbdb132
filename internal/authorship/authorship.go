// Package authorship defines the line-provenance data model shared by the
// cache, grouper, and view layers: who authored a line, and which generative
// action (prompt) produced it.
package authorship

import "sort"

// LineAuthorMap maps 1-based line numbers to authorship records. Keys are
// sparse: only lines with resolved attribution appear. An absent line means
// "no attribution data", which callers treat as human-authored.
type LineAuthorMap map[int]Authorship

// Authorship describes the provenance of a single line. Immutable once
// produced; a new mapping replaces the old one wholesale on re-fetch.
type Authorship struct {
	IsAIAuthored bool          `json:"is_ai_authored"`
	Identity     string        `json:"identity"`
	AuthorTool   string        `json:"author_tool"`
	Prompt       *PromptRecord `json:"prompt,omitempty"`
}

// AgentID identifies the generative agent that produced an edit.
type AgentID struct {
	Tool  string `json:"tool"`
	Model string `json:"model,omitempty"`
}

// PromptMessage is one turn of the prompt conversation.
type PromptMessage struct {
	Type      string `json:"type"` // "user" or "assistant"
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
}

// PromptRecord is the detail payload behind a provenance identity. The
// engine passes it through to detail rendering without interpreting it,
// except to group and count lines by identity.
type PromptRecord struct {
	HumanAuthor   string          `json:"human_author"`
	Agent         AgentID         `json:"agent"`
	Messages      []PromptMessage `json:"messages"`
	AcceptedLines int             `json:"accepted_lines,omitempty"`
	OtherFiles    []string        `json:"other_files,omitempty"`
	Commits       []string        `json:"commits,omitempty"`
}

// AILines returns the sorted line numbers with AI attribution.
func (m LineAuthorMap) AILines() []int {
	var lines []int
	for n, a := range m {
		if a.IsAIAuthored {
			lines = append(lines, n)
		}
	}
	sort.Ints(lines)
	return lines
}

// Identities returns the distinct provenance identities with at least one
// AI-authored line, sorted for deterministic iteration.
func (m LineAuthorMap) Identities() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, a := range m {
		if !a.IsAIAuthored || a.Identity == "" {
			continue
		}
		if !seen[a.Identity] {
			seen[a.Identity] = true
			ids = append(ids, a.Identity)
		}
	}
	sort.Strings(ids)
	return ids
}
