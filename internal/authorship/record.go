package authorship

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/jensroland/git-blameview/internal/lineset"
)

// HunkInfo stores the raw unified-diff hunk metadata for a recorded edit.
// This enables line-number adjustment across subsequent edits.
type HunkInfo struct {
	OldStart int `json:"old_start"`
	OldLines int `json:"old_lines"`
	NewStart int `json:"new_start"`
	NewLines int `json:"new_lines"`
}

// Record is a single provenance JSONL entry written by the recorder under
// .blamebot/log/. blameview only ever reads these.
type Record struct {
	Ts        string          `json:"ts"`
	File      string          `json:"file"`
	Lines     lineset.LineSet `json:"lines"`
	Hunk      *HunkInfo       `json:"hunk,omitempty"`
	Prompt    string          `json:"prompt"`
	Reason    string          `json:"reason"`
	Change    string          `json:"change"`
	Tool      string          `json:"tool"`
	Model     string          `json:"model,omitempty"`
	Author    string          `json:"author"`
	Session   string          `json:"session"`
	Trace     string          `json:"trace"`
	CommitSHA string          `json:"commit_sha,omitempty"`
}

// Identity returns the provenance key grouping all lines produced by this
// record's generative action. The trace reference carries the tool-use id
// (path#tool_use_id); records without one fall back to session:ts, which is
// still unique per edit.
func (r *Record) Identity() string {
	if r.Trace != "" {
		if idx := strings.Index(r.Trace, "#"); idx >= 0 && idx+1 < len(r.Trace) {
			return r.Trace[idx+1:]
		}
	}
	if r.Session != "" {
		return r.Session + ":" + r.Ts
	}
	return r.Ts
}

// PromptRecordFor builds the detail payload for a record, optionally
// enriched with the committed conversation trace for its session.
func (r *Record) PromptRecordFor(tracesDir string) *PromptRecord {
	pr := &PromptRecord{
		HumanAuthor: r.Author,
		Agent:       AgentID{Tool: r.Tool, Model: r.Model},
	}
	if r.Prompt != "" {
		pr.Messages = append(pr.Messages, PromptMessage{Type: "user", Text: r.Prompt, Timestamp: r.Ts})
	}
	if r.Reason != "" {
		pr.Messages = append(pr.Messages, PromptMessage{Type: "assistant", Text: r.Reason, Timestamp: r.Ts})
	}
	if r.CommitSHA != "" {
		pr.Commits = []string{r.CommitSHA}
	}
	pr.AcceptedLines = r.Lines.Len()

	if msgs := loadTraceMessages(tracesDir, r.Session, r.Identity()); len(msgs) > 0 {
		pr.Messages = msgs
	}
	return pr
}

// traceFile is the committed per-session trace format: tool_use_id → context.
// Context entries are plain text; we surface them as assistant turns after
// the recorded prompt.
func loadTraceMessages(tracesDir, session, toolUseID string) []PromptMessage {
	if tracesDir == "" || session == "" || toolUseID == "" {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(tracesDir, session+".json"))
	if err != nil {
		return nil
	}
	var traces map[string]string
	if json.Unmarshal(data, &traces) != nil {
		return nil
	}
	ctx, ok := traces[toolUseID]
	if !ok || ctx == "" {
		return nil
	}

	var msgs []PromptMessage
	for _, block := range strings.Split(ctx, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		role := "assistant"
		if rest, found := strings.CutPrefix(block, "[user] "); found {
			role = "user"
			block = rest
		} else if rest, found := strings.CutPrefix(block, "[assistant] "); found {
			block = rest
		}
		msgs = append(msgs, PromptMessage{Type: role, Text: block})
	}
	return msgs
}
