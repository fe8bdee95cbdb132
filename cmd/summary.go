package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jensroland/git-blameview/internal/blamecache"
	"github.com/jensroland/git-blameview/internal/grouping"
	"github.com/jensroland/git-blameview/internal/lineset"
	"github.com/jensroland/git-blameview/internal/source"
)

// printSummary renders a one-shot plain-text projection per document, for
// pipes and the --plain flag. Same attribution pipeline as the TUI, no
// event loop.
func printSummary(src *source.Source, root string, docs []string) error {
	ctx := context.Background()

	for i, doc := range docs {
		if i > 0 {
			fmt.Println()
		}

		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(doc)))
		if err != nil {
			return err
		}
		lineCount := len(lineset.SplitLines(string(content)))

		m, err := src.RequestBlame(ctx, doc, blamecache.PriorityHigh)
		if err != nil {
			return fmt.Errorf("%s: %w", doc, err)
		}

		groups := grouping.ByIdentity(m, 1, lineCount)
		aiTotal := 0
		for _, g := range groups {
			aiTotal += g.Total
		}

		fmt.Printf("%s: %d lines, %d AI-authored (%d%%)\n",
			doc, lineCount, aiTotal, grouping.Percent(aiTotal, lineCount))

		for _, g := range groups {
			agent := g.Sample.AuthorTool
			if p := g.Sample.Prompt; p != nil {
				agent = p.Agent.Tool
				if p.Agent.Model != "" {
					agent += " (" + p.Agent.Model + ")"
				}
			}
			fmt.Printf("  %-28s %s\n", agent, g.Lines.String())
		}
	}
	return nil
}
