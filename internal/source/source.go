// Package source resolves line authorship for a file by joining the
// recorder's provenance index with git blame.
//
// Committed records are matched through blame: a working-tree line belongs
// to a record when blame assigns it the record's commit and an original
// line number inside the record's adjusted range. Uncommitted records are
// placed by replaying the recorded hunk chain. Attribution computed at
// HEAD is carried across uncommitted manual edits by line matching, so a
// human rewrite of an AI line drops its attribution.
package source

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/jensroland/git-blameview/internal/authorship"
	"github.com/jensroland/git-blameview/internal/blamecache"
	"github.com/jensroland/git-blameview/internal/git"
	"github.com/jensroland/git-blameview/internal/index"
	"github.com/jensroland/git-blameview/internal/linemap"
	"github.com/jensroland/git-blameview/internal/lineset"
	"github.com/jensroland/git-blameview/internal/project"
)

// Source implements blamecache.Fetcher over the SQLite index and the git
// CLI. Safe for concurrent use.
type Source struct {
	paths project.Paths
	log   *log.Logger

	mu      sync.Mutex
	db      *sql.DB
	memo    map[string]authorship.LineAuthorMap
	cancels map[string]context.CancelFunc
}

var _ blamecache.Fetcher = (*Source)(nil)

// New creates a source rooted at the given project paths.
func New(paths project.Paths, logger *log.Logger) *Source {
	if logger == nil {
		logger = log.Default()
	}
	return &Source{
		paths:   paths,
		log:     logger,
		memo:    make(map[string]authorship.LineAuthorMap),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Close releases the index handle.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// RequestBlame resolves the authorship mapping for a repo-relative file
// path. High priority skips the index staleness check so interactive
// lookups never pay for a rebuild.
func (s *Source) RequestBlame(ctx context.Context, doc string, priority blamecache.Priority) (authorship.LineAuthorMap, error) {
	s.mu.Lock()
	if m, ok := s.memo[doc]; ok {
		s.mu.Unlock()
		return m, nil
	}
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancels[doc] = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.cancels, doc)
		s.mu.Unlock()
	}()

	db, err := s.openIndex(priority)
	if err != nil {
		return nil, err
	}

	records, err := index.ForFile(db, doc)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return authorship.LineAuthorMap{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root := s.paths.Root
	var (
		blameWork map[int]git.BlameEntry
		blameHead map[int]git.BlameEntry
		headText  string
		workText  string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Fails for untracked files; attribution falls back to the
		// recorded hunk chain alone.
		blameWork, _ = git.BlameFile(root, doc)
		return nil
	})
	g.Go(func() error {
		blameHead, _ = git.BlameFileAt(root, "HEAD", doc)
		return nil
	})
	g.Go(func() error {
		headText, _ = git.ShowFile(root, "HEAD", doc)
		return nil
	})
	g.Go(func() error {
		data, err := os.ReadFile(filepath.Join(root, doc))
		if err != nil {
			return err
		}
		workText = string(data)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.log.Debug("blame lookup failed", "doc", doc, "err", err)
		return nil, err
	}
	if err := gctx.Err(); err != nil {
		return nil, err
	}

	mapping := s.resolve(records, blameWork, blameHead, headText, workText)
	s.log.Debug("resolved authorship", "doc", doc, "records", len(records), "lines", len(mapping))

	s.mu.Lock()
	s.memo[doc] = mapping
	s.mu.Unlock()
	return mapping, nil
}

// InvalidateCache drops the memoized mapping for doc so the next request
// recomputes it.
func (s *Source) InvalidateCache(doc string) {
	s.mu.Lock()
	delete(s.memo, doc)
	s.mu.Unlock()
}

// CancelForURI cancels any in-flight lookup for doc. Cancellation is
// cooperative; a lookup past its last checkpoint still completes.
func (s *Source) CancelForURI(doc string) {
	s.mu.Lock()
	cancel := s.cancels[doc]
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Source) openIndex(priority blamecache.Priority) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		if priority == blamecache.PriorityHigh || !index.IsStale(s.paths) {
			return s.db, nil
		}
		s.db.Close()
		s.db = nil
	}

	db, err := index.Open(s.paths, false)
	if err != nil {
		return nil, err
	}
	s.db = db
	return db, nil
}

// resolve computes the line authorship mapping from the record history and
// the blame snapshots.
func (s *Source) resolve(records []*authorship.Record, blameWork, blameHead map[int]git.BlameEntry, headText, workText string) authorship.LineAuthorMap {
	adjusted := linemap.AdjustPositions(records)

	recByIdentity := make(map[string]*authorship.Record)
	for _, adj := range adjusted {
		recByIdentity[adj.Record.Identity()] = adj.Record
	}

	// Committed records: attribute HEAD lines whose blame commit and
	// original line number fall inside the record's range.
	headLines := lineset.SplitLines(headText)
	attrHead := make([]string, len(headLines))
	for _, adj := range adjusted {
		if adj.Superseded || adj.Record.CommitSHA == "" {
			continue
		}
		for line := 1; line <= len(headLines); line++ {
			entry, ok := blameHead[line]
			if !ok || entry.SHA != adj.Record.CommitSHA {
				continue
			}
			if adj.CurrentLines.Contains(entry.OrigLine) {
				attrHead[line-1] = adj.Record.Identity()
			}
		}
	}

	// Carry committed attribution across uncommitted edits.
	attrWork := lineset.CarryAttribution(headText, workText, attrHead, "")

	// Uncommitted records: positions come from the hunk chain and must
	// still blame as uncommitted (a committed line was attributed above
	// or belongs to someone else).
	for _, adj := range adjusted {
		if adj.Superseded || adj.Record.CommitSHA != "" {
			continue
		}
		identity := adj.Record.Identity()
		for _, line := range adj.CurrentLines.Lines() {
			if line < 1 || line > len(attrWork) {
				continue
			}
			if blameWork != nil {
				entry, ok := blameWork[line]
				if ok && !entry.IsUncommitted() {
					continue
				}
			}
			attrWork[line-1] = identity
		}
	}

	mapping := make(authorship.LineAuthorMap)
	prompts := make(map[string]*authorship.PromptRecord)
	for i, identity := range attrWork {
		if identity == "" {
			continue
		}
		rec := recByIdentity[identity]
		if rec == nil {
			continue
		}
		prompt, ok := prompts[identity]
		if !ok {
			prompt = rec.PromptRecordFor(s.paths.TracesDir)
			prompts[identity] = prompt
		}
		mapping[i+1] = authorship.Authorship{
			IsAIAuthored: true,
			Identity:     identity,
			AuthorTool:   rec.Tool,
			Prompt:       prompt,
		}
	}
	return mapping
}
