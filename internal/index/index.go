// Package index maintains a SQLite index over the recorder's JSONL logs
// so per-file provenance lookups stay fast on large histories.
package index

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/jensroland/git-blameview/internal/authorship"
	"github.com/jensroland/git-blameview/internal/lineset"
	"github.com/jensroland/git-blameview/internal/project"
)

// Row mirrors a row from the records table.
type Row struct {
	ID           int
	File         string
	ChangedLines string
	Ts           string
	Prompt       string
	Reason       string
	Change       string
	Tool         string
	Model        string
	Author       string
	Session      string
	Trace        string
	CommitSHA    string
	OldStart     *int
	OldLines     *int
	NewStart     *int
	NewLines     *int
	SourceFile   string
}

// Record converts a row back into the JSONL record it was built from.
func (r *Row) Record() (*authorship.Record, error) {
	rec := &authorship.Record{
		Ts:        r.Ts,
		File:      r.File,
		Prompt:    r.Prompt,
		Reason:    r.Reason,
		Change:    r.Change,
		Tool:      r.Tool,
		Model:     r.Model,
		Author:    r.Author,
		Session:   r.Session,
		Trace:     r.Trace,
		CommitSHA: r.CommitSHA,
	}
	if r.ChangedLines != "" {
		ls, err := lineset.FromString(r.ChangedLines)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad line set %q: %w", r.ID, r.ChangedLines, err)
		}
		rec.Lines = ls
	}
	if r.OldStart != nil && r.NewStart != nil && r.OldLines != nil && r.NewLines != nil {
		rec.Hunk = &authorship.HunkInfo{
			OldStart: *r.OldStart,
			OldLines: *r.OldLines,
			NewStart: *r.NewStart,
			NewLines: *r.NewLines,
		}
	}
	return rec, nil
}

func scanRow(rows *sql.Rows) (*Row, error) {
	r := &Row{}
	err := rows.Scan(
		&r.ID, &r.File, &r.ChangedLines, &r.Ts,
		&r.Prompt, &r.Reason, &r.Change, &r.Tool, &r.Model,
		&r.Author, &r.Session, &r.Trace, &r.CommitSHA,
		&r.OldStart, &r.OldLines, &r.NewStart, &r.NewLines,
		&r.SourceFile,
	)
	return r, err
}

// IsStale returns true if the index needs rebuilding, i.e. any log file
// is newer than the index database.
func IsStale(paths project.Paths) bool {
	info, err := os.Stat(paths.IndexDB)
	if err != nil {
		return true
	}
	indexMtime := info.ModTime()

	entries, err := os.ReadDir(paths.LogDir)
	if err != nil {
		return false
	}

	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		fInfo, err := e.Info()
		if err != nil {
			continue
		}
		if fInfo.ModTime().After(indexMtime) {
			return true
		}
	}
	return false
}

// Rebuild drops and recreates the SQLite index from the JSONL logs.
func Rebuild(paths project.Paths) (*sql.DB, error) {
	_ = os.MkdirAll(paths.CacheDir, 0o755)
	_ = os.Remove(paths.IndexDB)

	db, err := sql.Open("sqlite", paths.IndexDB)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file TEXT NOT NULL,
			changed_lines TEXT,
			ts TEXT NOT NULL,
			prompt TEXT,
			reason TEXT,
			change TEXT,
			tool TEXT,
			model TEXT,
			author TEXT,
			session TEXT,
			trace TEXT,
			commit_sha TEXT,
			old_start INTEGER,
			old_lines INTEGER,
			new_start INTEGER,
			new_lines INTEGER,
			source_file TEXT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	for _, idx := range []string{
		"CREATE INDEX idx_file ON records(file)",
		"CREATE INDEX idx_ts ON records(ts)",
		"CREATE INDEX idx_session ON records(session)",
	} {
		if _, err := db.Exec(idx); err != nil {
			db.Close()
			return nil, fmt.Errorf("create index: %w", err)
		}
	}

	if _, err := os.Stat(paths.LogDir); err != nil {
		return db, nil
	}

	entries, _ := os.ReadDir(paths.LogDir)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	tx, err := db.Begin()
	if err != nil {
		db.Close()
		return nil, err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO records
		(file, changed_lines, ts, prompt, reason, change, tool, model,
		 author, session, trace, commit_sha,
		 old_start, old_lines, new_start, new_lines, source_file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		db.Close()
		return nil, err
	}
	defer stmt.Close()

	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}

		f, err := os.Open(filepath.Join(paths.LogDir, e.Name()))
		if err != nil {
			continue
		}

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			var rec authorship.Record
			if err := json.Unmarshal([]byte(line), &rec); err != nil {
				continue
			}

			change := rec.Change
			if change == "" {
				change = rec.Reason
			}

			var oldStart, oldLines, newStart, newLines *int
			if h := rec.Hunk; h != nil {
				oldStart, oldLines = &h.OldStart, &h.OldLines
				newStart, newLines = &h.NewStart, &h.NewLines
			}

			stmt.Exec(
				rec.File,
				rec.Lines.String(),
				rec.Ts,
				rec.Prompt,
				rec.Reason,
				change,
				rec.Tool,
				rec.Model,
				rec.Author,
				rec.Session,
				rec.Trace,
				rec.CommitSHA,
				oldStart, oldLines, newStart, newLines,
				e.Name(),
			)
		}
		f.Close()
	}

	if err := tx.Commit(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Open returns a database connection, rebuilding the index if stale.
func Open(paths project.Paths, forceRebuild bool) (*sql.DB, error) {
	if forceRebuild || IsStale(paths) {
		return Rebuild(paths)
	}
	return sql.Open("sqlite", paths.IndexDB)
}

// ForFile returns all records for a repo-relative file path, oldest first.
func ForFile(db *sql.DB, file string) ([]*authorship.Record, error) {
	rows, err := db.Query(`
		SELECT id, file, changed_lines, ts, prompt, reason, change, tool, model,
		       author, session, trace, commit_sha,
		       old_start, old_lines, new_start, new_lines, source_file
		FROM records WHERE file = ? ORDER BY ts ASC, id ASC
	`, file)
	if err != nil {
		return nil, fmt.Errorf("query records for %s: %w", file, err)
	}
	defer rows.Close()

	var records []*authorship.Record
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		rec, err := row.Record()
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
