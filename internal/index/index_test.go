package index

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jensroland/git-blameview/internal/project"
)

func setupProject(t *testing.T, logFiles map[string]string) project.Paths {
	t.Helper()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	paths := project.NewPaths(root)
	if err := os.MkdirAll(paths.LogDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, content := range logFiles {
		if err := os.WriteFile(filepath.Join(paths.LogDir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return paths
}

const sampleLog = `{"ts":"2026-08-01T10:00:00Z","file":"src/app.go","lines":"10-14","hunk":{"old_start":10,"old_lines":3,"new_start":10,"new_lines":5},"prompt":"add retry logic","reason":"wrapped the call in a retry loop","change":"retry loop","tool":"Edit","model":"gpt-5","author":"jens","session":"s1","trace":".blamebot/traces/s1.json#toolu_01","commit_sha":"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}
{"ts":"2026-08-01T11:00:00Z","file":"src/app.go","lines":"30","prompt":"fix typo","reason":"corrected the constant name","tool":"Edit","author":"jens","session":"s1","trace":".blamebot/traces/s1.json#toolu_02"}
{"ts":"2026-08-01T12:00:00Z","file":"src/other.go","lines":"1-3","prompt":"new file","reason":"scaffolding","tool":"Write","author":"jens","session":"s2"}
`

func TestRebuildAndForFile(t *testing.T) {
	paths := setupProject(t, map[string]string{"2026-08-01.jsonl": sampleLog})

	db, err := Rebuild(paths)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	records, err := ForFile(db, "src/app.go")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records for src/app.go, got %d", len(records))
	}

	first := records[0]
	if first.Ts != "2026-08-01T10:00:00Z" {
		t.Errorf("records not ordered by ts: first = %s", first.Ts)
	}
	if got := first.Lines.Lines(); len(got) != 5 || got[0] != 10 {
		t.Errorf("Lines = %v, want 10-14", got)
	}
	if first.Hunk == nil || first.Hunk.NewLines != 5 {
		t.Errorf("hunk not round-tripped: %+v", first.Hunk)
	}
	if first.Identity() != "toolu_01" {
		t.Errorf("Identity = %q, want toolu_01", first.Identity())
	}
	if first.Model != "gpt-5" || first.CommitSHA == "" {
		t.Errorf("model/commit not round-tripped: %+v", first)
	}

	second := records[1]
	if second.Hunk != nil {
		t.Errorf("record without hunk should round-trip nil, got %+v", second.Hunk)
	}

	other, err := ForFile(db, "src/other.go")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 1 || other[0].Tool != "Write" {
		t.Fatalf("expected 1 Write record for src/other.go, got %+v", other)
	}
}

func TestForFile_Unknown(t *testing.T) {
	paths := setupProject(t, map[string]string{"log.jsonl": sampleLog})

	db, err := Rebuild(paths)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	records, err := ForFile(db, "no/such/file.go")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestRebuild_SkipsMalformedLines(t *testing.T) {
	content := `not json at all
{"ts":"2026-08-01T10:00:00Z","file":"a.go","lines":"1","tool":"Edit"}

{"broken":
`
	paths := setupProject(t, map[string]string{"log.jsonl": content})

	db, err := Rebuild(paths)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	records, err := ForFile(db, "a.go")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
}

func TestRebuild_LegacyArrayLines(t *testing.T) {
	content := `{"ts":"2026-08-01T10:00:00Z","file":"a.go","lines":[3,5],"tool":"Edit","author":"jens","session":"s1"}
{"ts":"2026-08-01T11:00:00Z","file":"a.go","lines":"8","tool":"Edit","author":"jens","session":"s1"}
`
	paths := setupProject(t, map[string]string{"log.jsonl": content})

	db, err := Rebuild(paths)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	records, err := ForFile(db, "a.go")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected both record formats indexed, got %d", len(records))
	}
	// Legacy [3,5] is a range, normalized to the string form on ingest.
	if got := records[0].Lines.String(); got != "3-5" {
		t.Errorf("legacy lines = %q, want \"3-5\"", got)
	}
}

func TestRebuild_NoLogDir(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	paths := project.NewPaths(root)

	db, err := Rebuild(paths)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	records, err := ForFile(db, "a.go")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty index, got %d records", len(records))
	}
}

func TestIsStale(t *testing.T) {
	paths := setupProject(t, map[string]string{"log.jsonl": sampleLog})

	if !IsStale(paths) {
		t.Error("missing index should be stale")
	}

	db, err := Rebuild(paths)
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	if IsStale(paths) {
		t.Error("freshly rebuilt index should not be stale")
	}

	// Touch a log file into the future relative to the index.
	future := time.Now().Add(time.Hour)
	logPath := filepath.Join(paths.LogDir, "log.jsonl")
	if err := os.Chtimes(logPath, future, future); err != nil {
		t.Fatal(err)
	}
	if !IsStale(paths) {
		t.Error("index older than a log file should be stale")
	}
}

func TestOpen_RebuildsWhenStale(t *testing.T) {
	paths := setupProject(t, map[string]string{"log.jsonl": sampleLog})

	db, err := Open(paths, false)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	records, err := ForFile(db, "src/app.go")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records after implicit rebuild, got %d", len(records))
	}
}
