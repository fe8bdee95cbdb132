package project

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Paths holds all relevant directories for viewing a blamebot-enabled repo.
// The log and trace directories are written by the recording hooks; the
// viewer only reads them. The cache directory is the viewer's own.
type Paths struct {
	Root      string // git repo root
	GitDir    string // .git/ (resolved through worktree pointers)
	LogDir    string // .blamebot/log/
	TracesDir string // .blamebot/traces/
	CacheDir  string // <gitdir>/blameview/
	LogFile   string // <gitdir>/blameview/blameview.log
	IndexDB   string // <gitdir>/blameview/index.db
}

// FindRoot returns the git project root, preferring CLAUDE_PROJECT_DIR if set.
func FindRoot() (string, error) {
	if dir := os.Getenv("CLAUDE_PROJECT_DIR"); dir != "" {
		return dir, nil
	}
	out, err := exec.Command("git", "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", fmt.Errorf("not inside a git repository")
	}
	return strings.TrimSpace(string(out)), nil
}

// NewPaths constructs all path constants from a project root.
func NewPaths(root string) Paths {
	gitDir := resolveGitDir(root)
	cacheDir := filepath.Join(gitDir, "blameview")
	return Paths{
		Root:      root,
		GitDir:    gitDir,
		LogDir:    filepath.Join(root, ".blamebot", "log"),
		TracesDir: filepath.Join(root, ".blamebot", "traces"),
		CacheDir:  cacheDir,
		LogFile:   filepath.Join(cacheDir, "blameview.log"),
		IndexDB:   filepath.Join(cacheDir, "index.db"),
	}
}

// resolveGitDir returns the real git directory for a checkout. In a
// worktree, .git is a file containing "gitdir: <path>" instead of a
// directory; follow the pointer so the cache lands with the right repo.
func resolveGitDir(root string) string {
	dotGit := filepath.Join(root, ".git")
	info, err := os.Stat(dotGit)
	if err != nil || info.IsDir() {
		return dotGit
	}

	data, err := os.ReadFile(dotGit)
	if err != nil {
		return dotGit
	}
	content := strings.TrimSpace(string(data))
	if !strings.HasPrefix(content, "gitdir: ") {
		return dotGit
	}
	target := strings.TrimPrefix(content, "gitdir: ")
	if filepath.IsAbs(target) {
		return target
	}
	return filepath.Join(root, target)
}

// IsInstrumented returns true if the repo has a .blamebot/ directory,
// meaning the recording hooks have run at least once.
func IsInstrumented(root string) bool {
	info, err := os.Stat(filepath.Join(root, ".blamebot"))
	return err == nil && info.IsDir()
}

// ConfigFile returns the path of the repo-local config file.
func ConfigFile(root string) string {
	return filepath.Join(root, ".blameview.yaml")
}
