// Package git shells out to the git CLI for the handful of read-only
// operations the viewer needs: blame, show, and HEAD resolution.
package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// HeadSHA returns the current HEAD commit SHA, or "" outside a repo.
func HeadSHA(root string) string {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// ShowFile retrieves file content at a given ref (e.g., "HEAD").
// Returns an error for files that do not exist at that ref.
func ShowFile(root, ref, file string) (string, error) {
	cmd := exec.Command("git", "show", ref+":"+file)
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git show %s:%s: %w", ref, file, err)
	}
	return string(out), nil
}

// CommitSummary returns the one-line subject of a commit, or "" on error.
func CommitSummary(root, sha string) string {
	cmd := exec.Command("git", "log", "-1", "--format=%s", sha)
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
