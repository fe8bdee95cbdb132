// Package logging sets up the diagnostic logger. Output goes to a file
// under the viewer's cache directory so it never corrupts the TUI.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/jensroland/git-blameview/internal/project"
)

// Open creates a file-backed logger at the configured level. The returned
// close function flushes and releases the log file.
func Open(paths project.Paths, level string) (*log.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(paths.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(paths.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}

	logger := log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		Level:           lvl,
		Prefix:          "blameview",
	})
	return logger, func() { f.Close() }, nil
}
