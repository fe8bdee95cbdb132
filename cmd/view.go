package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	bubbletea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/jensroland/git-blameview/internal/config"
	"github.com/jensroland/git-blameview/internal/detail"
	"github.com/jensroland/git-blameview/internal/engine"
	"github.com/jensroland/git-blameview/internal/index"
	"github.com/jensroland/git-blameview/internal/logging"
	"github.com/jensroland/git-blameview/internal/project"
	"github.com/jensroland/git-blameview/internal/source"
	"github.com/jensroland/git-blameview/internal/tui"
	"github.com/jensroland/git-blameview/internal/watch"
)

// RunView opens the interactive authorship viewer for one or more files.
func RunView(args []string) {
	fs := flag.NewFlagSet("git-blameview", flag.ExitOnError)

	rebuild := fs.Bool("rebuild", false, "Force index rebuild before starting")
	statusBar := fs.Bool("status", false, "Enable the AI-percentage status line")
	plain := fs.Bool("plain", false, "Print a plain-text summary instead of the TUI")
	logLevel := fs.String("log-level", "", "Override the configured log level")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `blameview: see which lines of a file were written by an AI agent, and why.

Usage:
    git-blameview <file> [<file>...]       # open the viewer
    git-blameview --status <file>          # with the AI-share status line
    git-blameview --plain <file>           # one-shot summary, no TUI
    git-blameview --rebuild <file>         # rebuild the index first

Keys:
    j/k scroll   v select   esc clear   a all AI   enter detail
    tab next doc   x close doc   r revalidate   q quit

Reads the provenance logs recorded by git-blamebot (.blamebot/).
`)
	}
	fs.Parse(reorderArgs(args))

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(1)
	}

	root, err := project.FindRoot()
	if err != nil {
		fatal(err)
	}
	paths := project.NewPaths(root)

	if !project.IsInstrumented(root) {
		fmt.Fprintln(os.Stderr, "No provenance data found (.blamebot/ missing).")
		fmt.Fprintln(os.Stderr, "Run 'git-blamebot enable' in this repo and let the agent work first.")
		os.Exit(1)
	}

	cfg, err := config.Load(project.ConfigFile(root))
	if err != nil {
		fatal(err)
	}
	if *statusBar {
		cfg.StatusBar = true
	}
	level := cfg.Log.Level
	if *logLevel != "" {
		level = *logLevel
	}

	logger, closeLog, err := logging.Open(paths, level)
	if err != nil {
		fatal(err)
	}
	defer closeLog()

	docs, err := relativeDocs(root, fs.Args())
	if err != nil {
		fatal(err)
	}

	if *rebuild {
		db, err := index.Rebuild(paths)
		if err != nil {
			fatal(fmt.Errorf("rebuild index: %w", err))
		}
		db.Close()
	}

	src := source.New(paths, logger)
	defer src.Close()

	if *plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		if err := printSummary(src, root, docs); err != nil {
			fatal(err)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := detail.NewStore()
	sink := tui.NewSink()
	eng := engine.New(engine.Config{
		ShowOnSelect: cfg.ShowOnSelect,
		StatusBar:    cfg.StatusBar,
	}, src, sink, sink, detail.Renderer(store), logger)
	go eng.Run(ctx)

	watcher, err := watch.New(root, &tui.Relay{Engine: eng, Sink: sink}, logger)
	if err != nil {
		fatal(err)
	}
	defer watcher.Close()
	for _, doc := range docs {
		if err := watcher.Track(doc); err != nil {
			logger.Warn("cannot watch document", "doc", doc, "err", err)
		}
	}
	go watcher.Run(ctx)

	model := tui.NewModel(eng, root, docs)
	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	sink.Bind(program)

	if _, err := program.Run(); err != nil {
		fatal(err)
	}
}

// relativeDocs normalizes file arguments to repo-relative slash paths.
func relativeDocs(root string, args []string) ([]string, error) {
	docs := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return nil, fmt.Errorf("%s is outside the repository", arg)
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", arg, err)
		}
		docs = append(docs, filepath.ToSlash(rel))
	}
	return docs, nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

// reorderArgs moves flags before positional args so flag.Parse works
// regardless of argument order (e.g. "file --status" vs "--status file").
func reorderArgs(args []string) []string {
	var flags, positional []string
	i := 0
	for i < len(args) {
		a := args[i]
		if len(a) > 0 && a[0] == '-' {
			flags = append(flags, a)
			if i+1 < len(args) && (len(args[i+1]) == 0 || args[i+1][0] != '-') {
				switch a {
				case "--rebuild", "-rebuild", "--status", "-status", "--plain", "-plain":
					// boolean, no value
				default:
					i++
					flags = append(flags, args[i])
				}
			}
		} else {
			positional = append(positional, a)
		}
		i++
	}
	return append(flags, positional...)
}
