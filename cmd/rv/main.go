package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"reqview/pkg/api"
	"reqview/pkg/cache"
	"reqview/pkg/config"
	"reqview/pkg/export"
	"reqview/pkg/graphedit"
	"reqview/pkg/ui"
)

const version = "0.1.0"

func main() {
	server := flag.String("server", "", "Backend base URL (overrides config)")
	project := flag.String("project", "", "Project id to open (overrides config)")
	cfgPath := flag.String("config", "", "Config file path")
	debugLog := flag.String("debug-log", "", "Write diagnostics to this file")
	exportSVG := flag.String("export-svg", "", "Write a graph snapshot to this SVG file and exit")
	showVersion := flag.Bool("version", false, "Show version")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help {
		fmt.Println("Usage: rv [options]")
		fmt.Println("\nA TUI client for the requirements manager.")
		flag.PrintDefaults()
		os.Exit(0)
	}
	if *showVersion {
		fmt.Println("rv version " + version)
		os.Exit(0)
	}

	path := *cfgPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			fmt.Printf("Error resolving config path: %v\n", err)
			os.Exit(1)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *server != "" {
		cfg.ServerURL = *server
	}
	if *project != "" {
		cfg.ProjectID = *project
	}
	if *debugLog != "" {
		cfg.DebugLog = *debugLog
	}

	logf := func(string, ...any) {}
	if cfg.DebugLog != "" {
		f, err := tea.LogToFile(cfg.DebugLog, "rv")
		if err != nil {
			fmt.Printf("Error opening debug log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logf = log.Printf
	}

	client := api.New(cfg.ServerURL,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithLogger(logf),
	)

	projectID := cfg.ProjectID
	if projectID == "" {
		// Without a configured project, open the first one the server has.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		projects, err := client.ListProjects(ctx)
		cancel()
		if err != nil {
			fmt.Printf("Error listing projects from %s: %v\n", cfg.ServerURL, err)
			os.Exit(1)
		}
		if len(projects) == 0 {
			fmt.Println("No projects found. Create one on the server first.")
			os.Exit(0)
		}
		projectID = projects[0].ID
	}

	editor := graphedit.New(client, projectID, graphedit.WithLogger(logf))

	if *exportSVG != "" {
		if err := exportSnapshot(editor, *exportSVG); err != nil {
			fmt.Printf("Error exporting graph: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", *exportSVG)
		os.Exit(0)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println("rv needs an interactive terminal (use --export-svg for headless snapshots)")
		os.Exit(1)
	}

	store := cache.New(client, projectID)

	m := ui.New(client, store, editor, logf)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running reqview: %v\n", err)
		os.Exit(1)
	}
}

// exportSnapshot fetches the graph once and renders it to an SVG file.
func exportSnapshot(editor *graphedit.Editor, path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), api.DefaultTimeout)
	defer cancel()
	if err := editor.Refresh(ctx); err != nil {
		return err
	}
	graph := editor.Graph()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return export.WriteSVG(f, &graph, export.Options{})
}
