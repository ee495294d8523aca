// cmd/fieldops/main.go
//
// This is the entry point for the fieldops terminal client.
// When you run `fieldops` from any directory, this is what executes.
//
// Flow:
// 1. Initialise the .fieldops folder in the working directory
// 2. Apply the --api-url override, persisting it when asked
// 3. Launch the TUI

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/fieldops/internal/config"
	"github.com/kingrea/fieldops/internal/logging"
	"github.com/kingrea/fieldops/internal/tui"
)

func main() {
	projectDir := flag.String("project", "", "directory holding .fieldops (defaults to cwd)")
	apiURL := flag.String("api-url", "", "REST backend base URL (overrides config)")
	save := flag.Bool("save", false, "persist --api-url to .fieldops/config.yaml")
	flag.Parse()

	project := *projectDir
	if project == "" {
		var err error
		project, err = os.Getwd()
		if err != nil {
			die("Error getting working directory: %v", err)
		}
	}
	project, err := filepath.Abs(project)
	if err != nil {
		die("Error resolving project directory: %v", err)
	}

	if err := config.InitDir(project); err != nil {
		die("Error initializing .fieldops directory: %v", err)
	}
	cfg, err := config.NewConfig(project)
	if err != nil {
		die("Error loading config: %v", err)
	}
	if *apiURL != "" && *save {
		if err := cfg.SetAPIBaseURL(*apiURL); err != nil {
			die("Error saving api url: %v", err)
		}
	}
	if *apiURL != "" {
		// NewApp reloads the config; the env override applies to this run only.
		if err := os.Setenv("FIELDOPS_API_URL", *apiURL); err != nil {
			die("Error applying api url: %v", err)
		}
	}

	logger, err := logging.New(cfg)
	if err != nil {
		die("Error configuring logging: %v", err)
	}
	app, err := tui.NewApp(project, tui.WithLogger(logger))
	if err != nil {
		die("Error starting fieldops: %v", err)
	}
	logger.Info().Str("project", project).Msg("fieldops started")

	// tea.NewProgram creates a new bubbletea application
	p := tea.NewProgram(app, tea.WithAltScreen())

	// Run blocks until the user quits
	if _, err := p.Run(); err != nil {
		die("Error running TUI: %v", err)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
