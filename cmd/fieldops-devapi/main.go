// cmd/fieldops-devapi/main.go
//
// Runs the in-memory development backend so the client can be used without
// the real logistics service. Records are seeded from the built-in data set
// or from --seed (YAML, TOML or JSON) and vanish when the process exits.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ternarybob/banner"

	"github.com/kingrea/fieldops/internal/config"
	"github.com/kingrea/fieldops/internal/devapi"
	"github.com/kingrea/fieldops/internal/logging"
)

var version = "dev"

func main() {
	projectDir := flag.String("project", "", "directory holding .fieldops (defaults to cwd)")
	host := flag.String("host", "", "listen host (overrides config)")
	port := flag.Int("port", 0, "listen port (overrides config)")
	seedPath := flag.String("seed", "", "seed file (.yaml, .toml or .json)")
	flag.Parse()

	project := *projectDir
	if project == "" {
		var err error
		project, err = os.Getwd()
		if err != nil {
			die("determine working directory: %v", err)
		}
	}
	project, err := filepath.Abs(project)
	if err != nil {
		die("resolve project dir: %v", err)
	}
	if err := config.InitDir(project); err != nil {
		die("init .fieldops: %v", err)
	}
	cfg, err := config.NewConfig(project)
	if err != nil {
		die("load config: %v", err)
	}
	if !hasOutput(cfg.Project.Logging.Output, "console") {
		cfg.Project.Logging.Output = append(cfg.Project.Logging.Output, "console")
	}
	logger, err := logging.New(cfg)
	if err != nil {
		die("configure logging: %v", err)
	}

	settings := devapi.SettingsFromConfig(cfg)
	if *host != "" {
		settings.Host = *host
	}
	if *port != 0 {
		settings.Port = *port
	}
	if *seedPath != "" {
		settings.SeedPath = *seedPath
	}

	seed, err := loadSeed(settings.SeedPath)
	if err != nil {
		die("load seed: %v", err)
	}
	store := devapi.NewStore()
	if err := store.Apply(seed, time.Now()); err != nil {
		die("apply seed: %v", err)
	}

	banner.Print("fieldops devapi", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := devapi.NewServer(settings, devapi.WithStore(store), devapi.WithLogger(logger))
	if err := srv.Start(ctx); err != nil {
		die("start server: %v", err)
	}
	counts := store.Counts()
	logger.Info().
		Str("url", srv.BaseURL()).
		Int("jobs", counts["jobs"]).
		Int("workers", counts["workers"]).
		Int("items", counts["items"]).
		Msg("devapi ready")
	fmt.Printf("Serving %s (ctrl+c to stop)\n", srv.BaseURL())

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		die("shutdown: %v", err)
	}
	logger.Info().Msg("devapi stopped")
}

func loadSeed(path string) (devapi.Seed, error) {
	if path == "" {
		return devapi.DefaultSeed()
	}
	return devapi.LoadSeed(path)
}

func hasOutput(outputs []string, want string) bool {
	for _, o := range outputs {
		if o == want {
			return true
		}
	}
	return false
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
