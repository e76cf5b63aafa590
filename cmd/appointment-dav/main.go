package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/sonroyaalmerol/appointment-dav/internal/config"
	"github.com/sonroyaalmerol/appointment-dav/internal/httpserver"
	"github.com/sonroyaalmerol/appointment-dav/internal/logging"
	"github.com/sonroyaalmerol/appointment-dav/internal/storage/postgres"
	"github.com/sonroyaalmerol/appointment-dav/internal/storage/sqlite"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "appointment-dav",
		Usage:   "Serve practice appointments to calendar clients over CalDAV.",
		Version: version,
		Action:  serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the CalDAV server (default).",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Apply database migrations for the configured SQL store and exit.",
				Action: migrate,
			},
			importCommand(),
			{
				Name:  "version",
				Usage: "Print the version.",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, version)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "appointment-dav: %v\n", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("config: %w", err)
	}
	return cfg, logging.New(cfg.LogLevel, cfg.LogFormat), nil
}

func serve(c *cli.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, cleanup, err := httpserver.NewServer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	logger.Info().Msg("bye")
	return nil
}

func migrate(c *cli.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	logger = logger.With().Str("component", "migrate").Logger()

	switch cfg.Storage.Type {
	case "postgres":
		err = postgres.RunMigrations(cfg.Storage.PostgresURL, logger)
	case "sqlite":
		err = sqlite.RunMigrations(cfg.Storage.SQLitePath, logger)
	default:
		return fmt.Errorf("storage type %q has no migrations", cfg.Storage.Type)
	}
	if err != nil {
		return err
	}
	logger.Info().Str("storage", cfg.Storage.Type).Msg("migrations applied")
	return nil
}
