// Package main provides a CLI tool for cache schema migrations and
// maintenance of the Postgres cache table.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-discovery-service/internal/cache"
	"github.com/helixir/paper-discovery-service/internal/config"
	"github.com/helixir/paper-discovery-service/internal/database"
	"github.com/helixir/paper-discovery-service/internal/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// action is a single migrate invocation.
type action struct {
	up      bool
	down    bool
	steps   int
	version bool
	force   int
	purge   bool
}

func (a action) count() int {
	n := 0
	for _, set := range []bool{a.up, a.down, a.steps != 0, a.version, a.force >= 0, a.purge} {
		if set {
			n++
		}
	}
	return n
}

func run() error {
	var act action
	flag.BoolVar(&act.up, "up", false, "Run all pending migrations")
	flag.BoolVar(&act.down, "down", false, "Roll back all migrations")
	flag.IntVar(&act.steps, "steps", 0, "Run N migration steps (positive=up, negative=down)")
	flag.BoolVar(&act.version, "version", false, "Print the current migration version")
	flag.IntVar(&act.force, "force", -1, "Force set migration version (use to recover from failed migrations)")
	flag.BoolVar(&act.purge, "purge-expired", false, "Delete expired rows from the cache table")
	migrationsPath := flag.String("path", "", "Read migrations from this directory instead of the embedded set")
	flag.Parse()

	switch n := act.count(); {
	case n == 0:
		flag.Usage()
		fmt.Fprintln(os.Stderr, "\nPlease specify one of: -up, -down, -steps N, -version, -force V, -purge-expired")
		return fmt.Errorf("no action specified")
	case n > 1:
		return fmt.Errorf("specify only one action at a time")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	})
	logger = logger.With().Str("component", "migrate").Logger()

	migrationDir := cfg.Database.MigrationPath
	if *migrationsPath != "" {
		migrationDir = *migrationsPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if act.purge {
		n, err := cache.NewPostgresBackend(db).PurgeExpired(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("purge expired cache entries: %w", err)
		}
		logger.Info().Int64("purged", n).Msg("expired cache entries purged")
		return nil
	}

	migrator, err := database.NewMigrator(db, migrationDir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	if err := apply(migrator, act); err != nil {
		return err
	}
	printVersion(migrator, logger)
	return nil
}

// apply executes a migration action.
func apply(migrator *database.Migrator, act action) error {
	switch {
	case act.up:
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	case act.down:
		if err := migrator.Down(); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	case act.steps != 0:
		if err := migrator.Steps(act.steps); err != nil {
			return fmt.Errorf("migrate steps: %w", err)
		}
	case act.force >= 0:
		if err := migrator.Force(act.force); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
	}
	return nil
}

// printVersion logs the current migration version.
func printVersion(migrator *database.Migrator, logger zerolog.Logger) {
	v, dirty, err := migrator.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine migration version")
		return
	}
	logger.Info().
		Uint("version", v).
		Bool("dirty", dirty).
		Msg("current migration version")
}
