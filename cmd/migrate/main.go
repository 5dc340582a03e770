// Package main provides a CLI tool for the content cache schema migrations.
//
// Without -path the migrations embedded in the binary are applied.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/book-content-service/internal/config"
	"github.com/helixir/book-content-service/internal/database"
	"github.com/helixir/book-content-service/internal/observability"
)

type actionKind int

const (
	actionUp actionKind = iota + 1
	actionDown
	actionSteps
	actionVersion
	actionForce
)

// action is one parsed command line request.
type action struct {
	kind actionKind
	n    int
	path string
}

var errNoAction = errors.New("no action specified")

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

// parseAction reads the flags in args. Exactly one action is allowed.
func parseAction(args []string, output io.Writer) (action, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(output)

	up := fs.Bool("up", false, "Run all pending migrations")
	down := fs.Bool("down", false, "Roll back all migrations")
	steps := fs.Int("steps", 0, "Run N migration steps (positive=up, negative=down)")
	version := fs.Bool("version", false, "Print the current migration version")
	force := fs.Int("force", -1, "Force set migration version (use to recover from failed migrations)")
	path := fs.String("path", "", "Read migrations from this directory instead of the embedded set")

	if err := fs.Parse(args); err != nil {
		return action{}, err
	}

	var selected []action
	if *up {
		selected = append(selected, action{kind: actionUp})
	}
	if *down {
		selected = append(selected, action{kind: actionDown})
	}
	if *steps != 0 {
		selected = append(selected, action{kind: actionSteps, n: *steps})
	}
	if *version {
		selected = append(selected, action{kind: actionVersion})
	}
	if *force >= 0 {
		selected = append(selected, action{kind: actionForce, n: *force})
	}

	switch len(selected) {
	case 0:
		fs.Usage()
		fmt.Fprintln(output, "\nPlease specify one of: -up, -down, -steps N, -version, -force V")
		return action{}, errNoAction
	case 1:
		a := selected[0]
		a.path = *path
		return a, nil
	default:
		return action{}, errors.New("specify only one action at a time")
	}
}

func run() error {
	a, err := parseAction(os.Args[1:], os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCfg := observability.DefaultLoggingConfig()
	logCfg.Format = "console"
	logger := observability.NewLogger(logCfg).With().Str("component", "migrate").Logger()

	migrationDir := cfg.Database.MigrationPath
	if a.path != "" {
		migrationDir = a.path
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, migrationDir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			logger.Error().Err(err).Msg("migrator close")
		}
	}()

	if err := apply(migrator, a, logger); err != nil {
		return err
	}
	logVersion(migrator, logger)
	return nil
}

func apply(migrator *database.Migrator, a action, logger zerolog.Logger) error {
	switch a.kind {
	case actionUp:
		logger.Info().Msg("running all pending migrations")
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	case actionDown:
		logger.Warn().Msg("rolling back all migrations")
		if err := migrator.Down(); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	case actionSteps:
		logger.Info().Int("steps", a.n).Msg("running migration steps")
		if err := migrator.Steps(a.n); err != nil {
			return fmt.Errorf("migrate steps: %w", err)
		}
	case actionForce:
		logger.Warn().Int("version", a.n).Msg("forcing migration version")
		if err := migrator.Force(a.n); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
	case actionVersion:
	default:
		return errNoAction
	}
	return nil
}

func logVersion(migrator *database.Migrator, logger zerolog.Logger) {
	if v, dirty, err := migrator.Version(); err != nil {
		logger.Warn().Err(err).Msg("schema version unknown")
	} else {
		logger.Info().Uint("version", v).Bool("dirty", dirty).Msg("schema version")
	}
}
