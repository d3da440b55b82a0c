package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	"github.com/riskibarqy/match-predictor/internal/config"
	"github.com/riskibarqy/match-predictor/internal/platform/dbmigrate"
	"github.com/riskibarqy/match-predictor/internal/platform/logging"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "migration",
		Usage: "apply or inspect the predictor schema",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env", Usage: "dotenv file to load", Value: ".env"},
			&cli.StringFlag{
				Name:    "dir",
				Usage:   "read SQL files from this directory instead of the embedded set",
				Sources: cli.EnvVars("MIGRATIONS_DIR"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply every pending migration",
				Action: withMigrator(func(_ context.Context, cmd *cli.Command, m *migrate.Migrate, logger *logging.Logger) error {
					if err := ignoreNoChange(m.Up(), logger); err != nil {
						return err
					}
					logger.Info("migrations applied")
					return nil
				}),
			},
			{
				Name:      "down",
				Usage:     "roll back migrations",
				ArgsUsage: "[steps]",
				Action: withMigrator(func(_ context.Context, cmd *cli.Command, m *migrate.Migrate, logger *logging.Logger) error {
					steps, err := parseSteps(cmd.Args().First())
					if err != nil {
						return err
					}
					if err := ignoreNoChange(m.Steps(-steps), logger); err != nil {
						return err
					}
					logger.Info("migrations rolled back", "steps", steps)
					return nil
				}),
			},
			{
				Name:  "version",
				Usage: "print the current schema version",
				Action: withMigrator(func(_ context.Context, cmd *cli.Command, m *migrate.Migrate, _ *logging.Logger) error {
					version, dirty, err := m.Version()
					if errors.Is(err, migrate.ErrNilVersion) {
						_, err = fmt.Fprintln(cmd.Root().Writer, "version: none\ndirty: false")
						return err
					}
					if err != nil {
						return fmt.Errorf("read version: %w", err)
					}
					_, err = fmt.Fprintf(cmd.Root().Writer, "version: %d\ndirty: %t\n", version, dirty)
					return err
				}),
			},
			{
				Name:      "force",
				Usage:     "set the schema version without running migrations",
				ArgsUsage: "<version>",
				Action: withMigrator(func(_ context.Context, cmd *cli.Command, m *migrate.Migrate, logger *logging.Logger) error {
					version, err := parseVersion(cmd.Args().First())
					if err != nil {
						return err
					}
					if err := m.Force(version); err != nil {
						return fmt.Errorf("force version %d: %w", version, err)
					}
					logger.Info("schema version forced", "version", version)
					return nil
				}),
			},
			{
				Name:      "goto",
				Usage:     "migrate up or down to a target version",
				ArgsUsage: "<version>",
				Action: withMigrator(func(_ context.Context, cmd *cli.Command, m *migrate.Migrate, logger *logging.Logger) error {
					target, err := parseTarget(cmd.Args().First())
					if err != nil {
						return err
					}
					if err := ignoreNoChange(m.Migrate(target), logger); err != nil {
						return err
					}
					logger.Info("schema migrated", "version", target)
					return nil
				}),
			},
		},
	}
}

type migratorAction func(ctx context.Context, cmd *cli.Command, m *migrate.Migrate, logger *logging.Logger) error

// withMigrator opens the migrator from DB_URL for the wrapped action and
// closes it afterwards.
func withMigrator(fn migratorAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if err := config.LoadDotEnv(cmd.String("env")); err != nil {
			return err
		}
		dbURL := strings.TrimSpace(os.Getenv("DB_URL"))
		if dbURL == "" {
			return errors.New("DB_URL is required")
		}
		disableBinary, _ := strconv.ParseBool(os.Getenv("DB_DISABLE_PREPARED_BINARY_RESULT"))
		logger := logging.NewJSON(logging.LevelInfo).Named("migration")
		defer logger.Sync()

		m, err := dbmigrate.New(dbmigrate.NormalizeDBURL(dbURL, disableBinary), cmd.String("dir"))
		if err != nil {
			return err
		}
		defer func() {
			if err := dbmigrate.Close(m); err != nil {
				logger.Warn("close migrator failed", "error", err)
			}
		}()
		return fn(ctx, cmd, m, logger)
	}
}

func ignoreNoChange(err error, logger *logging.Logger) error {
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migration changes")
		return nil
	}
	return err
}

func parseSteps(raw string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 1, nil
	}
	steps, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid down steps %q: %w", raw, err)
	}
	if steps <= 0 {
		return 0, fmt.Errorf("down steps must be > 0")
	}
	return steps, nil
}

func parseVersion(raw string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, errors.New("a version argument is required")
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", raw, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("version must be >= 0")
	}
	return value, nil
}

func parseTarget(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid target version %q: %w", raw, err)
	}
	return uint(value), nil
}
