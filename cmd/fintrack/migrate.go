package main

import (
	"errors"
	"fmt"

	"github.com/dafibh/fintrack/fintrack-backend/internal/config"
	"github.com/dafibh/fintrack/fintrack-backend/internal/repository/migrations"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var errMemoryProvider = errors.New("the memory provider has no schema to migrate")

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Run database migrations",
		Long:      `Apply (up) or roll back (down) every schema migration of the configured provider.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(migrations.Up), string(migrations.Down)},
		RunE: func(_ *cobra.Command, args []string) error {
			dir, err := migrations.ParseDirection(args[0])
			if err != nil {
				return err
			}
			return runMigrate(cfg, dir)
		},
	}
}

func runMigrate(cfg *config.Config, dir migrations.Direction) error {
	log.Info().Str("provider", cfg.DBProvider).Str("direction", string(dir)).Msg("Running migrations")

	var err error
	switch cfg.DBProvider {
	case config.ProviderPostgres:
		err = migrations.Postgres(cfg.DatabaseURL, dir)
	case config.ProviderSQLite:
		err = migrations.SQLite(cfg.SQLitePath, dir)
	default:
		return errMemoryProvider
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", dir, err)
	}

	log.Info().Msg("Migrations complete")
	return nil
}
