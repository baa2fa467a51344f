package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"researchhub/internal/config"
	"researchhub/internal/platform/logger"
	"researchhub/internal/platform/postgres"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the Postgres schema",
	Long: `Enable the pgvector extension, create the users, workspaces, papers and
chat_messages tables and pin the embedding column to the configured dimension.`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	if cfg.Storage.Driver != config.StorageDriverPostgres {
		return errors.New("migrate requires storage.driver = postgres")
	}
	log := logger.New(cfg.App.LogLevel, cfg.App.LogFormat)

	db, err := postgres.New(cmd.Context(), cfg.PostgresDSN())
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := postgres.Migrate(cmd.Context(), db, cfg.Embedding.Dimensions); err != nil {
		return err
	}
	log.WithField("dimensions", cfg.Embedding.Dimensions).Info("migration complete")
	return nil
}
