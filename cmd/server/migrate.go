package main

import (
	"fmt"

	"github.com/mock-test/backend/internal/config"
	"github.com/mock-test/backend/internal/database"
	"github.com/mock-test/backend/internal/logging"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}

		log := logging.New(cfg.Service.LogLevel)
		defer log.Sync()

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		return database.Migrate(db, log)
	},
}
