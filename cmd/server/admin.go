package main

import (
	"fmt"

	"github.com/mock-test/backend/internal/auth"
	"github.com/mock-test/backend/internal/config"
	"github.com/mock-test/backend/internal/database"
	"github.com/mock-test/backend/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	adminUsername string
	adminEmail    string
	adminPassword string
)

var adminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account",
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

		admin, err := auth.CreateAdmin(cmd.Context(), db, adminUsername, adminEmail, adminPassword)
		if err != nil {
			return err
		}
		log.Info("admin created", zap.Int64("id", admin.ID), zap.String("username", admin.Username))
		return nil
	},
}

func init() {
	adminCmd.Flags().StringVar(&adminUsername, "username", "", "admin username")
	adminCmd.Flags().StringVar(&adminEmail, "email", "", "admin email")
	adminCmd.Flags().StringVar(&adminPassword, "password", "", "admin password (min 8 characters)")
	for _, f := range []string{"username", "email", "password"} {
		adminCmd.MarkFlagRequired(f)
	}
}
