package main

import (
	"fmt"

	"foodguide/internal/db"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		gdb, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		if err := db.AutoMigrateAndIndexes(gdb); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("schema up to date")
		return nil
	},
}
