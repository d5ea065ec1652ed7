package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rotisserie-backend/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		gormDB, err := db.Init(&cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
		logger.Info().Msg("database is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
