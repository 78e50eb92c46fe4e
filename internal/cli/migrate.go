package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/sangkips/tillpoint/internal/infrastructure/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the order tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.Driver == "memory" {
			return errors.New("DB_DRIVER is memory, there is nothing to migrate")
		}
		log := commandLogger("migrate")
		db, err := database.NewPostgresDB(&cfg.Database, cfg.App.Debug, log)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		return database.AutoMigrate(db, log)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
