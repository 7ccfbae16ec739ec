package main

import (
	"context"
	"database/sql"
	"os"

	"github.com/MrEthical07/magicAuth/store/postgres"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(os.Getenv)
			if err != nil {
				return err
			}
			if s.DatabaseURL == "" {
				return errMissingDatabaseURL
			}
			db, err := postgres.Open(cmd.Context(), s.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := migrateDB(cmd.Context(), db); err != nil {
				return err
			}
			cmd.Println("migrations applied")
			return nil
		},
	}
}

func migrateDB(ctx context.Context, db *sql.DB) error {
	return postgres.Migrate(ctx, db)
}
