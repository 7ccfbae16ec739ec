package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/MrEthical07/magicAuth"
	"github.com/MrEthical07/magicAuth/store/postgres"
	"github.com/spf13/cobra"
)

// seedUsers are created by the seed command.
var seedUsers = []magicAuth.NewUser{
	{Email: "demo@example.com", Name: "Demo User"},
	{Email: "admin@example.com", Name: "Admin"},
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create demo users",
		Long:  `Create demo@example.com and admin@example.com. Existing users are left unchanged.`,
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
			return seed(cmd.Context(), postgres.NewUsers(db), cmd.OutOrStdout())
		},
	}
}

func seed(ctx context.Context, users magicAuth.UserStore, out io.Writer) error {
	for _, nu := range seedUsers {
		u, err := users.Create(ctx, nu)
		switch {
		case errors.Is(err, magicAuth.ErrEmailTaken):
			fmt.Fprintf(out, "exists  %s\n", nu.Email)
		case err != nil:
			return fmt.Errorf("seed %s: %w", nu.Email, err)
		default:
			fmt.Fprintf(out, "created %s (%s)\n", u.Email, u.ID)
		}
	}
	return nil
}
