// Command magicauthd serves the magicAuth JSON API and manages its
// Postgres schema.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "magicauthd",
		Short: "Passwordless magic-link authentication server",
		Long: `magicauthd issues single-use login links by email and keeps
users signed in with a signed session cookie.

Configuration is read from the environment (JWT_SECRET, DATABASE_URL,
REDIS_ADDR, APP_URL, EMAIL_PROVIDER, ...). Without DATABASE_URL users
and tokens are kept in memory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		seedCmd(),
		checkCmd(),
		versionCmd(),
	)
	return rootCmd
}
