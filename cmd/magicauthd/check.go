package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MrEthical07/magicAuth"
	"github.com/MrEthical07/magicAuth/email"
	"github.com/MrEthical07/magicAuth/store/memory"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Print the security report for the current environment",
		Long: `Validate the configuration read from the environment and print
its security report as JSON. No backend is contacted.

With --strict the command fails when the report has warnings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(os.Getenv)
			if err != nil {
				return err
			}
			return runCheck(s, strict, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when warnings are reported")

	return cmd
}

func runCheck(s settings, strict bool, out io.Writer) error {
	store := memory.New(nil)
	logger := slog.New(slog.DiscardHandler)
	b := magicAuth.New().
		WithConfig(s.Auth).
		WithUserStore(store).
		WithTokenStore(store.Tokens()).
		WithEmailSender(email.NewConsole(s.Email, logger)).
		WithLogger(logger)
	if s.RedisAddr != "" {
		// The client is never used, so no connection is opened.
		rdb := redis.NewClient(&redis.Options{Addr: s.RedisAddr})
		defer rdb.Close()
		b.WithRedis(rdb)
	}
	engine, err := b.Build()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	defer engine.Close()

	report := engine.SecurityReport()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if strict && len(report.Warnings) > 0 {
		return fmt.Errorf("%d configuration warning(s)", len(report.Warnings))
	}
	return nil
}
