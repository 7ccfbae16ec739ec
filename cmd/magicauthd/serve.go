package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/magicAuth"
	"github.com/MrEthical07/magicAuth/email"
	"github.com/MrEthical07/magicAuth/httpapi"
	promexport "github.com/MrEthical07/magicAuth/metrics/export/prometheus"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		addr    string
		migrate bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the magic-link HTTP API until interrupted.

Examples:
  magicauthd serve
  magicauthd serve --addr=:8080 --migrate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(os.Getenv)
			if err != nil {
				return err
			}
			if addr != "" {
				s.HTTPAddr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, s, migrate)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from HTTP_ADDR)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply database migrations before serving")

	return cmd
}

func runServe(ctx context.Context, s settings, migrate bool) error {
	logger := newLogger(s)

	be, err := openBackends(ctx, s, logger)
	if err != nil {
		return err
	}
	defer be.Close()

	if migrate && be.db != nil {
		if err := migrateDB(ctx, be.db); err != nil {
			return err
		}
	}

	sender, err := email.NewProvider(s.Email, s.Provider, logger)
	if err != nil {
		return err
	}

	b := magicAuth.New().
		WithConfig(s.Auth).
		WithUserStore(be.users).
		WithTokenStore(be.tokens).
		WithEmailSender(sender).
		WithLogger(logger)
	if be.redis != nil {
		b.WithRedis(be.redis)
	}
	if s.Auth.Audit.Enabled {
		b.WithAuditSink(magicAuth.NewSlogSink(logger))
	}
	engine, err := b.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	router := httpapi.NewRouter(engine,
		httpapi.WithLogger(logger),
		httpapi.WithReadiness(be.ready),
		httpapi.WithMetricsHandler(promexport.Handler(promexport.NewCollector(engine))),
	)

	srv := &http.Server{
		Addr:              s.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", s.HTTPAddr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
