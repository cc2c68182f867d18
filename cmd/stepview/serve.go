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

	"github.com/aretw0/stepview/internal/cli"
	"github.com/aretw0/stepview/internal/logging"
	httpAdapter "github.com/aretw0/stepview/pkg/adapters/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP visualizer service",
	Long: `Starts the multi-session visualizer over HTTP: sessions, source updates,
executions, playback actions, server-sent events and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		burst, _ := cmd.Flags().GetInt("burst")
		logger := logging.NewJSON(os.Stderr, logging.Level(cfg.Debug))

		stores, err := cli.OpenStores(cfg)
		if err != nil {
			return err
		}
		defer stores.Close()

		gw, err := cli.NewGateway(cfg, stores.Traces, cli.GatewayOptions{}, logger)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		sessions := cli.NewSessionManager(cfg, stores, gw, logger, reg)

		handler := httpAdapter.NewHandler(sessions,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithExecuteRate(cfg.RateLimit, burst),
			httpAdapter.WithMetrics(reg),
		)

		srv := &http.Server{
			Addr:              cfg.Listen,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting stepview server", "address", srv.Addr, "backend", cfg.Server, "store", cfg.Store.Kind)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			logger.Info("Start shutdown")

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("Error killing server", "err", err)
				}
			}
			sessions.CloseAll(shutdownCtx)
			logger.Info("stepview server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "Address to listen on (default :8080)")
	serveCmd.Flags().Float64("rate-limit", 0, "Executions per minute across all sessions (0 disables)")
	serveCmd.Flags().Int("burst", 5, "Execution burst allowed by the rate limit")
	serveCmd.Flags().Duration("interval", 0, "Autoplay interval")
}
