package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/stepview/internal/backend"
	"github.com/aretw0/stepview/internal/cli"
	"github.com/aretw0/stepview/internal/logging"
	"github.com/spf13/cobra"
)

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Serve the execution API from recorded traces",
	Long: `Starts a stand-in execution backend. Programs are not run: each request is
answered with the recorded trace of the same program, found by fingerprint in
the configured store. Useful for demos, offline work and end-to-end tests.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := logging.NewJSON(os.Stderr, logging.Level(cfg.Debug))

		stores, err := cli.OpenStores(cfg)
		if err != nil {
			return err
		}
		defer stores.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := backend.New(stores.Traces, backend.WithLogger(logger))
		if err := srv.ListenAndServe(ctx, cfg.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Info("Replay backend stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backendCmd)
	backendCmd.Flags().String("listen", "", "Address to listen on (default :8080)")
}
