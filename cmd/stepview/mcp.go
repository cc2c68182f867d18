package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/stepview/internal/cli"
	"github.com/aretw0/stepview/internal/logging"
	"github.com/aretw0/stepview/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes playback sessions to AI agents as MCP tools: open_session,
set_source, execute, playback and get_view.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")
		baseURL, _ := cmd.Flags().GetString("base-url")

		// Logs go to stderr so they never corrupt JSON-RPC on stdout.
		log.SetOutput(os.Stderr)
		logger := logging.New(logging.Level(cfg.Debug))

		stores, err := cli.OpenStores(cfg)
		if err != nil {
			return err
		}
		defer stores.Close()

		gw, err := cli.NewGateway(cfg, stores.Traces, cli.GatewayOptions{}, logger)
		if err != nil {
			return err
		}
		sessions := cli.NewSessionManager(cfg, stores, gw, logger, nil)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		defer sessions.CloseAll(cmd.Context())

		srv := mcp.NewServer(sessions, logger)
		switch transport {
		case "stdio":
			logger.Info("Starting stepview MCP Server (Stdio)")
			return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
		case "sse":
			if baseURL == "" {
				baseURL = "http://localhost" + cfg.Listen
			}
			logger.Info("Starting stepview MCP Server (SSE)", "address", cfg.Listen)
			if err := srv.ServeSSE(ctx, cfg.Listen, baseURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("listen", "", "Address to listen on (only for SSE)")
	mcpCmd.Flags().String("base-url", "", "Public URL of the SSE endpoint (only for SSE)")
}
