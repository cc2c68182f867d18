package main

import (
	"fmt"
	"os"

	"github.com/aretw0/stepview/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stepview",
	Short: "stepview plays back execution traces step by step",
	Long: `stepview sends a program to an execution backend and replays the resulting
trace one step at a time: current line, variables, call stack and output.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default .stepview.yaml if present)")
	flags.String("server", "", "Execution backend URL")
	flags.Bool("debug", false, "Enable debug logging")
	flags.Duration("timeout", 0, "Execution timeout requested from the backend")
	flags.String("store", "", "Trace store: memory, file or redis")
	flags.String("store-path", "", "Directory of the file store")
	flags.String("redis-addr", "", "Address of the redis store")
}

// loadConfig reads the configuration file and environment, then applies
// the flags set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	return cfg, nil
}
