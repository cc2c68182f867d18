package main

import (
	"github.com/aretw0/stepview/internal/cli"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay <trace-id|file.json>",
	Short: "Play back a recorded trace without contacting the backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		opts := runOptions(cmd)
		opts.Config = cfg
		return cli.Replay(cmd.Context(), opts, args[0])
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	addPlayerFlags(replayCmd)
}
