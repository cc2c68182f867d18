package main

import (
	"github.com/aretw0/stepview/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Open a program in the interactive player",
	Long: `Loads a Python, JavaScript or C program and opens the step player.
Type 'e' to execute it on the backend, then step with n/p, Enter to play or pause,
'g N' to jump to a step and 'q' to quit.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		opts := runOptions(cmd)
		opts.Config = cfg
		if len(args) > 0 {
			opts.Path = args[0]
		}
		language, _ := cmd.Flags().GetString("language")
		input, _ := cmd.Flags().GetString("input")
		execute, _ := cmd.Flags().GetBool("execute")
		watch, _ := cmd.Flags().GetBool("watch")
		opts.Language = language
		opts.Input = input
		opts.Session.Execute = execute
		if watch {
			opts.Session.WatchPath = opts.Path
		}
		return cli.Run(cmd.Context(), opts)
	},
}

// runOptions collects the flags shared by run and replay.
func runOptions(cmd *cobra.Command) cli.RunOptions {
	jsonMode, _ := cmd.Flags().GetBool("json")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	record, _ := cmd.Flags().GetBool("record")
	return cli.RunOptions{
		Gateway: cli.GatewayOptions{NoCache: noCache, Record: record},
		Session: cli.SessionOptions{JSON: jsonMode, Banner: !jsonMode},
	}
}

func addPlayerFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	cmd.Flags().Duration("interval", 0, "Autoplay interval")
	cmd.Flags().Bool("no-cache", false, "Always send executions to the backend")
	cmd.Flags().Bool("record", false, "Save every trace received in the store")
}

func init() {
	rootCmd.AddCommand(runCmd)

	addPlayerFlags(runCmd)
	runCmd.Flags().StringP("language", "l", "", "Language of the program (default: from the file extension)")
	runCmd.Flags().String("input", "", "Data fed to the program's standard input")
	runCmd.Flags().BoolP("execute", "x", false, "Execute the program on start")
	runCmd.Flags().BoolP("watch", "w", false, "Reload and re-execute the file when it changes")
}
