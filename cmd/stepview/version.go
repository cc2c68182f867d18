package main

import (
	"fmt"

	"github.com/aretw0/stepview"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of stepview",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "stepview version %s\n", stepview.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
