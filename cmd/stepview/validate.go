package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/stepview/pkg/domain"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a program's syntax on the backend without executing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		language, _ := cmd.Flags().GetString("language")
		lang, err := languageOf(args[0], language)
		if err != nil {
			return err
		}
		code, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		res, err := c.Validate(cmd.Context(), domain.ExecutionRequest{Code: string(code), Language: lang})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, d := range res.Errors {
			fmt.Fprintf(out, "%s:%d:%d: error: %s\n", args[0], d.Line, d.Column, d.Message)
		}
		for _, d := range res.Warnings {
			fmt.Fprintf(out, "%s:%d:%d: warning: %s\n", args[0], d.Line, d.Column, d.Message)
		}
		if !res.Valid {
			return errors.New("validation failed")
		}
		fmt.Fprintln(out, "Program is valid! ✅")
		return nil
	},
}

func languageOf(path, override string) (domain.Language, error) {
	if override != "" {
		return domain.ParseLanguage(override)
	}
	return domain.LanguageFromPath(path)
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringP("language", "l", "", "Language of the program (default: from the file extension)")
}
