package main

import (
	"fmt"
	"os"

	"github.com/aretw0/stepview/internal/presentation/tui"
	"github.com/aretw0/stepview/pkg/client"
	"github.com/aretw0/stepview/pkg/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the languages supported by the backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		langs, err := c.Languages(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, l := range langs {
			fmt.Fprintf(out, "%-12s %-12s %-8s %s\n", l.ID, l.Name, l.Version, l.Description)
		}
		return nil
	},
}

var examplesCmd = &cobra.Command{
	Use:   "examples <language>",
	Short: "Show the sample programs offered by the backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, err := domain.ParseLanguage(args[0])
		if err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		examples, err := c.Examples(cmd.Context(), lang)
		if err != nil {
			return err
		}

		var md string
		for _, ex := range examples {
			md += fmt.Sprintf("## %s\n\n%s\n\n```%s\n%s\n```\n\n", ex.Title, ex.Description, lang, ex.Code)
		}

		renderer := tui.Renderer(tui.Plain)
		if f, ok := cmd.OutOrStdout().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			if r, err := tui.NewRenderer(100); err == nil {
				renderer = r
			}
		}
		text, err := renderer(md)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	},
}

func newClient(cmd *cobra.Command) (*client.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return client.New(cfg.Server, client.WithTimeout(cfg.Timeout))
}

func init() {
	rootCmd.AddCommand(languagesCmd)
	rootCmd.AddCommand(examplesCmd)
}
