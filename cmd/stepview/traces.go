package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/aretw0/stepview/internal/cli"
	"github.com/aretw0/stepview/internal/presentation/tui"
	"github.com/aretw0/stepview/pkg/domain"
	"github.com/aretw0/stepview/pkg/render"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var tracesCmd = &cobra.Command{
	Use:   "traces",
	Short: "Manage recorded traces",
	Long:  `List, inspect, and remove the traces kept in the configured store.`,
}

var tracesLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recorded traces",
	RunE: func(cmd *cobra.Command, args []string) error {
		stores, err := openStores(cmd)
		if err != nil {
			return err
		}
		defer stores.Close()

		ids, err := stores.Traces.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing traces: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No recorded traces found.")
			return nil
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("ID", "RECORDED", "LANGUAGE", "STEPS", "STATUS")
		for _, id := range ids {
			rec, err := stores.Traces.Load(cmd.Context(), id)
			if err != nil || rec.Trace == nil {
				t.Row(id, "?", "?", "?", "unreadable")
				continue
			}
			t.Row(id,
				rec.RecordedAt.Local().Format("2006-01-02 15:04"),
				string(rec.Trace.Language),
				strconv.Itoa(len(rec.Trace.Steps)),
				string(rec.Trace.Status),
			)
		}
		fmt.Fprintln(out, t.Render())
		return nil
	},
}

var tracesInspectCmd = &cobra.Command{
	Use:   "inspect <trace-id|file.json>",
	Short: "Show one step of a recorded trace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stores, err := openStores(cmd)
		if err != nil {
			return err
		}
		defer stores.Close()

		rec, err := cli.LoadRecording(cmd.Context(), stores.Traces, args[0])
		if err != nil {
			return fmt.Errorf("error loading trace '%s': %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		if raw, _ := cmd.Flags().GetBool("json"); raw {
			data, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return fmt.Errorf("error marshaling trace: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		step, _ := cmd.Flags().GetInt("step")
		total := len(rec.Trace.Steps)
		cursor := total - 1
		if step > 0 {
			cursor = min(step, total) - 1
		}
		snap := domain.Snapshot{State: domain.PlaybackPaused, Cursor: max(cursor, 0), Total: total}
		md := fmt.Sprintf("# %s\n\n", rec.ID) + render.Markdown(render.NewScreen(domain.PhaseReady, snap, rec.Trace))

		renderer := tui.Renderer(tui.Plain)
		if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			width, _, err := term.GetSize(int(f.Fd()))
			if err != nil || width <= 0 {
				width = 80
			}
			if r, err := tui.NewRenderer(width); err == nil {
				renderer = r
			}
		}
		text, err := renderer(md)
		if err != nil {
			return err
		}
		fmt.Fprint(out, text)
		return nil
	},
}

var tracesRmCmd = &cobra.Command{
	Use:   "rm <trace-id>...",
	Short: "Remove one or more recorded traces",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return errors.New("requires at least one trace ID, or --all")
		}

		stores, err := openStores(cmd)
		if err != nil {
			return err
		}
		defer stores.Close()

		if all {
			args, err = stores.Traces.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("error listing traces: %w", err)
			}
		}

		var failed int
		for _, id := range args {
			if err := stores.Traces.Delete(cmd.Context(), id); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error removing '%s': %v\n", id, err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed trace '%s'\n", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d trace(s) could not be removed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tracesCmd)
	tracesCmd.AddCommand(tracesLsCmd)
	tracesCmd.AddCommand(tracesInspectCmd)
	tracesCmd.AddCommand(tracesRmCmd)

	tracesInspectCmd.Flags().Bool("json", false, "Print the raw recording")
	tracesInspectCmd.Flags().Int("step", 0, "1-based step to show (default: the last)")
	tracesRmCmd.Flags().Bool("all", false, "Remove every recorded trace")
}

func openStores(cmd *cobra.Command) (*cli.Stores, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cli.OpenStores(cfg)
}
