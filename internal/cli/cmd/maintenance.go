package cmd

import (
	"fmt"
	"time"

	"github.com/berrythewa/clipvault/internal/engine"
	"github.com/berrythewa/clipvault/internal/history"
	"github.com/berrythewa/clipvault/pkg/format"
	"github.com/spf13/cobra"
)

func newHealCmd() *cobra.Command {
	var noColors bool

	cmd := &cobra.Command{
		Use:   "heal",
		Short: "Check that every entry's files exist and repair what can be repaired",
		Long: `Run the integrity pass over history and pinned entries.

Missing images are restored from their original file or URL, missing
gradients are re-rendered and stale favicons are re-fetched or dropped.
Entries that cannot be repaired are marked as corrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(e *engine.Engine) error {
				report, err := e.Heal(cmd.Context())
				if err != nil {
					return fmt.Errorf("integrity pass failed: %w", err)
				}
				opts := format.DefaultOptions()
				opts.UseColors = !noColors
				fmt.Fprintln(cmd.OutOrStdout(), format.FormatReport("Integrity pass", []format.Stat{
					{Label: "Checked", Value: report.Checked},
					{Label: "Restored", Value: report.Restored},
					{Label: "Cleared", Value: report.Cleared},
					{Label: "Corrupted", Value: report.Corrupted},
					{Label: "Recovered", Value: report.Recovered},
				}, opts))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&noColors, "no-colors", false, "disable colored output")
	return cmd
}

func newGCCmd() *cobra.Command {
	var (
		grace    time.Duration
		noColors bool
	)

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Remove files no entry references and expired link metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(e *engine.Engine) error {
				report, err := e.CollectGarbage(cmd.Context(), grace)
				if err != nil {
					return fmt.Errorf("garbage collection failed: %w", err)
				}
				opts := format.DefaultOptions()
				opts.UseColors = !noColors
				fmt.Fprintln(cmd.OutOrStdout(), format.FormatReport("Garbage collection", []format.Stat{
					{Label: "Scanned", Value: report.Scanned},
					{Label: "Removed", Value: report.Removed},
					{Label: "Failed", Value: report.Failed},
				}, opts))
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&grace, "grace", history.DefaultGracePeriod, "keep unreferenced files younger than this")
	cmd.Flags().BoolVar(&noColors, "no-colors", false, "disable colored output")
	return cmd
}
