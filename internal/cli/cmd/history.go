package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/berrythewa/clipvault/internal/engine"
	"github.com/berrythewa/clipvault/pkg/format"
	"github.com/berrythewa/clipvault/pkg/utils"
	"github.com/spf13/cobra"
)

// newHistoryCmd creates the history command with all subcommands
func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage clipboard history",
		Long: `Manage clipboard history:
  • List history or pinned entries
  • Show the full text of an entry
  • Pin, unpin, promote and delete entries
  • Clear either list`,
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryItemCmd("pin", "Move an entry to the pinned list", "Pinned", (*engine.Engine).PinItem))
	cmd.AddCommand(newHistoryItemCmd("unpin", "Move a pinned entry back to history", "Unpinned", (*engine.Engine).UnpinItem))
	cmd.AddCommand(newHistoryItemCmd("promote", "Treat an entry as pasted, moving it to the front", "Promoted", (*engine.Engine).PromoteItemToTop))
	cmd.AddCommand(newHistoryItemCmd("delete", "Delete an entry and its files", "Deleted", (*engine.Engine).DeleteItem))
	cmd.AddCommand(newHistoryClearCmd())

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var (
		pinned   bool
		limit    int
		compact  bool
		noColors bool
		useJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(e *engine.Engine) error {
				title, items := "History", e.GetHistoryItems()
				if pinned {
					title, items = "Pinned", e.GetPinnedItems()
				}
				if limit > 0 && len(items) > limit {
					items = items[:limit]
				}

				out := cmd.OutOrStdout()
				if useJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(items)
				}

				opts := format.DefaultOptions()
				if compact {
					opts = format.CompactOptions()
				}
				opts.UseColors = !noColors
				fmt.Fprintln(out, format.FormatList(title, items, opts))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&pinned, "pinned", "p", false, "list pinned entries instead of history")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to display (0 for all)")
	cmd.Flags().BoolVar(&compact, "compact", false, "one line per entry")
	cmd.Flags().BoolVar(&noColors, "no-colors", false, "disable colored output")
	cmd.Flags().BoolVar(&useJSON, "json", false, "output entries as JSON")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print the full text of a text or code entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(e *engine.Engine) error {
				content, ok := e.GetContent(args[0])
				if !ok {
					return fmt.Errorf("no text content for entry %s", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), content)
				return nil
			})
		},
	}
}

// newHistoryItemCmd builds a subcommand applying op to the entry named by
// its single argument.
func newHistoryItemCmd(use, short, done string, op func(*engine.Engine, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(e *engine.Engine) error {
				if err := op(e, id); err != nil {
					return fmt.Errorf("failed to %s %s: %w", use, id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", done, utils.ShortID(id, 8))
				return nil
			})
		},
	}
}

func newHistoryClearCmd() *cobra.Command {
	var pinned bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry from history (or the pinned list)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(e *engine.Engine) error {
				if pinned {
					if err := e.ClearPinned(); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Pinned list cleared")
					return nil
				}
				if err := e.ClearHistory(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&pinned, "pinned", "p", false, "clear the pinned list instead of history")
	return cmd
}
