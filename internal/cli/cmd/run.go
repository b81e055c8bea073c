package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/berrythewa/clipvault/internal/engine"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RunOptions tunes Run.
type RunOptions struct {
	NoHeal bool
	Paused bool
}

func newRunCmd() *cobra.Command {
	var opts RunOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch the clipboard and record history in the foreground",
		Long: `Watch the clipboard and record every new copy in the history.

Existing clipboard content is not recorded; only changes after start are.
The integrity pass runs once in the background after the history is loaded.
Changes to the settings section of the config file apply without a restart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoHeal, "no-heal", false, "skip the integrity pass on start")
	cmd.Flags().BoolVar(&opts.Paused, "paused", false, "start with capturing paused")
	return cmd
}

// Run watches the clipboard until ctx is done or the process is signalled.
func Run(ctx context.Context, opts RunOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := GetZapLogger()
	e, err := engine.New(engine.Options{
		Config:      cfg,
		ConfigPath:  cfgPath,
		Watch:       true,
		HealOnStart: !opts.NoHeal,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	e.SetPaused(opts.Paused)

	cancelHistory := e.OnHistoryChanged(func() {
		logger.Debug("History changed", zap.Int("items", len(e.GetHistoryItems())))
	})
	defer cancelHistory()
	cancelPinned := e.OnPinnedChanged(func() {
		logger.Debug("Pinned changed", zap.Int("items", len(e.GetPinnedItems())))
	})
	defer cancelPinned()

	if err := e.Start(ctx); err != nil {
		e.Close()
		return err
	}
	logger.Info("Watching clipboard",
		zap.String("data_dir", cfg.Paths.DataDir),
		zap.Bool("paused", opts.Paused))

	<-ctx.Done()
	logger.Info("Shutting down")
	return e.Close()
}
