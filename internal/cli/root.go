package cli

import (
	"fmt"
	"os"

	cmdpkg "github.com/berrythewa/clipvault/internal/cli/cmd"
	"github.com/berrythewa/clipvault/internal/common"
	"github.com/berrythewa/clipvault/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version information - set by main
var (
	Version   = "dev"
	BuildTime = "unknown"
	Commit    = "none"
)

// SetVersionInfo records build metadata for the version command.
func SetVersionInfo(version, buildTime, commit string) {
	Version, BuildTime, Commit = version, buildTime, commit
	cmdpkg.SetVersionInfo(version, buildTime, commit)
}

// NewRootCmd builds the command tree. Running it without a subcommand
// watches the clipboard in the foreground.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile  string
		logLevel string
		logger   *zap.Logger
	)

	root := &cobra.Command{
		Use:   "clipvault",
		Short: "ClipVault is a clipboard history manager",
		Long: `ClipVault watches your clipboard, classifies what you copy (text, code,
links, emails, phone numbers, colors, files and images) and keeps a
history with a separate pinned list.

Running clipvault without any commands watches the clipboard in the foreground.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdpkg.Run(cmd.Context(), cmdpkg.RunOptions{})
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return fmt.Errorf("failed to locate config: %w", err)
				}
			}

			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}

			logger, err = common.NewLogger(cfg.Log)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			logger.Debug("Configuration loaded",
				zap.String("path", path),
				zap.String("data_dir", cfg.Paths.DataDir),
				zap.Int("max_history_items", cfg.Settings.MaxHistoryItems))

			// Share cfg and logger with cmd package
			cmdpkg.SetConfig(cfg, path)
			cmdpkg.SetZapLogger(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is the platform config directory)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.AddCommand(cmdpkg.GetCommands()...)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
