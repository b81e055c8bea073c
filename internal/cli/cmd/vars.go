package cmd

import (
	"context"

	"github.com/berrythewa/clipvault/internal/config"
	"github.com/berrythewa/clipvault/internal/engine"
	"go.uber.org/zap"
)

// Shared variables across all commands
var (
	cfg       *config.Config
	cfgPath   string
	zapLogger *zap.Logger
)

// SetConfig sets the configuration for commands and the file it came from
func SetConfig(config *config.Config, path string) {
	cfg = config
	cfgPath = path
}

func GetConfig() *config.Config {
	return cfg
}

// SetZapLogger sets the logger for commands
func SetZapLogger(log *zap.Logger) {
	zapLogger = log
}

func GetZapLogger() *zap.Logger {
	if zapLogger == nil {
		return zap.NewNop()
	}
	return zapLogger
}

// withEngine loads the snapshots into an engine that does not watch the
// clipboard, runs fn and closes the engine again.
func withEngine(ctx context.Context, fn func(*engine.Engine) error) (err error) {
	e, err := engine.New(engine.Options{Config: cfg, Logger: GetZapLogger()})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := e.Start(ctx); err != nil {
		return err
	}
	return fn(e)
}
