package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// settleDelay is how long the config file has to stay quiet before it is
// re-read. A save usually arrives as several events (truncate, write,
// rename); only the state after the last one matters.
var settleDelay = 200 * time.Millisecond

// Watch reloads configPath whenever it changes on disk and pushes the
// settings section into s. It blocks until ctx is done.
//
// The parent directory is watched rather than the file, since editors
// usually replace the file instead of writing it in place.
func Watch(ctx context.Context, configPath string, s *Settings, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(configPath)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	name := filepath.Clean(configPath)

	settle := time.NewTimer(settleDelay)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			settle.Reset(settleDelay)
		case <-settle.C:
			next, ok, err := reloadSettings(configPath, s.Snapshot())
			if err != nil {
				logger.Warn("Ignoring invalid config change", zap.String("path", configPath), zap.Error(err))
				continue
			}
			if !ok {
				logger.Debug("Config change has no settings section, ignored", zap.String("path", configPath))
				continue
			}
			s.Update(next)
			logger.Debug("Settings reloaded", zap.Any("settings", s.Snapshot()))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Config watcher error", zap.Error(err))
		}
	}
}

// reloadSettings decodes the settings section of configPath over current,
// so keys missing from the file keep their live values. ok is false when
// the file is empty or has no settings section, which is what a save in
// progress leaves behind.
func reloadSettings(configPath string, current SettingsConfig) (next SettingsConfig, ok bool, err error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return current, false, err
	}

	var doc struct {
		Settings yaml.Node `yaml:"settings"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return current, false, fmt.Errorf("failed to parse config file: %w", err)
	}
	if doc.Settings.Kind != yaml.MappingNode {
		return current, false, nil
	}

	next = current
	if err := doc.Settings.Decode(&next); err != nil {
		return current, false, fmt.Errorf("failed to parse settings: %w", err)
	}
	settingsFromEnv(&next)
	if next.MaxHistoryItems < 1 {
		return current, false, fmt.Errorf("settings.max_history_items must be positive, got %d", next.MaxHistoryItems)
	}
	return next, true, nil
}
