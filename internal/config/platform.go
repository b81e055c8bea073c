// File: internal/config/platform.go

package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "clipvault"

// getDefaultConfigDir and getDefaultDataDir are variables so tests can
// point them at a temp directory.
var getDefaultConfigDir = func() (string, error) {
	if dir := os.Getenv("CLIPVAULT_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(configDir, "ClipVault"), nil
	case "darwin":
		return filepath.Join(configDir, "com.berrythewa.clipvault"), nil
	default:
		return filepath.Join(configDir, appName), nil
	}
}

var getDefaultDataDir = func() (string, error) {
	if dir := os.Getenv("CLIPVAULT_DATA_DIR"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch runtime.GOOS {
	case "windows":
		if appData, err := os.UserConfigDir(); err == nil {
			return filepath.Join(appData, "ClipVault", "Data"), nil
		}
		return filepath.Join(homeDir, "AppData", "Local", "ClipVault"), nil
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "ClipVault"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		return filepath.Join(homeDir, ".local", "share", appName), nil
	}
}

// DefaultConfigPath returns where Load looks when no path is given.
func DefaultConfigPath() (string, error) {
	dir, err := getDefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// defaultPollingInterval is how often the clipboard is sampled when the
// platform offers no change notification.
func defaultPollingInterval() int64 {
	switch runtime.GOOS {
	case "darwin", "windows":
		return 500
	default:
		return 300
	}
}
