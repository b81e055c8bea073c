// File: internal/config/config.go

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Log        LogConfig        `json:"log" yaml:"log"`
	Paths      PathsConfig      `json:"paths" yaml:"paths"`
	Settings   SettingsConfig   `json:"settings" yaml:"settings"`
	Monitor    MonitorConfig    `json:"monitor" yaml:"monitor"`
	Network    NetworkConfig    `json:"network" yaml:"network"`
	Classifier ClassifierConfig `json:"classifier" yaml:"classifier"`
	Integrity  IntegrityConfig  `json:"integrity" yaml:"integrity"`
}

// LogConfig holds logging-related configuration
type LogConfig struct {
	Level       string   `json:"level" yaml:"level"`
	Format      string   `json:"format" yaml:"format"` // "json" or "console"
	OutputPaths []string `json:"output_paths" yaml:"output_paths"`
}

// PathsConfig locates the snapshots and auxiliary directories. Empty
// entries are derived from DataDir by Resolve.
type PathsConfig struct {
	DataDir         string `json:"data_dir" yaml:"data_dir"`
	ImagesDir       string `json:"images_dir" yaml:"images_dir"`
	TextsDir        string `json:"texts_dir" yaml:"texts_dir"`
	LinkPreviewsDir string `json:"link_previews_dir" yaml:"link_previews_dir"`
	HistoryFile     string `json:"history_file" yaml:"history_file"`
	PinnedFile      string `json:"pinned_file" yaml:"pinned_file"`
	MetadataDB      string `json:"metadata_db" yaml:"metadata_db"`
	CountriesFile   string `json:"countries_file,omitempty" yaml:"countries_file,omitempty"`
}

// SettingsConfig are the user-facing options that may change while running.
type SettingsConfig struct {
	MaxHistoryItems     int  `json:"max_history_items" yaml:"max_history_items"`
	UnpinOnPaste        bool `json:"unpin_on_paste" yaml:"unpin_on_paste"`
	UpdateRecencyOnCopy bool `json:"update_recency_on_copy" yaml:"update_recency_on_copy"`
}

// MonitorConfig tunes clipboard watching.
type MonitorConfig struct {
	Debounce        time.Duration `json:"debounce" yaml:"debounce"`
	RetryAttempts   int           `json:"retry_attempts" yaml:"retry_attempts"`
	RetryDelay      time.Duration `json:"retry_delay" yaml:"retry_delay"`
	PollingInterval int64         `json:"polling_interval" yaml:"polling_interval"` // milliseconds
}

// NetworkConfig configures the shared HTTP session used for enrichment.
type NetworkConfig struct {
	Timeout      time.Duration `json:"timeout" yaml:"timeout"`
	UserAgent    string        `json:"user_agent" yaml:"user_agent"`
	FaviconAPI   string        `json:"favicon_api" yaml:"favicon_api"` // %s is replaced by the host
	MaxPageBytes int64         `json:"max_page_bytes" yaml:"max_page_bytes"`
	MaxIconBytes int64         `json:"max_icon_bytes" yaml:"max_icon_bytes"`
	MetadataTTL  time.Duration `json:"metadata_ttl" yaml:"metadata_ttl"`
}

// ClassifierConfig holds content size limits.
type ClassifierConfig struct {
	InlineTextLimit  int   `json:"inline_text_limit" yaml:"inline_text_limit"` // runes
	PreviewLength    int   `json:"preview_length" yaml:"preview_length"`       // runes
	CodePreviewLines int   `json:"code_preview_lines" yaml:"code_preview_lines"`
	MaxImageFileSize int64 `json:"max_image_file_size" yaml:"max_image_file_size"` // bytes
}

// IntegrityConfig bounds the healing pass.
type IntegrityConfig struct {
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	dataDir, err := getDefaultDataDir()
	if err != nil {
		dataDir = filepath.Join(os.TempDir(), appName)
	}

	cfg := &Config{
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stderr"},
		},
		Paths: PathsConfig{DataDir: dataDir},
		Settings: SettingsConfig{
			MaxHistoryItems:     100,
			UnpinOnPaste:        false,
			UpdateRecencyOnCopy: true,
		},
		Monitor: MonitorConfig{
			Debounce:        250 * time.Millisecond,
			RetryAttempts:   3,
			RetryDelay:      100 * time.Millisecond,
			PollingInterval: defaultPollingInterval(),
		},
		Network: NetworkConfig{
			Timeout:      10 * time.Second,
			UserAgent:    "Mozilla/5.0 (X11; Linux x86_64) clipvault",
			FaviconAPI:   "https://www.google.com/s2/favicons?domain=%s&sz=64",
			MaxPageBytes: 512 * 1024,
			MaxIconBytes: 1024 * 1024,
			MetadataTTL:  7 * 24 * time.Hour,
		},
		Classifier: ClassifierConfig{
			InlineTextLimit:  500,
			PreviewLength:    150,
			CodePreviewLines: 15,
			MaxImageFileSize: 20 * 1024 * 1024,
		},
		Integrity: IntegrityConfig{BatchSize: 8},
	}
	cfg.Paths.Resolve()
	return cfg
}

// Resolve fills every empty path from DataDir.
func (p *PathsConfig) Resolve() {
	set := func(dst *string, name string) {
		if *dst == "" {
			*dst = filepath.Join(p.DataDir, name)
		}
	}
	set(&p.ImagesDir, "images")
	set(&p.TextsDir, "texts")
	set(&p.LinkPreviewsDir, "link-previews")
	set(&p.HistoryFile, "history.json")
	set(&p.PinnedFile, "pinned.json")
	set(&p.MetadataDB, "metadata.db")
}

// Load loads the configuration from the specified file or creates default if not exists
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		var err error
		configPath, err = DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			if err := cfg.Save(configPath); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
			overrideFromEnv(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	overrideFromEnv(cfg)
	cfg.Paths.Resolve()
	return cfg, nil
}

// parse decodes data over the defaults so a partial file keeps sane values.
func parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	// Drop derived paths so a custom data_dir re-derives them.
	cfg.Paths = PathsConfig{DataDir: cfg.Paths.DataDir}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Paths.Resolve()
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Settings.MaxHistoryItems < 1 {
		return fmt.Errorf("settings.max_history_items must be positive, got %d", c.Settings.MaxHistoryItems)
	}
	if c.Monitor.RetryAttempts < 1 {
		return fmt.Errorf("monitor.retry_attempts must be positive, got %d", c.Monitor.RetryAttempts)
	}
	if c.Integrity.BatchSize < 1 {
		return fmt.Errorf("integrity.batch_size must be positive, got %d", c.Integrity.BatchSize)
	}
	if c.Classifier.PreviewLength < 1 || c.Classifier.InlineTextLimit < 1 || c.Classifier.CodePreviewLines < 1 {
		return fmt.Errorf("classifier limits must be positive")
	}
	return nil
}

// Save saves the configuration to the specified file
func (c *Config) Save(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// overrideFromEnv overrides configuration values from environment variables
func overrideFromEnv(config *Config) {
	if val := os.Getenv("CLIPVAULT_DATA_DIR"); val != "" && val != config.Paths.DataDir {
		config.Paths = PathsConfig{DataDir: val, CountriesFile: config.Paths.CountriesFile}
		config.Paths.Resolve()
	}
	if val := os.Getenv("CLIPVAULT_LOG_LEVEL"); val != "" {
		config.Log.Level = val
	}
	settingsFromEnv(&config.Settings)
	if val := os.Getenv("CLIPVAULT_POLLING_INTERVAL"); val != "" {
		if ms, err := strconv.ParseInt(val, 10, 64); err == nil {
			config.Monitor.PollingInterval = ms
		}
	}
}

// settingsFromEnv applies the env overrides that belong to the live
// settings section. Reloads go through it too, so an override survives
// edits to the file.
func settingsFromEnv(s *SettingsConfig) {
	if val := os.Getenv("CLIPVAULT_MAX_HISTORY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			s.MaxHistoryItems = n
		}
	}
}
