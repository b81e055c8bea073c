// Package engine assembles the classification pipeline, history store,
// enrichment and clipboard monitor behind one object with an explicit
// lifecycle.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/berrythewa/clipvault/internal/classify"
	"github.com/berrythewa/clipvault/internal/clipboard"
	"github.com/berrythewa/clipvault/internal/config"
	"github.com/berrythewa/clipvault/internal/enrich"
	"github.com/berrythewa/clipvault/internal/history"
	"github.com/berrythewa/clipvault/internal/platform"
	"github.com/berrythewa/clipvault/internal/storage"
	"github.com/berrythewa/clipvault/internal/types"
	"go.uber.org/zap"
)

// Options configures New.
type Options struct {
	Config *config.Config
	// ConfigPath, when set, is watched for settings changes while running.
	ConfigPath string
	// Clipboard defaults to the platform clipboard. It is only used when
	// Watch is set.
	Clipboard platform.Clipboard
	// Watch starts the clipboard monitor.
	Watch bool
	// HealOnStart runs the integrity pass in the background after load.
	HealOnStart bool
	Logger      *zap.Logger
}

// Engine is the API the presentation layer talks to.
type Engine struct {
	cfg        *config.Config
	configPath string
	settings   *config.Settings
	files      *storage.Files
	cache      *storage.MetaCache
	store      *history.Store
	enricher   *enrich.Enricher
	pipeline   *classify.Pipeline
	healer     *history.Healer
	monitor    *clipboard.Monitor
	healOnLoad bool
	logger     *zap.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds an engine. Nothing touches the clipboard or the snapshots
// until Start.
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	paths := cfg.Paths
	paths.Resolve()

	files := storage.NewFiles(paths.ImagesDir, paths.TextsDir, paths.LinkPreviewsDir)
	if err := files.Ensure(); err != nil {
		return nil, fmt.Errorf("failed to create data directories: %w", err)
	}

	// The cache is an optimization; another process holding the database
	// must not keep the engine from starting.
	cache, err := storage.NewMetaCache(storage.MetaCacheConfig{
		DBPath: paths.MetadataDB,
		TTL:    cfg.Network.MetadataTTL,
		Logger: logger.Named("metacache"),
	})
	if err != nil {
		logger.Warn("Link metadata cache unavailable", zap.Error(err))
		cache = nil
	}

	settings := config.NewSettings(cfg.Settings)
	store, err := history.NewStore(history.Options{
		HistoryFile: paths.HistoryFile,
		PinnedFile:  paths.PinnedFile,
		Files:       files,
		Settings:    settings,
		Logger:      logger,
	})
	if err != nil {
		if cache != nil {
			cache.Close()
		}
		return nil, err
	}

	enricher := enrich.New(enrich.Options{
		Network:       cfg.Network,
		Files:         files,
		Cache:         cache,
		MaxImageBytes: cfg.Classifier.MaxImageFileSize,
		Logger:        logger,
	})
	pipeline := classify.NewPipeline(classify.Options{
		Limits:    cfg.Classifier,
		DialCodes: classify.NewDialCodes(paths.CountriesFile, logger),
		Logger:    logger,
	})

	e := &Engine{
		cfg:        cfg,
		configPath: opts.ConfigPath,
		settings:   settings,
		files:      files,
		cache:      cache,
		store:      store,
		enricher:   enricher,
		pipeline:   pipeline,
		healer:     history.NewHealer(store, enricher, cfg.Integrity.BatchSize, logger),
		healOnLoad: opts.HealOnStart,
		logger:     logger.Named("engine"),
	}

	if opts.Watch {
		cb := opts.Clipboard
		if cb == nil {
			cb = platform.New(logger)
		}
		e.monitor = clipboard.NewMonitor(clipboard.Options{
			Clipboard:     cb,
			Pipeline:      pipeline,
			Store:         store,
			Files:         files,
			Enricher:      enricher,
			Monitor:       cfg.Monitor,
			MaxImageBytes: cfg.Classifier.MaxImageFileSize,
			Logger:        logger,
		})
	}
	return e, nil
}

// Start loads the snapshots and then, in the background, loads the dial
// code table, runs the integrity pass and watches the clipboard and the
// config file, as configured.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return errors.New("engine already started")
	}

	if _, err := e.store.Load(); err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.started = true

	e.goRun(func() {
		if err := e.pipeline.DialCodes().Init(runCtx); err != nil {
			e.logger.Warn("Dial code table unavailable, phone numbers get no country", zap.Error(err))
		}
	})
	if e.healOnLoad {
		e.goRun(func() {
			if _, err := e.healer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Warn("Integrity pass failed", zap.Error(err))
			}
		})
	}
	if e.configPath != "" {
		e.goRun(func() {
			if err := config.Watch(runCtx, e.configPath, e.settings, e.logger); err != nil {
				e.logger.Warn("Config changes will not be picked up", zap.Error(err))
			}
		})
	}
	if e.monitor != nil {
		if err := e.monitor.Start(runCtx); err != nil {
			cancel()
			return err
		}
	}

	e.logger.Info("Engine started", zap.Bool("watching", e.monitor != nil))
	return nil
}

func (e *Engine) goRun(fn func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn()
	}()
}

// Close stops the monitor, waits for background work and closes the
// metadata cache.
func (e *Engine) Close() error {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if e.monitor != nil {
		e.monitor.Stop()
	}
	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
	e.store.Close()

	e.mu.Lock()
	cache := e.cache
	e.cache = nil
	e.mu.Unlock()
	if cache != nil {
		if err := cache.Close(); err != nil {
			return fmt.Errorf("failed to close metadata cache: %w", err)
		}
	}
	return nil
}

func (e *Engine) GetHistoryItems() []types.Item { return e.store.HistoryItems() }

func (e *Engine) GetPinnedItems() []types.Item { return e.store.PinnedItems() }

// GetContent returns the full text of a text or code item.
func (e *Engine) GetContent(id string) (string, bool) { return e.store.GetContent(id) }

func (e *Engine) PinItem(id string) error { return e.store.Pin(id) }

func (e *Engine) UnpinItem(id string) error { return e.store.Unpin(id) }

func (e *Engine) DeleteItem(id string) error { return e.store.Delete(id) }

// PromoteItemToTop is called when the user pastes id.
func (e *Engine) PromoteItemToTop(id string) error { return e.store.PromoteToTop(id) }

func (e *Engine) ClearHistory() error { return e.store.ClearHistory() }

func (e *Engine) ClearPinned() error { return e.store.ClearPinned() }

// SetPaused stops or resumes capturing clipboard changes. It is a no-op
// when the engine isn't watching.
func (e *Engine) SetPaused(paused bool) {
	if e.monitor != nil {
		e.monitor.SetPaused(paused)
	}
}

// OnHistoryChanged registers fn for history changes.
func (e *Engine) OnHistoryChanged(fn func()) (cancel func()) {
	return e.store.Subscribe(history.HistoryChanged, fn)
}

// OnPinnedChanged registers fn for pinned list changes.
func (e *Engine) OnPinnedChanged(fn func()) (cancel func()) {
	return e.store.Subscribe(history.PinnedChanged, fn)
}

// Settings is the live settings view; updates re-apply the history limit.
func (e *Engine) Settings() *config.Settings { return e.settings }

// Heal runs the integrity pass now.
func (e *Engine) Heal(ctx context.Context) (history.HealReport, error) {
	return e.healer.Run(ctx)
}

// CollectGarbage removes unreferenced files older than grace and expired
// link metadata.
func (e *Engine) CollectGarbage(ctx context.Context, grace time.Duration) (history.GCReport, error) {
	report, err := e.store.CollectGarbage(ctx, grace)
	if err != nil {
		return report, err
	}
	e.mu.Lock()
	cache := e.cache
	e.mu.Unlock()
	if cache != nil {
		n, err := cache.Prune()
		if err != nil {
			e.logger.Warn("Failed to prune link metadata", zap.Error(err))
		} else if n > 0 {
			e.logger.Info("Expired link metadata removed", zap.Int("entries", n))
		}
	}
	return report, nil
}
