package clipboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/berrythewa/clipvault/internal/classify"
	"github.com/berrythewa/clipvault/internal/config"
	"github.com/berrythewa/clipvault/internal/enrich"
	"github.com/berrythewa/clipvault/internal/history"
	"github.com/berrythewa/clipvault/internal/platform"
	"github.com/berrythewa/clipvault/internal/storage"
	"github.com/berrythewa/clipvault/internal/types"
	"github.com/berrythewa/clipvault/pkg/utils"
	"go.uber.org/zap"
)

// Enricher fetches link titles and icons after an item is stored.
type Enricher interface {
	Link(ctx context.Context, pageURL, id string) (enrich.LinkInfo, error)
	ProviderIcon(ctx context.Context, email, id string) (string, error)
}

// Options configures NewMonitor.
type Options struct {
	Clipboard platform.Clipboard
	Pipeline  *classify.Pipeline
	Store     *history.Store
	Files     *storage.Files
	// Enricher is optional; without it URL and email items keep their
	// initial title and no icon.
	Enricher      Enricher
	Monitor       config.MonitorConfig
	MaxImageBytes int64
	Logger        *zap.Logger
}

// Monitor watches the clipboard and feeds new content through the
// classification pipeline into the store.
type Monitor struct {
	cb        platform.Clipboard
	extractor *Extractor
	pipeline  *classify.Pipeline
	store     *history.Store
	files     *storage.Files
	enricher  Enricher
	cfg       config.MonitorConfig
	logger    *zap.Logger

	paused atomic.Bool

	mu          sync.Mutex
	timer       *time.Timer
	fingerprint string
	ctx         context.Context
	cancel      context.CancelFunc

	// process serializes handling so two debounced changes never
	// interleave their dedup check and insert.
	process sync.Mutex
	wg      sync.WaitGroup
}

func NewMonitor(opts Options) *Monitor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("monitor")

	return &Monitor{
		cb:        opts.Clipboard,
		extractor: NewExtractor(opts.Clipboard, opts.MaxImageBytes, opts.Monitor.RetryAttempts, opts.Monitor.RetryDelay, logger),
		pipeline:  opts.Pipeline,
		store:     opts.Store,
		files:     opts.Files,
		enricher:  opts.Enricher,
		cfg:       opts.Monitor,
		logger:    logger,
		ctx:       context.Background(),
	}
}

// Start records what is on the clipboard now, without storing it, and
// polls for changes until Stop.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return errors.New("monitor already started")
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	runCtx := m.ctx
	m.mu.Unlock()

	fp, _ := m.probe(runCtx)
	m.mu.Lock()
	m.fingerprint = fp
	m.mu.Unlock()

	interval := time.Duration(m.cfg.PollingInterval) * time.Millisecond
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.poll(runCtx, interval)
	}()

	m.logger.Info("Clipboard monitor started", zap.Duration("interval", interval))
	return nil
}

// Stop ends polling, drops a pending change and waits for in-flight
// processing and enrichment.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.timer != nil {
		if m.timer.Stop() {
			m.wg.Done()
		}
		m.timer = nil
	}
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	m.logger.Info("Clipboard monitor stopped")
}

// SetPaused stops (or resumes) reacting to clipboard changes. Pausing
// also drops a change waiting out its debounce.
func (m *Monitor) SetPaused(paused bool) {
	m.paused.Store(paused)
	if !paused {
		return
	}
	m.mu.Lock()
	if m.timer != nil && m.timer.Stop() {
		m.wg.Done()
	}
	m.timer = nil
	m.mu.Unlock()
}

// Paused reports the pause state.
func (m *Monitor) Paused() bool {
	return m.paused.Load()
}

func (m *Monitor) poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		fp, ok := m.probe(ctx)
		if !ok {
			continue
		}
		m.mu.Lock()
		changed := fp != m.fingerprint
		m.fingerprint = fp
		m.mu.Unlock()
		if changed {
			m.Changed()
		}
	}
}

// probe fingerprints the current clipboard payload without retrying.
func (m *Monitor) probe(ctx context.Context) (string, bool) {
	in, err := m.extractor.extractOnce(ctx)
	if err != nil {
		return "", errors.Is(err, errNothing)
	}
	if in.IsBinary() {
		h, err := utils.HashBytes(in.Image)
		return h, err == nil
	}
	return utils.HashString(in.Text), true
}

// Changed signals that the clipboard changed. Signals within the debounce
// window supersede each other; only the last one is processed.
func (m *Monitor) Changed() {
	if m.paused.Load() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil && m.timer.Stop() {
		m.wg.Done()
	}
	m.wg.Add(1)
	m.timer = time.AfterFunc(m.cfg.Debounce, func() {
		defer m.wg.Done()
		m.mu.Lock()
		m.timer = nil
		ctx := m.ctx
		m.mu.Unlock()
		if m.paused.Load() {
			return
		}
		if err := m.Process(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Warn("Failed to process clipboard change", zap.Error(err))
		}
	})
}

// Process extracts, classifies and stores the current clipboard content.
func (m *Monitor) Process(ctx context.Context) error {
	m.process.Lock()
	defer m.process.Unlock()

	in, ok, err := m.extractor.Extract(ctx)
	if err != nil {
		return err
	}
	if !ok {
		m.logger.Debug("Clipboard empty after retries")
		return nil
	}

	res, err := m.pipeline.Classify(ctx, in)
	if err != nil || res == nil {
		m.logger.Debug("Nothing to classify", zap.String("mime", in.MIME), zap.Error(err))
		return nil
	}
	return m.ingest(ctx, res)
}

// ingest stores a classified result. Content already in the store is
// promoted without writing any files; otherwise the result's pending
// files are written first and removed again if the insert loses a race.
func (m *Monitor) ingest(ctx context.Context, res *classify.Result) error {
	item := res.Item
	if item.Hash == m.store.LastSeen() {
		m.logger.Debug("Clipboard content unchanged", zap.String("hash", item.Hash))
		return nil
	}

	id, found, err := m.store.PromoteHash(item.Hash)
	if err != nil {
		return err
	}
	if found {
		m.logger.Debug("Existing item re-copied", zap.String("id", id))
		return nil
	}

	written, err := m.materialize(&item, res)
	if err != nil {
		m.removeAll(written)
		return err
	}

	ins, err := m.store.Insert(item)
	if err != nil || !ins.Inserted {
		m.removeAll(written)
		return err
	}
	m.logger.Debug("Clipboard item stored",
		zap.String("id", item.ID), zap.String("type", string(item.Type)))

	m.scheduleEnrichment(item, res.Enrich)
	return nil
}

// materialize writes the files a new item needs and fills in their
// names. It returns what it wrote so a failed insert can undo it.
func (m *Monitor) materialize(item *types.Item, res *classify.Result) ([]types.FileRef, error) {
	var written []types.FileRef

	switch p := item.Payload.(type) {
	case *types.ImagePayload:
		if res.Image == nil {
			break
		}
		name, err := m.files.SaveImage(item.ID, res.Image.Ext, res.Image.Data)
		if err != nil {
			return written, err
		}
		p.ImageFilename = name
		written = append(written, types.FileRef{Dir: types.DirImages, Name: name})

	case *types.TextPayload, *types.CodePayload:
		refs := item.FileRefs()
		if len(refs) == 0 {
			break
		}
		if err := m.files.SaveText(item.ID, res.FullText); err != nil {
			return written, err
		}
		written = append(written, refs...)

	case *types.ColorPayload:
		if len(res.GradientStops) < 2 {
			break
		}
		// Swatches are shared by hash and may already belong to a record,
		// so a gradient file is never reported as written.
		name, err := m.files.RenderGradient(item.Hash, res.GradientStops)
		if err != nil {
			m.logger.Warn("Failed to render gradient preview", zap.String("hash", item.Hash), zap.Error(err))
			break
		}
		p.GradientFilename = name
	}
	return written, nil
}

func (m *Monitor) removeAll(refs []types.FileRef) {
	for _, ref := range refs {
		if err := m.files.Remove(ref); err != nil {
			m.logger.Warn("Failed to remove unused file", zap.String("name", ref.Name), zap.Error(err))
		}
	}
}

func (m *Monitor) scheduleEnrichment(item types.Item, kind classify.Enrichment) {
	if m.enricher == nil || kind == classify.EnrichNone {
		return
	}
	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		switch kind {
		case classify.EnrichURL:
			m.enrichURL(ctx, item)
		case classify.EnrichEmail:
			m.enrichEmail(ctx, item)
		}
	}()
}

func (m *Monitor) enrichURL(ctx context.Context, item types.Item) {
	p, ok := item.Payload.(*types.URLPayload)
	if !ok {
		return
	}
	info, err := m.enricher.Link(ctx, p.URL, item.ID)
	if err != nil {
		m.logger.Warn("Link enrichment incomplete", zap.String("id", item.ID), zap.Error(err))
	}
	if info.Title == "" && info.IconFilename == "" {
		return
	}

	updated, uerr := m.store.Update(item.ID, func(it *types.Item) bool {
		up, ok := it.Payload.(*types.URLPayload)
		if !ok {
			return false
		}
		changed := false
		if info.Title != "" && up.Title != info.Title {
			up.Title = info.Title
			changed = true
		}
		if info.IconFilename != "" && up.IconFilename != info.IconFilename {
			up.IconFilename = info.IconFilename
			changed = true
		}
		return changed
	})
	m.afterEnrichment(item.ID, info.IconFilename, updated, uerr)
}

func (m *Monitor) enrichEmail(ctx context.Context, item types.Item) {
	p, ok := item.Payload.(*types.ContactPayload)
	if !ok || p.Subtype != types.ContactEmail {
		return
	}
	icon, err := m.enricher.ProviderIcon(ctx, p.Text, item.ID)
	if err != nil || icon == "" {
		m.logger.Debug("No provider icon", zap.String("id", item.ID), zap.Error(err))
		return
	}

	updated, uerr := m.store.Update(item.ID, func(it *types.Item) bool {
		cp, ok := it.Payload.(*types.ContactPayload)
		if !ok || cp.IconFilename == icon {
			return false
		}
		cp.IconFilename = icon
		return true
	})
	m.afterEnrichment(item.ID, icon, updated, uerr)
}

// afterEnrichment drops an icon that arrived for a record deleted in the
// meantime.
func (m *Monitor) afterEnrichment(id, icon string, updated bool, err error) {
	if err != nil {
		m.logger.Warn("Failed to store enrichment", zap.String("id", id), zap.Error(err))
	}
	if updated || icon == "" {
		return
	}
	if _, exists := m.store.Get(id); exists {
		return
	}
	m.removeAll([]types.FileRef{{Dir: types.DirLinkPreviews, Name: icon}})
}
