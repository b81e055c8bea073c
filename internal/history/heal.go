package history

import (
	"context"
	"fmt"

	"github.com/berrythewa/clipvault/internal/classify"
	"github.com/berrythewa/clipvault/internal/enrich"
	"github.com/berrythewa/clipvault/internal/storage"
	"github.com/berrythewa/clipvault/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultBatchSize = 8

// Enricher re-derives network-sourced artifacts. *enrich.Enricher
// satisfies it.
type Enricher interface {
	Link(ctx context.Context, pageURL, id string) (enrich.LinkInfo, error)
	ProviderIcon(ctx context.Context, email, id string) (string, error)
	FetchImage(ctx context.Context, rawURL string) ([]byte, string, error)
}

// HealReport counts what an integrity pass did.
type HealReport struct {
	Checked   int
	Restored  int // missing files recreated
	Cleared   int // stale icon references dropped
	Corrupted int // records newly flagged
	Recovered int // records whose flag was lifted
}

func (r HealReport) changed() bool {
	return r.Restored+r.Cleared+r.Corrupted+r.Recovered > 0
}

// Healer checks that every file a record references exists and repairs or
// flags the record when it doesn't.
type Healer struct {
	store    *Store
	files    *storage.Files
	enricher Enricher
	batch    int
	logger   *zap.Logger
}

// NewHealer returns a Healer. enricher may be nil, in which case nothing
// is re-downloaded.
func NewHealer(store *Store, enricher Enricher, batchSize int, logger *zap.Logger) *Healer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Healer{
		store:    store,
		files:    store.files,
		enricher: enricher,
		batch:    batchSize,
		logger:   logger.Named("heal"),
	}
}

// patch is the outcome of checking one record. apply runs against the
// live record under the store lock and must re-check what it observed,
// since the record may have changed while the check was in flight.
type patch struct {
	id       string
	restored bool
	apply    func(*types.Item) bool
	kind     patchKind
}

type patchKind int

const (
	patchNone patchKind = iota
	patchClear
	patchFlag
	patchUnflag
)

// Run checks every record at most batch at a time, then applies all
// repairs in one step and persists and notifies once if anything changed.
func (h *Healer) Run(ctx context.Context) (HealReport, error) {
	var report HealReport
	if !h.store.Loaded() {
		return report, ErrNotLoaded
	}

	items := append(h.store.HistoryItems(), h.store.PinnedItems()...)
	report.Checked = len(items)
	patches := make([]patch, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.batch)
	for i := range items {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			patches[i] = h.check(gctx, items[i])
			return nil
		})
	}
	werr := g.Wait()

	var fx effects
	s := h.store
	s.mu.Lock()
	for _, p := range patches {
		if p.id == "" {
			continue
		}
		list, i := s.locate(p.id)
		if i < 0 {
			continue
		}
		touched := p.restored
		if p.apply != nil {
			item := s.list(list)[i].Clone()
			if p.apply(&item) {
				s.list(list)[i] = item
				touched = true
				switch p.kind {
				case patchClear:
					report.Cleared++
				case patchFlag:
					report.Corrupted++
				case patchUnflag:
					report.Recovered++
				}
			}
		}
		if p.restored {
			report.Restored++
		}
		if touched {
			fx.changed(list)
		}
	}
	if report.changed() {
		s.persistLocked(fx)
	}
	s.mu.Unlock()
	s.finish(fx)

	h.logger.Info("Integrity pass finished",
		zap.Int("checked", report.Checked),
		zap.Int("restored", report.Restored),
		zap.Int("cleared", report.Cleared),
		zap.Int("corrupted", report.Corrupted),
		zap.Int("recovered", report.Recovered))
	if werr != nil {
		return report, fmt.Errorf("integrity pass interrupted: %w", werr)
	}
	return report, nil
}

func (h *Healer) check(ctx context.Context, it types.Item) patch {
	switch p := it.Payload.(type) {
	case *types.ImagePayload:
		return h.checkImage(ctx, it, p)
	case *types.URLPayload:
		return h.checkIcon(ctx, it, p.IconFilename, func(ctx context.Context) (string, error) {
			info, err := h.enricher.Link(ctx, p.URL, it.ID)
			if info.IconFilename != "" {
				return info.IconFilename, nil
			}
			if err == nil {
				err = enrich.ErrNoIcon
			}
			return "", err
		})
	case *types.ContactPayload:
		if p.Subtype != types.ContactEmail {
			return h.checkIcon(ctx, it, p.IconFilename, nil)
		}
		return h.checkIcon(ctx, it, p.IconFilename, func(ctx context.Context) (string, error) {
			return h.enricher.ProviderIcon(ctx, p.Text, it.ID)
		})
	case *types.ColorPayload:
		return h.checkGradient(it, p)
	case *types.TextPayload, *types.CodePayload:
		return h.checkSideCar(it)
	}
	return patch{}
}

func (h *Healer) checkImage(ctx context.Context, it types.Item, p *types.ImagePayload) patch {
	if p.ImageFilename == "" {
		return flag(it)
	}
	ref := types.FileRef{Dir: types.DirImages, Name: p.ImageFilename}
	if h.files.Exists(ref) {
		return unflag(it)
	}

	if src, ok := classify.PathFromURI(p.FileURI); ok && src != h.files.Path(ref) {
		err := h.files.CopyFile(src, ref.Name)
		if err == nil {
			h.logger.Debug("Image restored from source file", zap.String("id", it.ID))
			return restored(it)
		}
		h.logger.Debug("Image source file unusable", zap.String("id", it.ID), zap.Error(err))
	}
	if p.SourceURL != "" && h.enricher != nil {
		data, _, err := h.enricher.FetchImage(ctx, p.SourceURL)
		if err == nil {
			err = h.files.WriteImage(ref.Name, data)
		}
		if err == nil {
			h.logger.Debug("Image restored from source URL", zap.String("id", it.ID))
			return restored(it)
		}
		h.logger.Debug("Image download failed", zap.String("id", it.ID), zap.Error(err))
	}
	return flag(it)
}

// checkIcon re-derives a missing decorative icon, dropping the reference
// when that fails. A missing icon never marks the record corrupted.
func (h *Healer) checkIcon(ctx context.Context, it types.Item, name string, derive func(context.Context) (string, error)) patch {
	if name == "" || h.files.Exists(types.FileRef{Dir: types.DirLinkPreviews, Name: name}) {
		return patch{}
	}
	if derive != nil && h.enricher != nil {
		fresh, err := derive(ctx)
		if err == nil && fresh != "" {
			return patch{
				id:       it.ID,
				restored: true,
				apply:    setIcon(name, fresh),
			}
		}
		h.logger.Debug("Icon could not be re-derived", zap.String("id", it.ID), zap.Error(err))
	}
	return patch{id: it.ID, kind: patchClear, apply: setIcon(name, "")}
}

func setIcon(observed, next string) func(*types.Item) bool {
	return func(item *types.Item) bool {
		var field *string
		switch p := item.Payload.(type) {
		case *types.URLPayload:
			field = &p.IconFilename
		case *types.ContactPayload:
			field = &p.IconFilename
		default:
			return false
		}
		if *field != observed || observed == next {
			return false
		}
		*field = next
		return true
	}
}

func (h *Healer) checkGradient(it types.Item, p *types.ColorPayload) patch {
	if p.GradientFilename == "" {
		return patch{}
	}
	if h.files.Exists(types.FileRef{Dir: types.DirImages, Name: p.GradientFilename}) {
		return unflag(it)
	}

	colors := p.Colors
	if len(colors) == 0 {
		colors = classify.ExtractColors(p.ColorValue)
	}
	name, err := h.files.RenderGradient(it.Hash, classify.ParseStops(colors))
	if err != nil {
		h.logger.Debug("Gradient could not be regenerated", zap.String("id", it.ID), zap.Error(err))
		return flag(it)
	}
	observed := p.GradientFilename
	return patch{
		id:       it.ID,
		restored: true,
		apply: func(item *types.Item) bool {
			cp, ok := item.Payload.(*types.ColorPayload)
			if !ok || cp.GradientFilename != observed {
				return false
			}
			changed := cp.GradientFilename != name || item.IsCorrupted
			cp.GradientFilename = name
			item.IsCorrupted = false
			return changed
		},
	}
}

// checkSideCar flags text whose overflow file is gone. The content
// cannot be recovered.
func (h *Healer) checkSideCar(it types.Item) patch {
	refs := it.FileRefs()
	if len(refs) == 0 {
		return patch{}
	}
	if h.files.Exists(refs[0]) {
		return unflag(it)
	}
	return flag(it)
}

func restored(it types.Item) patch {
	p := unflag(it)
	p.id = it.ID
	p.restored = true
	return p
}

func flag(it types.Item) patch {
	if it.IsCorrupted {
		return patch{}
	}
	return patch{id: it.ID, kind: patchFlag, apply: setCorrupted(true)}
}

func unflag(it types.Item) patch {
	if !it.IsCorrupted {
		return patch{}
	}
	return patch{id: it.ID, kind: patchUnflag, apply: setCorrupted(false)}
}

func setCorrupted(v bool) func(*types.Item) bool {
	return func(item *types.Item) bool {
		if item.IsCorrupted == v {
			return false
		}
		item.IsCorrupted = v
		return true
	}
}
