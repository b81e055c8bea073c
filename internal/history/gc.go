package history

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/berrythewa/clipvault/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultGracePeriod keeps files younger than this out of a sweep, so a
// file written for content that is about to be inserted isn't collected.
const DefaultGracePeriod = time.Minute

// GCReport counts what a sweep did.
type GCReport struct {
	Scanned int64
	Removed int64
	Failed  int64
}

// CollectGarbage deletes every file in the managed directories that no
// record references. Files modified within grace are left alone.
// Missing directories and individual failures don't stop the sweep.
func (s *Store) CollectGarbage(ctx context.Context, grace time.Duration) (GCReport, error) {
	var report GCReport

	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return report, ErrNotLoaded
	}
	live := map[types.Dir]map[string]bool{
		types.DirImages:       {},
		types.DirTexts:        {},
		types.DirLinkPreviews: {},
	}
	for _, list := range [][]types.Item{s.history, s.pinned} {
		for _, it := range list {
			for _, ref := range it.FileRefs() {
				live[ref.Dir][ref.Name] = true
			}
		}
	}
	s.mu.Unlock()

	cutoff := time.Now().Add(-grace)
	g, gctx := errgroup.WithContext(ctx)
	for dir, names := range live {
		g.Go(func() error {
			return s.sweep(gctx, dir, names, cutoff, &report)
		})
	}
	err := g.Wait()

	s.logger.Info("Garbage collection finished",
		zap.Int64("scanned", report.Scanned),
		zap.Int64("removed", report.Removed),
		zap.Int64("failed", report.Failed))
	return report, err
}

func (s *Store) sweep(ctx context.Context, dir types.Dir, live map[string]bool, cutoff time.Time, report *GCReport) error {
	names, err := s.files.List(dir)
	if err != nil {
		s.logger.Warn("Failed to list directory", zap.Stringer("dir", dir), zap.Error(err))
		atomic.AddInt64(&report.Failed, 1)
		return nil
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		atomic.AddInt64(&report.Scanned, 1)
		if live[name] {
			continue
		}
		ref := types.FileRef{Dir: dir, Name: name}
		info, err := os.Stat(s.files.Path(ref))
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := s.files.Remove(ref); err != nil {
			s.logger.Warn("Failed to delete orphaned file", zap.Stringer("dir", dir), zap.String("name", name), zap.Error(err))
			atomic.AddInt64(&report.Failed, 1)
			continue
		}
		atomic.AddInt64(&report.Removed, 1)
		s.logger.Debug("Orphaned file deleted", zap.Stringer("dir", dir), zap.String("name", name))
	}
	return nil
}
