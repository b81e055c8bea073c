package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/berrythewa/clipvault/internal/types"
	"github.com/berrythewa/clipvault/pkg/utils"
	"go.uber.org/zap"
)

// LoadStatus says how a snapshot load resolved.
type LoadStatus int

const (
	Loaded LoadStatus = iota
	Missing
	Corrupt
)

func (s LoadStatus) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Missing:
		return "missing"
	case Corrupt:
		return "corrupt"
	}
	return "unknown"
}

// Snapshot is one JSON array-of-items file written whole on every save.
type Snapshot struct {
	path   string
	logger *zap.Logger
	now    func() time.Time
}

func NewSnapshot(path string, logger *zap.Logger) *Snapshot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Snapshot{path: path, logger: logger, now: time.Now}
}

func (s *Snapshot) Path() string { return s.path }

// Load reads the snapshot. A missing file yields an empty list. A file that
// does not parse is moved aside to "<path>.corrupt-<unix>" and also yields an
// empty list, so the next save cannot overwrite the only copy. The returned
// error is non-nil only when the file exists but could not be read.
func (s *Snapshot) Load() ([]types.Item, LoadStatus, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []types.Item{}, Missing, nil
		}
		return []types.Item{}, Corrupt, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var items []types.Item
	if err := json.Unmarshal(data, &items); err != nil {
		backup := fmt.Sprintf("%s.corrupt-%d", s.path, s.now().Unix())
		if rerr := os.Rename(s.path, backup); rerr != nil {
			s.logger.Error("Failed to quarantine corrupt snapshot",
				zap.String("path", s.path), zap.Error(rerr))
		} else {
			s.logger.Warn("Snapshot was corrupt, moved aside",
				zap.String("path", s.path), zap.String("backup", backup), zap.Error(err))
		}
		return []types.Item{}, Corrupt, nil
	}
	if items == nil {
		items = []types.Item{}
	}
	return items, Loaded, nil
}

// Save atomically replaces the snapshot with items.
func (s *Snapshot) Save(items []types.Item) error {
	if items == nil {
		items = []types.Item{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := utils.WriteFileAtomic(s.path, data, 0600); err != nil {
		return err
	}
	s.logger.Debug("Snapshot written", zap.String("path", s.path), zap.Int("items", len(items)))
	return nil
}
