package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const metadataBucket = "link_metadata"

// PageMeta is what enrichment learned about a page.
type PageMeta struct {
	Title     string    `json:"title,omitempty"`
	IconURL   string    `json:"icon_url,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// MetaCache remembers page titles and resolved icon URLs so repeated copies
// of a link and the healing pass can skip the favicon discovery cascade.
type MetaCache struct {
	db     *bbolt.DB
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// MetaCacheConfig holds configuration for MetaCache initialization
type MetaCacheConfig struct {
	DBPath string
	TTL    time.Duration
	Logger *zap.Logger
}

// NewMetaCache opens (or creates) the bolt database at cfg.DBPath.
func NewMetaCache(cfg MetaCacheConfig) (*MetaCache, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create metadata directory: %w", err)
	}

	db, err := bbolt.Open(cfg.DBPath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	logger.Debug("Metadata cache initialized",
		zap.String("db_path", cfg.DBPath),
		zap.Duration("ttl", cfg.TTL))

	return &MetaCache{db: db, ttl: cfg.TTL, logger: logger, now: time.Now}, nil
}

// Get returns the cached entry for pageURL. Expired entries are reported as
// missing.
func (c *MetaCache) Get(pageURL string) (PageMeta, bool, error) {
	var meta PageMeta
	var found bool
	err := c.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(metadataBucket)).Get([]byte(pageURL))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &meta); err != nil {
			return fmt.Errorf("failed to decode metadata for %s: %w", pageURL, err)
		}
		found = true
		return nil
	})
	if err != nil || !found {
		return PageMeta{}, false, err
	}
	if c.ttl > 0 && c.now().Sub(meta.FetchedAt) > c.ttl {
		return PageMeta{}, false, nil
	}
	return meta, true, nil
}

// Put stores meta for pageURL, stamping FetchedAt when unset.
func (c *MetaCache) Put(pageURL string, meta PageMeta) error {
	if meta.FetchedAt.IsZero() {
		meta.FetchedAt = c.now()
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	err = c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(metadataBucket)).Put([]byte(pageURL), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store metadata for %s: %w", pageURL, err)
	}
	c.logger.Debug("Cached page metadata", zap.String("url", pageURL), zap.String("title", meta.Title))
	return nil
}

// Prune deletes expired entries and returns how many were removed.
func (c *MetaCache) Prune() (int, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	cutoff := c.now().Add(-c.ttl)
	removed := 0
	err := c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(metadataBucket))
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var meta PageMeta
			if err := json.Unmarshal(v, &meta); err != nil || meta.FetchedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune metadata cache: %w", err)
	}
	return removed, nil
}

// Close closes the database. Calling it twice is harmless.
func (c *MetaCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	err := c.db.Close()
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return nil
	}
	return err
}
