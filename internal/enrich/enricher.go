package enrich

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/berrythewa/clipvault/internal/config"
	"github.com/berrythewa/clipvault/internal/storage"
	"go.uber.org/zap"
)

// Enricher fetches page titles and icons for link and email items and
// writes icons into the link-previews directory. It never touches the
// store; callers apply results through the store's update path.
type Enricher struct {
	client        *Client
	finder        *Finder
	cache         *storage.MetaCache
	files         *storage.Files
	maxImageBytes int64
	logger        *zap.Logger
}

// Options configures New.
type Options struct {
	Network config.NetworkConfig
	Files   *storage.Files
	// Cache is optional.
	Cache *storage.MetaCache
	// Strategies overrides DefaultStrategies.
	Strategies    []Strategy
	MaxImageBytes int64
	Logger        *zap.Logger
}

func New(opts Options) *Enricher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("enrich")

	client := NewClient(opts.Network)
	strategies := opts.Strategies
	if strategies == nil {
		strategies = DefaultStrategies(opts.Network.FaviconAPI)
	}
	return &Enricher{
		client:        client,
		finder:        NewFinder(client, strategies, logger),
		cache:         opts.Cache,
		files:         opts.Files,
		maxImageBytes: opts.MaxImageBytes,
		logger:        logger,
	}
}

// LinkInfo is what enrichment learned about a URL.
type LinkInfo struct {
	Title        string
	IconFilename string
}

// Link fetches the title of pageURL and caches its icon as "{id}.{ext}".
// Partial results are returned alongside an error describing what failed.
func (e *Enricher) Link(ctx context.Context, pageURL, id string) (LinkInfo, error) {
	var info LinkInfo

	if e.cache != nil {
		meta, ok, err := e.cache.Get(pageURL)
		if err != nil {
			e.logger.Warn("Metadata cache read failed", zap.String("url", pageURL), zap.Error(err))
		}
		if ok && meta.IconURL != "" {
			if icon, err := e.finder.Download(ctx, meta.IconURL); err == nil {
				info.Title = meta.Title
				info.IconFilename, err = e.saveIcon(id, icon)
				if err == nil {
					return info, nil
				}
			}
		}
	}

	page := &Page{URL: pageURL, Meta: map[string]string{}}
	resp, err := e.client.GetPage(ctx, pageURL)
	switch {
	case err != nil:
		e.logger.Debug("Page fetch failed", zap.String("url", pageURL), zap.Error(err))
	case resp.Status != http.StatusOK:
		e.logger.Debug("Page fetch returned non-OK", zap.String("url", pageURL), zap.Int("status", resp.Status))
	case isHTML(resp.ContentType):
		if parsed, perr := ParsePage(resp.URL, resp.Body); perr == nil {
			page = parsed
		}
	}
	info.Title = page.Title

	icon, ierr := e.finder.Find(ctx, page)
	if ierr == nil {
		if info.IconFilename, err = e.saveIcon(id, icon); err != nil {
			ierr = err
		}
	}

	if e.cache != nil && (info.Title != "" || icon != nil) {
		meta := storage.PageMeta{Title: info.Title}
		if icon != nil {
			meta.IconURL = icon.URL
		}
		if err := e.cache.Put(pageURL, meta); err != nil {
			e.logger.Warn("Metadata cache write failed", zap.String("url", pageURL), zap.Error(err))
		}
	}

	if ierr != nil {
		return info, fmt.Errorf("icon for %s: %w", pageURL, ierr)
	}
	return info, nil
}

// ProviderIcon caches the icon of an email address's provider homepage.
func (e *Enricher) ProviderIcon(ctx context.Context, email, id string) (string, error) {
	_, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || domain == "" {
		return "", fmt.Errorf("invalid email %q", email)
	}
	info, err := e.Link(ctx, "https://"+strings.ToLower(domain), id)
	if info.IconFilename == "" {
		if err == nil {
			err = ErrNoIcon
		}
		return "", err
	}
	return info.IconFilename, nil
}

// FetchImage downloads an image for healing. It fails on non-image content.
func (e *Enricher) FetchImage(ctx context.Context, rawURL string) ([]byte, string, error) {
	resp, err := e.client.Fetch(ctx, rawURL, e.maxImageBytes)
	if err != nil {
		return nil, "", err
	}
	if resp.Status != http.StatusOK || len(resp.Body) == 0 {
		return nil, "", fmt.Errorf("fetch %s: status %d", rawURL, resp.Status)
	}
	mt, _, _ := mime.ParseMediaType(resp.ContentType)
	if !strings.HasPrefix(mt, "image/") {
		mt = http.DetectContentType(resp.Body)
	}
	if !strings.HasPrefix(mt, "image/") {
		return nil, "", errors.New("not an image: " + mt)
	}
	return resp.Body, mt, nil
}

func (e *Enricher) saveIcon(id string, icon *Icon) (string, error) {
	if e.files == nil {
		return "", errors.New("no icon directory configured")
	}
	return e.files.SaveIcon(id, icon.Ext, icon.Data)
}

func isHTML(contentType string) bool {
	mt, _, _ := mime.ParseMediaType(contentType)
	return mt == "" || mt == "text/html" || mt == "application/xhtml+xml"
}
