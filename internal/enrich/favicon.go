package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ErrNoIcon means every strategy in the cascade came up empty.
var ErrNoIcon = errors.New("no icon found")

// Icon is a downloaded favicon.
type Icon struct {
	URL  string
	Data []byte
	Ext  string
}

// Strategy proposes icon URLs for a page, best first.
type Strategy interface {
	Name() string
	Candidates(ctx context.Context, c *Client, p *Page) []string
}

type strategyFunc struct {
	name string
	fn   func(ctx context.Context, c *Client, p *Page) []string
}

func (s strategyFunc) Name() string { return s.name }

func (s strategyFunc) Candidates(ctx context.Context, c *Client, p *Page) []string {
	return s.fn(ctx, c, p)
}

// DefaultStrategies is the discovery cascade in priority order. An empty
// faviconAPI drops the third-party fallback.
func DefaultStrategies(faviconAPI string) []Strategy {
	s := []Strategy{
		strategyFunc{"manifest", manifestIcons},
		strategyFunc{"apple-touch-icon", linkIcons(func(l iconLink) bool {
			return l.hasRel("apple-touch-icon") || l.hasRel("apple-touch-icon-precomposed")
		})},
		strategyFunc{"sized-icon", linkIcons(func(l iconLink) bool {
			return l.hasRel("icon") && largestSize(l.sizes) > 0
		})},
		strategyFunc{"icon", linkIcons(func(l iconLink) bool {
			return l.hasRel("icon") && largestSize(l.sizes) == 0
		})},
		strategyFunc{"mask-icon", linkIcons(func(l iconLink) bool { return l.hasRel("mask-icon") })},
		strategyFunc{"ms-tile", metaIcon("msapplication-tileimage")},
		strategyFunc{"og-image", metaIcon("og:image")},
		strategyFunc{"favicon.ico", faviconProbe},
	}
	if faviconAPI != "" {
		s = append(s, strategyFunc{"favicon-api", func(_ context.Context, _ *Client, p *Page) []string {
			host := hostOf(p.URL)
			if host == "" {
				return nil
			}
			return []string{strings.Replace(faviconAPI, "%s", url.QueryEscape(host), 1)}
		}})
	}
	return s
}

func linkIcons(match func(iconLink) bool) func(context.Context, *Client, *Page) []string {
	return func(_ context.Context, _ *Client, p *Page) []string {
		var links []iconLink
		for _, l := range p.Links {
			if match(l) {
				links = append(links, l)
			}
		}
		sort.SliceStable(links, func(i, j int) bool {
			return largestSize(links[i].sizes) > largestSize(links[j].sizes)
		})
		var out []string
		for _, l := range links {
			if u, ok := ResolveURL(p.URL, l.href); ok {
				out = append(out, u)
			}
		}
		return out
	}
}

func metaIcon(key string) func(context.Context, *Client, *Page) []string {
	return func(_ context.Context, _ *Client, p *Page) []string {
		if u, ok := ResolveURL(p.URL, p.Meta[key]); ok {
			return []string{u}
		}
		return nil
	}
}

type webManifest struct {
	Icons []struct {
		Src   string `json:"src"`
		Sizes string `json:"sizes"`
	} `json:"icons"`
}

func manifestIcons(ctx context.Context, c *Client, p *Page) []string {
	if p.Manifest == "" {
		return nil
	}
	manifestURL, ok := ResolveURL(p.URL, p.Manifest)
	if !ok {
		return nil
	}
	resp, err := c.GetPage(ctx, manifestURL)
	if err != nil || resp.Status != http.StatusOK {
		return nil
	}
	var m webManifest
	if err := json.Unmarshal(resp.Body, &m); err != nil {
		return nil
	}
	icons := m.Icons
	sort.SliceStable(icons, func(i, j int) bool {
		return largestSize(icons[i].Sizes) > largestSize(icons[j].Sizes)
	})
	var out []string
	for _, ic := range icons {
		if u, ok := ResolveURL(resp.URL, ic.Src); ok {
			out = append(out, u)
		}
	}
	return out
}

func faviconProbe(ctx context.Context, c *Client, p *Page) []string {
	o, ok := origin(p.URL)
	if !ok {
		return nil
	}
	u := o + "/favicon.ico"
	resp, err := c.Head(ctx, u)
	if err != nil || resp.Status != http.StatusOK {
		return nil
	}
	return []string{u}
}

// Finder walks the strategy cascade and returns the first icon that
// actually downloads.
type Finder struct {
	client     *Client
	strategies []Strategy
	logger     *zap.Logger
}

func NewFinder(client *Client, strategies []Strategy, logger *zap.Logger) *Finder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finder{client: client, strategies: strategies, logger: logger}
}

func (f *Finder) Find(ctx context.Context, p *Page) (*Icon, error) {
	tried := make(map[string]bool)
	for _, s := range f.strategies {
		for _, u := range s.Candidates(ctx, f.client, p) {
			if tried[u] {
				continue
			}
			tried[u] = true
			icon, err := f.Download(ctx, u)
			if err != nil {
				f.logger.Debug("Icon candidate rejected",
					zap.String("strategy", s.Name()), zap.String("icon_url", u), zap.Error(err))
				continue
			}
			f.logger.Debug("Icon found", zap.String("strategy", s.Name()), zap.String("icon_url", u))
			return icon, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return nil, ErrNoIcon
}

// Download fetches u and accepts it only if it is a non-empty image.
func (f *Finder) Download(ctx context.Context, u string) (*Icon, error) {
	resp, err := f.client.GetIcon(ctx, u)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		return nil, errors.New(http.StatusText(resp.Status))
	}
	if len(resp.Body) == 0 {
		return nil, errors.New("empty body")
	}
	ext, ok := iconExt(resp.ContentType, resp.Body, u)
	if !ok {
		return nil, errors.New("not an image: " + resp.ContentType)
	}
	return &Icon{URL: u, Data: resp.Body, Ext: ext}, nil
}

var iconExts = map[string]string{
	"image/png":                "png",
	"image/x-icon":             "ico",
	"image/vnd.microsoft.icon": "ico",
	"image/svg+xml":            "svg",
	"image/jpeg":               "jpg",
	"image/gif":                "gif",
	"image/webp":               "webp",
	"image/bmp":                "bmp",
}

func iconExt(contentType string, body []byte, u string) (string, bool) {
	mt, _, _ := mime.ParseMediaType(contentType)
	if ext, ok := iconExts[mt]; ok {
		return ext, true
	}
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(body))
	if ext, ok := iconExts[sniffed]; ok {
		return ext, true
	}
	// SVG and some .ico files sniff as text or octet-stream.
	if strings.Contains(strings.ToLower(string(body[:min(len(body), 512)])), "<svg") {
		return "svg", true
	}
	if pu, err := url.Parse(u); err == nil {
		switch ext := strings.TrimPrefix(strings.ToLower(path.Ext(pu.Path)), "."); ext {
		case "ico", "png", "svg", "jpg", "jpeg", "gif", "webp":
			if strings.HasPrefix(mt, "image/") || mt == "application/octet-stream" || mt == "" {
				return ext, true
			}
		}
	}
	return "", false
}
