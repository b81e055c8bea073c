package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/berrythewa/clipvault/internal/config"
)

// Client is the single HTTP session shared by every enrichment request.
// It is safe for concurrent use.
type Client struct {
	http         *http.Client
	userAgent    string
	maxPageBytes int64
	maxIconBytes int64
}

func NewClient(cfg config.NetworkConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 4

	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		userAgent:    cfg.UserAgent,
		maxPageBytes: cfg.MaxPageBytes,
		maxIconBytes: cfg.MaxIconBytes,
	}
}

// Response is a fetched resource. Body is capped at the configured limit.
type Response struct {
	Status      int
	ContentType string
	URL         string // final URL after redirects
	Body        []byte
}

func (c *Client) do(ctx context.Context, method, rawURL string, limit int64) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out := &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		URL:         resp.Request.URL.String(),
	}
	if method == http.MethodHead {
		return out, nil
	}

	r := io.Reader(resp.Body)
	if limit > 0 {
		r = io.LimitReader(resp.Body, limit)
	}
	out.Body, err = io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rawURL, err)
	}
	return out, nil
}

// GetPage fetches an HTML document.
func (c *Client) GetPage(ctx context.Context, rawURL string) (*Response, error) {
	return c.do(ctx, http.MethodGet, rawURL, c.maxPageBytes)
}

// GetIcon fetches binary content such as an icon or an image.
func (c *Client) GetIcon(ctx context.Context, rawURL string) (*Response, error) {
	return c.do(ctx, http.MethodGet, rawURL, c.maxIconBytes)
}

// Fetch fetches rawURL with an explicit body cap. limit <= 0 reads all.
func (c *Client) Fetch(ctx context.Context, rawURL string, limit int64) (*Response, error) {
	return c.do(ctx, http.MethodGet, rawURL, limit)
}

// Head probes rawURL without reading a body.
func (c *Client) Head(ctx context.Context, rawURL string) (*Response, error) {
	return c.do(ctx, http.MethodHead, rawURL, 0)
}
