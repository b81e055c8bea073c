package clipboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/berrythewa/clipvault/internal/classify"
	"github.com/berrythewa/clipvault/internal/platform"
	"go.uber.org/zap"
)

// errNothing means no format yielded a payload.
var errNothing = errors.New("no clipboard payload")

// Extractor pulls one payload off the clipboard, trying images first,
// then a single file URI, then plain text.
type Extractor struct {
	cb       platform.Clipboard
	maxBytes int64
	attempts int
	delay    time.Duration
	logger   *zap.Logger
}

// NewExtractor returns an Extractor that retries an empty clipboard
// retries times, delay apart. Images larger than maxBytes are ignored.
func NewExtractor(cb platform.Clipboard, maxBytes int64, retries int, delay time.Duration, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retries < 0 {
		retries = 0
	}
	return &Extractor{cb: cb, maxBytes: maxBytes, attempts: retries + 1, delay: delay, logger: logger}
}

// Extract returns the first payload found. The clipboard may still be
// settling right after a change, so an empty read is retried. It reports
// false when every attempt came back empty.
func (e *Extractor) Extract(ctx context.Context) (classify.Input, bool, error) {
	for attempt := 1; ; attempt++ {
		in, err := e.extractOnce(ctx)
		if err == nil {
			return in, true, nil
		}
		if !errors.Is(err, errNothing) {
			return classify.Input{}, false, err
		}
		if attempt >= e.attempts {
			return classify.Input{}, false, nil
		}
		select {
		case <-ctx.Done():
			return classify.Input{}, false, ctx.Err()
		case <-time.After(e.delay):
		}
	}
}

func (e *Extractor) extractOnce(ctx context.Context) (classify.Input, error) {
	formats, ferr := e.cb.Formats(ctx)
	if ferr != nil && !errors.Is(ferr, platform.ErrUnsupported) {
		e.logger.Debug("Could not list clipboard formats", zap.Error(ferr))
	}
	offered := func(mime string) bool {
		// Unknown format list: probe everything.
		return ferr != nil || platform.HasFormat(formats, mime)
	}

	for _, mime := range classify.ImageMIMETypes {
		if !offered(mime) {
			continue
		}
		data, err := e.bytes(ctx, mime)
		if err != nil {
			return classify.Input{}, err
		}
		if data == nil {
			continue
		}
		if e.maxBytes > 0 && int64(len(data)) > e.maxBytes {
			e.logger.Debug("Image exceeds size limit",
				zap.String("mime", mime), zap.Int("size", len(data)), zap.Int64("max", e.maxBytes))
			continue
		}
		return classify.Input{Image: data, MIME: mime}, nil
	}

	for _, mime := range []string{platform.MIMEURIList, platform.MIMEGnomeFiles} {
		if !offered(mime) {
			continue
		}
		data, err := e.bytes(ctx, mime)
		if err != nil {
			return classify.Input{}, err
		}
		// Several files fall through to the text representation.
		if uris := platform.ParseURIList(data); len(uris) == 1 {
			return classify.Input{Text: uris[0]}, nil
		}
	}

	text, err := e.cb.Text(ctx)
	switch {
	case err == nil:
		return classify.Input{Text: text}, nil
	case errors.Is(err, platform.ErrEmpty):
		return classify.Input{}, errNothing
	case ctx.Err() != nil:
		return classify.Input{}, ctx.Err()
	default:
		e.logger.Debug("Text read failed", zap.Error(err))
		return classify.Input{}, errNothing
	}
}

// bytes reads mime, mapping absent or unreadable formats to nil.
func (e *Extractor) bytes(ctx context.Context, mime string) ([]byte, error) {
	data, err := e.cb.Bytes(ctx, mime)
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, platform.ErrEmpty), errors.Is(err, platform.ErrUnsupported):
		return nil, nil
	case ctx.Err() != nil:
		return nil, fmt.Errorf("read %s: %w", mime, ctx.Err())
	default:
		e.logger.Debug("Clipboard read failed", zap.String("mime", mime), zap.Error(err))
		return nil, nil
	}
}
