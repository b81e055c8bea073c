//go:build !linux

package platform

import (
	"context"
	"fmt"
	"strings"

	cliplib "github.com/atotto/clipboard"
	"go.uber.org/zap"
)

// TextClipboard reads plain text only.
type TextClipboard struct {
	logger *zap.Logger
}

// New returns a text-only clipboard; images and file lists are not
// readable on this platform.
func New(logger *zap.Logger) Clipboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextClipboard{logger: logger.Named("platform")}
}

func (c *TextClipboard) Formats(context.Context) ([]string, error) {
	return []string{MIMEText}, nil
}

func (c *TextClipboard) Bytes(context.Context, string) ([]byte, error) {
	return nil, ErrUnsupported
}

func (c *TextClipboard) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := cliplib.ReadAll()
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmpty
	}
	return text, nil
}
