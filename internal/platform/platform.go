package platform

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrEmpty means the clipboard holds nothing in the requested format.
	ErrEmpty = errors.New("clipboard is empty")
	// ErrUnsupported means this platform can't read the requested format.
	ErrUnsupported = errors.New("clipboard format not supported on this platform")
)

// MIME types the extraction adapters ask for.
const (
	MIMEText        = "text/plain"
	MIMEURIList     = "text/uri-list"
	MIMEGnomeFiles  = "x-special/gnome-copied-files"
	gnomeCopyPrefix = "copy\n"
	gnomeCutPrefix  = "cut\n"
)

// Clipboard reads the system clipboard. Each read returns ErrEmpty when
// the format is absent, so callers can fall through to the next one.
type Clipboard interface {
	// Formats lists the MIME types currently offered.
	Formats(ctx context.Context) ([]string, error)
	// Bytes reads the raw data offered under mime.
	Bytes(ctx context.Context, mime string) ([]byte, error)
	// Text reads plain text.
	Text(ctx context.Context) (string, error)
}

// ParseFormats splits the newline separated target list printed by
// xclip and wl-paste.
func ParseFormats(output []byte) []string {
	var formats []string
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			formats = append(formats, line)
		}
	}
	return formats
}

// ParseURIList turns text/uri-list or gnome-copied-files data into a list
// of URIs or paths. Comment lines and the gnome copy/cut verb are dropped.
func ParseURIList(data []byte) []string {
	s := strings.ReplaceAll(string(data), "\r\n", "\n")
	s = strings.TrimPrefix(s, gnomeCopyPrefix)
	s = strings.TrimPrefix(s, gnomeCutPrefix)

	var uris []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		uris = append(uris, line)
	}
	return uris
}

// HasFormat reports whether formats offers mime.
func HasFormat(formats []string, mime string) bool {
	for _, f := range formats {
		if strings.EqualFold(f, mime) {
			return true
		}
	}
	return false
}
