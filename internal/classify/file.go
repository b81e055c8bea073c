package classify

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/berrythewa/clipvault/internal/types"
	"github.com/berrythewa/clipvault/pkg/utils"
)

// FileClassifier accepts a single file:// URI or absolute path naming a
// regular file. Small images are handed to the image classifier so they
// become image items; anything else is stored by reference only.
type FileClassifier struct {
	image   *ImageClassifier
	maxSize int64
}

func NewFileClassifier(image *ImageClassifier, maxImageSize int64) *FileClassifier {
	return &FileClassifier{image: image, maxSize: maxImageSize}
}

func (*FileClassifier) Name() string { return "file" }

func (c *FileClassifier) Classify(ctx context.Context, in Input) (*Result, error) {
	value := strings.TrimSpace(in.Text)
	if value == "" || strings.ContainsAny(value, "\r\n") {
		return nil, nil
	}
	path, ok := PathFromURI(value)
	if !ok {
		return nil, nil
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, nil
	}
	uri := FileURI(path)

	if mt := detectMIME(path); strings.HasPrefix(mt, "image/") && info.Size() <= c.maxSize {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image file: %w", err)
		}
		res, err := c.image.Classify(ctx, Input{Image: data, MIME: mt, FileURI: uri})
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}

	return &Result{
		Item: newItem(utils.HashString(uri), &types.FilePayload{
			FileURI: uri,
			Preview: filepath.Base(path),
		}),
	}, nil
}

// PathFromURI resolves a file:// URI or an absolute path to a local path.
func PathFromURI(value string) (string, bool) {
	if strings.HasPrefix(value, "file://") {
		u, err := url.Parse(value)
		if err != nil || u.Path == "" || (u.Host != "" && u.Host != "localhost") {
			return "", false
		}
		return filepath.FromSlash(u.Path), true
	}
	if filepath.IsAbs(value) {
		return filepath.Clean(value), true
	}
	return "", false
}

// FileURI renders path as an escaped file:// URI.
func FileURI(path string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

func detectMIME(path string) string {
	if mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); mt != "" {
		if i := strings.IndexByte(mt, ';'); i >= 0 {
			mt = mt[:i]
		}
		return mt
	}
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	return http.DetectContentType(head[:n])
}
