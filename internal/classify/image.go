package classify

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	"github.com/berrythewa/clipvault/internal/types"
	"github.com/berrythewa/clipvault/pkg/utils"
	_ "golang.org/x/image/webp"
)

// ImageMIMETypes is the order in which the clipboard is probed for images.
var ImageMIMETypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

var imageExt = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// ImageClassifier turns raw image bytes into an image item. The bytes stay
// in the result until the store accepts the item.
type ImageClassifier struct{}

func NewImageClassifier() *ImageClassifier { return &ImageClassifier{} }

func (*ImageClassifier) Name() string { return "image" }

func (*ImageClassifier) Classify(_ context.Context, in Input) (*Result, error) {
	if len(in.Image) == 0 {
		return nil, nil
	}
	mime := strings.ToLower(in.MIME)
	if mime == "" {
		mime = http.DetectContentType(in.Image)
	}
	ext, ok := imageExt[mime]
	if !ok {
		return nil, nil
	}

	hash, err := utils.HashBytes(in.Image)
	if err != nil {
		return nil, err
	}

	payload := &types.ImagePayload{FileURI: in.FileURI, SourceURL: in.SourceURL}
	if w, h, ok := ImageSize(in.Image); ok {
		payload.Width, payload.Height = w, h
	}

	return &Result{
		Item:  newItem(hash, payload),
		Image: &PendingImage{Data: in.Image, Ext: ext},
	}, nil
}

// ImageSize decodes just the header. Unknown formats report false.
func ImageSize(data []byte) (int, int, bool) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}

// ImageExt returns the file extension used for an image MIME type.
func ImageExt(mime string) (string, bool) {
	ext, ok := imageExt[strings.ToLower(mime)]
	return ext, ok
}
