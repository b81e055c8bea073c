package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"path/filepath"

	"github.com/berrythewa/clipvault/pkg/utils"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	gradientWidth  = 128
	gradientHeight = 32
)

var errTooFewStops = errors.New("gradient needs at least two colors")

// GradientFilename is the cached swatch name for a color item's hash.
func GradientFilename(hash string) string {
	return "gradient_" + hash + ".png"
}

// RenderGradient draws a left-to-right linear gradient through stops and
// stores it as GradientFilename(hash). An existing file is reused.
func (f *Files) RenderGradient(hash string, stops []colorful.Color) (string, error) {
	if len(stops) < 2 {
		return "", errTooFewStops
	}
	name := GradientFilename(hash)
	path := filepath.Join(f.ImagesDir, name)
	if utils.FileExists(path) {
		return name, nil
	}

	img := image.NewRGBA(image.Rect(0, 0, gradientWidth, gradientHeight))
	segments := len(stops) - 1
	for x := 0; x < gradientWidth; x++ {
		pos := float64(x) / float64(gradientWidth-1) * float64(segments)
		i := int(pos)
		if i >= segments {
			i = segments - 1
		}
		c := stops[i].BlendRgb(stops[i+1], pos-float64(i)).Clamped()
		r, g, b := c.RGB255()
		for y := 0; y < gradientHeight; y++ {
			off := img.PixOffset(x, y)
			img.Pix[off], img.Pix[off+1], img.Pix[off+2], img.Pix[off+3] = r, g, b, 0xff
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode gradient: %w", err)
	}
	if err := utils.WriteFileAtomic(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to save gradient: %w", err)
	}
	return name, nil
}
