package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/berrythewa/clipvault/internal/types"
	"github.com/berrythewa/clipvault/pkg/utils"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	hexDigits  = `[0-9a-fA-F]`
	hexColor   = `#(?:` + hexDigits + `{8}|` + hexDigits + `{6}|` + hexDigits + `{4}|` + hexDigits + `{3})`
	num        = `[-+]?(?:\d+\.?\d*|\.\d+)`
	sep        = `\s*[,\s]\s*`
	alphaPart  = `(?:\s*[,/]\s*(` + num + `%?))?`
	rgbColor   = `(rgba?)\(\s*(` + num + `%?)` + sep + `(` + num + `%?)` + sep + `(` + num + `%?)` + alphaPart + `\s*\)`
	hslColor   = `(hsla?)\(\s*(` + num + `)(?:deg)?` + sep + `(` + num + `)%` + sep + `(` + num + `)%` + alphaPart + `\s*\)`
	colorToken = `(?:` + hexColor + `\b|(?i:rgba?)\([^()]*\)|(?i:hsla?)\([^()]*\))`
)

var (
	hexRe      = regexp.MustCompile(`^` + hexColor + `$`)
	rgbRe      = regexp.MustCompile(`(?i)^` + rgbColor + `$`)
	hslRe      = regexp.MustCompile(`(?i)^` + hslColor + `$`)
	gradientRe = regexp.MustCompile(`(?is)^(?:repeating-)?(linear|radial|conic)-gradient\((.*)\)\s*;?$`)
	tokenRe    = regexp.MustCompile(colorToken)
	paletteGap = regexp.MustCompile(`^[\s,;|]*$`)
)

// ColorClassifier recognizes single colors, CSS gradients and palettes.
type ColorClassifier struct{}

func NewColorClassifier() *ColorClassifier { return &ColorClassifier{} }

func (*ColorClassifier) Name() string { return "color" }

func (c *ColorClassifier) Classify(_ context.Context, in Input) (*Result, error) {
	value := strings.TrimSpace(in.Text)
	if value == "" {
		return nil, nil
	}

	// Gradients and palettes may span lines, so they go first.
	if res := classifyGradient(value); res != nil {
		return res, nil
	}
	if res := classifyPalette(value); res != nil {
		return res, nil
	}

	if strings.ContainsAny(value, "\r\n") {
		return nil, nil
	}
	format, ok := singleColorFormat(value)
	if !ok {
		return nil, nil
	}
	return &Result{
		Item: newItem(utils.HashString(value), &types.ColorPayload{
			Subtype:    types.ColorSingle,
			ColorValue: value,
			FormatType: format,
		}),
	}, nil
}

func classifyGradient(value string) *Result {
	m := gradientRe.FindStringSubmatch(value)
	if m == nil {
		return nil
	}
	colors := tokenRe.FindAllString(m[2], -1)
	stops := parseAll(colors)
	if len(stops) < 2 {
		return nil
	}
	kind := strings.ToLower(m[1])
	return &Result{
		Item: newItem(utils.HashString(value), &types.ColorPayload{
			Subtype:    types.ColorGradient,
			ColorValue: value,
			FormatType: strings.ToUpper(kind[:1]) + kind[1:] + " Gradient",
			Colors:     colors,
		}),
		GradientStops: stops,
	}
}

func classifyPalette(value string) *Result {
	var colors []string
	format := "Palette"

	if strings.HasPrefix(value, "[") {
		var arr []string
		if err := json.Unmarshal([]byte(value), &arr); err != nil {
			return nil
		}
		for _, s := range arr {
			s = strings.TrimSpace(s)
			if _, ok := singleColorFormat(s); !ok {
				return nil
			}
			colors = append(colors, s)
		}
		format = "JSON Palette"
	} else {
		colors = tokenRe.FindAllString(value, -1)
		if !paletteGap.MatchString(tokenRe.ReplaceAllString(value, "")) {
			return nil
		}
		for _, s := range colors {
			if _, ok := singleColorFormat(s); !ok {
				return nil
			}
		}
	}

	if len(colors) < 2 {
		return nil
	}
	stops := parseAll(colors)
	if len(stops) < 2 {
		return nil
	}
	return &Result{
		Item: newItem(utils.HashString(value), &types.ColorPayload{
			Subtype:    types.ColorPalette,
			ColorValue: value,
			FormatType: format,
			Colors:     colors,
		}),
		GradientStops: stops,
	}
}

// singleColorFormat returns the format label for a lone color literal.
func singleColorFormat(s string) (string, bool) {
	switch {
	case hexRe.MatchString(s):
		if n := len(s) - 1; n == 4 || n == 8 {
			return "HEXA", true
		}
		return "HEX", true
	case rgbRe.MatchString(s):
		m := rgbRe.FindStringSubmatch(s)
		if m[5] != "" || strings.EqualFold(m[1], "rgba") {
			return "RGBA", true
		}
		return "RGB", true
	case hslRe.MatchString(s):
		m := hslRe.FindStringSubmatch(s)
		if m[5] != "" || strings.EqualFold(m[1], "hsla") {
			return "HSLA", true
		}
		return "HSL", true
	}
	return "", false
}

// ExtractColors pulls the color literals out of a gradient or palette value.
func ExtractColors(value string) []string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "[") {
		var arr []string
		if err := json.Unmarshal([]byte(value), &arr); err == nil {
			return arr
		}
	}
	return tokenRe.FindAllString(value, -1)
}

// ParseStops parses every color it can and skips the rest.
func ParseStops(colors []string) []colorful.Color {
	return parseAll(colors)
}

func parseAll(colors []string) []colorful.Color {
	stops := make([]colorful.Color, 0, len(colors))
	for _, s := range colors {
		if c, err := ParseColor(s); err == nil {
			stops = append(stops, c)
		}
	}
	return stops
}

// ParseColor converts a hex, rgb() or hsl() literal. Alpha is dropped.
func ParseColor(s string) (colorful.Color, error) {
	s = strings.TrimSpace(s)
	switch {
	case hexRe.MatchString(s):
		h := s[1:]
		switch len(h) {
		case 3, 4:
			h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
		case 8:
			h = h[:6]
		}
		return colorful.Hex("#" + h)
	case rgbRe.MatchString(s):
		m := rgbRe.FindStringSubmatch(s)
		var ch [3]float64
		for i := range ch {
			v, err := channel(m[i+2])
			if err != nil {
				return colorful.Color{}, err
			}
			ch[i] = v
		}
		return colorful.Color{R: ch[0], G: ch[1], B: ch[2]}.Clamped(), nil
	case hslRe.MatchString(s):
		m := hslRe.FindStringSubmatch(s)
		h, _ := strconv.ParseFloat(m[2], 64)
		sat, _ := strconv.ParseFloat(m[3], 64)
		l, _ := strconv.ParseFloat(m[4], 64)
		h = math.Mod(math.Mod(h, 360)+360, 360)
		return colorful.Hsl(h, clamp01(sat/100), clamp01(l/100)).Clamped(), nil
	}
	return colorful.Color{}, fmt.Errorf("unrecognized color %q", s)
}

// channel converts "128" or "50%" to 0..1.
func channel(s string) (float64, error) {
	if strings.HasSuffix(s, "%") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		return clamp01(v / 100), err
	}
	v, err := strconv.ParseFloat(s, 64)
	return clamp01(v / 255), err
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
