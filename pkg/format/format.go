// Package format renders clipboard items for the terminal.
package format

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/berrythewa/clipvault/internal/types"
	"github.com/berrythewa/clipvault/pkg/utils"
)

// Formatter renders items with a fixed set of options.
type Formatter struct {
	options Options
	now     func() time.Time
}

// New creates a new formatter with the given options
func New(opts Options) *Formatter {
	return &Formatter{options: opts, now: time.Now}
}

// FormatItem renders one item.
func (f *Formatter) FormatItem(item types.Item) string {
	header := f.header(item)
	preview := TruncateText(Preview(item), f.options.MaxWidth)
	if f.options.Compact {
		return header + " " + preview
	}

	parts := []string{header, "  " + preview}
	if f.options.ShowMetadata {
		meta := fmt.Sprintf("id: %s • %s", utils.ShortID(item.ID, 8),
			FormatRelativeTime(time.Unix(item.Timestamp, 0), f.now()))
		parts = append(parts, "  "+DimIf(meta, f.options.UseColors))
	}
	return strings.Join(parts, "\n")
}

// FormatList renders items under a title, numbered from 1.
func (f *Formatter) FormatList(title string, items []types.Item) string {
	if len(items) == 0 {
		return ColorizeIf(title+": empty", Gray, f.options.UseColors)
	}
	parts := []string{ColorizeIf(fmt.Sprintf("%s (%d)", title, len(items)), BrightBlue, f.options.UseColors)}
	for i, item := range items {
		index := DimIf(fmt.Sprintf("[%d]", i+1), f.options.UseColors)
		body := f.FormatItem(item)
		if f.options.Compact {
			parts = append(parts, index+" "+body)
		} else {
			parts = append(parts, index+" "+body, "")
		}
	}
	return strings.TrimRight(strings.Join(parts, "\n"), "\n")
}

func (f *Formatter) header(item types.Item) string {
	var parts []string
	if f.options.UseIcons {
		if icon, ok := KindIcons[item.Type]; ok {
			parts = append(parts, icon)
		}
	}
	label := string(item.Type)
	if sub := subtype(item); sub != "" {
		label += "/" + sub
	}
	if color, ok := KindColors[item.Type]; ok {
		label = ColorizeIf(label, color, f.options.UseColors)
	}
	parts = append(parts, label)
	if item.IsCorrupted {
		parts = append(parts, ColorizeIf("(corrupted)", Red, f.options.UseColors))
	}
	return strings.Join(parts, " ")
}

func subtype(item types.Item) string {
	switch p := item.Payload.(type) {
	case *types.ContactPayload:
		return string(p.Subtype)
	case *types.ColorPayload:
		return string(p.Subtype)
	}
	return ""
}

// Preview is a single-line description of the item's content.
func Preview(item types.Item) string {
	switch p := item.Payload.(type) {
	case *types.TextPayload:
		if p.Text != "" {
			return SingleLine(p.Text)
		}
		return SingleLine(p.Preview)
	case *types.CodePayload:
		first, _, _ := strings.Cut(StripMarkup(p.Preview), "\n")
		return fmt.Sprintf("%s (%d lines)", strings.TrimSpace(first), p.RawLines)
	case *types.ImagePayload:
		desc := p.ImageFilename
		if p.Width > 0 && p.Height > 0 {
			desc = fmt.Sprintf("%s %dx%d", desc, p.Width, p.Height)
		}
		return desc
	case *types.FilePayload:
		if p.Preview != "" {
			return p.Preview
		}
		return path.Base(p.FileURI)
	case *types.URLPayload:
		if p.Title != "" && p.Title != p.URL {
			return fmt.Sprintf("%s (%s)", p.Title, p.URL)
		}
		return p.URL
	case *types.ContactPayload:
		if p.Metadata == nil {
			return p.Preview
		}
		return strings.Join(strings.Fields(p.Preview+" "+p.Metadata.Emoji+" "+p.Metadata.Name), " ")
	case *types.ColorPayload:
		return fmt.Sprintf("%s [%s]", SingleLine(p.ColorValue), p.FormatType)
	}
	return ""
}

// FormatItem renders one item with opts.
func FormatItem(item types.Item, opts Options) string {
	return New(opts).FormatItem(item)
}

// FormatList renders items with opts.
func FormatList(title string, items []types.Item, opts Options) string {
	return New(opts).FormatList(title, items)
}
