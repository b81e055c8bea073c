package format

import "github.com/berrythewa/clipvault/internal/types"

// Options controls formatting behavior
type Options struct {
	UseColors    bool
	UseIcons     bool
	MaxWidth     int  // Max preview width in runes (0 = no limit)
	ShowMetadata bool // Show id, hash and timestamp
	Compact      bool // One line per item
}

// DefaultOptions returns sensible defaults
func DefaultOptions() Options {
	return Options{
		UseColors:    true,
		UseIcons:     true,
		MaxWidth:     80,
		ShowMetadata: true,
	}
}

// CompactOptions returns options for compact single-line display
func CompactOptions() Options {
	opts := DefaultOptions()
	opts.Compact = true
	opts.ShowMetadata = false
	return opts
}

// KindIcons maps item kinds to Unicode icons
var KindIcons = map[types.Kind]string{
	types.KindText:    "📝",
	types.KindCode:    "💻",
	types.KindImage:   "🖼️",
	types.KindFile:    "📁",
	types.KindURL:     "🔗",
	types.KindContact: "👤",
	types.KindColor:   "🎨",
}

// KindColors maps item kinds to colors
var KindColors = map[types.Kind]string{
	types.KindText:    Cyan,
	types.KindCode:    Green,
	types.KindImage:   Magenta,
	types.KindFile:    Yellow,
	types.KindURL:     Blue,
	types.KindContact: BrightCyan,
	types.KindColor:   BrightMagenta,
}
