package format

import (
	"fmt"
	"strings"
)

// Stat is one labelled value of a report.
type Stat struct {
	Label string
	Value any
}

// FormatReport renders a titled list of stats, one per line.
func FormatReport(title string, stats []Stat, opts Options) string {
	parts := []string{ColorizeIf(title, BrightBlue, opts.UseColors)}
	width := 0
	for _, s := range stats {
		width = max(width, len(s.Label))
	}
	for _, s := range stats {
		label := fmt.Sprintf("  %-*s", width+1, s.Label+":")
		parts = append(parts, DimIf(label, opts.UseColors)+" "+fmt.Sprint(s.Value))
	}
	return strings.Join(parts, "\n")
}
