package format

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
)

var markupTag = regexp.MustCompile(`<[^>]*>`)

// FormatRelativeTime formats a time as a human-readable relative string
func FormatRelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	}
	return t.Format("Jan 2, 2006")
}

// TruncateText truncates text to maxLen runes with ellipsis
func TruncateText(text string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	runes := []rune(text)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// SingleLine collapses all whitespace runs to one space.
func SingleLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// StripMarkup turns highlighted preview markup back into plain text.
func StripMarkup(markup string) string {
	return html.UnescapeString(markupTag.ReplaceAllString(markup, ""))
}
