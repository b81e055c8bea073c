package classify

import (
	"strings"

	"golang.org/x/net/html"
)

// Pango colors for highlighted previews.
const (
	commentColor = "#6A9955"
	stringColor  = "#CE9178"
	keywordColor = "#569CD6"
	numberColor  = "#B5CEA8"
)

// Highlight renders src as Pango markup in a single pass. Comments, string
// literals, keywords and numbers are wrapped in spans; everything else is
// escaped.
func Highlight(src string) string {
	var out strings.Builder
	n := len(src)
	lineStart := true

	for i := 0; i < n; {
		ch := src[i]
		switch {
		case strings.HasPrefix(src[i:], "//") || (ch == '#' && hashComment(src, i, lineStart)):
			j := strings.IndexByte(src[i:], '\n')
			if j < 0 {
				j = n - i
			}
			span(&out, commentColor, src[i:i+j])
			i += j
			continue
		case strings.HasPrefix(src[i:], "/*"):
			j := strings.Index(src[i+2:], "*/")
			end := n
			if j >= 0 {
				end = i + 2 + j + 2
			}
			span(&out, commentColor, src[i:end])
			i = end
			lineStart = false
			continue
		case ch == '"' || ch == '\'' || ch == '`':
			end := scanString(src, i)
			span(&out, stringColor, src[i:end])
			i = end
			lineStart = false
			continue
		case isDigit(ch) && (i == 0 || !isIdent(src[i-1])):
			end := scanNumber(src, i)
			span(&out, numberColor, src[i:end])
			i = end
			lineStart = false
			continue
		case isIdentStart(ch):
			end := i + 1
			for end < n && isIdent(src[end]) {
				end++
			}
			word := src[i:end]
			if codeKeywords[word] {
				span(&out, keywordColor, word)
			} else {
				out.WriteString(html.EscapeString(word))
			}
			i = end
			lineStart = false
			continue
		}

		if ch == '\n' {
			lineStart = true
		} else if ch != ' ' && ch != '\t' {
			lineStart = false
		}
		out.WriteString(html.EscapeString(src[i : i+1]))
		i++
	}
	return out.String()
}

func span(out *strings.Builder, color, text string) {
	out.WriteString(`<span foreground="`)
	out.WriteString(color)
	out.WriteString(`">`)
	out.WriteString(html.EscapeString(text))
	out.WriteString(`</span>`)
}

// hashComment treats '#' as a comment only at the start of a line or when
// followed by a space, so "#fff" and "#include" stay code.
func hashComment(src string, i int, lineStart bool) bool {
	if i+1 < len(src) && src[i+1] == ' ' {
		return true
	}
	return lineStart && (i+1 >= len(src) || src[i+1] == '!' || src[i+1] == '#')
}

func scanString(src string, i int) int {
	quote := src[i]
	j := i + 1
	for j < len(src) {
		switch src[j] {
		case '\\':
			j += 2
			continue
		case quote:
			return j + 1
		case '\n':
			if quote != '`' {
				return j
			}
		}
		j++
	}
	return len(src)
}

func scanNumber(src string, i int) int {
	j := i
	if strings.HasPrefix(src[i:], "0x") || strings.HasPrefix(src[i:], "0X") {
		j += 2
		for j < len(src) && isHex(src[j]) {
			j++
		}
		return j
	}
	for j < len(src) && (isDigit(src[j]) || src[j] == '.' || src[j] == '_') {
		j++
	}
	if j < len(src) && (src[j] == 'e' || src[j] == 'E') {
		k := j + 1
		if k < len(src) && (src[k] == '+' || src[k] == '-') {
			k++
		}
		if k < len(src) && isDigit(src[k]) {
			j = k
			for j < len(src) && isDigit(src[j]) {
				j++
			}
		}
	}
	return j
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isHex(c byte) bool        { return isDigit(c) || (c|0x20 >= 'a' && c|0x20 <= 'f') }
func isIdentStart(c byte) bool { return c == '_' || c == '$' || (c|0x20 >= 'a' && c|0x20 <= 'z') }
func isIdent(c byte) bool      { return isIdentStart(c) || isDigit(c) }
