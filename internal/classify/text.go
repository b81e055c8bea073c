package classify

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/berrythewa/clipvault/internal/config"
	"github.com/berrythewa/clipvault/internal/types"
	"github.com/berrythewa/clipvault/pkg/utils"
)

// TextClassifier is the fallback: it accepts any non-empty text.
type TextClassifier struct {
	inlineLimit   int
	previewLength int
}

func NewTextClassifier(limits config.ClassifierConfig) *TextClassifier {
	return &TextClassifier{
		inlineLimit:   max(limits.InlineTextLimit, 1),
		previewLength: max(limits.PreviewLength, 1),
	}
}

func (*TextClassifier) Name() string { return "text" }

func (c *TextClassifier) Classify(_ context.Context, in Input) (*Result, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, errEmptyInput
	}
	preview, full := c.storage(in.Text, false)
	payload := &types.TextPayload{Preview: preview, HasFullContent: full}
	res := &Result{Item: newItem(utils.HashString(in.Text), payload)}
	if full {
		res.FullText = in.Text
	} else {
		payload.Text = in.Text
	}
	return res, nil
}

// storage returns the preview for text and whether the full content must
// go to a side-car file. force asks for the side-car regardless of length.
func (c *TextClassifier) storage(text string, force bool) (preview string, full bool) {
	preview = Preview(text, c.previewLength)
	full = force || utf8.RuneCountInString(text) > c.inlineLimit
	return preview, full
}

// Preview collapses whitespace runs and truncates to n runes.
func Preview(text string, n int) string {
	s := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimRight(string(r[:n]), " ") + "…"
}
