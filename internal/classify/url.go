package classify

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/berrythewa/clipvault/internal/types"
	"github.com/berrythewa/clipvault/pkg/utils"
)

var urlRe = regexp.MustCompile(`(?i)^https?://[^\s/$.?#][^\s]*$`)

// URLClassifier accepts a single http(s) token. Title starts out as the URL
// itself; enrichment replaces it later.
type URLClassifier struct{}

func NewURLClassifier() *URLClassifier { return &URLClassifier{} }

func (*URLClassifier) Name() string { return "url" }

func (*URLClassifier) Classify(_ context.Context, in Input) (*Result, error) {
	value := strings.TrimSpace(in.Text)
	if !urlRe.MatchString(value) {
		return nil, nil
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		return nil, nil
	}
	return &Result{
		Item: newItem(utils.HashString(value), &types.URLPayload{
			URL:   value,
			Title: value,
		}),
		Enrich: EnrichURL,
	}, nil
}
