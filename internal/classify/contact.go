package classify

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/berrythewa/clipvault/internal/types"
	"github.com/berrythewa/clipvault/pkg/utils"
	"go.uber.org/zap"
)

var (
	emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?)*\.[A-Za-z]{2,}$`)
	phoneRe = regexp.MustCompile(`^\+\d[\d\s\-().]{5,24}$`)
)

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// ContactClassifier recognizes email addresses and international phone
// numbers.
type ContactClassifier struct {
	dial   *DialCodes
	logger *zap.Logger
}

func NewContactClassifier(dial *DialCodes, logger *zap.Logger) *ContactClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactClassifier{dial: dial, logger: logger}
}

func (*ContactClassifier) Name() string { return "contact" }

func (c *ContactClassifier) Classify(_ context.Context, in Input) (*Result, error) {
	value := strings.TrimSpace(in.Text)
	if value == "" || strings.ContainsAny(value, "\r\n") {
		return nil, nil
	}

	if emailRe.MatchString(value) {
		return &Result{
			Item: newItem(utils.HashString(strings.ToLower(value)), &types.ContactPayload{
				Subtype: types.ContactEmail,
				Text:    value,
				Preview: value,
			}),
			Enrich: EnrichEmail,
		}, nil
	}

	if !phoneRe.MatchString(value) {
		return nil, nil
	}
	digits := digitsOnly(value)
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return nil, nil
	}

	canonical := "+" + digits
	payload := &types.ContactPayload{
		Subtype: types.ContactPhone,
		Text:    canonical,
		Preview: value,
	}
	country, err := c.dial.Lookup(canonical)
	switch {
	case err == nil:
		payload.Metadata = country.Info()
	case errors.Is(err, ErrNotInitialized):
		c.logger.Warn("Phone number classified before dial codes were loaded")
	default:
		c.logger.Debug("No country for phone number", zap.Error(err))
	}

	return &Result{Item: newItem(utils.HashString(canonical), payload)}, nil
}
