package classify

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/berrythewa/clipvault/internal/types"
	"go.uber.org/zap"
)

//go:embed data/countries.json
var defaultCountries []byte

// ErrNotInitialized is returned by Lookup before Init has completed.
var ErrNotInitialized = errors.New("dial code table not initialized")

// Country is one entry of countries.json.
type Country struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	DialCode string `json:"dial_code"`
	Emoji    string `json:"emoji,omitempty"`
	FlagPath string `json:"flag_path,omitempty"`
}

// Several countries share a calling code; these win the tie.
var sharedCodeOwner = map[string]string{
	"1":   "US",
	"7":   "RU",
	"44":  "GB",
	"47":  "NO",
	"262": "RE",
	"590": "GP",
	"672": "AQ",
}

// DialCodes resolves phone numbers to countries by longest dial-code prefix.
// It must be initialized once with Init before lookups return anything.
type DialCodes struct {
	path   string
	logger *zap.Logger

	once    sync.Once
	initErr error
	ready   atomic.Bool

	byDigits map[string]Country
	maxLen   int
}

// NewDialCodes returns an uninitialized table. An empty path uses the
// embedded table.
func NewDialCodes(path string, logger *zap.Logger) *DialCodes {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DialCodes{path: path, logger: logger}
}

// Init loads the table. Only the first call does any work; later calls
// return its result.
func (d *DialCodes) Init(ctx context.Context) error {
	d.once.Do(func() {
		d.initErr = d.load(ctx)
	})
	return d.initErr
}

func (d *DialCodes) load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data := defaultCountries
	if d.path != "" {
		b, err := os.ReadFile(d.path)
		if err != nil {
			return fmt.Errorf("failed to read dial codes: %w", err)
		}
		data = b
	}

	var countries []Country
	if err := json.Unmarshal(data, &countries); err != nil {
		return fmt.Errorf("failed to parse dial codes: %w", err)
	}

	byDigits := make(map[string]Country, len(countries))
	maxLen := 0
	for _, c := range countries {
		digits := digitsOnly(c.DialCode)
		if digits == "" {
			continue
		}
		if c.Emoji == "" {
			c.Emoji = flagEmoji(c.Code)
		}
		if prev, ok := byDigits[digits]; ok && !ownsSharedCode(digits, c.Code, prev.Code) {
			continue
		}
		byDigits[digits] = c
		if len(digits) > maxLen {
			maxLen = len(digits)
		}
	}

	d.byDigits = byDigits
	d.maxLen = maxLen
	d.ready.Store(true)
	d.logger.Debug("Dial codes loaded", zap.Int("codes", len(byDigits)))
	return nil
}

func ownsSharedCode(digits, candidate, current string) bool {
	owner, ok := sharedCodeOwner[digits]
	return ok && owner == candidate && owner != current
}

// Ready reports whether Init has completed successfully.
func (d *DialCodes) Ready() bool {
	return d.ready.Load()
}

// Lookup finds the country for an international number by trying
// progressively shorter prefixes of its digits.
func (d *DialCodes) Lookup(number string) (Country, error) {
	if !d.Ready() {
		return Country{}, ErrNotInitialized
	}
	digits := digitsOnly(number)
	for n := min(len(digits), d.maxLen); n > 0; n-- {
		if c, ok := d.byDigits[digits[:n]]; ok {
			return c, nil
		}
	}
	return Country{}, fmt.Errorf("no dial code matches %q", number)
}

// Info converts a table entry to the metadata stored on phone contacts.
func (c Country) Info() *types.CountryInfo {
	return &types.CountryInfo{Code: c.Code, Name: c.Name, Emoji: c.Emoji}
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// flagEmoji maps a two-letter region code to its regional-indicator pair.
func flagEmoji(code string) string {
	if len(code) != 2 {
		return ""
	}
	code = strings.ToUpper(code)
	var b strings.Builder
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return ""
		}
		b.WriteRune(r + 127397)
	}
	return b.String()
}
