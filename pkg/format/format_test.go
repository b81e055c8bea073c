package format

import (
	"strings"
	"testing"
	"time"

	"github.com/berrythewa/clipvault/internal/types"
	"github.com/stretchr/testify/assert"
)

func plain() Options {
	opts := DefaultOptions()
	opts.UseColors = false
	opts.UseIcons = false
	return opts
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		item types.Item
		want string
	}{
		{"Text", types.NewItem("a", 0, "h", &types.TextPayload{Preview: "x", Text: "two\nlines"}), "two lines"},
		{"SideCarText", types.NewItem("a", 0, "h", &types.TextPayload{Preview: "start of…", HasFullContent: true}), "start of…"},
		{"Code", types.NewItem("a", 0, "h", &types.CodePayload{
			Preview:  `<span foreground="#569CD6">if</span> a &lt; b {` + "\n}",
			RawLines: 3,
		}), "if a < b { (3 lines)"},
		{"Image", types.NewItem("a", 0, "h", &types.ImagePayload{ImageFilename: "1_a.png", Width: 4, Height: 2}), "1_a.png 4x2"},
		{"File", types.NewItem("a", 0, "h", &types.FilePayload{FileURI: "file:///tmp/r.pdf"}), "r.pdf"},
		{"URLWithTitle", types.NewItem("a", 0, "h", &types.URLPayload{URL: "https://a.com", Title: "A"}), "A (https://a.com)"},
		{"URLBare", types.NewItem("a", 0, "h", &types.URLPayload{URL: "https://a.com", Title: "https://a.com"}), "https://a.com"},
		{"Phone", types.NewItem("a", 0, "h", &types.ContactPayload{
			Subtype:  types.ContactPhone,
			Preview:  "+44 20 7946 0000",
			Metadata: &types.CountryInfo{Code: "GB", Name: "United Kingdom"},
		}), "+44 20 7946 0000 United Kingdom"},
		{"Color", types.NewItem("a", 0, "h", &types.ColorPayload{ColorValue: "#fff", FormatType: "HEX"}), "#fff [HEX]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Preview(tt.item))
		})
	}
}

func TestFormatItem(t *testing.T) {
	now := time.Unix(1700000000, 0)
	item := types.NewItem("0123456789", now.Add(-2*time.Hour).Unix(), "h", &types.ContactPayload{Subtype: types.ContactEmail, Preview: "me@a.com"})
	item.IsCorrupted = true

	f := New(plain())
	f.now = func() time.Time { return now }
	assert.Equal(t, "contact/email (corrupted)\n  me@a.com\n  id: 01234567 • 2 hours ago", f.FormatItem(item))

	compact := CompactOptions()
	compact.UseColors = false
	assert.Equal(t, "📝 text hello", FormatItem(types.NewItem("x", 0, "h", &types.TextPayload{Text: "hello"}), compact))
}

func TestFormatList(t *testing.T) {
	opts := CompactOptions()
	opts.UseColors = false
	opts.UseIcons = false

	assert.Equal(t, "History: empty", FormatList("History", nil, opts))

	out := FormatList("History", []types.Item{
		types.NewItem("a", 0, "h1", &types.TextPayload{Text: "one"}),
		types.NewItem("b", 0, "h2", &types.TextPayload{Text: "two"}),
	}, opts)
	assert.Equal(t, "History (2)\n[1] text one\n[2] text two", out)
}

func TestFormatReport(t *testing.T) {
	out := FormatReport("GC", []Stat{{"Scanned", 10}, {"Removed", 2}}, Options{})
	lines := strings.Split(out, "\n")
	assert.Equal(t, []string{"GC", "  Scanned: 10", "  Removed: 2"}, lines)
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "héllo", TruncateText("héllo", 5))
	assert.Equal(t, "hé...", TruncateText("héllo!", 5))
	assert.Equal(t, "abc", TruncateText("abcdef", 3))
	assert.Equal(t, "abcdef", TruncateText("abcdef", 0))
}
