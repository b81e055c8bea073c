package types

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemJSONIsFlat(t *testing.T) {
	it := NewItem("id-1", 1700000000, "h1", &URLPayload{URL: "https://example.com", Title: "https://example.com"})

	data, err := json.Marshal(it)
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))
	want := map[string]any{
		"id":        "id-1",
		"type":      "url",
		"timestamp": float64(1700000000),
		"hash":      "h1",
		"url":       "https://example.com",
		"title":     "https://example.com",
	}
	if diff := cmp.Diff(want, obj); diff != "" {
		t.Errorf("unexpected JSON (-want +got):\n%s", diff)
	}
}

func TestItemRoundTrip(t *testing.T) {
	items := []Item{
		NewItem("a", 1, "ha", &ImagePayload{ImageFilename: "1_abcdefgh.png", Width: 10, Height: 20, FileURI: "file:///tmp/x.png"}),
		NewItem("b", 2, "hb", &FilePayload{FileURI: "file:///etc/hosts", Preview: "hosts"}),
		NewItem("c", 3, "hc", &ContactPayload{Subtype: ContactPhone, Text: "+33 1 23", Preview: "+33 1 23", Metadata: &CountryInfo{Code: "FR", Name: "France"}}),
		NewItem("d", 4, "hd", &ColorPayload{Subtype: ColorPalette, ColorValue: "#fff, #000", FormatType: "Palette", Colors: []string{"#fff", "#000"}, GradientFilename: "gradient_hd.png"}),
		NewItem("e", 5, "he", &CodePayload{Preview: "<span>x</span>", HasFullContent: true, RawLines: 40}),
		NewItem("f", 6, "hf", &TextPayload{Preview: "hi", Text: "hi"}),
	}
	items[1].IsCorrupted = true

	data, err := json.Marshal(items)
	require.NoError(t, err)

	var got []Item
	require.NoError(t, json.Unmarshal(data, &got))
	if diff := cmp.Diff(items, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshalUnknownType(t *testing.T) {
	var it Item
	err := json.Unmarshal([]byte(`{"id":"x","type":"sound"}`), &it)
	assert.Error(t, err)
}

func TestCloneIsDeep(t *testing.T) {
	orig := NewItem("d", 4, "hd", &ColorPayload{Colors: []string{"#fff", "#000"}})
	cp := orig.Clone()
	cp.Payload.(*ColorPayload).Colors[0] = "#123"
	cp.IsCorrupted = true

	assert.Equal(t, "#fff", orig.Payload.(*ColorPayload).Colors[0])
	assert.False(t, orig.IsCorrupted)
}

func TestFileRefs(t *testing.T) {
	text := NewItem("t1", 0, "", &TextPayload{HasFullContent: true})
	assert.Equal(t, []FileRef{{DirTexts, "t1.txt"}}, text.FileRefs())

	inline := NewItem("t2", 0, "", &TextPayload{Text: "x"})
	assert.Empty(t, inline.FileRefs())

	url := NewItem("u", 0, "", &URLPayload{IconFilename: "u.png"})
	assert.Equal(t, []FileRef{{DirLinkPreviews, "u.png"}}, url.FileRefs())
}
