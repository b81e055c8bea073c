package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/berrythewa/clipvault/internal/config"
	"github.com/berrythewa/clipvault/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLimits() config.ClassifierConfig {
	return config.ClassifierConfig{
		InlineTextLimit:  50,
		PreviewLength:    20,
		CodePreviewLines: 3,
		MaxImageFileSize: 1 << 20,
	}
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	dial := NewDialCodes("", zap.NewNop())
	require.NoError(t, dial.Init(context.Background()))
	return NewPipeline(Options{Limits: testLimits(), DialCodes: dial, Logger: zap.NewNop()})
}

func classifyText(t *testing.T, p *Pipeline, text string) *Result {
	t.Helper()
	res, err := p.Classify(context.Background(), Input{Text: text})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPipelinePriority(t *testing.T) {
	p := newTestPipeline(t)

	tests := []struct {
		name string
		text string
		want types.Kind
	}{
		{"url beats code", "https://a.com/x?y=1;z=2", types.KindURL},
		{"email", "someone@example.org", types.KindContact},
		{"phone", "+33 1 23 45 67 89", types.KindContact},
		{"hex color", "#ff8800", types.KindColor},
		{"code", "const x = {a: 1};\nconsole.log(x);\nreturn x;", types.KindCode},
		{"prose", "Just a normal sentence about lunch.", types.KindText},
		{"url with space is text", "https://a.com and more", types.KindText},
		{"keyword prose is text", "return to sender", types.KindText},
		{"keyword prose with colon is text", "if you want: call me", types.KindText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := classifyText(t, p, tt.text)
			assert.Equal(t, tt.want, res.Item.Type)
			assert.Equal(t, tt.want, res.Item.Payload.Kind())
			assert.NotEmpty(t, res.Item.ID)
			assert.NotEmpty(t, res.Item.Hash)
		})
	}
}

func TestPipelineEmptyInput(t *testing.T) {
	p := newTestPipeline(t)
	_, err := p.Classify(context.Background(), Input{})
	assert.Error(t, err)
}

func TestColorClassification(t *testing.T) {
	c := NewColorClassifier()
	ctx := context.Background()

	tests := []struct {
		in      string
		format  string
		subtype types.ColorSubtype
	}{
		{"#fff", "HEX", types.ColorSingle},
		{"#ffffff", "HEX", types.ColorSingle},
		{"#ffff", "HEXA", types.ColorSingle},
		{"#ffffff80", "HEXA", types.ColorSingle},
		{"rgb(1,2,3)", "RGB", types.ColorSingle},
		{"rgba(1, 2, 3, 0.5)", "RGBA", types.ColorSingle},
		{"hsl(120, 50%, 50%)", "HSL", types.ColorSingle},
		{"hsla(1,2%,3%,0.5)", "HSLA", types.ColorSingle},
		{"linear-gradient(90deg, #ff0000, rgb(0, 0, 255))", "Linear Gradient", types.ColorGradient},
		{"radial-gradient(circle,\n  #fff 0%,\n  #000 100%)", "Radial Gradient", types.ColorGradient},
		{`["#ff0000", "#00ff00", "#0000ff"]`, "JSON Palette", types.ColorPalette},
		{"#ff0000, #00ff00; #0000ff", "Palette", types.ColorPalette},
		{"#111\n#222", "Palette", types.ColorPalette},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			res, err := c.Classify(ctx, Input{Text: tt.in})
			require.NoError(t, err)
			require.NotNil(t, res)
			p := res.Item.Payload.(*types.ColorPayload)
			assert.Equal(t, tt.format, p.FormatType)
			assert.Equal(t, tt.subtype, p.Subtype)
			if tt.subtype != types.ColorSingle {
				assert.GreaterOrEqual(t, len(p.Colors), 2)
				assert.GreaterOrEqual(t, len(res.GradientStops), 2)
			}
		})
	}

	for _, in := range []string{"#ffg", "#ff", "rgb(1,2)", "#fff\nhello", "color: #fff;", "linear-gradient(#fff)", "fff"} {
		t.Run("reject "+in, func(t *testing.T) {
			res, err := c.Classify(ctx, Input{Text: in})
			require.NoError(t, err)
			assert.Nil(t, res)
		})
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#f00")
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", c.Hex())

	c, err = ParseColor("rgb(0, 255, 0)")
	require.NoError(t, err)
	assert.Equal(t, "#00ff00", c.Hex())

	c, err = ParseColor("hsl(240, 100%, 50%)")
	require.NoError(t, err)
	assert.Equal(t, "#0000ff", c.Hex())

	_, err = ParseColor("blue")
	assert.Error(t, err)

	assert.Equal(t, []string{"#fff", "#000"}, ExtractColors("linear-gradient(#fff, #000)"))
	assert.Equal(t, []string{"#fff", "#000"}, ExtractColors(`["#fff","#000"]`))
}

func TestCodeHeuristic(t *testing.T) {
	code := []string{
		"const x = {a: 1};\nx.a += 1;\nexport default x;",
		"import os\nprint(os.getcwd())",
		"func main() {\n\tfmt.Println(\"hi\")\n}",
		"if (ready) {\n  start();\n}",
		"x = foo(bar);",
	}
	for _, in := range code {
		assert.True(t, LooksLikeCode(in), "expected code: %q", in)
	}

	prose := []string{
		"John Smith visited New York last week. He met Mary Jones at the museum. Did they enjoy the trip?",
		"John Smith visited New York last week.\nHe met Mary Jones at the museum.\nDid they enjoy the trip?",
		"Hello, world; nice day.",
		"1. Buy milk\n2. Call Bob\n3. Write report",
		"Thanks for the update, see you tomorrow.",
		// Short lowercase text that happens to contain keywords.
		"done",
		"new",
		"this",
		"default",
		"case closed",
		"do this for me",
		"break a leg",
		"try again later",
		"return to sender",
		"if you want: call me",
		"if this is done then break for lunch and try again",
	}
	for _, in := range prose {
		assert.False(t, LooksLikeCode(in), "expected prose: %q", in)
	}
}

func TestCodeResult(t *testing.T) {
	text := NewTextClassifier(testLimits())
	c := NewCodeClassifier(text, 3)
	ctx := context.Background()

	res, err := c.Classify(ctx, Input{Text: "const a = 1;\nconst b = 2;"})
	require.NoError(t, err)
	require.NotNil(t, res)
	p := res.Item.Payload.(*types.CodePayload)
	assert.False(t, p.HasFullContent)
	assert.Equal(t, "const a = 1;\nconst b = 2;", p.Text)
	assert.Equal(t, 2, p.RawLines)
	assert.Contains(t, p.Preview, `<span foreground="#569CD6">const</span>`)

	long := "const a = 1;\nconst b = 2;\nconst c = 3;\nconst d = 4;"
	res, err = c.Classify(ctx, Input{Text: long})
	require.NoError(t, err)
	p = res.Item.Payload.(*types.CodePayload)
	assert.True(t, p.HasFullContent, "more lines than the preview forces a side-car")
	assert.Empty(t, p.Text)
	assert.Equal(t, long, res.FullText)
	assert.NotContains(t, p.Preview, ">4<")
}

func TestHighlight(t *testing.T) {
	out := Highlight(`x = "<b>" // note & more` + "\nreturn 42")
	assert.Contains(t, out, `<span foreground="#CE9178">&#34;&lt;b&gt;&#34;</span>`)
	assert.Contains(t, out, `<span foreground="#6A9955">// note &amp; more</span>`)
	assert.Contains(t, out, `<span foreground="#569CD6">return</span>`)
	assert.Contains(t, out, `<span foreground="#B5CEA8">42</span>`)
	assert.NotContains(t, out, "<b>")

	out = Highlight("color = #fff2")
	assert.NotContains(t, out, commentColor)
	assert.NotContains(t, Highlight("abc1"), numberColor)
}

func TestTextClassifier(t *testing.T) {
	c := NewTextClassifier(testLimits())
	ctx := context.Background()

	res, err := c.Classify(ctx, Input{Text: "  short\n\ttext  "})
	require.NoError(t, err)
	p := res.Item.Payload.(*types.TextPayload)
	assert.Equal(t, "short text", p.Preview)
	assert.False(t, p.HasFullContent)
	assert.Equal(t, "  short\n\ttext  ", p.Text)

	long := strings.Repeat("word ", 20)
	res, err = c.Classify(ctx, Input{Text: long})
	require.NoError(t, err)
	p = res.Item.Payload.(*types.TextPayload)
	assert.True(t, p.HasFullContent)
	assert.Empty(t, p.Text)
	assert.Equal(t, long, res.FullText)
	assert.Equal(t, "word word word word…", p.Preview)
}

func TestContactClassifier(t *testing.T) {
	ctx := context.Background()

	t.Run("BeforeInit", func(t *testing.T) {
		c := NewContactClassifier(NewDialCodes("", zap.NewNop()), zap.NewNop())
		res, err := c.Classify(ctx, Input{Text: "+33 1 23 45 67 89"})
		require.NoError(t, err)
		require.NotNil(t, res)
		p := res.Item.Payload.(*types.ContactPayload)
		assert.Equal(t, types.ContactPhone, p.Subtype)
		assert.Nil(t, p.Metadata)
	})

	dial := NewDialCodes("", zap.NewNop())
	require.NoError(t, dial.Init(ctx))
	c := NewContactClassifier(dial, zap.NewNop())

	tests := []struct {
		in   string
		code string
	}{
		{"+33 1 23 45 67 89", "FR"},
		{"+1 (212) 555-0100", "US"},
		{"+1 242 555 0100", "BS"},
		{"+7 495 123 45 67", "RU"},
		{"+44 20 7946 0958", "GB"},
		{"+44 1534 123456", "JE"},
		{"+7 701 123 4567", "KZ"},
		{"+47 22 12 34 56", "NO"},
		{"+262 262 12 34 56", "RE"},
		{"+260 21 123 4567", "ZM"},
		{"+679 331 2345", "FJ"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			res, err := c.Classify(ctx, Input{Text: tt.in})
			require.NoError(t, err)
			require.NotNil(t, res)
			p := res.Item.Payload.(*types.ContactPayload)
			require.NotNil(t, p.Metadata)
			assert.Equal(t, tt.code, p.Metadata.Code)
			assert.Equal(t, tt.in, p.Preview)
			assert.True(t, strings.HasPrefix(p.Text, "+"))
		})
	}

	res, err := c.Classify(ctx, Input{Text: "Jane.Doe@Example.com"})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, EnrichEmail, res.Enrich)

	for _, in := range []string{"not an email@", "+12", "12345678", "a@b", "+33 1 23\n45"} {
		res, err := c.Classify(ctx, Input{Text: in})
		require.NoError(t, err)
		assert.Nil(t, res, in)
	}
}

func TestEmbeddedDialCodes(t *testing.T) {
	var countries []Country
	require.NoError(t, json.Unmarshal(defaultCountries, &countries))
	assert.GreaterOrEqual(t, len(countries), 240)

	seen := make(map[string]bool, len(countries))
	for _, c := range countries {
		assert.False(t, seen[c.Code], "duplicate country %s", c.Code)
		seen[c.Code] = true
		assert.True(t, strings.HasPrefix(c.DialCode, "+"), c.Code)
		assert.NotEmpty(t, c.Emoji, c.Code)
	}
}

func TestDialCodesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "countries.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"Testland","code":"TL","dial_code":"+999"}]`), 0644))

	d := NewDialCodes(path, zap.NewNop())
	_, err := d.Lookup("+999123")
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, d.Init(context.Background()))
	country, err := d.Lookup("+999 123 456")
	require.NoError(t, err)
	assert.Equal(t, "TL", country.Code)
	assert.Equal(t, "🇹🇱", country.Emoji)

	bad := NewDialCodes(filepath.Join(t.TempDir(), "missing.json"), zap.NewNop())
	assert.Error(t, bad.Init(context.Background()))
	assert.False(t, bad.Ready())
}

func TestURLClassifier(t *testing.T) {
	c := NewURLClassifier()
	res, err := c.Classify(context.Background(), Input{Text: "https://example.com"})
	require.NoError(t, err)
	require.NotNil(t, res)
	p := res.Item.Payload.(*types.URLPayload)
	assert.Equal(t, "https://example.com", p.URL)
	assert.Equal(t, "https://example.com", p.Title)
	assert.Equal(t, EnrichURL, res.Enrich)

	for _, in := range []string{"ftp://example.com", "http://", "example.com", "https://a.com\nhttps://b.com"} {
		res, err := c.Classify(context.Background(), Input{Text: in})
		require.NoError(t, err)
		assert.Nil(t, res, in)
	}
}

func TestFileClassifier(t *testing.T) {
	p := newTestPipeline(t)
	dir := t.TempDir()

	doc := filepath.Join(dir, "notes file.txt")
	require.NoError(t, os.WriteFile(doc, []byte("hello"), 0644))
	pic := filepath.Join(dir, "pic.png")
	require.NoError(t, os.WriteFile(pic, pngBytes(t, 3, 2), 0644))

	t.Run("PathToFile", func(t *testing.T) {
		res := classifyText(t, p, doc)
		require.Equal(t, types.KindFile, res.Item.Type)
		fp := res.Item.Payload.(*types.FilePayload)
		assert.Equal(t, "notes file.txt", fp.Preview)
		assert.Equal(t, FileURI(doc), fp.FileURI)
		assert.Contains(t, fp.FileURI, "%20")
	})

	t.Run("URIToFile", func(t *testing.T) {
		res := classifyText(t, p, FileURI(doc))
		assert.Equal(t, types.KindFile, res.Item.Type)
	})

	t.Run("ImageFileBecomesImage", func(t *testing.T) {
		res := classifyText(t, p, FileURI(pic))
		require.Equal(t, types.KindImage, res.Item.Type)
		ip := res.Item.Payload.(*types.ImagePayload)
		assert.Equal(t, FileURI(pic), ip.FileURI)
		assert.Equal(t, 3, ip.Width)
		assert.Equal(t, 2, ip.Height)
		require.NotNil(t, res.Image)
		assert.Equal(t, "png", res.Image.Ext)
	})

	t.Run("DirectoryIsNotFile", func(t *testing.T) {
		res := classifyText(t, p, dir)
		assert.Equal(t, types.KindText, res.Item.Type)
	})
}

func TestImageClassifier(t *testing.T) {
	p := newTestPipeline(t)
	data := pngBytes(t, 4, 5)

	res, err := p.Classify(context.Background(), Input{Image: data, MIME: "image/png"})
	require.NoError(t, err)
	require.NotNil(t, res)
	ip := res.Item.Payload.(*types.ImagePayload)
	assert.Equal(t, 4, ip.Width)
	assert.Equal(t, 5, ip.Height)
	assert.Empty(t, ip.ImageFilename, "filename is assigned when the image is saved")

	again, err := p.Classify(context.Background(), Input{Image: data, MIME: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, res.Item.Hash, again.Item.Hash)
	assert.NotEqual(t, res.Item.ID, again.Item.ID)

	res, err = p.Classify(context.Background(), Input{Image: []byte("GIF89a-not-really"), MIME: "image/bmp"})
	require.NoError(t, err)
	assert.Nil(t, res)
}
