package types

type ContactSubtype string

const (
	ContactEmail ContactSubtype = "email"
	ContactPhone ContactSubtype = "phone"
)

type ColorSubtype string

const (
	ColorSingle   ColorSubtype = "single"
	ColorGradient ColorSubtype = "gradient"
	ColorPalette  ColorSubtype = "palette"
)

type ImagePayload struct {
	ImageFilename string `json:"image_filename"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
	FileURI       string `json:"file_uri,omitempty"`
	SourceURL     string `json:"source_url,omitempty"`
}

func (*ImagePayload) Kind() Kind { return KindImage }

func (p *ImagePayload) clone() Payload { c := *p; return &c }

type FilePayload struct {
	FileURI string `json:"file_uri"`
	Preview string `json:"preview"`
}

func (*FilePayload) Kind() Kind { return KindFile }

func (p *FilePayload) clone() Payload { c := *p; return &c }

// URLPayload starts with Title equal to URL; enrichment fills in the page
// title and favicon later.
type URLPayload struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	IconFilename string `json:"icon_filename,omitempty"`
}

func (*URLPayload) Kind() Kind { return KindURL }

func (p *URLPayload) clone() Payload { c := *p; return &c }

// CountryInfo is the dial-code match attached to phone contacts.
type CountryInfo struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Emoji string `json:"emoji,omitempty"`
}

type ContactPayload struct {
	Subtype      ContactSubtype `json:"subtype"`
	Text         string         `json:"text"`
	Preview      string         `json:"preview"`
	Metadata     *CountryInfo   `json:"metadata,omitempty"`
	IconFilename string         `json:"icon_filename,omitempty"`
}

func (*ContactPayload) Kind() Kind { return KindContact }

func (p *ContactPayload) clone() Payload {
	c := *p
	if p.Metadata != nil {
		m := *p.Metadata
		c.Metadata = &m
	}
	return &c
}

type ColorPayload struct {
	Subtype          ColorSubtype `json:"subtype"`
	ColorValue       string       `json:"color_value"`
	FormatType       string       `json:"format_type"`
	Colors           []string     `json:"colors,omitempty"`
	GradientFilename string       `json:"gradient_filename,omitempty"`
}

func (*ColorPayload) Kind() Kind { return KindColor }

func (p *ColorPayload) clone() Payload {
	c := *p
	if p.Colors != nil {
		c.Colors = append([]string(nil), p.Colors...)
	}
	return &c
}

// CodePayload's Preview is highlighted markup. Text is set only when
// HasFullContent is false.
type CodePayload struct {
	Preview        string `json:"preview"`
	HasFullContent bool   `json:"has_full_content"`
	Text           string `json:"text,omitempty"`
	RawLines       int    `json:"raw_lines"`
}

func (*CodePayload) Kind() Kind { return KindCode }

func (p *CodePayload) clone() Payload { c := *p; return &c }

type TextPayload struct {
	Preview        string `json:"preview"`
	HasFullContent bool   `json:"has_full_content"`
	Text           string `json:"text,omitempty"`
}

func (*TextPayload) Kind() Kind { return KindText }

func (p *TextPayload) clone() Payload { c := *p; return &c }
