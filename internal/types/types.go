package types

// Kind tags the payload an Item carries.
type Kind string

const (
	KindImage   Kind = "image"
	KindFile    Kind = "file"
	KindURL     Kind = "url"
	KindContact Kind = "contact"
	KindColor   Kind = "color"
	KindCode    Kind = "code"
	KindText    Kind = "text"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindImage, KindFile, KindURL, KindContact, KindColor, KindCode, KindText:
		return true
	}
	return false
}

// Meta holds the fields every clipboard item carries regardless of kind.
type Meta struct {
	ID          string `json:"id"`
	Type        Kind   `json:"type"`
	Timestamp   int64  `json:"timestamp"`
	Hash        string `json:"hash"`
	IsCorrupted bool   `json:"is_corrupted,omitempty"`
}

// Payload is the kind-specific part of an Item. The concrete types are the
// *XxxPayload structs in this package.
type Payload interface {
	Kind() Kind
	clone() Payload
}

// Item is one history or pinned record.
type Item struct {
	Meta
	Payload Payload
}

// NewItem builds an item around payload, stamping Type from the payload.
func NewItem(id string, ts int64, hash string, p Payload) Item {
	return Item{
		Meta:    Meta{ID: id, Type: p.Kind(), Timestamp: ts, Hash: hash},
		Payload: p,
	}
}

// Clone returns a deep copy so callers can't mutate records held by the store.
func (it Item) Clone() Item {
	out := Item{Meta: it.Meta}
	if it.Payload != nil {
		out.Payload = it.Payload.clone()
	}
	return out
}

// ContentKey returns the canonical content used to derive Hash when a
// producer did not set one.
func (it Item) ContentKey() string {
	switch p := it.Payload.(type) {
	case *ImagePayload:
		if p.FileURI != "" {
			return p.FileURI
		}
		if p.SourceURL != "" {
			return p.SourceURL
		}
		return p.ImageFilename
	case *FilePayload:
		return p.FileURI
	case *URLPayload:
		return p.URL
	case *ContactPayload:
		return p.Text
	case *ColorPayload:
		return p.ColorValue
	case *CodePayload:
		if p.Text != "" {
			return p.Text
		}
		return it.ID
	case *TextPayload:
		if p.Text != "" {
			return p.Text
		}
		return it.ID
	}
	return it.ID
}

// IsTextLike reports whether the item's content can be read back as text.
func (it Item) IsTextLike() bool {
	switch it.Payload.(type) {
	case *CodePayload, *TextPayload:
		return true
	}
	return false
}
