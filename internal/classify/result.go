package classify

import (
	"context"

	"github.com/berrythewa/clipvault/internal/types"
	"github.com/berrythewa/clipvault/pkg/utils"
	"github.com/lucasb-eyer/go-colorful"
)

// Input is one extracted clipboard payload: image bytes with their MIME
// type, or decoded text.
type Input struct {
	Text string

	Image []byte
	MIME  string

	// Provenance for images, used by healing to re-derive a lost file.
	FileURI   string
	SourceURL string
}

// IsBinary reports whether the payload is an image.
func (in Input) IsBinary() bool {
	return len(in.Image) > 0
}

// Enrichment names the asynchronous follow-up a result needs after insert.
type Enrichment int

const (
	EnrichNone Enrichment = iota
	EnrichURL
	EnrichEmail
)

// PendingImage is image content not yet written to disk. It is saved only
// once the store confirms the item is new.
type PendingImage struct {
	Data []byte
	Ext  string
}

// Result is a classified item plus whatever still has to be materialized.
type Result struct {
	Item types.Item

	Image *PendingImage

	// FullText is written to the texts directory when the payload says
	// HasFullContent.
	FullText string

	// GradientStops are rendered to a swatch keyed by the item hash.
	GradientStops []colorful.Color

	Enrich Enrichment
}

// Classifier maps an input to a result, or to nil when the input is not of
// its kind.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, in Input) (*Result, error)
}

func newItem(hash string, p types.Payload) types.Item {
	return types.NewItem(utils.NewID(), utils.NowUnix(), hash, p)
}
