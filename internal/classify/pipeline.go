package classify

import (
	"context"
	"errors"

	"github.com/berrythewa/clipvault/internal/config"
	"go.uber.org/zap"
)

var errEmptyInput = errors.New("empty clipboard payload")

// Pipeline runs classifiers in priority order and returns the first match.
// Binary input only goes through Image. Text goes through File, URL,
// Contact, Color, Code and finally Text, which always matches.
type Pipeline struct {
	binary   []Classifier
	text     []Classifier
	fallback *TextClassifier
	contact  *ContactClassifier
	logger   *zap.Logger
}

// Options configures NewPipeline.
type Options struct {
	Limits config.ClassifierConfig
	// DialCodes is the contact country table. When nil an empty, never
	// initialized table is used.
	DialCodes *DialCodes
	Logger    *zap.Logger
}

func NewPipeline(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dial := opts.DialCodes
	if dial == nil {
		dial = NewDialCodes("", logger)
	}

	image := NewImageClassifier()
	text := NewTextClassifier(opts.Limits)
	contact := NewContactClassifier(dial, logger)

	return &Pipeline{
		binary: []Classifier{image},
		text: []Classifier{
			NewFileClassifier(image, opts.Limits.MaxImageFileSize),
			NewURLClassifier(),
			contact,
			NewColorClassifier(),
			NewCodeClassifier(text, opts.Limits.CodePreviewLines),
		},
		fallback: text,
		contact:  contact,
		logger:   logger.Named("classify"),
	}
}

// DialCodes exposes the contact table so the owner can run its Init.
func (p *Pipeline) DialCodes() *DialCodes {
	return p.contact.dial
}

// Classify returns the first matching result. Classifier errors are logged
// and the next classifier is tried. For text input the result is never nil.
func (p *Pipeline) Classify(ctx context.Context, in Input) (*Result, error) {
	if in.IsBinary() {
		for _, c := range p.binary {
			if res := p.try(ctx, c, in); res != nil {
				return res, nil
			}
		}
		return nil, nil
	}

	if in.Text == "" {
		return nil, errEmptyInput
	}
	for _, c := range p.text {
		if res := p.try(ctx, c, in); res != nil {
			return res, nil
		}
	}
	return p.fallback.Classify(ctx, in)
}

func (p *Pipeline) try(ctx context.Context, c Classifier, in Input) *Result {
	res, err := c.Classify(ctx, in)
	if err != nil {
		p.logger.Warn("Classifier failed", zap.String("classifier", c.Name()), zap.Error(err))
		return nil
	}
	if res != nil {
		p.logger.Debug("Classified clipboard content",
			zap.String("classifier", c.Name()),
			zap.String("type", string(res.Item.Type)),
			zap.String("hash", res.Item.Hash))
	}
	return res
}
