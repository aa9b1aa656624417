package content

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/xmtpcore/limits"
)

// Pipeline prepares outgoing content and resolves incoming envelopes.
type Pipeline struct {
	registry    *Registry
	compression *Compression
	threshold   int
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithCompression compresses payloads of at least threshold bytes.
func WithCompression(c Compression, threshold int) PipelineOption {
	return func(p *Pipeline) {
		p.compression = &c
		if threshold < 0 {
			threshold = 0
		}
		p.threshold = threshold
	}
}

// NewPipeline creates a pipeline over registry. A nil registry gets the
// built-in codecs.
func NewPipeline(registry *Registry, opts ...PipelineOption) *Pipeline {
	if registry == nil {
		registry = NewRegistry()
	}
	p := &Pipeline{
		registry:  registry,
		threshold: limits.DefaultCompressionThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry returns the codec registry backing the pipeline.
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// Prepare encodes value with codec. The codec's fallback always replaces
// whatever the encoder set, then compression is applied if configured.
func (p *Pipeline) Prepare(value any, codec Codec) (*EncodedContent, error) {
	if codec == nil {
		return nil, errors.New("codec cannot be nil")
	}

	encoded, err := codec.Encode(value)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", codec.ContentType(), err)
	}
	if encoded.Type.IsZero() {
		encoded.Type = codec.ContentType()
	}
	if len(encoded.Content) == 0 {
		return nil, fmt.Errorf("encode %s: %w", encoded.Type, ErrEmptyContent)
	}

	encoded.Fallback = nil
	if fallback, ok := codec.Fallback(value); ok && fallback != "" {
		encoded.Fallback = stringPtr(fallback)
	}

	if p.compression != nil && len(encoded.Content) >= p.threshold {
		compressed, err := compress(*p.compression, encoded.Content)
		if err != nil {
			return nil, fmt.Errorf("compress %s: %w", encoded.Type, err)
		}
		algorithm := *p.compression
		encoded.Content = compressed
		encoded.Compression = &algorithm
	}

	logrus.WithFields(logrus.Fields{
		"function":     "Prepare",
		"content_type": encoded.Type.String(),
		"size":         len(encoded.Content),
		"compressed":   encoded.Compression != nil,
		"has_fallback": encoded.Fallback != nil,
	}).Debug("Content prepared")

	return encoded, nil
}

// PrepareByType resolves the codec for id and prepares value with it.
func (p *Pipeline) PrepareByType(value any, id TypeID) (*EncodedContent, error) {
	codec, err := p.registry.Resolve(id)
	if err != nil {
		return nil, err
	}
	return p.Prepare(value, codec)
}

// Encode prepares value for id and serializes the envelope.
func (p *Pipeline) Encode(value any, id TypeID) ([]byte, error) {
	encoded, err := p.PrepareByType(value, id)
	if err != nil {
		return nil, err
	}
	return Marshal(encoded)
}

// Resolved is the outcome of resolving an envelope.
type Resolved struct {
	Type     TypeID
	Content  any
	Fallback string
	// Known is false when no codec is registered for Type. Content is then
	// nil and Fallback, if any, is the only displayable text.
	Known bool
}

// HasFallback reports whether fallback text is available.
func (r *Resolved) HasFallback() bool {
	return r.Fallback != ""
}

// Resolve decodes an envelope. A known codec that rejects the payload yields
// a *DecodeError. An unknown content type is not an error.
func (p *Pipeline) Resolve(encoded *EncodedContent) (*Resolved, error) {
	if encoded == nil {
		return nil, &DecodeError{Codec: "envelope", Type: "unknown", Err: errors.New("nil encoded content")}
	}

	fallback, _ := encoded.FallbackText()
	result := &Resolved{Type: encoded.Type, Fallback: fallback}

	codec, err := p.registry.Resolve(encoded.Type)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":     "Resolve",
			"content_type": encoded.Type.String(),
			"has_fallback": result.HasFallback(),
		}).Debug("Unknown content type, using fallback")
		return result, nil
	}

	payload := encoded
	if encoded.Compression != nil {
		inflated, err := decompress(*encoded.Compression, encoded.Content, limits.MaxDecompressedContent)
		if err != nil {
			return nil, p.decodeError(codec, encoded.Type, err)
		}
		payload = &EncodedContent{
			Type:       encoded.Type,
			Parameters: encoded.Parameters,
			Fallback:   encoded.Fallback,
			Content:    inflated,
		}
	}

	value, err := codec.Decode(payload)
	if err != nil {
		return nil, p.decodeError(codec, encoded.Type, err)
	}

	result.Content = value
	result.Known = true
	return result, nil
}

// ResolveBytes parses a serialized envelope and resolves it. A payload that
// cannot be parsed as an envelope is a *DecodeError.
func (p *Pipeline) ResolveBytes(data []byte) (*Resolved, error) {
	encoded, err := Unmarshal(data)
	if err != nil {
		return nil, &DecodeError{Codec: "envelope", Type: "unknown", Err: err}
	}
	return p.Resolve(encoded)
}

func (p *Pipeline) decodeError(codec Codec, id TypeID, err error) error {
	decodeErr := &DecodeError{
		Codec: fmt.Sprintf("%T", codec),
		Type:  id.String(),
		Err:   err,
	}
	logrus.WithFields(logrus.Fields{
		"function":     "Resolve",
		"content_type": decodeErr.Type,
		"codec":        decodeErr.Codec,
		"error":        err.Error(),
	}).Warn("Known codec rejected payload")
	return decodeErr
}
