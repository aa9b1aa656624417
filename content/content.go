package content

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrEmptyContent indicates a codec produced or received no payload
	ErrEmptyContent = errors.New("encoded content payload is empty")
	// ErrReservedContentType indicates an attempt to override a reserved codec
	ErrReservedContentType = errors.New("content type is reserved")
	// ErrUnexpectedValue indicates a codec was handed a value of the wrong Go type
	ErrUnexpectedValue = errors.New("unexpected content value type")
	// ErrInvalidTypeID indicates a malformed content type identifier string
	ErrInvalidTypeID = errors.New("invalid content type id")
)

// TypeID identifies a content type, e.g. xmtp.org/text:1.0.
type TypeID struct {
	AuthorityID  string `cbor:"1,keyasint" json:"authorityId"`
	TypeID       string `cbor:"2,keyasint" json:"typeId"`
	VersionMajor uint32 `cbor:"3,keyasint" json:"versionMajor"`
	VersionMinor uint32 `cbor:"4,keyasint" json:"versionMinor"`
}

// String renders the id as authority/type:major.minor. This is the registry key.
func (t TypeID) String() string {
	return fmt.Sprintf("%s/%s:%d.%d", t.AuthorityID, t.TypeID, t.VersionMajor, t.VersionMinor)
}

// IsZero reports whether no content type is set.
func (t TypeID) IsZero() bool {
	return t.AuthorityID == "" && t.TypeID == ""
}

// ParseTypeID parses the authority/type:major.minor form produced by String.
func ParseTypeID(s string) (TypeID, error) {
	slash := strings.Index(s, "/")
	colon := strings.LastIndex(s, ":")
	if slash <= 0 || colon <= slash+1 {
		return TypeID{}, fmt.Errorf("%w: %q", ErrInvalidTypeID, s)
	}
	version := strings.SplitN(s[colon+1:], ".", 2)
	if len(version) != 2 {
		return TypeID{}, fmt.Errorf("%w: %q", ErrInvalidTypeID, s)
	}
	major, err := strconv.ParseUint(version[0], 10, 32)
	if err != nil {
		return TypeID{}, fmt.Errorf("%w: %q", ErrInvalidTypeID, s)
	}
	minor, err := strconv.ParseUint(version[1], 10, 32)
	if err != nil {
		return TypeID{}, fmt.Errorf("%w: %q", ErrInvalidTypeID, s)
	}
	return TypeID{
		AuthorityID:  s[:slash],
		TypeID:       s[slash+1 : colon],
		VersionMajor: uint32(major),
		VersionMinor: uint32(minor),
	}, nil
}

// Compression identifies the algorithm applied to a payload.
type Compression int32

const (
	CompressionDeflate Compression = iota
	CompressionGzip
)

// String returns the configuration name of the algorithm.
func (c Compression) String() string {
	switch c {
	case CompressionDeflate:
		return "deflate"
	case CompressionGzip:
		return "gzip"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// ParseCompression parses a configuration name. "none" and "" return nil.
func ParseCompression(name string) (*Compression, error) {
	var c Compression
	switch strings.ToLower(name) {
	case "", "none":
		return nil, nil
	case "deflate":
		c = CompressionDeflate
	case "gzip":
		c = CompressionGzip
	default:
		return nil, fmt.Errorf("unknown compression %q", name)
	}
	return &c, nil
}

// EncodedContent is the canonical envelope for application content.
type EncodedContent struct {
	Type        TypeID            `cbor:"1,keyasint"`
	Parameters  map[string]string `cbor:"2,keyasint,omitempty"`
	Fallback    *string           `cbor:"3,keyasint,omitempty"`
	Content     []byte            `cbor:"4,keyasint"`
	Compression *Compression      `cbor:"5,keyasint,omitempty"`
}

// FallbackText returns the fallback and whether one is present.
func (e *EncodedContent) FallbackText() (string, bool) {
	if e.Fallback == nil || *e.Fallback == "" {
		return "", false
	}
	return *e.Fallback, true
}

// Codec converts one content type between Go values and EncodedContent.
type Codec interface {
	ContentType() TypeID
	Encode(value any) (*EncodedContent, error)
	Decode(encoded *EncodedContent) (any, error)
	// Fallback returns human-readable text for receivers that lack this codec.
	Fallback(value any) (string, bool)
}

// CodecNotFoundError is returned when no codec is registered for a type.
type CodecNotFoundError struct {
	Type string
}

func (e *CodecNotFoundError) Error() string {
	return fmt.Sprintf("no codec registered for content type %s", e.Type)
}

// DecodeError is returned when a known codec rejects a payload.
type DecodeError struct {
	Codec string
	Type  string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("codec %s failed to decode %s: %v", e.Codec, e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func stringPtr(s string) *string {
	return &s
}

func unexpectedValue(codec string, value any) error {
	return fmt.Errorf("%w: %s codec cannot encode %T", ErrUnexpectedValue, codec, value)
}
