package content

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ContentTypeText is plain UTF-8 text.
var ContentTypeText = TypeID{AuthorityID: "xmtp.org", TypeID: "text", VersionMajor: 1, VersionMinor: 0}

// TextCodec encodes string values.
type TextCodec struct{}

func (TextCodec) ContentType() TypeID { return ContentTypeText }

func (TextCodec) Encode(value any) (*EncodedContent, error) {
	text, ok := value.(string)
	if !ok {
		return nil, unexpectedValue("text", value)
	}
	if text == "" {
		return nil, ErrEmptyContent
	}
	return &EncodedContent{
		Type:       ContentTypeText,
		Parameters: map[string]string{"encoding": "UTF-8"},
		Content:    []byte(text),
	}, nil
}

func (TextCodec) Decode(encoded *EncodedContent) (any, error) {
	if encoding, ok := encoded.Parameters["encoding"]; ok && !strings.EqualFold(encoding, "UTF-8") {
		return nil, fmt.Errorf("unrecognized encoding %q", encoding)
	}
	if !utf8.Valid(encoded.Content) {
		return nil, fmt.Errorf("payload is not valid UTF-8")
	}
	return string(encoded.Content), nil
}

// Fallback is unnecessary for text; every client renders it.
func (TextCodec) Fallback(any) (string, bool) { return "", false }
