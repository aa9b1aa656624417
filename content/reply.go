package content

import (
	"errors"
	"fmt"
)

// ContentTypeReply is a message that quotes an earlier one.
var ContentTypeReply = TypeID{AuthorityID: "xmtp.org", TypeID: "reply", VersionMajor: 1, VersionMinor: 0}

// Reply wraps content of any registered type with a reference.
type Reply struct {
	Reference   string
	ContentType TypeID
	// Content is nil when ContentType has no codec on this client.
	Content any
}

// ReplyCodec encodes Reply values. The inner content is encoded with the
// codec registered for its type and nested as a serialized envelope.
type ReplyCodec struct {
	registry *Registry
}

// NewReplyCodec creates a reply codec that resolves inner codecs in registry.
func NewReplyCodec(registry *Registry) *ReplyCodec {
	return &ReplyCodec{registry: registry}
}

func (*ReplyCodec) ContentType() TypeID { return ContentTypeReply }

func (c *ReplyCodec) Encode(value any) (*EncodedContent, error) {
	reply, ok := asReply(value)
	if !ok {
		return nil, unexpectedValue("reply", value)
	}
	if reply.Reference == "" {
		return nil, errors.New("reply reference is required")
	}
	if reply.ContentType == ContentTypeReply {
		return nil, errors.New("reply cannot nest another reply")
	}

	inner, err := c.registry.Resolve(reply.ContentType)
	if err != nil {
		return nil, err
	}
	innerEncoded, err := inner.Encode(reply.Content)
	if err != nil {
		return nil, fmt.Errorf("encode reply content: %w", err)
	}
	if innerEncoded.Type.IsZero() {
		innerEncoded.Type = reply.ContentType
	}
	if fallback, ok := inner.Fallback(reply.Content); ok && fallback != "" {
		innerEncoded.Fallback = stringPtr(fallback)
	}
	payload, err := Marshal(innerEncoded)
	if err != nil {
		return nil, err
	}

	return &EncodedContent{
		Type: ContentTypeReply,
		Parameters: map[string]string{
			"contentType": reply.ContentType.String(),
			"reference":   reply.Reference,
		},
		Content: payload,
	}, nil
}

func (c *ReplyCodec) Decode(encoded *EncodedContent) (any, error) {
	reference := encoded.Parameters["reference"]
	if reference == "" {
		return nil, errors.New("reply is missing reference parameter")
	}
	inner, err := Unmarshal(encoded.Content)
	if err != nil {
		return nil, fmt.Errorf("invalid nested content: %w", err)
	}

	reply := Reply{Reference: reference, ContentType: inner.Type}
	codec, err := c.registry.Resolve(inner.Type)
	if err != nil {
		return reply, nil
	}
	if reply.Content, err = codec.Decode(inner); err != nil {
		return nil, fmt.Errorf("decode reply content: %w", err)
	}
	return reply, nil
}

func (*ReplyCodec) Fallback(value any) (string, bool) {
	reply, ok := asReply(value)
	if !ok {
		return "", false
	}
	if text, isText := reply.Content.(string); isText {
		return fmt.Sprintf("Replied with “%s” to an earlier message", text), true
	}
	return "Replied to an earlier message", true
}

func asReply(value any) (Reply, bool) {
	switch v := value.(type) {
	case Reply:
		return v, true
	case *Reply:
		if v != nil {
			return *v, true
		}
	}
	return Reply{}, false
}
