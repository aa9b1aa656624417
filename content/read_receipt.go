package content

// ContentTypeReadReceipt marks a conversation as read up to the send time.
var ContentTypeReadReceipt = TypeID{AuthorityID: "xmtp.org", TypeID: "readReceipt", VersionMajor: 1, VersionMinor: 0}

// ReadReceipt carries no fields; the envelope's send time is the read marker.
type ReadReceipt struct{}

// ReadReceiptCodec encodes ReadReceipt values.
type ReadReceiptCodec struct{}

func (ReadReceiptCodec) ContentType() TypeID { return ContentTypeReadReceipt }

func (ReadReceiptCodec) Encode(value any) (*EncodedContent, error) {
	switch value.(type) {
	case ReadReceipt, *ReadReceipt:
	default:
		return nil, unexpectedValue("read receipt", value)
	}
	return &EncodedContent{Type: ContentTypeReadReceipt, Content: []byte("{}")}, nil
}

// Decode accepts any payload, including the empty one other clients send.
func (ReadReceiptCodec) Decode(*EncodedContent) (any, error) {
	return ReadReceipt{}, nil
}

func (ReadReceiptCodec) Fallback(any) (string, bool) { return "", false }
