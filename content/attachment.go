package content

import (
	"errors"
	"fmt"
)

// ContentTypeAttachment is a file carried inline in the message.
var ContentTypeAttachment = TypeID{AuthorityID: "xmtp.org", TypeID: "attachment", VersionMajor: 1, VersionMinor: 0}

// Attachment is an inline file.
type Attachment struct {
	Filename string
	MimeType string
	Data     []byte
}

// AttachmentCodec encodes Attachment values. Filename and MIME type travel
// as parameters; the payload is the raw file.
type AttachmentCodec struct{}

func (AttachmentCodec) ContentType() TypeID { return ContentTypeAttachment }

func (AttachmentCodec) Encode(value any) (*EncodedContent, error) {
	attachment, ok := asAttachment(value)
	if !ok {
		return nil, unexpectedValue("attachment", value)
	}
	if attachment.MimeType == "" {
		return nil, errors.New("attachment mime type is required")
	}
	if len(attachment.Data) == 0 {
		return nil, ErrEmptyContent
	}
	return &EncodedContent{
		Type: ContentTypeAttachment,
		Parameters: map[string]string{
			"filename": attachment.Filename,
			"mimeType": attachment.MimeType,
		},
		Content: attachment.Data,
	}, nil
}

func (AttachmentCodec) Decode(encoded *EncodedContent) (any, error) {
	mimeType := encoded.Parameters["mimeType"]
	if mimeType == "" {
		return nil, errors.New("attachment is missing mimeType parameter")
	}
	data := make([]byte, len(encoded.Content))
	copy(data, encoded.Content)
	return Attachment{
		Filename: encoded.Parameters["filename"],
		MimeType: mimeType,
		Data:     data,
	}, nil
}

func (AttachmentCodec) Fallback(value any) (string, bool) {
	attachment, ok := asAttachment(value)
	if !ok {
		return "", false
	}
	return attachmentFallback(attachment.Filename), true
}

func attachmentFallback(filename string) string {
	return fmt.Sprintf("Can’t display \"%s\". This app doesn’t support attachments.", filename)
}

func asAttachment(value any) (Attachment, bool) {
	switch v := value.(type) {
	case Attachment:
		return v, true
	case *Attachment:
		if v != nil {
			return *v, true
		}
	}
	return Attachment{}, false
}
