package messaging

import (
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/xmtpcore/content"
)

// DecodedMessage is a message whose content has been resolved through the
// content pipeline.
type DecodedMessage struct {
	ID             string         `json:"id"`
	Topic          string         `json:"topic"`
	SenderAddress  string         `json:"senderAddress"`
	SentAt         int64          `json:"sent"`
	Content        any            `json:"content,omitempty"`
	ContentType    content.TypeID `json:"contentTypeId"`
	Fallback       string         `json:"fallback,omitempty"`
	ConversationID string         `json:"conversationId,omitempty"`
	DeliveryStatus string         `json:"deliveryStatus,omitempty"`

	// DecodeErr is set on messages that could not be decoded while listing
	// a page. Content is nil and Fallback is kept when the envelope had one.
	DecodeErr error `json:"-"`
}

// Degraded reports whether the message failed to decode.
func (m *DecodedMessage) Degraded() bool {
	return m.DecodeErr != nil
}

// rawRecord is the engine's message record.
type rawRecord struct {
	ID             string `json:"id"`
	Topic          string `json:"topic"`
	SenderAddress  string `json:"senderAddress"`
	Sent           int64  `json:"sent"`
	EncodedContent []byte `json:"encodedContent"`
	ConversationID string `json:"conversationId"`
	DeliveryStatus string `json:"deliveryStatus"`
}

func (r rawRecord) message() *DecodedMessage {
	return &DecodedMessage{
		ID:             r.ID,
		Topic:          r.Topic,
		SenderAddress:  r.SenderAddress,
		SentAt:         r.Sent,
		ConversationID: r.ConversationID,
		DeliveryStatus: r.DeliveryStatus,
	}
}

// Decoder turns raw engine records into decoded messages.
type Decoder struct {
	pipeline *content.Pipeline
}

// NewDecoder creates a decoder over pipeline.
func NewDecoder(pipeline *content.Pipeline) *Decoder {
	return &Decoder{pipeline: pipeline}
}

// Decode decodes one record. A record that is not valid JSON, or whose
// envelope a known codec rejects, returns a *content.DecodeError. An
// unknown content type is not an error.
func (d *Decoder) Decode(raw string) (*DecodedMessage, error) {
	var rec rawRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, &content.DecodeError{Codec: "record", Type: "unknown", Err: err}
	}
	if rec.ID == "" {
		return nil, &content.DecodeError{Codec: "record", Type: "unknown", Err: errors.New("message record has no id")}
	}

	resolved, err := d.pipeline.ResolveBytes(rec.EncodedContent)
	if err != nil {
		return nil, err
	}

	msg := rec.message()
	msg.Content = resolved.Content
	msg.ContentType = resolved.Type
	msg.Fallback = resolved.Fallback
	return msg, nil
}

// DecodeOrDegrade decodes one record and never fails. On error it returns a
// degraded message carrying whatever metadata and fallback could be read.
func (d *Decoder) DecodeOrDegrade(raw string) *DecodedMessage {
	msg, err := d.Decode(raw)
	if err == nil {
		return msg
	}

	var rec rawRecord
	degraded := &DecodedMessage{}
	if json.Unmarshal([]byte(raw), &rec) == nil {
		degraded = rec.message()
		if envelope, envErr := content.Unmarshal(rec.EncodedContent); envErr == nil {
			degraded.ContentType = envelope.Type
			degraded.Fallback, _ = envelope.FallbackText()
		}
	}
	degraded.DecodeErr = err

	logrus.WithFields(logrus.Fields{
		"function":     "DecodeOrDegrade",
		"message_id":   degraded.ID,
		"topic":        degraded.Topic,
		"content_type": degraded.ContentType.String(),
		"error":        err.Error(),
	}).Warn("Message could not be decoded, returning degraded entry")

	return degraded
}

// DecodeAll decodes every record independently, in order.
func (d *Decoder) DecodeAll(raws []string) []*DecodedMessage {
	out := make([]*DecodedMessage, len(raws))
	for i, raw := range raws {
		out[i] = d.DecodeOrDegrade(raw)
	}
	return out
}
