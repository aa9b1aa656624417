package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/xmtpcore/content"
	"github.com/opd-ai/xmtpcore/interfaces"
	"github.com/opd-ai/xmtpcore/limits"
)

// Store lists, decodes and sends messages for one client address.
type Store struct {
	engine        interfaces.IMessageEngine
	pipeline      *content.Pipeline
	decoder       *Decoder
	clientAddress string
}

// NewStore creates a store bound to clientAddress.
func NewStore(engine interfaces.IMessageEngine, pipeline *content.Pipeline, clientAddress string) *Store {
	if pipeline == nil {
		pipeline = content.NewPipeline(nil)
	}
	return &Store{
		engine:        engine,
		pipeline:      pipeline,
		decoder:       NewDecoder(pipeline),
		clientAddress: clientAddress,
	}
}

// Decoder returns the decoder the store uses.
func (s *Store) Decoder() *Decoder {
	return s.decoder
}

// ListMessages lists a conversation topic. Records that fail to decode are
// returned degraded rather than failing the page.
func (s *Store) ListMessages(ctx context.Context, topic string, opts ListOptions) ([]*DecodedMessage, error) {
	params, err := opts.Params(topic)
	if err != nil {
		return nil, err
	}
	raws, err := s.engine.LoadMessages(ctx, s.clientAddress, params)
	if err != nil {
		return nil, s.engineError("ListMessages", err)
	}
	return s.decodePage("ListMessages", raws), nil
}

// GroupMessages lists a group's messages.
func (s *Store) GroupMessages(ctx context.Context, groupID string, opts ListOptions) ([]*DecodedMessage, error) {
	params, err := opts.Params(groupID)
	if err != nil {
		return nil, err
	}
	raws, err := s.engine.GroupMessages(ctx, s.clientAddress, groupID, params)
	if err != nil {
		return nil, s.engineError("GroupMessages", err)
	}
	return s.decodePage("GroupMessages", raws), nil
}

// ListBatchMessages runs one engine request per query and concatenates the
// results in query order. Results are not merged by time. An engine failure
// on any query fails the batch; decode failures only degrade their message.
func (s *Store) ListBatchMessages(ctx context.Context, queries []Query) ([]*DecodedMessage, error) {
	if err := limits.ValidateBatchSize(len(queries)); err != nil {
		return nil, &InvalidQueryError{Field: "queries", Reason: err.Error()}
	}

	params := make([]interfaces.QueryParams, len(queries))
	for i, q := range queries {
		p, err := q.Params()
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		params[i] = p
	}

	var out []*DecodedMessage
	for _, p := range params {
		raws, err := s.engine.LoadMessages(ctx, s.clientAddress, p)
		if err != nil {
			return nil, s.engineError("ListBatchMessages", err)
		}
		out = append(out, s.decoder.DecodeAll(raws)...)
	}

	logrus.WithFields(logrus.Fields{
		"function":       "ListBatchMessages",
		"client_address": s.clientAddress,
		"queries":        len(queries),
		"messages":       len(out),
	}).Debug("Batch listing complete")

	return out, nil
}

func (s *Store) decodePage(op string, raws []string) []*DecodedMessage {
	messages := s.decoder.DecodeAll(raws)

	degraded := 0
	for _, m := range messages {
		if m.Degraded() {
			degraded++
		}
	}
	logrus.WithFields(logrus.Fields{
		"function":       op,
		"client_address": s.clientAddress,
		"messages":       len(messages),
		"degraded":       degraded,
	}).Debug("Decoded message page")

	return messages
}

// DecodeMessage asks the engine to decrypt a conversation envelope and
// decodes the result strictly.
func (s *Store) DecodeMessage(ctx context.Context, topic, encryptedMessage string) (*DecodedMessage, error) {
	raw, err := s.engine.DecodeMessage(ctx, s.clientAddress, topic, encryptedMessage)
	if err != nil {
		return nil, s.engineError("DecodeMessage", err)
	}
	return s.decoder.Decode(raw)
}

// ProcessGroupMessage asks the engine to decrypt a group envelope and
// decodes the result strictly.
func (s *Store) ProcessGroupMessage(ctx context.Context, groupID, encryptedMessage string) (*DecodedMessage, error) {
	raw, err := s.engine.ProcessGroupMessage(ctx, s.clientAddress, groupID, encryptedMessage)
	if err != nil {
		return nil, s.engineError("ProcessGroupMessage", err)
	}
	return s.decoder.Decode(raw)
}

func (s *Store) encode(value any, codec content.Codec) ([]byte, error) {
	encoded, err := s.pipeline.Prepare(value, codec)
	if err != nil {
		return nil, err
	}
	return content.Marshal(encoded)
}

// Send encodes value with codec and sends it to a conversation topic.
func (s *Store) Send(ctx context.Context, topic string, value any, codec content.Codec) (string, error) {
	data, err := s.encode(value, codec)
	if err != nil {
		return "", err
	}
	id, err := s.engine.SendEncodedContent(ctx, s.clientAddress, topic, data)
	if err != nil {
		return "", s.engineError("Send", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":       "Send",
		"client_address": s.clientAddress,
		"topic":          topic,
		"message_id":     id,
		"content_type":   codec.ContentType().String(),
	}).Info("Message sent")

	return id, nil
}

// SendToGroup encodes value with codec and sends it to a group.
func (s *Store) SendToGroup(ctx context.Context, groupID string, value any, codec content.Codec) (string, error) {
	data, err := s.encode(value, codec)
	if err != nil {
		return "", err
	}
	id, err := s.engine.SendEncodedContentToGroup(ctx, s.clientAddress, groupID, data)
	if err != nil {
		return "", s.engineError("SendToGroup", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":       "SendToGroup",
		"client_address": s.clientAddress,
		"group_id":       groupID,
		"message_id":     id,
		"content_type":   codec.ContentType().String(),
	}).Info("Group message sent")

	return id, nil
}

// Prepare encodes value and has the engine encrypt it without publishing.
// The returned handle is sent later with SendPrepared.
func (s *Store) Prepare(ctx context.Context, topic string, value any, codec content.Codec) (*interfaces.PreparedLocalMessage, error) {
	data, err := s.encode(value, codec)
	if err != nil {
		return nil, err
	}
	raw, err := s.engine.PrepareEncodedMessage(ctx, s.clientAddress, topic, data)
	if err != nil {
		return nil, s.engineError("Prepare", err)
	}

	var prepared interfaces.PreparedLocalMessage
	if err := json.Unmarshal([]byte(raw), &prepared); err != nil {
		return nil, fmt.Errorf("parse prepared message: %w", err)
	}
	if prepared.MessageID == "" {
		return nil, errors.New("prepared message has no id")
	}
	return &prepared, nil
}

// SendPrepared publishes a message returned by Prepare.
func (s *Store) SendPrepared(ctx context.Context, prepared *interfaces.PreparedLocalMessage) (string, error) {
	if prepared == nil {
		return "", errors.New("prepared message cannot be nil")
	}
	data, err := json.Marshal(prepared)
	if err != nil {
		return "", err
	}
	id, err := s.engine.SendPreparedMessage(ctx, s.clientAddress, string(data))
	if err != nil {
		return "", s.engineError("SendPrepared", err)
	}
	return id, nil
}

func (s *Store) engineError(op string, err error) error {
	logrus.WithFields(logrus.Fields{
		"function":       op,
		"client_address": s.clientAddress,
		"error":          err.Error(),
	}).Error("Engine call failed")
	return interfaces.WrapEngineError(op, s.clientAddress, err)
}
