package testing

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/xmtpcore/interfaces"
)

// MessageRecord is the raw message shape the simulated engine returns.
type MessageRecord struct {
	ID             string `json:"id"`
	Topic          string `json:"topic"`
	SenderAddress  string `json:"senderAddress"`
	Sent           int64  `json:"sent"`
	EncodedContent []byte `json:"encodedContent"`
	ConversationID string `json:"conversationId,omitempty"`
	DeliveryStatus string `json:"deliveryStatus"`
}

func (r MessageRecord) raw() string {
	data, _ := json.Marshal(r)
	return string(data)
}

type simPrepared struct {
	clientAddress string
	topic         string
	encoded       []byte
	preparedAt    int64
}

// Envelope returns the opaque encrypted form of rec accepted by
// DecodeMessage and ProcessGroupMessage.
func Envelope(rec MessageRecord) string {
	return base64.StdEncoding.EncodeToString([]byte(rec.raw()))
}

// InjectMessage stores rec on its topic without validation, for tests that
// need corrupt or hand-built records. Missing ids and timestamps are filled in.
func (s *SimulatedEngine) InjectMessage(rec MessageRecord) MessageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Sent == 0 {
		rec.Sent = s.tick()
	}
	if rec.DeliveryStatus == "" {
		rec.DeliveryStatus = "PUBLISHED"
	}
	s.messages[rec.Topic] = append(s.messages[rec.Topic], rec)
	return rec
}

// Messages returns every stored record for topic in send order.
func (s *SimulatedEngine) Messages(topic string) []MessageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]MessageRecord(nil), s.messages[topic]...)
}

// SendEncodedContent implements IMessageEngine.SendEncodedContent.
func (s *SimulatedEngine) SendEncodedContent(ctx context.Context, clientAddress, topic string, encoded []byte) (string, error) {
	id, pending, err := s.sendToConversation("SendEncodedContent", clientAddress, topic, encoded)
	deliver(pending)
	return id, err
}

func (s *SimulatedEngine) sendToConversation(op, clientAddress, topic string, encoded []byte) (string, []pendingPush, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin(op, clientAddress); err != nil {
		return "", nil, err
	}
	conv, ok := s.conversations[topic]
	if !ok || (conv.creator != clientAddress && conv.peer != clientAddress) {
		return "", nil, fmt.Errorf("conversation %s not found", topic)
	}
	if len(encoded) == 0 {
		return "", nil, fmt.Errorf("empty message")
	}

	rec := MessageRecord{
		ID:             uuid.NewString(),
		Topic:          topic,
		SenderAddress:  clientAddress,
		Sent:           s.tick(),
		EncodedContent: append([]byte(nil), encoded...),
		DeliveryStatus: "PUBLISHED",
	}
	if conv.context != nil {
		rec.ConversationID = conv.context.ConversationID
	}
	s.messages[topic] = append(s.messages[topic], rec)

	raw := rec.raw()
	var pending []pendingPush
	for _, p := range conv.participants() {
		pending = s.queue(pending, interfaces.StreamKey{ClientAddress: p, Kind: interfaces.StreamMessages, ScopeID: topic}, raw)
		pending = s.queue(pending, interfaces.StreamKey{ClientAddress: p, Kind: interfaces.StreamAllMessages}, raw)
	}

	logrus.WithFields(logrus.Fields{
		"function":       "SimulatedEngine." + op,
		"client_address": clientAddress,
		"topic":          topic,
		"message_id":     rec.ID,
		"size":           len(encoded),
	}).Debug("Simulated message sent")

	return rec.ID, pending, nil
}

// SendEncodedContentToGroup implements IMessageEngine.SendEncodedContentToGroup.
func (s *SimulatedEngine) SendEncodedContentToGroup(ctx context.Context, clientAddress, groupID string, encoded []byte) (string, error) {
	id, pending, err := s.sendToGroup(clientAddress, groupID, encoded)
	deliver(pending)
	return id, err
}

func (s *SimulatedEngine) sendToGroup(clientAddress, groupID string, encoded []byte) (string, []pendingPush, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("SendEncodedContentToGroup", clientAddress); err != nil {
		return "", nil, err
	}
	g, err := s.group(clientAddress, groupID)
	if err != nil {
		return "", nil, err
	}
	if !g.isMember(clientAddress) {
		return "", nil, fmt.Errorf("%s is no longer a member of group %s", clientAddress, groupID)
	}
	if len(encoded) == 0 {
		return "", nil, fmt.Errorf("empty message")
	}

	rec := MessageRecord{
		ID:             uuid.NewString(),
		Topic:          g.topic,
		SenderAddress:  clientAddress,
		Sent:           s.tick(),
		EncodedContent: append([]byte(nil), encoded...),
		ConversationID: g.id,
		DeliveryStatus: "PUBLISHED",
	}
	s.messages[g.topic] = append(s.messages[g.topic], rec)

	raw := rec.raw()
	var pending []pendingPush
	for _, m := range g.members {
		pending = s.queue(pending, interfaces.StreamKey{ClientAddress: m, Kind: interfaces.StreamGroupMessages, ScopeID: groupID}, raw)
		pending = s.queue(pending, interfaces.StreamKey{ClientAddress: m, Kind: interfaces.StreamAllGroupMessages}, raw)
		allKey := interfaces.StreamKey{ClientAddress: m, Kind: interfaces.StreamAllMessages}
		if stream, ok := s.streams[allKey]; ok && stream.opts.IncludeGroups {
			pending = append(pending, pendingPush{push: stream.push, raw: raw})
		}
	}
	return rec.ID, pending, nil
}

// PrepareEncodedMessage implements IMessageEngine.PrepareEncodedMessage.
func (s *SimulatedEngine) PrepareEncodedMessage(ctx context.Context, clientAddress, topic string, encoded []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("PrepareEncodedMessage", clientAddress); err != nil {
		return "", err
	}
	if _, err := s.client(clientAddress); err != nil {
		return "", err
	}
	if _, ok := s.conversations[topic]; !ok {
		return "", fmt.Errorf("conversation %s not found", topic)
	}

	prepared := interfaces.PreparedLocalMessage{
		MessageID:  uuid.NewString(),
		PreparedAt: s.tick(),
	}
	prepared.PreparedFileURI = "file:///simulated/prepared/" + prepared.MessageID
	s.prepared[prepared.MessageID] = simPrepared{
		clientAddress: clientAddress,
		topic:         topic,
		encoded:       append([]byte(nil), encoded...),
		preparedAt:    prepared.PreparedAt,
	}

	data, err := json.Marshal(prepared)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SendPreparedMessage implements IMessageEngine.SendPreparedMessage.
func (s *SimulatedEngine) SendPreparedMessage(ctx context.Context, clientAddress, preparedJSON string) (string, error) {
	var prepared interfaces.PreparedLocalMessage
	if err := json.Unmarshal([]byte(preparedJSON), &prepared); err != nil {
		return "", fmt.Errorf("invalid prepared message: %w", err)
	}

	s.mu.RLock()
	entry, ok := s.prepared[prepared.MessageID]
	s.mu.RUnlock()

	if !ok || entry.clientAddress != clientAddress {
		return "", fmt.Errorf("prepared message %s not found", prepared.MessageID)
	}
	id, pending, err := s.sendToConversation("SendPreparedMessage", clientAddress, entry.topic, entry.encoded)
	if err == nil {
		s.mu.Lock()
		delete(s.prepared, prepared.MessageID)
		s.mu.Unlock()
	}
	deliver(pending)
	return id, err
}

func filterMessages(records []MessageRecord, params interfaces.QueryParams) []string {
	selected := make([]MessageRecord, 0, len(records))
	for _, rec := range records {
		if params.After > 0 && rec.Sent <= params.After {
			continue
		}
		if params.Before > 0 && rec.Sent >= params.Before {
			continue
		}
		selected = append(selected, rec)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		if params.Direction == interfaces.SortAscending {
			return selected[i].Sent < selected[j].Sent
		}
		return selected[i].Sent > selected[j].Sent
	})
	if params.Limit > 0 && len(selected) > params.Limit {
		selected = selected[:params.Limit]
	}

	out := make([]string, len(selected))
	for i, rec := range selected {
		out[i] = rec.raw()
	}
	return out
}

// LoadMessages implements IMessageEngine.LoadMessages. Bounds are exclusive.
func (s *SimulatedEngine) LoadMessages(ctx context.Context, clientAddress string, params interfaces.QueryParams) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("LoadMessages", clientAddress); err != nil {
		return nil, err
	}
	if _, err := s.client(clientAddress); err != nil {
		return nil, err
	}
	return filterMessages(s.messages[params.Topic], params), nil
}

// GroupMessages implements IMessageEngine.GroupMessages.
func (s *SimulatedEngine) GroupMessages(ctx context.Context, clientAddress, groupID string, params interfaces.QueryParams) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("GroupMessages", clientAddress); err != nil {
		return nil, err
	}
	g, err := s.group(clientAddress, groupID)
	if err != nil {
		return nil, err
	}
	return filterMessages(s.messages[g.topic], params), nil
}

func openEnvelope(encryptedMessage string) (MessageRecord, error) {
	var rec MessageRecord
	data, err := base64.StdEncoding.DecodeString(encryptedMessage)
	if err != nil {
		return rec, fmt.Errorf("cannot decrypt envelope: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("cannot decrypt envelope: %w", err)
	}
	return rec, nil
}

// DecodeMessage implements IMessageEngine.DecodeMessage.
func (s *SimulatedEngine) DecodeMessage(ctx context.Context, clientAddress, topic, encryptedMessage string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("DecodeMessage", clientAddress); err != nil {
		return "", err
	}
	rec, err := openEnvelope(encryptedMessage)
	if err != nil {
		return "", err
	}
	if rec.Topic != topic {
		return "", fmt.Errorf("envelope belongs to topic %s", rec.Topic)
	}
	return rec.raw(), nil
}

// ProcessGroupMessage implements IMessageEngine.ProcessGroupMessage.
func (s *SimulatedEngine) ProcessGroupMessage(ctx context.Context, clientAddress, groupID, encryptedMessage string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("ProcessGroupMessage", clientAddress); err != nil {
		return "", err
	}
	g, err := s.group(clientAddress, groupID)
	if err != nil {
		return "", err
	}
	rec, err := openEnvelope(encryptedMessage)
	if err != nil {
		return "", err
	}
	if rec.Topic != g.topic {
		return "", fmt.Errorf("envelope does not belong to group %s", groupID)
	}
	return rec.raw(), nil
}
