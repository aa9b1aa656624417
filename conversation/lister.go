package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/xmtpcore/crypto"
	"github.com/opd-ai/xmtpcore/interfaces"
)

// Lister performs conversation and group operations for one client address.
type Lister struct {
	engine        interfaces.IConversationEngine
	clientAddress string
}

// NewLister creates a lister bound to clientAddress.
func NewLister(engine interfaces.IConversationEngine, clientAddress string) *Lister {
	return &Lister{engine: engine, clientAddress: clientAddress}
}

// ClientAddress returns the owning client address.
func (l *Lister) ClientAddress() string {
	return l.clientAddress
}

// ListConversations returns pairwise conversations in engine order.
func (l *Lister) ListConversations(ctx context.Context) ([]*Container, error) {
	return l.list(ctx, "ListConversations", l.engine.ListConversations)
}

// ListGroups returns groups in engine order.
func (l *Lister) ListGroups(ctx context.Context) ([]*Container, error) {
	return l.list(ctx, "ListGroups", l.engine.ListGroups)
}

// ListAll returns conversations and groups interleaved exactly as the engine
// delivers them. Each record picks its variant from its own version field.
func (l *Lister) ListAll(ctx context.Context) ([]*Container, error) {
	return l.list(ctx, "ListAll", l.engine.ListAll)
}

func (l *Lister) list(ctx context.Context, op string, fetch func(context.Context, string) ([]string, error)) ([]*Container, error) {
	raws, err := fetch(ctx, l.clientAddress)
	if err != nil {
		return nil, l.engineError(op, err)
	}
	containers, err := ParseRecords(raws)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logrus.WithFields(logrus.Fields{
		"function":       op,
		"client_address": l.clientAddress,
		"count":          len(containers),
	}).Debug("Listed conversations")

	return containers, nil
}

// CreateConversation opens a pairwise conversation with peerAddress. The
// context may be nil.
func (l *Lister) CreateConversation(ctx context.Context, peerAddress string, convCtx *ConversationContext) (*Container, error) {
	contextJSON := "{}"
	if convCtx != nil {
		data, err := json.Marshal(convCtx)
		if err != nil {
			return nil, fmt.Errorf("encode conversation context: %w", err)
		}
		contextJSON = string(data)
	}

	raw, err := l.engine.CreateConversation(ctx, l.clientAddress, crypto.NormalizeAddress(peerAddress), contextJSON)
	if err != nil {
		return nil, l.engineError("CreateConversation", err)
	}
	return l.parseCreated("CreateConversation", raw)
}

// CreateGroup creates a group with the given peers. An empty level means
// PermissionEveryoneAdmin.
func (l *Lister) CreateGroup(ctx context.Context, peerAddresses []string, level PermissionLevel) (*Container, error) {
	level, err := ValidateGroupPermission(level)
	if err != nil {
		return nil, err
	}

	raw, err := l.engine.CreateGroup(ctx, l.clientAddress, normalizeAll(peerAddresses), string(level))
	if err != nil {
		return nil, l.engineError("CreateGroup", err)
	}
	return l.parseCreated("CreateGroup", raw)
}

func (l *Lister) parseCreated(op, raw string) (*Container, error) {
	c, err := ParseRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logrus.WithFields(logrus.Fields{
		"function":       op,
		"client_address": l.clientAddress,
		"kind":           c.Kind().String(),
		"id":             c.ID(),
	}).Info("Conversation created")

	return c, nil
}

// ListMemberAddresses returns the account addresses of a group's members.
func (l *Lister) ListMemberAddresses(ctx context.Context, groupID string) ([]string, error) {
	addresses, err := l.engine.ListMemberAddresses(ctx, l.clientAddress, groupID)
	if err != nil {
		return nil, l.engineError("ListMemberAddresses", err)
	}
	return addresses, nil
}

func (l *Lister) AddGroupMembers(ctx context.Context, groupID string, addresses []string) error {
	err := l.engine.AddGroupMembers(ctx, l.clientAddress, groupID, normalizeAll(addresses))
	return l.engineError("AddGroupMembers", err)
}

func (l *Lister) RemoveGroupMembers(ctx context.Context, groupID string, addresses []string) error {
	err := l.engine.RemoveGroupMembers(ctx, l.clientAddress, groupID, normalizeAll(addresses))
	return l.engineError("RemoveGroupMembers", err)
}

func (l *Lister) IsGroupActive(ctx context.Context, groupID string) (bool, error) {
	active, err := l.engine.IsGroupActive(ctx, l.clientAddress, groupID)
	return active, l.engineError("IsGroupActive", err)
}

// AddedByAddress returns the inbox id of the member who added this client.
func (l *Lister) AddedByAddress(ctx context.Context, groupID string) (string, error) {
	addedBy, err := l.engine.AddedByAddress(ctx, l.clientAddress, groupID)
	return addedBy, l.engineError("AddedByAddress", err)
}

func (l *Lister) IsGroupAdmin(ctx context.Context, groupID string) (bool, error) {
	admin, err := l.engine.IsGroupAdmin(ctx, l.clientAddress, groupID)
	return admin, l.engineError("IsGroupAdmin", err)
}

// SyncGroups pulls new groups from the network into the engine's store.
func (l *Lister) SyncGroups(ctx context.Context) error {
	return l.engineError("SyncGroups", l.engine.SyncGroups(ctx, l.clientAddress))
}

// SyncGroup pulls new messages and membership for one group.
func (l *Lister) SyncGroup(ctx context.Context, groupID string) error {
	return l.engineError("SyncGroup", l.engine.SyncGroup(ctx, l.clientAddress, groupID))
}

// ProcessWelcomeMessage joins the group described by an encrypted welcome.
func (l *Lister) ProcessWelcomeMessage(ctx context.Context, encryptedMessage string) (*Container, error) {
	raw, err := l.engine.ProcessWelcomeMessage(ctx, l.clientAddress, encryptedMessage)
	if err != nil {
		return nil, l.engineError("ProcessWelcomeMessage", err)
	}
	c, err := ParseRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("ProcessWelcomeMessage: %w", err)
	}
	return c, nil
}

// ExportConversationTopicData exports the key material for a topic so
// another installation can import it.
func (l *Lister) ExportConversationTopicData(ctx context.Context, topic string) (string, error) {
	data, err := l.engine.ExportConversationTopicData(ctx, l.clientAddress, topic)
	return data, l.engineError("ExportConversationTopicData", err)
}

// ImportConversationTopicData restores a conversation from exported data.
func (l *Lister) ImportConversationTopicData(ctx context.Context, topicData string) (*Container, error) {
	raw, err := l.engine.ImportConversationTopicData(ctx, l.clientAddress, topicData)
	if err != nil {
		return nil, l.engineError("ImportConversationTopicData", err)
	}
	c, err := ParseRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("ImportConversationTopicData: %w", err)
	}
	return c, nil
}

func (l *Lister) engineError(op string, err error) error {
	if err == nil {
		return nil
	}
	logrus.WithFields(logrus.Fields{
		"function":       op,
		"client_address": l.clientAddress,
		"error":          err.Error(),
	}).Error("Engine call failed")
	return interfaces.WrapEngineError(op, l.clientAddress, err)
}

func normalizeAll(addresses []string) []string {
	out := make([]string, len(addresses))
	for i, a := range addresses {
		out[i] = crypto.NormalizeAddress(a)
	}
	return out
}
