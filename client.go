package xmtpcore

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/xmtpcore/consent"
	"github.com/opd-ai/xmtpcore/conversation"
	"github.com/opd-ai/xmtpcore/crypto"
	"github.com/opd-ai/xmtpcore/interfaces"
	"github.com/opd-ai/xmtpcore/messaging"
)

// Client is the API for one authenticated address. Clients are created by a
// Registry and share its engine, codecs, streams and outbox.
type Client struct {
	registry *Registry
	address  string

	conversations *conversation.Lister
	messages      *messaging.Store
	consent       *consent.Store

	closeOnce sync.Once
	closeErr  error
}

func newClient(r *Registry, address string) *Client {
	return &Client{
		registry:      r,
		address:       address,
		conversations: conversation.NewLister(r.engine, address),
		messages:      messaging.NewStore(r.engine, r.pipeline, address),
		consent:       r.consent.ForClient(address),
	}
}

// Address returns the client's checksummed account address.
func (c *Client) Address() string {
	return c.address
}

func (c *Client) engineError(op string, err error) error {
	if err == nil {
		return nil
	}
	logrus.WithFields(logrus.Fields{
		"function":       op,
		"client_address": c.address,
		"error":          err.Error(),
	}).Error("Engine call failed")
	return interfaces.WrapEngineError(op, c.address, err)
}

// ExportKeyBundle exports the key bundle CreateFromKeyBundle accepts.
func (c *Client) ExportKeyBundle(ctx context.Context) (string, error) {
	bundle, err := c.registry.engine.ExportKeyBundle(ctx, c.address)
	return bundle, c.engineError("ExportKeyBundle", err)
}

// ExportPublicKeyBundle exports the public half of the client's keys, the
// form peers use to address it.
func (c *Client) ExportPublicKeyBundle(ctx context.Context) ([]byte, error) {
	bundle, err := c.registry.engine.ExportPublicKeyBundle(ctx, c.address)
	return bundle, c.engineError("ExportPublicKeyBundle", err)
}

// CanMessage reports whether peerAddress is on the network.
func (c *Client) CanMessage(ctx context.Context, peerAddress string) (bool, error) {
	ok, err := c.registry.engine.CanMessage(ctx, c.address, crypto.NormalizeAddress(peerAddress))
	return ok, c.engineError("CanMessage", err)
}

// CanGroupMessage reports whether every peer can be added to a group.
func (c *Client) CanGroupMessage(ctx context.Context, peerAddresses []string) (bool, error) {
	normalized := make([]string, len(peerAddresses))
	for i, a := range peerAddresses {
		normalized[i] = crypto.NormalizeAddress(a)
	}
	ok, err := c.registry.engine.CanGroupMessage(ctx, c.address, normalized)
	return ok, c.engineError("CanGroupMessage", err)
}

func (c *Client) CreateConversation(ctx context.Context, peerAddress string, convCtx *conversation.ConversationContext) (*conversation.Container, error) {
	return c.conversations.CreateConversation(ctx, peerAddress, convCtx)
}

func (c *Client) CreateGroup(ctx context.Context, peerAddresses []string, level conversation.PermissionLevel) (*conversation.Container, error) {
	return c.conversations.CreateGroup(ctx, peerAddresses, level)
}

func (c *Client) ListConversations(ctx context.Context) ([]*conversation.Container, error) {
	return c.conversations.ListConversations(ctx)
}

func (c *Client) ListGroups(ctx context.Context) ([]*conversation.Container, error) {
	return c.conversations.ListGroups(ctx)
}

// ListAll returns conversations and groups in the order the engine gives.
func (c *Client) ListAll(ctx context.Context) ([]*conversation.Container, error) {
	return c.conversations.ListAll(ctx)
}

func (c *Client) ListMemberAddresses(ctx context.Context, groupID string) ([]string, error) {
	return c.conversations.ListMemberAddresses(ctx, groupID)
}

func (c *Client) AddGroupMembers(ctx context.Context, groupID string, addresses []string) error {
	return c.conversations.AddGroupMembers(ctx, groupID, addresses)
}

func (c *Client) RemoveGroupMembers(ctx context.Context, groupID string, addresses []string) error {
	return c.conversations.RemoveGroupMembers(ctx, groupID, addresses)
}

func (c *Client) IsGroupActive(ctx context.Context, groupID string) (bool, error) {
	return c.conversations.IsGroupActive(ctx, groupID)
}

func (c *Client) AddedByAddress(ctx context.Context, groupID string) (string, error) {
	return c.conversations.AddedByAddress(ctx, groupID)
}

func (c *Client) IsGroupAdmin(ctx context.Context, groupID string) (bool, error) {
	return c.conversations.IsGroupAdmin(ctx, groupID)
}

func (c *Client) SyncGroups(ctx context.Context) error {
	return c.conversations.SyncGroups(ctx)
}

func (c *Client) SyncGroup(ctx context.Context, groupID string) error {
	return c.conversations.SyncGroup(ctx, groupID)
}

func (c *Client) ProcessWelcomeMessage(ctx context.Context, encryptedMessage string) (*conversation.Container, error) {
	return c.conversations.ProcessWelcomeMessage(ctx, encryptedMessage)
}

func (c *Client) ExportConversationTopicData(ctx context.Context, topic string) (string, error) {
	return c.conversations.ExportConversationTopicData(ctx, topic)
}

func (c *Client) ImportConversationTopicData(ctx context.Context, topicData string) (*conversation.Container, error) {
	return c.conversations.ImportConversationTopicData(ctx, topicData)
}

// Close closes the client's streams and drops its consent cache. The
// registry forgets the client; a later Auth creates a fresh one.
func (c *Client) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.closeErr = c.registry.streams.CloseClient(ctx, c.address)
		c.registry.detach(c.address)

		logrus.WithFields(logrus.Fields{
			"function":       "Close",
			"client_address": c.address,
		}).Info("Client closed")
	})
	return c.closeErr
}
