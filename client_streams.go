package xmtpcore

import (
	"context"

	"github.com/opd-ai/xmtpcore/interfaces"
	"github.com/opd-ai/xmtpcore/stream"
)

func (c *Client) key(kind interfaces.StreamKind, scope string) interfaces.StreamKey {
	return interfaces.StreamKey{ClientAddress: c.address, Kind: kind, ScopeID: scope}
}

func (c *Client) subscribe(ctx context.Context, kind interfaces.StreamKind, scope string, opts interfaces.StreamOptions) error {
	return c.registry.streams.Subscribe(ctx, c.key(kind, scope), opts)
}

func (c *Client) unsubscribe(ctx context.Context, kind interfaces.StreamKind, scope string) error {
	return c.registry.streams.Unsubscribe(ctx, c.key(kind, scope))
}

// Subscribe registers handler for events of this client's streams. Events
// published for other clients of the registry are never passed to it; use
// Registry.Events to observe every client.
func (c *Client) Subscribe(name stream.EventName, handler stream.Handler) *stream.Subscription {
	address := c.address
	return c.registry.streams.Bus().Subscribe(name, func(e stream.Event) {
		if e.ClientAddress != address {
			return
		}
		handler(e)
	})
}

// SubscribeToConversations publishes new conversations as
// stream.EventConversation.
func (c *Client) SubscribeToConversations(ctx context.Context) error {
	return c.subscribe(ctx, interfaces.StreamConversations, "", interfaces.StreamOptions{})
}

func (c *Client) UnsubscribeFromConversations(ctx context.Context) error {
	return c.unsubscribe(ctx, interfaces.StreamConversations, "")
}

// SubscribeToGroups publishes new groups as stream.EventGroup.
func (c *Client) SubscribeToGroups(ctx context.Context) error {
	return c.subscribe(ctx, interfaces.StreamGroups, "", interfaces.StreamOptions{})
}

func (c *Client) UnsubscribeFromGroups(ctx context.Context) error {
	return c.unsubscribe(ctx, interfaces.StreamGroups, "")
}

// SubscribeToAll publishes new conversations and groups as
// stream.EventConversationContainer.
func (c *Client) SubscribeToAll(ctx context.Context) error {
	return c.subscribe(ctx, interfaces.StreamAll, "", interfaces.StreamOptions{})
}

func (c *Client) UnsubscribeFromAll(ctx context.Context) error {
	return c.unsubscribe(ctx, interfaces.StreamAll, "")
}

// SubscribeToAllMessages publishes every conversation message as
// stream.EventMessage, and group messages too when includeGroups is set.
// Changing includeGroups on an open stream requires unsubscribing first.
func (c *Client) SubscribeToAllMessages(ctx context.Context, includeGroups bool) error {
	return c.subscribe(ctx, interfaces.StreamAllMessages, "", interfaces.StreamOptions{IncludeGroups: includeGroups})
}

func (c *Client) UnsubscribeFromAllMessages(ctx context.Context) error {
	return c.unsubscribe(ctx, interfaces.StreamAllMessages, "")
}

// SubscribeToAllGroupMessages publishes every group message as
// stream.EventAllGroupMessage.
func (c *Client) SubscribeToAllGroupMessages(ctx context.Context) error {
	return c.subscribe(ctx, interfaces.StreamAllGroupMessages, "", interfaces.StreamOptions{})
}

func (c *Client) UnsubscribeFromAllGroupMessages(ctx context.Context) error {
	return c.unsubscribe(ctx, interfaces.StreamAllGroupMessages, "")
}

// SubscribeToMessages publishes messages on one topic as
// stream.EventConversationMessage.
func (c *Client) SubscribeToMessages(ctx context.Context, topic string) error {
	return c.subscribe(ctx, interfaces.StreamMessages, topic, interfaces.StreamOptions{})
}

func (c *Client) UnsubscribeFromMessages(ctx context.Context, topic string) error {
	return c.unsubscribe(ctx, interfaces.StreamMessages, topic)
}

// SubscribeToGroupMessages publishes messages in one group as
// stream.EventGroupMessage.
func (c *Client) SubscribeToGroupMessages(ctx context.Context, groupID string) error {
	return c.subscribe(ctx, interfaces.StreamGroupMessages, groupID, interfaces.StreamOptions{})
}

func (c *Client) UnsubscribeFromGroupMessages(ctx context.Context, groupID string) error {
	return c.unsubscribe(ctx, interfaces.StreamGroupMessages, groupID)
}
