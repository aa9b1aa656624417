package xmtpcore

import (
	"context"

	"github.com/opd-ai/xmtpcore/consent"
)

func (c *Client) AllowContacts(ctx context.Context, addresses []string) error {
	return c.consent.Allow(ctx, consent.EntryAddress, addresses)
}

func (c *Client) DenyContacts(ctx context.Context, addresses []string) error {
	return c.consent.Deny(ctx, consent.EntryAddress, addresses)
}

func (c *Client) AllowGroups(ctx context.Context, groupIDs []string) error {
	return c.consent.Allow(ctx, consent.EntryGroupID, groupIDs)
}

func (c *Client) DenyGroups(ctx context.Context, groupIDs []string) error {
	return c.consent.Deny(ctx, consent.EntryGroupID, groupIDs)
}

// IsAllowed reads the local cache only.
func (c *Client) IsAllowed(address string) bool {
	return c.consent.IsAllowed(address)
}

func (c *Client) IsDenied(address string) bool {
	return c.consent.IsDenied(address)
}

func (c *Client) IsGroupAllowed(groupID string) bool {
	return c.consent.IsGroupAllowed(groupID)
}

func (c *Client) IsGroupDenied(groupID string) bool {
	return c.consent.IsGroupDenied(groupID)
}

// ConsentList returns the cached entries in first-seen order.
func (c *Client) ConsentList() []consent.Entry {
	return c.consent.List()
}

// RefreshConsentList replaces the cache with the engine's list.
func (c *Client) RefreshConsentList(ctx context.Context) ([]consent.Entry, error) {
	return c.consent.Refresh(ctx)
}

func (c *Client) ConversationConsentState(ctx context.Context, topic string) (consent.State, error) {
	return c.consent.ConversationState(ctx, topic)
}
