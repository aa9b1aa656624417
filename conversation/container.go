package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the container variant.
type Kind uint8

const (
	KindConversation Kind = iota
	KindGroup
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindConversation:
		return "conversation"
	case KindGroup:
		return "group"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Version discriminants carried by engine records.
const (
	VersionV1    = "v1"
	VersionV2    = "v2"
	VersionGroup = "GROUP"
)

// ConversationContext scopes a pairwise conversation to an application
// conversation id.
type ConversationContext struct {
	ConversationID string            `json:"conversationID"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

func (c *ConversationContext) clone() *ConversationContext {
	if c == nil {
		return nil
	}
	out := &ConversationContext{ConversationID: c.ConversationID}
	if c.Metadata != nil {
		out.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// WrongVariantError is returned when a variant-specific accessor is called
// on the other variant.
type WrongVariantError struct {
	Accessor string
	Want     Kind
	Got      Kind
}

func (e *WrongVariantError) Error() string {
	return fmt.Sprintf("%s is only available on a %s, container is a %s", e.Accessor, e.Want, e.Got)
}

// record is the flat JSON shape the engine produces for both variants.
type record struct {
	ClientAddress  string               `json:"clientAddress"`
	ID             string               `json:"id,omitempty"`
	Topic          string               `json:"topic"`
	CreatedAt      int64                `json:"createdAt"`
	Version        string               `json:"version"`
	PeerAddress    string               `json:"peerAddress,omitempty"`
	ConversationID string               `json:"conversationID,omitempty"`
	Context        *ConversationContext `json:"context,omitempty"`
	Members        []Member             `json:"members,omitempty"`
	CreatorInboxID string               `json:"creatorInboxId,omitempty"`
	IsActive       *bool                `json:"isActive,omitempty"`
	AddedByInboxID string               `json:"addedByInboxId,omitempty"`
	Name           string               `json:"name,omitempty"`
	ImageURLSquare string               `json:"imageUrlSquare,omitempty"`
	Description    string               `json:"description,omitempty"`
}

type pairwise struct {
	peerAddress string
	context     *ConversationContext
}

type group struct {
	members        []Member
	creatorInboxID string
	isActive       bool
	addedByInboxID string
	name           string
	imageURLSquare string
	description    string
}

// Container holds either a pairwise conversation or a group. The variant is
// fixed at construction by the record's version field; accessors for the
// other variant return *WrongVariantError.
type Container struct {
	kind          Kind
	id            string
	topic         string
	createdAt     int64
	clientAddress string
	version       string

	conversation *pairwise
	group        *group
}

// ParseRecord builds a container from an engine record. A version of
// "GROUP" selects the group variant; anything else, including unknown
// versions, selects the conversation variant.
func ParseRecord(raw string) (*Container, error) {
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("parse conversation record: %w", err)
	}
	return fromRecord(rec)
}

// ParseRecords parses records in the order given.
func ParseRecords(raws []string) ([]*Container, error) {
	out := make([]*Container, 0, len(raws))
	for i, raw := range raws {
		c, err := ParseRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func fromRecord(rec record) (*Container, error) {
	c := &Container{
		id:            rec.ID,
		topic:         rec.Topic,
		createdAt:     rec.CreatedAt,
		clientAddress: rec.ClientAddress,
		version:       rec.Version,
	}

	if rec.Version == VersionGroup {
		if rec.ID == "" {
			return nil, errors.New("group record has no id")
		}
		c.kind = KindGroup
		active := true
		if rec.IsActive != nil {
			active = *rec.IsActive
		}
		c.group = &group{
			members:        dedupeMembers(rec.Members),
			creatorInboxID: rec.CreatorInboxID,
			isActive:       active,
			addedByInboxID: rec.AddedByInboxID,
			name:           rec.Name,
			imageURLSquare: rec.ImageURLSquare,
			description:    rec.Description,
		}
		return c, nil
	}

	if rec.Topic == "" {
		return nil, errors.New("conversation record has no topic")
	}
	c.kind = KindConversation
	if c.id == "" {
		c.id = rec.Topic
	}
	convCtx := rec.Context
	if convCtx == nil && rec.ConversationID != "" {
		convCtx = &ConversationContext{ConversationID: rec.ConversationID}
	}
	if convCtx != nil && convCtx.ConversationID == "" && len(convCtx.Metadata) == 0 {
		convCtx = nil
	}
	c.conversation = &pairwise{
		peerAddress: rec.PeerAddress,
		context:     convCtx.clone(),
	}
	return c, nil
}

func (c *Container) Kind() Kind { return c.kind }

// IsGroup reports whether the container is the group variant.
func (c *Container) IsGroup() bool { return c.kind == KindGroup }

// ID is the group id, or the topic for a pairwise conversation.
func (c *Container) ID() string { return c.id }

func (c *Container) Topic() string { return c.topic }

// CreatedAt is the creation time in epoch milliseconds.
func (c *Container) CreatedAt() int64 { return c.createdAt }

func (c *Container) ClientAddress() string { return c.clientAddress }

func (c *Container) Version() string { return c.version }

func (c *Container) requireGroup(accessor string) (*group, error) {
	if c.kind != KindGroup {
		return nil, &WrongVariantError{Accessor: accessor, Want: KindGroup, Got: c.kind}
	}
	return c.group, nil
}

func (c *Container) requireConversation(accessor string) (*pairwise, error) {
	if c.kind != KindConversation {
		return nil, &WrongVariantError{Accessor: accessor, Want: KindConversation, Got: c.kind}
	}
	return c.conversation, nil
}

// Members returns a copy of the group's members in record order.
func (c *Container) Members() ([]Member, error) {
	g, err := c.requireGroup("Members")
	if err != nil {
		return nil, err
	}
	out := make([]Member, len(g.members))
	for i, m := range g.members {
		out[i] = m.clone()
	}
	return out, nil
}

// MemberInboxIDs returns the inbox id of each member in record order.
func (c *Container) MemberInboxIDs() ([]string, error) {
	g, err := c.requireGroup("MemberInboxIDs")
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(g.members))
	for i, m := range g.members {
		ids[i] = m.InboxID
	}
	return ids, nil
}

func (c *Container) CreatorInboxID() (string, error) {
	g, err := c.requireGroup("CreatorInboxID")
	if err != nil {
		return "", err
	}
	return g.creatorInboxID, nil
}

// IsActive is false once the client has been removed from the group.
func (c *Container) IsActive() (bool, error) {
	g, err := c.requireGroup("IsActive")
	if err != nil {
		return false, err
	}
	return g.isActive, nil
}

func (c *Container) AddedByInboxID() (string, error) {
	g, err := c.requireGroup("AddedByInboxID")
	if err != nil {
		return "", err
	}
	return g.addedByInboxID, nil
}

func (c *Container) Name() (string, error) {
	g, err := c.requireGroup("Name")
	if err != nil {
		return "", err
	}
	return g.name, nil
}

func (c *Container) ImageURLSquare() (string, error) {
	g, err := c.requireGroup("ImageURLSquare")
	if err != nil {
		return "", err
	}
	return g.imageURLSquare, nil
}

func (c *Container) Description() (string, error) {
	g, err := c.requireGroup("Description")
	if err != nil {
		return "", err
	}
	return g.description, nil
}

func (c *Container) PeerAddress() (string, error) {
	p, err := c.requireConversation("PeerAddress")
	if err != nil {
		return "", err
	}
	return p.peerAddress, nil
}

// ConversationContext returns a copy of the context, or nil when the
// conversation has none.
func (c *Container) ConversationContext() (*ConversationContext, error) {
	p, err := c.requireConversation("ConversationContext")
	if err != nil {
		return nil, err
	}
	return p.context.clone(), nil
}

// MarshalJSON renders the container in the engine's record shape.
func (c *Container) MarshalJSON() ([]byte, error) {
	rec := record{
		ClientAddress: c.clientAddress,
		Topic:         c.topic,
		CreatedAt:     c.createdAt,
		Version:       c.version,
	}
	switch c.kind {
	case KindGroup:
		active := c.group.isActive
		rec.ID = c.id
		rec.Members = c.group.members
		rec.CreatorInboxID = c.group.creatorInboxID
		rec.IsActive = &active
		rec.AddedByInboxID = c.group.addedByInboxID
		rec.Name = c.group.name
		rec.ImageURLSquare = c.group.imageURLSquare
		rec.Description = c.group.description
	default:
		rec.PeerAddress = c.conversation.peerAddress
		rec.Context = c.conversation.context
		if rec.Context != nil {
			rec.ConversationID = rec.Context.ConversationID
		}
	}
	return json.Marshal(rec)
}
