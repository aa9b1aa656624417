package interfaces

import "context"

// IIdentityEngine covers account creation and session lifecycle. Key
// generation and signing happen entirely inside the engine.
type IIdentityEngine interface {
	// Auth opens a session for an existing address
	Auth(ctx context.Context, address string, opts AuthOptions) error

	// CreateRandom creates a new identity and returns its address
	CreateRandom(ctx context.Context, opts AuthOptions) (string, error)

	// CreateFromKeyBundle restores an identity from an exported key bundle
	CreateFromKeyBundle(ctx context.Context, keyBundle string, opts AuthOptions) (string, error)

	// DeleteLocalDatabase removes the engine's local store for an address
	DeleteLocalDatabase(ctx context.Context, address string) error

	// ExportKeyBundle exports the client's key bundle
	ExportKeyBundle(ctx context.Context, clientAddress string) (string, error)

	// ExportPublicKeyBundle exports only the public half of the key bundle
	ExportPublicKeyBundle(ctx context.Context, clientAddress string) ([]byte, error)

	// CanMessage reports whether the peer is reachable on the network
	CanMessage(ctx context.Context, clientAddress, peerAddress string) (bool, error)

	// CanGroupMessage reports whether every peer can join a group
	CanGroupMessage(ctx context.Context, clientAddress string, peerAddresses []string) (bool, error)

	// StaticCanMessage checks reachability without an authenticated client
	StaticCanMessage(ctx context.Context, peerAddress string, opts AuthOptions) (bool, error)
}

// IConversationEngine covers pairwise conversations and groups. Records are
// returned as flat JSON objects.
type IConversationEngine interface {
	CreateConversation(ctx context.Context, clientAddress, peerAddress, contextJSON string) (string, error)
	CreateGroup(ctx context.Context, clientAddress string, peerAddresses []string, permissionLevel string) (string, error)
	ListConversations(ctx context.Context, clientAddress string) ([]string, error)
	ListGroups(ctx context.Context, clientAddress string) ([]string, error)
	ListAll(ctx context.Context, clientAddress string) ([]string, error)
	ListMemberAddresses(ctx context.Context, clientAddress, groupID string) ([]string, error)
	AddGroupMembers(ctx context.Context, clientAddress, groupID string, addresses []string) error
	RemoveGroupMembers(ctx context.Context, clientAddress, groupID string, addresses []string) error
	IsGroupActive(ctx context.Context, clientAddress, groupID string) (bool, error)
	AddedByAddress(ctx context.Context, clientAddress, groupID string) (string, error)
	IsGroupAdmin(ctx context.Context, clientAddress, groupID string) (bool, error)
	SyncGroups(ctx context.Context, clientAddress string) error
	SyncGroup(ctx context.Context, clientAddress, groupID string) error
	ProcessWelcomeMessage(ctx context.Context, clientAddress, encryptedMessage string) (string, error)
	ExportConversationTopicData(ctx context.Context, clientAddress, topic string) (string, error)
	ImportConversationTopicData(ctx context.Context, clientAddress, topicData string) (string, error)
}

// IMessageEngine covers sending encoded content and listing raw message
// records. Encoded content is the serialized EncodedContent envelope.
type IMessageEngine interface {
	// SendEncodedContent sends to a conversation topic and returns the message id
	SendEncodedContent(ctx context.Context, clientAddress, topic string, encoded []byte) (string, error)

	// SendEncodedContentToGroup sends to a group and returns the message id
	SendEncodedContentToGroup(ctx context.Context, clientAddress, groupID string, encoded []byte) (string, error)

	// PrepareEncodedMessage encrypts without publishing and returns a
	// PreparedLocalMessage record
	PrepareEncodedMessage(ctx context.Context, clientAddress, topic string, encoded []byte) (string, error)

	// SendPreparedMessage publishes a previously prepared message
	SendPreparedMessage(ctx context.Context, clientAddress, preparedJSON string) (string, error)

	// LoadMessages lists raw message records for one topic
	LoadMessages(ctx context.Context, clientAddress string, params QueryParams) ([]string, error)

	// GroupMessages lists raw message records for one group
	GroupMessages(ctx context.Context, clientAddress, groupID string, params QueryParams) ([]string, error)

	// DecodeMessage decrypts a single conversation envelope into a raw record
	DecodeMessage(ctx context.Context, clientAddress, topic, encryptedMessage string) (string, error)

	// ProcessGroupMessage decrypts a single group envelope into a raw record
	ProcessGroupMessage(ctx context.Context, clientAddress, groupID, encryptedMessage string) (string, error)
}

// IConsentEngine holds the authoritative consent list.
type IConsentEngine interface {
	// UpdateConsent persists consent records for the client
	UpdateConsent(ctx context.Context, clientAddress string, records []ConsentRecord) error

	// RefreshConsentList returns the authoritative list as JSON records
	RefreshConsentList(ctx context.Context, clientAddress string) ([]string, error)

	// ConversationConsentState returns the consent state for a conversation topic
	ConversationConsentState(ctx context.Context, clientAddress, topic string) (string, error)
}

// IStreamEngine opens and closes push streams. The engine calls push once per
// inbound record, in delivery order, for as long as the stream is open.
type IStreamEngine interface {
	OpenStream(ctx context.Context, key StreamKey, opts StreamOptions, push PushFunc) error
	CloseStream(ctx context.Context, key StreamKey) error
}

// IMessagingEngine is the full contract of the external messaging engine.
type IMessagingEngine interface {
	IIdentityEngine
	IConversationEngine
	IMessageEngine
	IConsentEngine
	IStreamEngine
}
