package interfaces

import "fmt"

// Environment names accepted by the engine.
const (
	EnvironmentLocal      = "local"
	EnvironmentDev        = "dev"
	EnvironmentProduction = "production"
)

// AuthOptions carries the arguments shaped for identity calls.
type AuthOptions struct {
	Environment               string
	AppVersion                string
	HasCreateIdentityCallback bool
	HasEnableIdentityCallback bool
	EnableAlphaMLS            bool
	DBEncryptionKey           []byte
	DBPath                    string
}

// SortDirection orders message listings.
type SortDirection string

const (
	SortAscending  SortDirection = "SORT_DIRECTION_ASCENDING"
	SortDescending SortDirection = "SORT_DIRECTION_DESCENDING"
)

// QueryParams is a normalized, topic-scoped listing request. Bounds are epoch
// milliseconds; zero means unbounded.
type QueryParams struct {
	Topic     string        `json:"topic"`
	Limit     int           `json:"limit"`
	Before    int64         `json:"before"`
	After     int64         `json:"after"`
	Direction SortDirection `json:"direction"`
}

// PreparedLocalMessage is the engine's handle for a message that has been
// encrypted but not yet published.
type PreparedLocalMessage struct {
	MessageID       string `json:"messageId"`
	PreparedFileURI string `json:"preparedFileUri"`
	PreparedAt      int64  `json:"preparedAt"`
}

// ConsentRecord is one consent write crossing the engine boundary.
type ConsentRecord struct {
	Value     string `json:"value"`
	EntryType string `json:"entryType"`
	State     string `json:"permissionType"`
}

// StreamKind identifies what a stream delivers.
type StreamKind uint8

const (
	StreamConversations StreamKind = iota
	StreamGroups
	StreamAll
	StreamMessages
	StreamGroupMessages
	StreamAllMessages
	StreamAllGroupMessages
)

// String returns the stream kind name.
func (k StreamKind) String() string {
	switch k {
	case StreamConversations:
		return "conversations"
	case StreamGroups:
		return "groups"
	case StreamAll:
		return "all"
	case StreamMessages:
		return "messages"
	case StreamGroupMessages:
		return "groupMessages"
	case StreamAllMessages:
		return "allMessages"
	case StreamAllGroupMessages:
		return "allGroupMessages"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Scoped reports whether streams of this kind require a scope id.
func (k StreamKind) Scoped() bool {
	return k == StreamMessages || k == StreamGroupMessages
}

// StreamKey identifies one stream. ScopeID is the topic or group id for
// scoped kinds and empty otherwise.
type StreamKey struct {
	ClientAddress string
	Kind          StreamKind
	ScopeID       string
}

// String renders the key for logging.
func (k StreamKey) String() string {
	if k.ScopeID == "" {
		return fmt.Sprintf("%s/%s", k.ClientAddress, k.Kind)
	}
	return fmt.Sprintf("%s/%s/%s", k.ClientAddress, k.Kind, k.ScopeID)
}

// StreamOptions tunes how the engine opens a stream.
type StreamOptions struct {
	// IncludeGroups makes an allMessages stream carry group messages too
	IncludeGroups bool
}

// PushFunc receives one raw JSON record from an open stream.
type PushFunc func(raw string)
