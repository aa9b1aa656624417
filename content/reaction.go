package content

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ContentTypeReaction is a reaction to an earlier message.
var ContentTypeReaction = TypeID{AuthorityID: "xmtp.org", TypeID: "reaction", VersionMajor: 1, VersionMinor: 0}

// ReactionAction says whether a reaction is added or removed.
type ReactionAction string

const (
	ReactionAdded   ReactionAction = "added"
	ReactionRemoved ReactionAction = "removed"
)

// ReactionSchema says how Content is to be interpreted.
type ReactionSchema string

const (
	ReactionUnicode   ReactionSchema = "unicode"
	ReactionShortcode ReactionSchema = "shortcode"
	ReactionCustom    ReactionSchema = "custom"
)

// Reaction references an earlier message by id.
type Reaction struct {
	Reference string         `json:"reference"`
	Action    ReactionAction `json:"action"`
	Content   string         `json:"content"`
	Schema    ReactionSchema `json:"schema"`
}

func (r Reaction) validate() error {
	if r.Reference == "" {
		return errors.New("reaction reference is required")
	}
	switch r.Action {
	case ReactionAdded, ReactionRemoved:
	default:
		return fmt.Errorf("invalid reaction action %q", r.Action)
	}
	switch r.Schema {
	case ReactionUnicode, ReactionShortcode, ReactionCustom:
	default:
		return fmt.Errorf("invalid reaction schema %q", r.Schema)
	}
	return nil
}

// ReactionCodec encodes Reaction values as JSON.
type ReactionCodec struct{}

func (ReactionCodec) ContentType() TypeID { return ContentTypeReaction }

func (ReactionCodec) Encode(value any) (*EncodedContent, error) {
	reaction, ok := asReaction(value)
	if !ok {
		return nil, unexpectedValue("reaction", value)
	}
	if err := reaction.validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(reaction)
	if err != nil {
		return nil, err
	}
	return &EncodedContent{Type: ContentTypeReaction, Content: payload}, nil
}

// Decode accepts the JSON payload and the legacy form that carried
// reference, action and schema as parameters with the emoji as payload.
func (ReactionCodec) Decode(encoded *EncodedContent) (any, error) {
	var reaction Reaction
	if err := json.Unmarshal(encoded.Content, &reaction); err != nil {
		if _, legacy := encoded.Parameters["reference"]; !legacy {
			return nil, fmt.Errorf("invalid reaction payload: %w", err)
		}
		reaction = Reaction{
			Reference: encoded.Parameters["reference"],
			Action:    ReactionAction(encoded.Parameters["action"]),
			Schema:    ReactionSchema(encoded.Parameters["schema"]),
			Content:   string(encoded.Content),
		}
	}
	if err := reaction.validate(); err != nil {
		return nil, err
	}
	return reaction, nil
}

func (ReactionCodec) Fallback(value any) (string, bool) {
	reaction, ok := asReaction(value)
	if !ok {
		return "", false
	}
	switch reaction.Action {
	case ReactionAdded:
		return fmt.Sprintf("Reacted “%s” to an earlier message", reaction.Content), true
	case ReactionRemoved:
		return fmt.Sprintf("Removed “%s” from an earlier message", reaction.Content), true
	default:
		return "", false
	}
}

func asReaction(value any) (Reaction, bool) {
	switch v := value.(type) {
	case Reaction:
		return v, true
	case *Reaction:
		if v != nil {
			return *v, true
		}
	}
	return Reaction{}, false
}
