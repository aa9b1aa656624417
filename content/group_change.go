package content

import (
	"encoding/json"
	"fmt"
)

// ContentTypeGroupMembershipChange records members joining or leaving a
// group. It is reserved: applications cannot replace its codec.
var ContentTypeGroupMembershipChange = TypeID{AuthorityID: "xmtp.org", TypeID: "group_membership_change", VersionMajor: 1, VersionMinor: 0}

// MembershipChange describes one member added or removed.
type MembershipChange struct {
	InboxID            string   `json:"inboxId"`
	AccountAddresses   []string `json:"accountAddresses"`
	InitiatedByInboxID string   `json:"initiatedByInboxId"`
}

// GroupMembershipChanges is the content of a membership change message.
type GroupMembershipChanges struct {
	MembersAdded   []MembershipChange `json:"membersAdded"`
	MembersRemoved []MembershipChange `json:"membersRemoved"`
}

// GroupMembershipChangeCodec encodes GroupMembershipChanges as JSON.
type GroupMembershipChangeCodec struct{}

func (GroupMembershipChangeCodec) ContentType() TypeID { return ContentTypeGroupMembershipChange }

func (GroupMembershipChangeCodec) Encode(value any) (*EncodedContent, error) {
	var changes GroupMembershipChanges
	switch v := value.(type) {
	case GroupMembershipChanges:
		changes = v
	case *GroupMembershipChanges:
		if v == nil {
			return nil, unexpectedValue("group membership change", value)
		}
		changes = *v
	default:
		return nil, unexpectedValue("group membership change", value)
	}
	payload, err := json.Marshal(changes)
	if err != nil {
		return nil, err
	}
	return &EncodedContent{Type: ContentTypeGroupMembershipChange, Content: payload}, nil
}

func (GroupMembershipChangeCodec) Decode(encoded *EncodedContent) (any, error) {
	var changes GroupMembershipChanges
	if err := json.Unmarshal(encoded.Content, &changes); err != nil {
		return nil, fmt.Errorf("invalid membership change payload: %w", err)
	}
	return changes, nil
}

func (GroupMembershipChangeCodec) Fallback(any) (string, bool) { return "", false }
