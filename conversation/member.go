package conversation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// PermissionLevel is a group member's role, or the admin policy requested
// when creating a group.
type PermissionLevel string

const (
	PermissionEveryoneAdmin PermissionLevel = "everyone_admin"
	PermissionCreatorAdmin  PermissionLevel = "creator_admin"

	PermissionMember     PermissionLevel = "member"
	PermissionAdmin      PermissionLevel = "admin"
	PermissionSuperAdmin PermissionLevel = "super_admin"
)

// ValidateGroupPermission checks a CreateGroup policy. The empty string
// means PermissionEveryoneAdmin.
func ValidateGroupPermission(level PermissionLevel) (PermissionLevel, error) {
	switch level {
	case "":
		return PermissionEveryoneAdmin, nil
	case PermissionEveryoneAdmin, PermissionCreatorAdmin:
		return level, nil
	default:
		return "", fmt.Errorf("invalid group permission level %q", level)
	}
}

// Member is one group member. Records carry either a bare inbox id string, an
// object with addresses and a permission level, or that object encoded as a
// JSON string.
type Member struct {
	InboxID         string          `json:"inboxId"`
	Addresses       []string        `json:"addresses,omitempty"`
	PermissionLevel PermissionLevel `json:"permissionLevel,omitempty"`
}

func (m *Member) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid group member: %w", err)
		}
		// Some engines send each member as its own JSON-encoded object.
		if !strings.HasPrefix(strings.TrimSpace(s), "{") {
			*m = Member{InboxID: s}
			return nil
		}
		data = []byte(s)
	}
	type plain Member
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("invalid group member: %w", err)
	}
	*m = Member(p)
	return nil
}

func (m Member) clone() Member {
	out := m
	if m.Addresses != nil {
		out.Addresses = append([]string(nil), m.Addresses...)
	}
	return out
}

// dedupeMembers drops repeated inbox ids, keeping each at its first position.
func dedupeMembers(members []Member) []Member {
	seen := make(map[string]bool, len(members))
	out := make([]Member, 0, len(members))
	for _, m := range members {
		if seen[m.InboxID] {
			continue
		}
		seen[m.InboxID] = true
		out = append(out, m.clone())
	}
	return out
}
