package conversation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTopic   = "/xmtp/0/m-0123456789abcdef/proto"
	testGroupID = "a1b2c3d4"
	testPeer    = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	testClient  = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
)

func groupRecordJSON(extra string) string {
	return `{"clientAddress":"` + testClient + `","id":"` + testGroupID + `","topic":"/xmtp/mls/1/g-` + testGroupID +
		`/proto","createdAt":1700000000001,"version":"GROUP","members":["inbox-1",{"inboxId":"inbox-2","addresses":["` +
		testPeer + `"],"permissionLevel":"member"},"inbox-1"],"creatorInboxId":"inbox-1"` + extra + `}`
}

func TestParseRecordGroupVariant(t *testing.T) {
	c, err := ParseRecord(groupRecordJSON(`,"name":"coffee club","addedByInboxId":"inbox-1"`))
	require.NoError(t, err)

	assert.Equal(t, KindGroup, c.Kind())
	assert.True(t, c.IsGroup())
	assert.Equal(t, testGroupID, c.ID())
	assert.Equal(t, int64(1700000000001), c.CreatedAt())
	assert.Equal(t, testClient, c.ClientAddress())

	ids, err := c.MemberInboxIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"inbox-1", "inbox-2"}, ids, "duplicates dropped, first position kept")

	members, err := c.Members()
	require.NoError(t, err)
	assert.Equal(t, []string{testPeer}, members[1].Addresses)
	assert.Equal(t, PermissionMember, members[1].PermissionLevel)

	active, err := c.IsActive()
	require.NoError(t, err)
	assert.True(t, active, "missing isActive defaults to true")

	name, err := c.Name()
	require.NoError(t, err)
	assert.Equal(t, "coffee club", name)

	creator, err := c.CreatorInboxID()
	require.NoError(t, err)
	assert.Equal(t, "inbox-1", creator)
}

func TestParseRecordGroupMembersAsEncodedObjects(t *testing.T) {
	raw := `{"clientAddress":"` + testClient + `","id":"` + testGroupID + `","topic":"/xmtp/mls/1/g-` + testGroupID +
		`/proto","createdAt":1,"version":"GROUP","creatorInboxId":"inbox-1","members":[` +
		`"{\"inboxId\":\"inbox-1\",\"addresses\":[\"0x1\"],\"permissionLevel\":\"admin\"}",` +
		`" {\"inboxId\":\"inbox-2\",\"addresses\":[\"0x2\",\"0x3\"]}",` +
		`"{\"inboxId\":\"inbox-1\"}"]}`

	c, err := ParseRecord(raw)
	require.NoError(t, err)

	ids, err := c.MemberInboxIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"inbox-1", "inbox-2"}, ids)

	members, err := c.Members()
	require.NoError(t, err)
	assert.Equal(t, []string{"0x1"}, members[0].Addresses)
	assert.Equal(t, PermissionAdmin, members[0].PermissionLevel)
	assert.Equal(t, []string{"0x2", "0x3"}, members[1].Addresses)

	_, err = ParseRecord(strings.Replace(raw, `\"inboxId\":\"inbox-2\"`, `\"inboxId\":`, 1))
	assert.Error(t, err, "a malformed encoded member is rejected")
}

func TestParseRecordConversationVariant(t *testing.T) {
	raw := `{"clientAddress":"` + testClient + `","topic":"` + testTopic + `","createdAt":5,"version":"v2","peerAddress":"` +
		testPeer + `","conversationID":"example.com/thread"}`
	c, err := ParseRecord(raw)
	require.NoError(t, err)

	assert.Equal(t, KindConversation, c.Kind())
	assert.False(t, c.IsGroup())
	assert.Equal(t, testTopic, c.ID(), "id falls back to the topic")
	assert.Equal(t, VersionV2, c.Version())

	peer, err := c.PeerAddress()
	require.NoError(t, err)
	assert.Equal(t, testPeer, peer)

	convCtx, err := c.ConversationContext()
	require.NoError(t, err)
	require.NotNil(t, convCtx)
	assert.Equal(t, "example.com/thread", convCtx.ConversationID)
}

func TestParseRecordUnknownVersionIsConversation(t *testing.T) {
	for _, version := range []string{"", VersionV1, "v9", "group"} {
		t.Run("version "+version, func(t *testing.T) {
			c, err := ParseRecord(`{"topic":"` + testTopic + `","version":"` + version + `"}`)
			require.NoError(t, err)
			assert.Equal(t, KindConversation, c.Kind())
		})
	}
}

func TestParseRecordRejectsIncompleteRecords(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "{"},
		{"group without id", `{"version":"GROUP","topic":"t"}`},
		{"conversation without topic", `{"version":"v2","peerAddress":"` + testPeer + `"}`},
		{"bad member", `{"version":"GROUP","id":"g","members":[7]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecord(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestVariantAccessorsNeverCrossOver(t *testing.T) {
	group, err := ParseRecord(groupRecordJSON(""))
	require.NoError(t, err)
	conv, err := ParseRecord(`{"topic":"` + testTopic + `","version":"v2"}`)
	require.NoError(t, err)

	groupOnly := map[string]func(c *Container) error{
		"Members":        func(c *Container) error { _, err := c.Members(); return err },
		"MemberInboxIDs": func(c *Container) error { _, err := c.MemberInboxIDs(); return err },
		"CreatorInboxID": func(c *Container) error { _, err := c.CreatorInboxID(); return err },
		"IsActive":       func(c *Container) error { _, err := c.IsActive(); return err },
		"AddedByInboxID": func(c *Container) error { _, err := c.AddedByInboxID(); return err },
		"Name":           func(c *Container) error { _, err := c.Name(); return err },
		"ImageURLSquare": func(c *Container) error { _, err := c.ImageURLSquare(); return err },
		"Description":    func(c *Container) error { _, err := c.Description(); return err },
	}
	conversationOnly := map[string]func(c *Container) error{
		"PeerAddress":         func(c *Container) error { _, err := c.PeerAddress(); return err },
		"ConversationContext": func(c *Container) error { _, err := c.ConversationContext(); return err },
	}

	for name, call := range groupOnly {
		assert.NoError(t, call(group), name)
		var wrong *WrongVariantError
		require.ErrorAs(t, call(conv), &wrong, name)
		assert.Equal(t, KindGroup, wrong.Want)
		assert.Equal(t, KindConversation, wrong.Got)
	}
	for name, call := range conversationOnly {
		assert.NoError(t, call(conv), name)
		var wrong *WrongVariantError
		require.ErrorAs(t, call(group), &wrong, name)
		assert.Equal(t, KindConversation, wrong.Want)
	}
}

func TestMembersAreCopies(t *testing.T) {
	c, err := ParseRecord(groupRecordJSON(""))
	require.NoError(t, err)

	members, err := c.Members()
	require.NoError(t, err)
	members[1].Addresses[0] = "mutated"

	again, err := c.Members()
	require.NoError(t, err)
	assert.Equal(t, testPeer, again[1].Addresses[0])
}

func TestParseRecordsKeepsOrder(t *testing.T) {
	raws := []string{
		`{"topic":"t1","version":"v2"}`,
		groupRecordJSON(""),
		`{"topic":"t2","version":"v1"}`,
	}
	containers, err := ParseRecords(raws)
	require.NoError(t, err)
	require.Len(t, containers, 3)
	assert.Equal(t, "t1", containers[0].ID())
	assert.Equal(t, testGroupID, containers[1].ID())
	assert.Equal(t, "t2", containers[2].ID())

	_, err = ParseRecords([]string{`{"topic":"t1"}`, "nope"})
	assert.ErrorContains(t, err, "record 1")
}

func TestContainerMarshalJSONRoundTrips(t *testing.T) {
	original, err := ParseRecord(groupRecordJSON(`,"isActive":false,"description":"beans"`))
	require.NoError(t, err)

	data, err := json.Marshal(original)
	require.NoError(t, err)

	again, err := ParseRecord(string(data))
	require.NoError(t, err)
	assert.Equal(t, KindGroup, again.Kind())
	active, err := again.IsActive()
	require.NoError(t, err)
	assert.False(t, active)
	desc, err := again.Description()
	require.NoError(t, err)
	assert.Equal(t, "beans", desc)
}

func TestValidateGroupPermission(t *testing.T) {
	level, err := ValidateGroupPermission("")
	require.NoError(t, err)
	assert.Equal(t, PermissionEveryoneAdmin, level)

	level, err = ValidateGroupPermission(PermissionCreatorAdmin)
	require.NoError(t, err)
	assert.Equal(t, PermissionCreatorAdmin, level)

	_, err = ValidateGroupPermission(PermissionSuperAdmin)
	assert.Error(t, err)
}
