package messaging

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opd-ai/xmtpcore/content"
	"github.com/opd-ai/xmtpcore/interfaces"
	sim "github.com/opd-ai/xmtpcore/testing"
)

type fixture struct {
	engine *sim.SimulatedEngine
	alice  string
	bob    string
	topic  string
	store  *Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	engine := sim.NewSimulatedEngine()
	auth := interfaces.AuthOptions{Environment: interfaces.EnvironmentLocal}

	alice, err := engine.CreateRandom(ctx, auth)
	require.NoError(t, err)
	bob, err := engine.CreateRandom(ctx, auth)
	require.NoError(t, err)

	return &fixture{
		engine: engine,
		alice:  alice,
		bob:    bob,
		topic:  newConversation(t, engine, alice, bob),
		store:  NewStore(engine, content.NewPipeline(nil), alice),
	}
}

func newConversation(t *testing.T, engine *sim.SimulatedEngine, from, to string) string {
	t.Helper()
	return newConversationWithID(t, engine, from, to, "")
}

// newConversationWithID opens a conversation scoped to conversationID so the
// same pair can hold several topics.
func newConversationWithID(t *testing.T, engine *sim.SimulatedEngine, from, to, conversationID string) string {
	t.Helper()
	contextJSON := "{}"
	if conversationID != "" {
		contextJSON = `{"conversationID":"` + conversationID + `"}`
	}
	raw, err := engine.CreateConversation(context.Background(), from, to, contextJSON)
	require.NoError(t, err)
	var rec struct {
		Topic string `json:"topic"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	return rec.Topic
}

func encodeText(t *testing.T, text string) []byte {
	t.Helper()
	data, err := content.NewPipeline(nil).Encode(text, content.ContentTypeText)
	require.NoError(t, err)
	return data
}

// corruptText is a text envelope whose payload is not valid UTF-8.
func corruptText(t *testing.T) []byte {
	t.Helper()
	fallback := "corrupt but labelled"
	data, err := content.Marshal(&content.EncodedContent{
		Type:     content.ContentTypeText,
		Fallback: &fallback,
		Content:  []byte{0xff, 0xfe, 0xfd},
	})
	require.NoError(t, err)
	return data
}

func groupIDFrom(t *testing.T, raw string) string {
	t.Helper()
	var rec struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	return rec.ID
}
