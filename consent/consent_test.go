package consent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/xmtpcore/interfaces"
)

const (
	testClient  = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	testPeer    = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	testOther   = "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB"
	testGroupID = "a1b2c3d4"
)

func TestUnseenSubjectIsUnknown(t *testing.T) {
	store := NewStore(newMockConsentEngine(), testClient)

	assert.Equal(t, StateUnknown, store.State(EntryAddress, testPeer))
	assert.False(t, store.IsAllowed(testPeer))
	assert.False(t, store.IsDenied(testPeer))
	assert.Empty(t, store.List())
}

func TestAllowIsIdempotent(t *testing.T) {
	ctx := context.Background()
	once := NewStore(newMockConsentEngine(), testClient)
	twice := NewStore(newMockConsentEngine(), testClient)

	require.NoError(t, once.Allow(ctx, EntryAddress, []string{testPeer}))
	require.NoError(t, twice.Allow(ctx, EntryAddress, []string{testPeer}))
	require.NoError(t, twice.Allow(ctx, EntryAddress, []string{testPeer}))

	assert.Equal(t, once.List(), twice.List())
	assert.Len(t, twice.List(), 1)
	assert.True(t, twice.IsAllowed(testPeer))
}

func TestLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMockConsentEngine(), testClient)

	require.NoError(t, store.Deny(ctx, EntryAddress, []string{testPeer}))
	assert.True(t, store.IsDenied(testPeer))

	require.NoError(t, store.Allow(ctx, EntryAddress, []string{testPeer}))
	assert.True(t, store.IsAllowed(testPeer))
	assert.False(t, store.IsDenied(testPeer))

	require.NoError(t, store.Deny(ctx, EntryGroupID, []string{testGroupID}))
	require.NoError(t, store.Allow(ctx, EntryGroupID, []string{testGroupID}))
	assert.True(t, store.IsGroupAllowed(testGroupID))

	assert.Equal(t, []Entry{
		{Value: testPeer, EntryType: EntryAddress, State: StateAllowed},
		{Value: testGroupID, EntryType: EntryGroupID, State: StateAllowed},
	}, store.List())
}

func TestAddressCaseVariantsShareEntry(t *testing.T) {
	ctx := context.Background()
	engine := newMockConsentEngine()
	store := NewStore(engine, testClient)

	require.NoError(t, store.Allow(ctx, EntryAddress, []string{strings.ToLower(testPeer)}))
	require.NoError(t, store.Deny(ctx, EntryAddress, []string{strings.ToUpper("0x" + testPeer[2:])}))

	assert.Len(t, store.List(), 1)
	assert.True(t, store.IsDenied(testPeer))
	assert.Equal(t, testPeer, engine.updates[0][0].Value, "engine receives the checksummed address")

	require.NoError(t, store.Allow(ctx, EntryGroupID, []string{"ABC"}))
	assert.Equal(t, StateUnknown, store.State(EntryGroupID, "abc"), "group ids are not normalized")
}

func TestEngineFailureLeavesCacheUnchanged(t *testing.T) {
	ctx := context.Background()
	engine := newMockConsentEngine()
	store := NewStore(engine, testClient)
	require.NoError(t, store.Allow(ctx, EntryAddress, []string{testPeer}))

	engine.updateErr = errors.New("consent service unavailable")
	err := store.Deny(ctx, EntryAddress, []string{testPeer})

	var engineErr *interfaces.EngineCallError
	require.True(t, errors.As(err, &engineErr))
	assert.Equal(t, "consent service unavailable", err.Error())
	assert.True(t, store.IsAllowed(testPeer))
}

func TestWriteValidation(t *testing.T) {
	ctx := context.Background()
	engine := newMockConsentEngine()
	store := NewStore(engine, testClient)

	assert.Error(t, store.Allow(ctx, EntryType("inbox"), []string{testPeer}))
	assert.NoError(t, store.Allow(ctx, EntryAddress, nil))
	assert.Zero(t, engine.updateCount(), "nothing reaches the engine")
}

func TestRefreshReplacesCache(t *testing.T) {
	ctx := context.Background()
	engine := newMockConsentEngine()
	store := NewStore(engine, testClient)
	require.NoError(t, store.Allow(ctx, EntryAddress, []string{testPeer}))

	engine.authority = []interfaces.ConsentRecord{
		{Value: strings.ToLower(testOther), EntryType: "address", State: "denied"},
		{Value: testGroupID, EntryType: "groupId", State: "allowed"},
		{Value: testPeer, EntryType: "address", State: "bogus"},
	}

	entries, err := store.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Value: testOther, EntryType: EntryAddress, State: StateDenied},
		{Value: testGroupID, EntryType: EntryGroupID, State: StateAllowed},
		{Value: testPeer, EntryType: EntryAddress, State: StateUnknown},
	}, entries)
	assert.False(t, store.IsAllowed(testPeer), "refresh overwrites the local write")
	assert.True(t, store.IsDenied(testOther))

	engine.refreshErr = errors.New("timeout")
	_, err = store.Refresh(ctx)
	assert.Error(t, err)
	assert.Len(t, store.List(), 3, "failed refresh keeps the previous cache")
}

func TestConversationState(t *testing.T) {
	engine := newMockConsentEngine()
	engine.topicState["/xmtp/0/m-1/proto"] = "denied"
	store := NewStore(engine, testClient)

	state, err := store.ConversationState(context.Background(), "/xmtp/0/m-1/proto")
	require.NoError(t, err)
	assert.Equal(t, StateDenied, state)

	state, err = store.ConversationState(context.Background(), "/xmtp/0/m-2/proto")
	require.NoError(t, err)
	assert.Equal(t, StateUnknown, state)
}

func TestRegistryIsolatesClients(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(newMockConsentEngine())

	first := registry.ForClient(testClient)
	second := registry.ForClient(testOther)
	assert.Same(t, first, registry.ForClient(testClient))

	require.NoError(t, first.Allow(ctx, EntryAddress, []string{testPeer}))
	assert.True(t, first.IsAllowed(testPeer))
	assert.False(t, second.IsAllowed(testPeer))
	assert.Empty(t, second.List())

	assert.Equal(t, []string{testClient, testOther}, registry.Clients())
	registry.Remove(testClient)
	assert.NotSame(t, first, registry.ForClient(testClient))
}
