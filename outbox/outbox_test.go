package outbox

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/xmtpcore/interfaces"
)

const (
	testClient = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	testOther  = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	testTopic  = "/xmtp/0/m-abc/proto"
)

func newTestOutbox(t *testing.T) (*Outbox, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "outbox", "outbox.db")
	o, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, o.Close())
	})
	return o, path
}

func prepared(id string, at int64) interfaces.PreparedLocalMessage {
	return interfaces.PreparedLocalMessage{MessageID: id, PreparedFileURI: "file:///tmp/" + id, PreparedAt: at}
}

func TestEnqueueAndGet(t *testing.T) {
	o, _ := newTestOutbox(t)
	ctx := context.Background()
	o.now = func() time.Time { return time.UnixMilli(1700000000500) }

	entry, err := o.Enqueue(ctx, testClient, testTopic, prepared("m1", 10))
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, StatusPending, entry.Status)
	assert.Equal(t, int64(1700000000500), entry.CreatedAt)

	got, err := o.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry, got)

	raw, err := got.PreparedJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"messageId":"m1","preparedFileUri":"file:///tmp/m1","preparedAt":10}`, raw)
}

func TestEnqueueValidation(t *testing.T) {
	o, _ := newTestOutbox(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		client string
		topic  string
		msg    interfaces.PreparedLocalMessage
	}{
		{"no client", "", testTopic, prepared("m", 1)},
		{"no topic", testClient, "", prepared("m", 1)},
		{"no message id", testClient, testTopic, prepared("", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Enqueue(ctx, tt.client, tt.topic, tt.msg)
			assert.Error(t, err)
		})
	}
}

func TestPendingOrderAndScope(t *testing.T) {
	o, _ := newTestOutbox(t)
	ctx := context.Background()

	late, err := o.Enqueue(ctx, testClient, testTopic, prepared("late", 30))
	require.NoError(t, err)
	early, err := o.Enqueue(ctx, testClient, testTopic, prepared("early", 10))
	require.NoError(t, err)
	_, err = o.Enqueue(ctx, testOther, testTopic, prepared("other", 20))
	require.NoError(t, err)

	pending, err := o.Pending(ctx, testClient)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, early.ID, pending[0].ID)
	assert.Equal(t, late.ID, pending[1].ID)
}

func TestStatusTransitions(t *testing.T) {
	o, _ := newTestOutbox(t)
	ctx := context.Background()

	a, err := o.Enqueue(ctx, testClient, testTopic, prepared("a", 1))
	require.NoError(t, err)
	b, err := o.Enqueue(ctx, testClient, testTopic, prepared("b", 2))
	require.NoError(t, err)

	require.NoError(t, o.MarkFailed(ctx, a.ID, errors.New("network unreachable")))
	require.NoError(t, o.MarkSent(ctx, b.ID))

	failed, err := o.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, 1, failed.Attempts)
	assert.Equal(t, "network unreachable", failed.LastError)

	pending, err := o.Pending(ctx, testClient)
	require.NoError(t, err)
	require.Len(t, pending, 1, "failed entries are retried, sent ones are not")
	assert.Equal(t, a.ID, pending[0].ID)

	require.NoError(t, o.MarkSent(ctx, a.ID))
	sent, err := o.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, sent.Status)
	assert.Equal(t, 2, sent.Attempts)
	assert.Empty(t, sent.LastError)

	n, err := o.PurgeSent(ctx, testClient)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestUnknownEntry(t *testing.T) {
	o, _ := newTestOutbox(t)
	ctx := context.Background()

	_, err := o.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, o.MarkSent(ctx, "missing"), ErrNotFound)
	assert.ErrorIs(t, o.MarkFailed(ctx, "missing", nil), ErrNotFound)
	assert.ErrorIs(t, o.Delete(ctx, "missing"), ErrNotFound)
}

func TestDelete(t *testing.T) {
	o, _ := newTestOutbox(t)
	ctx := context.Background()

	entry, err := o.Enqueue(ctx, testClient, testTopic, prepared("m", 1))
	require.NoError(t, err)
	require.NoError(t, o.Delete(ctx, entry.ID))

	_, err = o.Get(ctx, entry.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntriesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outbox.db")
	ctx := context.Background()

	o, err := Open(path)
	require.NoError(t, err)
	entry, err := o.Enqueue(ctx, testClient, testTopic, prepared("m", 1))
	require.NoError(t, err)
	require.NoError(t, o.Close())
	require.NoError(t, o.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	pending, err := reopened.Pending(ctx, testClient)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, entry.ID, pending[0].ID)
}
