package xmtpcore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opd-ai/xmtpcore/interfaces"
	sim "github.com/opd-ai/xmtpcore/testing"
)

func newTestRegistry(t *testing.T, mutate func(*Options)) (*Registry, *sim.SimulatedEngine) {
	t.Helper()
	dir := t.TempDir()

	options := NewOptions()
	options.Environment = interfaces.EnvironmentLocal
	options.UseSimulation = true
	options.OutboxPath = filepath.Join(dir, "outbox.db")
	options.AttachmentDir = dir
	options.LogLevel = "warn"
	if mutate != nil {
		mutate(options)
	}

	r, err := New(options, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, r.Close(context.Background()))
	})

	engine, ok := r.Engine().(*sim.SimulatedEngine)
	require.True(t, ok)
	return r, engine
}

func newTestClients(t *testing.T, r *Registry) (*Client, *Client) {
	t.Helper()
	ctx := context.Background()
	alice, err := r.CreateRandom(ctx)
	require.NoError(t, err)
	bob, err := r.CreateRandom(ctx)
	require.NoError(t, err)
	return alice, bob
}
