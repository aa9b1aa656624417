package consent

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/opd-ai/xmtpcore/interfaces"
)

// mockConsentEngine implements interfaces.IConsentEngine for testing.
type mockConsentEngine struct {
	mu         sync.Mutex
	updates    [][]interfaces.ConsentRecord
	authority  []interfaces.ConsentRecord
	topicState map[string]string
	updateErr  error
	refreshErr error
}

func newMockConsentEngine() *mockConsentEngine {
	return &mockConsentEngine{topicState: make(map[string]string)}
}

func (m *mockConsentEngine) UpdateConsent(ctx context.Context, clientAddress string, records []interfaces.ConsentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates = append(m.updates, append([]interfaces.ConsentRecord(nil), records...))
	return nil
}

func (m *mockConsentEngine) RefreshConsentList(ctx context.Context, clientAddress string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	out := make([]string, 0, len(m.authority))
	for _, rec := range m.authority {
		data, _ := json.Marshal(rec)
		out = append(out, string(data))
	}
	return out, nil
}

func (m *mockConsentEngine) ConversationConsentState(ctx context.Context, clientAddress, topic string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.topicState[topic], nil
}

func (m *mockConsentEngine) updateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.updates)
}
