package consent

import (
	"sort"
	"sync"

	"github.com/opd-ai/xmtpcore/interfaces"
)

// Registry holds one Store per client address. Stores never share state.
type Registry struct {
	engine interfaces.IConsentEngine

	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry creates an empty registry backed by engine.
func NewRegistry(engine interfaces.IConsentEngine) *Registry {
	return &Registry{
		engine: engine,
		stores: make(map[string]*Store),
	}
}

// ForClient returns the store for address, creating it on first use.
func (r *Registry) ForClient(address string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	store, ok := r.stores[address]
	if !ok {
		store = NewStore(r.engine, address)
		r.stores[address] = store
	}
	return store
}

// Remove drops the store for address.
func (r *Registry) Remove(address string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, address)
}

// Clients returns the addresses with a store, sorted.
func (r *Registry) Clients() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.stores))
	for address := range r.stores {
		out = append(out, address)
	}
	sort.Strings(out)
	return out
}
