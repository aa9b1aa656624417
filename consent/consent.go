package consent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/xmtpcore/crypto"
	"github.com/opd-ai/xmtpcore/interfaces"
)

// State is a subject's consent classification.
type State string

const (
	StateAllowed State = "allowed"
	StateDenied  State = "denied"
	StateUnknown State = "unknown"
)

// ParseState parses an engine state string. Unrecognized values are unknown.
func ParseState(s string) State {
	switch State(s) {
	case StateAllowed, StateDenied:
		return State(s)
	default:
		return StateUnknown
	}
}

// EntryType says what kind of subject an entry covers.
type EntryType string

const (
	EntryAddress EntryType = "address"
	EntryGroupID EntryType = "groupId"
)

// Entry is the consent state of one subject.
type Entry struct {
	Value     string    `json:"value"`
	EntryType EntryType `json:"entryType"`
	State     State     `json:"permissionType"`
}

type entryKey struct {
	entryType EntryType
	value     string
}

// Store caches one client's consent list. Writes go to the engine first and
// are applied locally once the engine accepts them, so concurrent writes to
// one subject resolve in completion order.
type Store struct {
	engine        interfaces.IConsentEngine
	clientAddress string

	mu      sync.RWMutex
	entries map[entryKey]State
	order   []entryKey
}

// NewStore creates an empty consent store for clientAddress.
func NewStore(engine interfaces.IConsentEngine, clientAddress string) *Store {
	return &Store{
		engine:        engine,
		clientAddress: clientAddress,
		entries:       make(map[entryKey]State),
	}
}

func normalizeSubject(entryType EntryType, subject string) string {
	if entryType == EntryAddress {
		return crypto.NormalizeAddress(subject)
	}
	return subject
}

func validateEntryType(entryType EntryType) error {
	switch entryType {
	case EntryAddress, EntryGroupID:
		return nil
	default:
		return fmt.Errorf("invalid consent entry type %q", entryType)
	}
}

// Allow marks subjects as allowed.
func (s *Store) Allow(ctx context.Context, entryType EntryType, subjects []string) error {
	return s.write(ctx, "Allow", StateAllowed, entryType, subjects)
}

// Deny marks subjects as denied.
func (s *Store) Deny(ctx context.Context, entryType EntryType, subjects []string) error {
	return s.write(ctx, "Deny", StateDenied, entryType, subjects)
}

func (s *Store) write(ctx context.Context, op string, state State, entryType EntryType, subjects []string) error {
	if err := validateEntryType(entryType); err != nil {
		return err
	}
	if len(subjects) == 0 {
		return nil
	}

	records := make([]interfaces.ConsentRecord, len(subjects))
	keys := make([]entryKey, len(subjects))
	for i, subject := range subjects {
		value := normalizeSubject(entryType, subject)
		keys[i] = entryKey{entryType: entryType, value: value}
		records[i] = interfaces.ConsentRecord{Value: value, EntryType: string(entryType), State: string(state)}
	}

	if err := s.engine.UpdateConsent(ctx, s.clientAddress, records); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":       op,
			"client_address": s.clientAddress,
			"subjects":       len(subjects),
			"error":          err.Error(),
		}).Error("Engine rejected consent update")
		return interfaces.WrapEngineError(op, s.clientAddress, err)
	}

	s.mu.Lock()
	for _, key := range keys {
		s.setLocked(key, state)
	}
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":       op,
		"client_address": s.clientAddress,
		"entry_type":     string(entryType),
		"subjects":       len(subjects),
		"state":          string(state),
	}).Info("Consent updated")

	return nil
}

func (s *Store) setLocked(key entryKey, state State) {
	if _, seen := s.entries[key]; !seen {
		s.order = append(s.order, key)
	}
	s.entries[key] = state
}

// Refresh replaces the cache with the engine's authoritative list.
func (s *Store) Refresh(ctx context.Context) ([]Entry, error) {
	raws, err := s.engine.RefreshConsentList(ctx, s.clientAddress)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":       "Refresh",
			"client_address": s.clientAddress,
			"error":          err.Error(),
		}).Error("Engine consent refresh failed")
		return nil, interfaces.WrapEngineError("Refresh", s.clientAddress, err)
	}

	entries := make(map[entryKey]State, len(raws))
	order := make([]entryKey, 0, len(raws))
	for i, raw := range raws {
		var rec interfaces.ConsentRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("consent record %d: %w", i, err)
		}
		entryType := EntryType(rec.EntryType)
		if err := validateEntryType(entryType); err != nil {
			return nil, fmt.Errorf("consent record %d: %w", i, err)
		}
		key := entryKey{entryType: entryType, value: normalizeSubject(entryType, rec.Value)}
		if _, seen := entries[key]; !seen {
			order = append(order, key)
		}
		entries[key] = ParseState(rec.State)
	}

	s.mu.Lock()
	s.entries = entries
	s.order = order
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":       "Refresh",
		"client_address": s.clientAddress,
		"entries":        len(order),
	}).Debug("Consent list refreshed")

	return s.List(), nil
}

// List returns a snapshot of the cache in first-seen order.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.order))
	for i, key := range s.order {
		out[i] = Entry{Value: key.value, EntryType: key.entryType, State: s.entries[key]}
	}
	return out
}

// State returns the cached state of a subject; unseen subjects are unknown.
func (s *Store) State(entryType EntryType, subject string) State {
	key := entryKey{entryType: entryType, value: normalizeSubject(entryType, subject)}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if state, ok := s.entries[key]; ok {
		return state
	}
	return StateUnknown
}

func (s *Store) IsAllowed(address string) bool {
	return s.State(EntryAddress, address) == StateAllowed
}

func (s *Store) IsDenied(address string) bool {
	return s.State(EntryAddress, address) == StateDenied
}

func (s *Store) IsGroupAllowed(groupID string) bool {
	return s.State(EntryGroupID, groupID) == StateAllowed
}

func (s *Store) IsGroupDenied(groupID string) bool {
	return s.State(EntryGroupID, groupID) == StateDenied
}

// ConversationState asks the engine for the consent state of a conversation
// topic. The cache is not consulted.
func (s *Store) ConversationState(ctx context.Context, topic string) (State, error) {
	state, err := s.engine.ConversationConsentState(ctx, s.clientAddress, topic)
	if err != nil {
		return StateUnknown, interfaces.WrapEngineError("ConversationState", s.clientAddress, err)
	}
	return ParseState(state), nil
}
