package stream

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/xmtpcore/conversation"
	"github.com/opd-ai/xmtpcore/interfaces"
	"github.com/opd-ai/xmtpcore/messaging"
)

// ErrInvalidStreamKey indicates a key with no client address, an unknown
// kind, or a scope that does not match its kind.
var ErrInvalidStreamKey = errors.New("invalid stream key")

// ErrStreamOptionsConflict is returned when a stream that is already open is
// subscribed again with different options. Unsubscribe first to change them.
var ErrStreamOptionsConflict = errors.New("stream already open with different options")

// ValidateKey checks that key names a stream the manager can open.
func ValidateKey(key interfaces.StreamKey) error {
	if key.ClientAddress == "" {
		return fmt.Errorf("%w: client address is required", ErrInvalidStreamKey)
	}
	if key.Kind > interfaces.StreamAllGroupMessages {
		return fmt.Errorf("%w: unknown kind %s", ErrInvalidStreamKey, key.Kind)
	}
	if key.Kind.Scoped() && key.ScopeID == "" {
		return fmt.Errorf("%w: %s streams need a scope id", ErrInvalidStreamKey, key.Kind)
	}
	if !key.Kind.Scoped() && key.ScopeID != "" {
		return fmt.Errorf("%w: %s streams take no scope id", ErrInvalidStreamKey, key.Kind)
	}
	return nil
}

// entry is the lifecycle state of one stream key. lifecycle serializes
// subscribe and unsubscribe; deliverMu orders pushes against closing.
type entry struct {
	key       interfaces.StreamKey
	lifecycle sync.Mutex
	deliverMu sync.RWMutex
	open      bool
	opts      interfaces.StreamOptions
}

// Manager opens engine streams, decodes their pushes and publishes them on
// a Bus. Each key has at most one open engine stream.
//
// Handlers run while the stream's delivery lock is held. A handler must not
// synchronously unsubscribe the stream that is delivering to it; doing so
// deadlocks. Start a goroutine instead.
type Manager struct {
	engine  interfaces.IStreamEngine
	decoder *messaging.Decoder
	bus     *Bus

	mu      sync.Mutex
	streams map[interfaces.StreamKey]*entry
}

// NewManager creates a manager publishing on bus.
func NewManager(engine interfaces.IStreamEngine, decoder *messaging.Decoder, bus *Bus) *Manager {
	if bus == nil {
		bus = NewBus()
	}
	return &Manager{
		engine:  engine,
		decoder: decoder,
		bus:     bus,
		streams: make(map[interfaces.StreamKey]*entry),
	}
}

// Bus returns the bus events are published on.
func (m *Manager) Bus() *Bus {
	return m.bus
}

// lockEntry returns the current entry for key with its lifecycle lock held,
// creating it if create is set.
func (m *Manager) lockEntry(key interfaces.StreamKey, create bool) *entry {
	for {
		m.mu.Lock()
		e, ok := m.streams[key]
		if !ok {
			if !create {
				m.mu.Unlock()
				return nil
			}
			e = &entry{key: key}
			m.streams[key] = e
		}
		m.mu.Unlock()

		e.lifecycle.Lock()
		m.mu.Lock()
		current := m.streams[key] == e
		m.mu.Unlock()
		if current {
			return e
		}
		e.lifecycle.Unlock()
	}
}

func (m *Manager) forget(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.streams[e.key] == e {
		delete(m.streams, e.key)
	}
}

// Subscribe opens the stream for key. Subscribing to a key that is already
// open with the same options does nothing; different options return
// ErrStreamOptionsConflict and leave the open stream unchanged.
func (m *Manager) Subscribe(ctx context.Context, key interfaces.StreamKey, opts interfaces.StreamOptions) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	e := m.lockEntry(key, true)
	defer e.lifecycle.Unlock()

	if e.open {
		if e.opts != opts {
			return fmt.Errorf("%w: %s has include_groups=%t", ErrStreamOptionsConflict, key, e.opts.IncludeGroups)
		}
		logrus.WithFields(logrus.Fields{
			"function":   "Subscribe",
			"stream_key": key.String(),
		}).Debug("Stream already open")
		return nil
	}

	e.deliverMu.Lock()
	e.open = true
	e.deliverMu.Unlock()
	e.opts = opts

	if err := m.engine.OpenStream(ctx, key, opts, m.pushFunc(e)); err != nil {
		e.deliverMu.Lock()
		e.open = false
		e.deliverMu.Unlock()
		m.forget(e)

		logrus.WithFields(logrus.Fields{
			"function":   "Subscribe",
			"stream_key": key.String(),
			"error":      err.Error(),
		}).Error("Engine failed to open stream")
		return interfaces.WrapEngineError("Subscribe", key.ClientAddress, err)
	}

	logrus.WithFields(logrus.Fields{
		"function":       "Subscribe",
		"stream_key":     key.String(),
		"include_groups": opts.IncludeGroups,
	}).Info("Stream opened")

	return nil
}

// Unsubscribe closes the stream for key. No event for key is published
// after Unsubscribe returns, even if the engine reports an error closing.
func (m *Manager) Unsubscribe(ctx context.Context, key interfaces.StreamKey) error {
	e := m.lockEntry(key, false)
	if e == nil {
		return nil
	}
	defer e.lifecycle.Unlock()
	defer m.forget(e)

	if !e.open {
		return nil
	}

	e.deliverMu.Lock()
	e.open = false
	e.deliverMu.Unlock()

	if err := m.engine.CloseStream(ctx, key); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "Unsubscribe",
			"stream_key": key.String(),
			"error":      err.Error(),
		}).Warn("Engine failed to close stream; stream is closed locally")
		return interfaces.WrapEngineError("Unsubscribe", key.ClientAddress, err)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Unsubscribe",
		"stream_key": key.String(),
	}).Info("Stream closed")

	return nil
}

// IsOpen reports whether key has an open stream.
func (m *Manager) IsOpen(key interfaces.StreamKey) bool {
	m.mu.Lock()
	e, ok := m.streams[key]
	m.mu.Unlock()
	if !ok {
		return false
	}

	e.deliverMu.RLock()
	defer e.deliverMu.RUnlock()
	return e.open
}

// Keys returns the keys of open streams owned by clientAddress, sorted.
// An empty address returns every key.
func (m *Manager) Keys(clientAddress string) []interfaces.StreamKey {
	m.mu.Lock()
	keys := make([]interfaces.StreamKey, 0, len(m.streams))
	for key := range m.streams {
		if clientAddress == "" || key.ClientAddress == clientAddress {
			keys = append(keys, key)
		}
	}
	m.mu.Unlock()

	open := keys[:0]
	for _, key := range keys {
		if m.IsOpen(key) {
			open = append(open, key)
		}
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].String() < open[j].String()
	})
	return open
}

// CloseClient closes every stream owned by clientAddress.
func (m *Manager) CloseClient(ctx context.Context, clientAddress string) error {
	var errs []error
	for _, key := range m.Keys(clientAddress) {
		if err := m.Unsubscribe(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every stream.
func (m *Manager) Close(ctx context.Context) error {
	return m.CloseClient(ctx, "")
}

func (m *Manager) pushFunc(e *entry) interfaces.PushFunc {
	return func(raw string) {
		e.deliverMu.RLock()
		defer e.deliverMu.RUnlock()

		if !e.open {
			logrus.WithFields(logrus.Fields{
				"function":   "push",
				"stream_key": e.key.String(),
			}).Warn("Dropped push for closed stream")
			return
		}
		m.dispatch(e.key, raw)
	}
}

// dispatch decodes raw and publishes the resulting event.
func (m *Manager) dispatch(key interfaces.StreamKey, raw string) {
	event := Event{Name: eventFor(key.Kind), ClientAddress: key.ClientAddress, Key: key}

	switch key.Kind {
	case interfaces.StreamConversations, interfaces.StreamGroups, interfaces.StreamAll:
		c, err := conversation.ParseRecord(raw)
		if err != nil {
			m.publishError(key, err)
			return
		}
		event.Conversation = c
	default:
		msg, err := m.decoder.Decode(raw)
		if err != nil {
			m.publishError(key, err)
			return
		}
		event.Message = msg
	}

	delivered := m.bus.Publish(event)
	logrus.WithFields(logrus.Fields{
		"function":   "dispatch",
		"stream_key": key.String(),
		"event":      string(event.Name),
		"handlers":   delivered,
	}).Debug("Event published")
}

func (m *Manager) publishError(key interfaces.StreamKey, err error) {
	logrus.WithFields(logrus.Fields{
		"function":   "dispatch",
		"stream_key": key.String(),
		"error":      err.Error(),
	}).Warn("Could not decode push")

	m.bus.Publish(Event{Name: EventError, ClientAddress: key.ClientAddress, Key: key, Err: err})
}
