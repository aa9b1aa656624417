package stream

import (
	"sync"

	"github.com/opd-ai/xmtpcore/conversation"
	"github.com/opd-ai/xmtpcore/interfaces"
	"github.com/opd-ai/xmtpcore/messaging"
)

// EventName identifies what an event carries.
type EventName string

const (
	EventConversation          EventName = "conversation"
	EventGroup                 EventName = "group"
	EventConversationContainer EventName = "conversationContainer"
	EventConversationMessage   EventName = "conversationMessage"
	EventGroupMessage          EventName = "groupMessage"
	EventMessage               EventName = "message"
	EventAllGroupMessage       EventName = "allGroupMessage"
	EventError                 EventName = "error"
)

// eventFor maps a stream kind to the event it publishes.
func eventFor(kind interfaces.StreamKind) EventName {
	switch kind {
	case interfaces.StreamConversations:
		return EventConversation
	case interfaces.StreamGroups:
		return EventGroup
	case interfaces.StreamAll:
		return EventConversationContainer
	case interfaces.StreamMessages:
		return EventConversationMessage
	case interfaces.StreamGroupMessages:
		return EventGroupMessage
	case interfaces.StreamAllMessages:
		return EventMessage
	case interfaces.StreamAllGroupMessages:
		return EventAllGroupMessage
	default:
		return EventError
	}
}

// Event is one decoded push. Exactly one of Conversation, Message and Err
// is set.
type Event struct {
	Name          EventName
	ClientAddress string
	Key           interfaces.StreamKey
	Conversation  *conversation.Container
	Message       *messaging.DecodedMessage
	Err           error
}

// Handler receives events from the bus.
type Handler func(Event)

type handlerEntry struct {
	id      uint64
	handler Handler
}

// Bus fans events out to handlers registered by name. Handlers run
// synchronously on the publishing goroutine in registration order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventName][]handlerEntry
	nextID   uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[EventName][]handlerEntry)}
}

// Subscribe registers handler for name.
func (b *Bus) Subscribe(name EventName, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[name] = append(b.handlers[name], handlerEntry{id: b.nextID, handler: handler})
	return &Subscription{bus: b, name: name, id: b.nextID}
}

// Publish delivers e to every handler registered for e.Name and returns how
// many received it.
func (b *Bus) Publish(e Event) int {
	b.mu.RLock()
	entries := append([]handlerEntry(nil), b.handlers[e.Name]...)
	b.mu.RUnlock()

	for _, entry := range entries {
		entry.handler(e)
	}
	return len(entries)
}

// HandlerCount returns the number of handlers registered for name.
func (b *Bus) HandlerCount(name EventName) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}

func (b *Bus) remove(name EventName, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.handlers[name]
	for i, entry := range entries {
		if entry.id == id {
			b.handlers[name] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(b.handlers[name]) == 0 {
		delete(b.handlers, name)
	}
}

// Subscription is the handle returned by Bus.Subscribe.
type Subscription struct {
	bus  *Bus
	name EventName
	id   uint64
	once sync.Once
}

// Name returns the event name the subscription listens to.
func (s *Subscription) Name() EventName {
	return s.name
}

// Unsubscribe removes the handler. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.remove(s.name, s.id)
	})
}
