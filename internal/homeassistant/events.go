package homeassistant

import (
	"sync"
)

// ConnectionState describes the streaming session, used for the UI
// connectivity indicator.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
)

// StateEventKind discriminates the state change notifications.
type StateEventKind int

const (
	// EventBulkLoad means the whole cache was just replaced, consumers
	// re-derive everything.
	EventBulkLoad StateEventKind = iota
	// EventEntityChanged carries a single replaced entity state.
	EventEntityChanged
	// EventEntityRemoved means the entity was deleted from the cache.
	EventEntityRemoved
)

// StateEvent is the notification fanned out to all subscribers.
// State is only set for EventEntityChanged.
type StateEvent struct {
	Kind     StateEventKind
	EntityID EntityID
	State    *State
}

// StateFunc is a registered state change callback.
type StateFunc func(StateEvent)

// StateSource is the read contract shared by the push-updated state cache
// and the polling REST cache. Reads are synchronous and never block on the
// network.
type StateSource interface {
	GetState(entityID EntityID) *State
	AllStates() []*State
}

// Broker fans out state events to all subscribers. Every event is delivered
// to every currently registered callback, filtering is the subscriber's job.
type Broker struct {
	mu          sync.Mutex
	nextID      int64
	subscribers map[int64]StateFunc
}

func NewBroker() *Broker {
	return &Broker{subscribers: make(map[int64]StateFunc)}
}

// Subscribe registers a callback and returns its unsubscribe func.
func (b *Broker) Subscribe(callback StateFunc) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subscribers[id] = callback

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		delete(b.subscribers, id)
	}
}

// Publish delivers the event to a snapshot of the current subscribers, so
// callbacks may subscribe/unsubscribe while a notification pass is running.
func (b *Broker) Publish(event StateEvent) {
	b.mu.Lock()
	snapshot := make([]StateFunc, 0, len(b.subscribers))
	for _, callback := range b.subscribers {
		snapshot = append(snapshot, callback)
	}
	b.mu.Unlock()

	for _, callback := range snapshot {
		callback(event)
	}
}

// Len returns the number of registered subscribers.
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subscribers)
}
