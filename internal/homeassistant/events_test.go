package homeassistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Broker_FanOut(t *testing.T) {
	broker := NewBroker()

	var first, second []StateEvent

	broker.Subscribe(func(event StateEvent) { first = append(first, event) })
	broker.Subscribe(func(event StateEvent) { second = append(second, event) })

	assert.Equal(t, 2, broker.Len())

	broker.Publish(StateEvent{Kind: EventBulkLoad})
	broker.Publish(StateEvent{Kind: EventEntityChanged, EntityID: EntityID{ID: "light.kitchen"}})

	assert.Len(t, first, 2)
	assert.Len(t, second, 2)
	assert.Equal(t, EventBulkLoad, first[0].Kind)
	assert.Equal(t, "light.kitchen", second[1].EntityID.ID)
}

func Test_Broker_Unsubscribe(t *testing.T) {
	broker := NewBroker()

	calls := 0
	unsubscribe := broker.Subscribe(func(StateEvent) { calls++ })

	broker.Publish(StateEvent{Kind: EventBulkLoad})
	unsubscribe()
	broker.Publish(StateEvent{Kind: EventBulkLoad})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, broker.Len())

	// unsubscribing twice is a no-op
	unsubscribe()
}

// Subscribers may add or remove subscriptions from inside a callback, the
// running notification must not crash or deadlock.
func Test_Broker_MutateDuringNotification(t *testing.T) {
	broker := NewBroker()

	var unsubscribeSelf func()

	added := 0

	unsubscribeSelf = broker.Subscribe(func(StateEvent) {
		broker.Subscribe(func(StateEvent) { added++ })
		unsubscribeSelf()
	})

	broker.Publish(StateEvent{Kind: EventBulkLoad})

	// only the late subscriber remains
	assert.Equal(t, 1, broker.Len())

	broker.Publish(StateEvent{Kind: EventBulkLoad})

	assert.Equal(t, 1, added)
}
