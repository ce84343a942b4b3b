package widgets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homedash/homedash/internal/dashboard"
	"github.com/homedash/homedash/internal/homeassistant"
)

func Test_NotificationsProvider(t *testing.T) {
	source := testSource{
		"persistent_notification.update": {
			EntityID: homeassistant.EntityID{ID: "persistent_notification.update"},
			State:    "notifying",
			Attributes: homeassistant.Attributes{
				"title":   "Update available",
				"message": "Core 2026.8 is ready",
			},
		},
		"sensor.freezer": numericState("sensor.freezer", "-12.5", "°C"),
		"sensor.co2":     numericState("sensor.co2", "850", "ppm"),
	}
	broker := homeassistant.NewBroker()

	above := 1000.0
	below := -15.0

	provider, err := NewProvider(dashboard.WidgetConfig{
		ID:   "notifications-0",
		Type: "notifications",
		Options: map[string]any{
			"alerts": []any{
				// firing requires crossing the threshold, -12.5 > -15
				map[string]any{"entity": "sensor.freezer", "below": below, "message": "freezer too warm"},
				map[string]any{"entity": "sensor.co2", "above": above},
			},
		},
	}, Deps{Source: source, Events: broker})
	require.NoError(t, err)

	defer provider.Close()

	data, ok := provider.Snapshot().Data.(NotificationsData)
	require.True(t, ok)
	require.Len(t, data.Notifications, 1)
	assert.Equal(t, "system", data.Notifications[0].Kind)
	assert.Equal(t, "Update available", data.Notifications[0].Title)

	// co2 crosses its threshold
	source["sensor.co2"] = numericState("sensor.co2", "1337", "ppm")
	broker.Publish(homeassistant.StateEvent{
		Kind:     homeassistant.EventEntityChanged,
		EntityID: homeassistant.EntityID{ID: "sensor.co2"},
		State:    source["sensor.co2"],
	})

	data = provider.Snapshot().Data.(NotificationsData)
	require.Len(t, data.Notifications, 2)
	assert.Equal(t, "alert", data.Notifications[1].Kind)

	// the persistent notification gets dismissed
	delete(source, "persistent_notification.update")
	broker.Publish(homeassistant.StateEvent{
		Kind:     homeassistant.EventEntityRemoved,
		EntityID: homeassistant.EntityID{ID: "persistent_notification.update"},
	})

	data = provider.Snapshot().Data.(NotificationsData)
	require.Len(t, data.Notifications, 1)
	assert.Equal(t, "alert", data.Notifications[0].Kind)
}
