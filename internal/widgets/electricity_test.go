package widgets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homedash/homedash/internal/dashboard"
	"github.com/homedash/homedash/internal/homeassistant"
)

func Test_parseRawPrices(t *testing.T) {
	raw := []any{
		map[string]any{"start": "2026-08-29T00:00:00+02:00", "value": 0.50},
		map[string]any{"start": "2026-08-29T01:00:00+02:00", "value": 0.75},
		// non-numeric value is dropped
		map[string]any{"start": "2026-08-29T02:00:00+02:00", "value": nil},
		// missing start is dropped
		map[string]any{"value": 1.0},
		// not a map at all
		"garbage",
	}

	points := parseRawPrices(raw, 0.10)

	require.Len(t, points, 2)

	// the surcharge is applied exactly once per point
	assert.InDelta(t, 0.60, points[0].Value, 1e-9)
	assert.InDelta(t, 0.85, points[1].Value, 1e-9)

	want, err := time.Parse(time.RFC3339, "2026-08-29T00:00:00+02:00")
	require.NoError(t, err)
	assert.True(t, points[0].Start.Equal(want))
}

func Test_parseRawPrices_NoSurcharge(t *testing.T) {
	raw := []any{
		map[string]any{"start": "2026-08-29T00:00:00+02:00", "value": 1.25},
	}

	points := parseRawPrices(raw, 0)

	require.Len(t, points, 1)
	assert.InDelta(t, 1.25, points[0].Value, 1e-9)
}

func priceState(state string, raw []any) *homeassistant.State {
	return &homeassistant.State{
		EntityID: homeassistant.EntityID{ID: "sensor.price"},
		State:    state,
		Attributes: homeassistant.Attributes{
			"unit_of_measurement": "SEK/kWh",
			"raw_today":           raw,
		},
	}
}

func Test_ElectricityProvider_Derive(t *testing.T) {
	raw := []any{
		map[string]any{"start": "2026-08-29T00:00:00+02:00", "value": 0.40},
		map[string]any{"start": "2026-08-29T01:00:00+02:00", "value": 0.60},
	}
	source := testSource{"sensor.price": priceState("0.50", raw)}
	broker := homeassistant.NewBroker()

	provider, err := NewProvider(dashboard.WidgetConfig{
		ID:   "electricity-0",
		Type: "electricity",
		Options: map[string]any{
			"entity":    "sensor.price",
			"surcharge": 0.10,
		},
	}, Deps{Source: source, Events: broker})
	require.NoError(t, err)

	defer provider.Close()

	data, ok := provider.Snapshot().Data.(ElectricityData)
	require.True(t, ok)

	// the surcharge hits the current price exactly once
	require.NotNil(t, data.CurrentPrice)
	assert.InDelta(t, 0.60, *data.CurrentPrice, 1e-9)
	assert.Equal(t, "SEK/kWh", data.Unit)

	require.Len(t, data.Today, 2)
	assert.InDelta(t, 0.50, data.Today[0].Value, 1e-9)
	assert.InDelta(t, 0.70, data.Today[1].Value, 1e-9)
	assert.Empty(t, data.Tomorrow)

	// a price update re-derives, again with the surcharge applied once
	source["sensor.price"] = priceState("0.80", raw)
	broker.Publish(homeassistant.StateEvent{
		Kind:     homeassistant.EventEntityChanged,
		EntityID: homeassistant.EntityID{ID: "sensor.price"},
		State:    source["sensor.price"],
	})

	data = provider.Snapshot().Data.(ElectricityData)
	require.NotNil(t, data.CurrentPrice)
	assert.InDelta(t, 0.90, *data.CurrentPrice, 1e-9)
}
