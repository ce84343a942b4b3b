package widgets

import (
	"time"

	"github.com/homedash/homedash/internal/dashboard"
	"github.com/homedash/homedash/internal/homeassistant"
)

// ElectricityConfig watches a price entity exposing raw_today/raw_tomorrow
// attribute arrays. Surcharge is a flat additive adjustment applied exactly
// once to the current price and to every raw point.
type ElectricityConfig struct {
	Entity    homeassistant.EntityID `mapstructure:"entity"`
	Surcharge float64                `mapstructure:"surcharge,omitempty"`
}

type PricePoint struct {
	Start time.Time `json:"start"`
	Value float64   `json:"value"`
}

type ElectricityData struct {
	CurrentPrice *float64     `json:"currentPrice"`
	Unit         string       `json:"unit,omitempty"`
	Today        []PricePoint `json:"today"`
	Tomorrow     []PricePoint `json:"tomorrow"`
}

type electricityProvider struct {
	binding
	cfg ElectricityConfig
}

func newElectricityProvider(cfg dashboard.WidgetConfig, deps Deps) (Provider, error) {
	p := &electricityProvider{binding: newBinding(cfg.ID, "electricity", deps)}

	if err := decodeOptions(cfg.Options, &p.cfg); err != nil {
		return nil, err
	}

	if p.deps.demoMode() || p.cfg.Entity.ID == "" {
		p.set(demoElectricity(p.cfg.Surcharge))

		return p, nil
	}

	p.watch(p.cfg.Entity)
	p.subscribe(p.derive)
	p.derive()

	return p, nil
}

func (p *electricityProvider) derive() {
	data := ElectricityData{}

	state := p.deps.Source.GetState(p.cfg.Entity)
	if state != nil {
		if current, ok := state.Float(); ok {
			current += p.cfg.Surcharge
			data.CurrentPrice = &current
		}

		data.Unit = state.Attributes.Unit()

		if raw, ok := state.Attributes.Slice("raw_today"); ok {
			data.Today = parseRawPrices(raw, p.cfg.Surcharge)
		}

		if raw, ok := state.Attributes.Slice("raw_tomorrow"); ok {
			data.Tomorrow = parseRawPrices(raw, p.cfg.Surcharge)
		}
	}

	p.set(data)
}

// parseRawPrices converts raw {start, value} attribute points, adding the
// surcharge to every point. Points without a numeric value are dropped.
func parseRawPrices(raw []any, surcharge float64) []PricePoint {
	points := make([]PricePoint, 0, len(raw))

	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}

		value, ok := homeassistant.Attributes(entry).Float("value")
		if !ok {
			continue
		}

		start, ok := homeassistant.Attributes(entry).Time("start")
		if !ok {
			continue
		}

		points = append(points, PricePoint{Start: start, Value: value + surcharge})
	}

	return points
}
