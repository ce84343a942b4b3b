package widgets

import (
	"sort"

	"github.com/homedash/homedash/internal/dashboard"
	"github.com/homedash/homedash/internal/homeassistant"
)

// TemperatureSensorConfig is one configured temperature sensor. Group
// defaults to the sensor's index, one group renders as one widget tile.
type TemperatureSensorConfig struct {
	Entity homeassistant.EntityID `mapstructure:"entity"`
	Label  string                 `mapstructure:"label,omitempty"`
	Group  *int                   `mapstructure:"group,omitempty"`
}

type TemperatureConfig struct {
	Sensors []TemperatureSensorConfig `mapstructure:"sensors"`
}

// TemperatureReading is one resolved sensor value. Value is nil while the
// entity is missing from the cache or non-numeric.
type TemperatureReading struct {
	Label string   `json:"label"`
	Value *float64 `json:"value"`
	Unit  string   `json:"unit,omitempty"`
}

type TemperatureGroup struct {
	Group   int                  `json:"group"`
	Sensors []TemperatureReading `json:"sensors"`
}

type TemperatureData struct {
	Groups []TemperatureGroup `json:"groups"`
}

type temperatureProvider struct {
	binding
	cfg TemperatureConfig
}

func newTemperatureProvider(cfg dashboard.WidgetConfig, deps Deps) (Provider, error) {
	p := &temperatureProvider{binding: newBinding(cfg.ID, "temperature", deps)}

	if err := decodeOptions(cfg.Options, &p.cfg); err != nil {
		return nil, err
	}

	if p.deps.demoMode() || len(p.cfg.Sensors) == 0 {
		p.set(demoTemperature())

		return p, nil
	}

	for _, sensor := range p.cfg.Sensors {
		p.watch(sensor.Entity)
	}

	p.subscribe(p.derive)
	p.derive()

	return p, nil
}

// derive recomputes the group layout from config on every pass, so config
// edits and cache updates both land in the same shape.
func (p *temperatureProvider) derive() {
	groups := make(map[int]*TemperatureGroup)
	order := make([]int, 0)

	for i, sensor := range p.cfg.Sensors {
		groupIndex := i
		if sensor.Group != nil {
			groupIndex = *sensor.Group
		}

		group, ok := groups[groupIndex]
		if !ok {
			group = &TemperatureGroup{Group: groupIndex}
			groups[groupIndex] = group
			order = append(order, groupIndex)
		}

		reading := TemperatureReading{Label: sensor.Label}

		if state := p.deps.Source.GetState(sensor.Entity); state != nil {
			if reading.Label == "" {
				reading.Label = state.Attributes.FriendlyName()
			}

			if value, ok := state.Float(); ok {
				reading.Value = &value
			}

			reading.Unit = state.Attributes.Unit()
		}

		if reading.Label == "" {
			reading.Label = sensor.Entity.EntityName()
		}

		group.Sensors = append(group.Sensors, reading)
	}

	sort.Ints(order)

	data := TemperatureData{Groups: make([]TemperatureGroup, 0, len(order))}
	for _, groupIndex := range order {
		data.Groups = append(data.Groups, *groups[groupIndex])
	}

	p.set(data)
}
