package widgets

import (
	"github.com/homedash/homedash/internal/dashboard"
	"github.com/homedash/homedash/internal/homeassistant"
)

// VehicleSectionConfig is one telemetry row. Entity is a free-form reference
// and may carry a dotted attribute suffix ("sensor.car.battery_level").
type VehicleSectionConfig struct {
	Label  string `mapstructure:"label"`
	Entity string `mapstructure:"entity"`
}

type VehicleConfig struct {
	Name     string                 `mapstructure:"name,omitempty"`
	Sections []VehicleSectionConfig `mapstructure:"sections"`
}

type VehicleValue struct {
	Label string `json:"label"`
	Value string `json:"value,omitempty"`
	Unit  string `json:"unit,omitempty"`
}

type VehicleData struct {
	Name     string         `json:"name"`
	Sections []VehicleValue `json:"sections"`
}

type vehicleProvider struct {
	binding
	cfg VehicleConfig
}

func newVehicleProvider(cfg dashboard.WidgetConfig, deps Deps) (Provider, error) {
	p := &vehicleProvider{binding: newBinding(cfg.ID, "vehicle", deps)}

	if err := decodeOptions(cfg.Options, &p.cfg); err != nil {
		return nil, err
	}

	if p.deps.demoMode() || len(p.cfg.Sections) == 0 {
		p.set(demoVehicle())

		return p, nil
	}

	for _, section := range p.cfg.Sections {
		p.watch(homeassistant.ParseEntityRef(section.Entity).EntityID)
	}

	p.subscribe(p.derive)
	p.derive()

	return p, nil
}

func (p *vehicleProvider) derive() {
	data := VehicleData{
		Name:     p.cfg.Name,
		Sections: make([]VehicleValue, 0, len(p.cfg.Sections)),
	}

	for _, section := range p.cfg.Sections {
		value := VehicleValue{Label: section.Label}

		// all references go through the shared resolver, a missing entity
		// renders as a neutral placeholder
		if resolved := homeassistant.ResolveEntityValue(section.Entity, p.deps.Source); resolved.Valid {
			value.Value = resolved.Value
			value.Unit = resolved.Unit
		}

		data.Sections = append(data.Sections, value)
	}

	p.set(data)
}
