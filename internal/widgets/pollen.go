package widgets

import (
	"github.com/homedash/homedash/internal/dashboard"
	"github.com/homedash/homedash/internal/homeassistant"
)

type PollenConfig struct {
	Entities []homeassistant.EntityID `mapstructure:"entities"`
}

// PollenLevel is one allergen reading. Value is nil for non-numeric levels.
type PollenLevel struct {
	Allergen string   `json:"allergen"`
	Level    string   `json:"level"`
	Value    *float64 `json:"value,omitempty"`
	Unit     string   `json:"unit,omitempty"`
}

type PollenData struct {
	Levels []PollenLevel `json:"levels"`
}

type pollenProvider struct {
	binding
	cfg PollenConfig
}

func newPollenProvider(cfg dashboard.WidgetConfig, deps Deps) (Provider, error) {
	p := &pollenProvider{binding: newBinding(cfg.ID, "pollen", deps)}

	if err := decodeOptions(cfg.Options, &p.cfg); err != nil {
		return nil, err
	}

	if p.deps.demoMode() || len(p.cfg.Entities) == 0 {
		p.set(demoPollen())

		return p, nil
	}

	p.watch(p.cfg.Entities...)
	p.subscribe(p.derive)
	p.derive()

	return p, nil
}

func (p *pollenProvider) derive() {
	data := PollenData{Levels: make([]PollenLevel, 0, len(p.cfg.Entities))}

	for _, entityID := range p.cfg.Entities {
		level := PollenLevel{Allergen: entityID.EntityName()}

		if state := p.deps.Source.GetState(entityID); state != nil {
			if name := state.Attributes.FriendlyName(); name != "" {
				level.Allergen = name
			}

			level.Level = state.State
			level.Unit = state.Attributes.Unit()

			if value, ok := state.Float(); ok {
				level.Value = &value
			}
		}

		data.Levels = append(data.Levels, level)
	}

	p.set(data)
}
