package widgets

import (
	"github.com/homedash/homedash/internal/dashboard"
	"github.com/homedash/homedash/internal/homeassistant"
)

type PersonConfig struct {
	Entities []homeassistant.EntityID `mapstructure:"entities"`
}

// PersonStatus is one tracked person: home/not_home/zone name plus the
// optional picture and tracker battery.
type PersonStatus struct {
	Name    string   `json:"name"`
	State   string   `json:"state"`
	Home    bool     `json:"home"`
	Picture string   `json:"picture,omitempty"`
	Battery *float64 `json:"battery,omitempty"`
}

type PersonData struct {
	Persons []PersonStatus `json:"persons"`
}

type personProvider struct {
	binding
	cfg PersonConfig
}

func newPersonProvider(cfg dashboard.WidgetConfig, deps Deps) (Provider, error) {
	p := &personProvider{binding: newBinding(cfg.ID, "person", deps)}

	if err := decodeOptions(cfg.Options, &p.cfg); err != nil {
		return nil, err
	}

	if p.deps.demoMode() || len(p.cfg.Entities) == 0 {
		p.set(demoPerson())

		return p, nil
	}

	p.watch(p.cfg.Entities...)
	p.subscribe(p.derive)
	p.derive()

	return p, nil
}

func (p *personProvider) derive() {
	data := PersonData{Persons: make([]PersonStatus, 0, len(p.cfg.Entities))}

	for _, entityID := range p.cfg.Entities {
		status := PersonStatus{Name: entityID.EntityName()}

		if state := p.deps.Source.GetState(entityID); state != nil {
			if name := state.Attributes.FriendlyName(); name != "" {
				status.Name = name
			}

			status.State = state.State
			status.Home = state.State == "home"

			if picture, ok := state.Attributes.String("entity_picture"); ok {
				status.Picture = picture
			}

			if battery, ok := state.Attributes.Float("battery_level"); ok {
				status.Battery = &battery
			}
		}

		data.Persons = append(data.Persons, status)
	}

	p.set(data)
}
