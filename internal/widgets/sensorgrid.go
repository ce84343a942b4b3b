package widgets

import (
	"github.com/homedash/homedash/internal/dashboard"
	"github.com/homedash/homedash/internal/homeassistant"
)

// SensorGridCellConfig is one grid cell, Entity is a free-form reference
// with optional attribute suffix.
type SensorGridCellConfig struct {
	Entity string `mapstructure:"entity"`
	Label  string `mapstructure:"label,omitempty"`
	Icon   string `mapstructure:"icon,omitempty"`
}

type SensorGridConfig struct {
	Columns int                    `mapstructure:"columns,omitempty"`
	Cells   []SensorGridCellConfig `mapstructure:"cells"`
}

type SensorGridCell struct {
	Label string `json:"label"`
	Value string `json:"value,omitempty"`
	Unit  string `json:"unit,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

type SensorGridData struct {
	Columns int              `json:"columns"`
	Cells   []SensorGridCell `json:"cells"`
}

type sensorGridProvider struct {
	binding
	cfg SensorGridConfig
}

func newSensorGridProvider(cfg dashboard.WidgetConfig, deps Deps) (Provider, error) {
	p := &sensorGridProvider{binding: newBinding(cfg.ID, "sensorgrid", deps)}

	if err := decodeOptions(cfg.Options, &p.cfg); err != nil {
		return nil, err
	}

	if p.cfg.Columns <= 0 {
		p.cfg.Columns = 2
	}

	if p.deps.demoMode() || len(p.cfg.Cells) == 0 {
		p.set(demoSensorGrid())

		return p, nil
	}

	for _, cell := range p.cfg.Cells {
		p.watch(homeassistant.ParseEntityRef(cell.Entity).EntityID)
	}

	p.subscribe(p.derive)
	p.derive()

	return p, nil
}

func (p *sensorGridProvider) derive() {
	data := SensorGridData{
		Columns: p.cfg.Columns,
		Cells:   make([]SensorGridCell, 0, len(p.cfg.Cells)),
	}

	for _, cell := range p.cfg.Cells {
		out := SensorGridCell{Label: cell.Label, Icon: cell.Icon}

		if resolved := homeassistant.ResolveEntityValue(cell.Entity, p.deps.Source); resolved.Valid {
			out.Value = resolved.Value
			out.Unit = resolved.Unit
		}

		if out.Label == "" {
			entityID := homeassistant.ParseEntityRef(cell.Entity).EntityID
			out.Label = entityID.EntityName()
		}

		data.Cells = append(data.Cells, out)
	}

	p.set(data)
}
