package widgets

import (
	"context"
	"strconv"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/homedash/homedash/internal/dashboard"
	"github.com/homedash/homedash/internal/homeassistant"
	"github.com/homedash/homedash/internal/icons"
)

var historyInterval = time.Minute * 5

// SensorEntityConfig is one free-form sensor reference with a display label.
type SensorEntityConfig struct {
	Entity string `mapstructure:"entity"`
	Label  string `mapstructure:"label,omitempty"`
}

// SensorHistoryConfig enables the chart slow path.
type SensorHistoryConfig struct {
	Hours       int         `mapstructure:"hours,omitempty"`
	GroupBy     Grouping    `mapstructure:"groupBy,omitempty"`
	Aggregation Aggregation `mapstructure:"aggregation,omitempty"`
}

type SensorConfig struct {
	Entities []SensorEntityConfig `mapstructure:"entities"`
	History  *SensorHistoryConfig `mapstructure:"history,omitempty"`
}

type SensorReading struct {
	Label string `json:"label"`
	Value string `json:"value,omitempty"`
	Unit  string `json:"unit,omitempty"`
}

type SensorData struct {
	Sensors []SensorReading          `json:"sensors"`
	Series  map[string][]SeriesPoint `json:"series,omitempty"`
}

type sensorProvider struct {
	binding
	cfg SensorConfig

	// bucketized history per entity id, filled by the slow path
	history *sideCache[[]SeriesPoint]
}

func newSensorProvider(cfg dashboard.WidgetConfig, deps Deps) (Provider, error) {
	p := &sensorProvider{
		binding: newBinding(cfg.ID, "sensor", deps),
		history: newSideCache[[]SeriesPoint](historyInterval),
	}

	if err := decodeOptions(cfg.Options, &p.cfg); err != nil {
		return nil, err
	}

	if p.cfg.History != nil {
		if p.cfg.History.Hours <= 0 {
			p.cfg.History.Hours = 24
		}

		if p.cfg.History.GroupBy == "" {
			p.cfg.History.GroupBy = GroupHour
		}

		if p.cfg.History.Aggregation == "" {
			p.cfg.History.Aggregation = AggAverage
		}
	}

	if p.deps.demoMode() || len(p.cfg.Entities) == 0 {
		p.set(demoSensor(p.cfg.History != nil))

		return p, nil
	}

	for _, entity := range p.cfg.Entities {
		p.watch(homeassistant.ParseEntityRef(entity.Entity).EntityID)
	}

	p.subscribe(p.derive)

	if p.cfg.History != nil && p.deps.REST != nil {
		p.every(historyInterval, p.fetchHistory)
	}

	p.derive()

	return p, nil
}

func (p *sensorProvider) derive() {
	data := SensorData{Sensors: make([]SensorReading, 0, len(p.cfg.Entities))}

	for _, entity := range p.cfg.Entities {
		reading := SensorReading{Label: p.labelFor(entity)}

		if resolved := homeassistant.ResolveEntityValue(entity.Entity, p.deps.Source); resolved.Valid {
			reading.Value = resolved.Value
			reading.Unit = resolved.Unit
		}

		data.Sensors = append(data.Sensors, reading)
	}

	if p.cfg.History != nil {
		series := make(map[string][]SeriesPoint)

		for _, entity := range p.cfg.Entities {
			entityID := homeassistant.ParseEntityRef(entity.Entity).EntityID
			if cached, ok := p.history.get(entityID.ID); ok {
				series[p.labelFor(entity)] = cached
			}
		}

		if len(series) > 0 {
			data.Series = series
		}
	}

	p.set(data)
}

func (p *sensorProvider) labelFor(entity SensorEntityConfig) string {
	if entity.Label != "" {
		return entity.Label
	}

	entityID := homeassistant.ParseEntityRef(entity.Entity).EntityID
	if state := p.deps.Source.GetState(entityID); state != nil {
		if name := state.Attributes.FriendlyName(); name != "" {
			return name
		}
	}

	return entityID.EntityName()
}

// fetchHistory pulls raw per-entity history, merges it onto a unified
// forward-filled time axis and buckets it per the configured grouping.
func (p *sensorProvider) fetchHistory() {
	entityIDs := make([]homeassistant.EntityID, 0, len(p.cfg.Entities))
	unique := mapset.NewSet[string]()

	for _, entity := range p.cfg.Entities {
		entityID := homeassistant.ParseEntityRef(entity.Entity).EntityID
		if unique.Add(entityID.ID) {
			entityIDs = append(entityIDs, entityID)
		}
	}

	if len(entityIDs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	end := time.Now()
	start := end.Add(-time.Duration(p.cfg.History.Hours) * time.Hour)

	history, err := p.deps.REST.GetHistory(ctx, entityIDs, start, end)
	if err != nil {
		p.pr.Warnf("%s history fetch failed: %v", icons.Chart, err)

		return
	}

	raw := make(map[string][]SeriesPoint, len(history))

	for _, entries := range history {
		if len(entries) == 0 {
			continue
		}

		points := make([]SeriesPoint, 0, len(entries))

		for _, entry := range entries {
			// non-numeric samples (unavailable, unknown) are skipped
			value, err := strconv.ParseFloat(entry.State, 64)
			if err != nil {
				continue
			}

			points = append(points, SeriesPoint{Time: entry.LastChanged, Value: value})
		}

		raw[entries[0].EntityID.ID] = points
	}

	for entityID, points := range unifyAxes(raw) {
		p.history.put(entityID, bucketize(points, p.cfg.History.GroupBy, p.cfg.History.Aggregation))
	}

	p.derive()
}
