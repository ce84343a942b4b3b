package widgets

import (
	"context"
	"sort"
	"time"

	"github.com/homedash/homedash/internal/dashboard"
	"github.com/homedash/homedash/internal/homeassistant"
	"github.com/homedash/homedash/internal/icons"
)

var calendarInterval = time.Minute

type CalendarConfig struct {
	Entities []homeassistant.EntityID `mapstructure:"entities"`
	Days     int                      `mapstructure:"days,omitempty"`
}

type CalendarItem struct {
	Summary     string    `json:"summary"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"allDay"`
	Calendar    string    `json:"calendar"`
	Description string    `json:"description,omitempty"`
}

type CalendarData struct {
	Events []CalendarItem `json:"events"`
}

type calendarProvider struct {
	binding
	cfg CalendarConfig

	// per-calendar event windows, one failing calendar keeps its previous
	// result instead of blanking the merged list
	events *sideCache[[]CalendarItem]
}

func newCalendarProvider(cfg dashboard.WidgetConfig, deps Deps) (Provider, error) {
	p := &calendarProvider{
		binding: newBinding(cfg.ID, "calendar", deps),
		events:  newSideCache[[]CalendarItem](calendarInterval),
	}

	if err := decodeOptions(cfg.Options, &p.cfg); err != nil {
		return nil, err
	}

	if p.cfg.Days <= 0 {
		p.cfg.Days = 7
	}

	if p.deps.demoMode() || len(p.cfg.Entities) == 0 || p.deps.REST == nil {
		p.set(demoCalendar(p.cfg.Days))

		return p, nil
	}

	p.every(calendarInterval, p.fetch)

	return p, nil
}

func (p *calendarProvider) fetch() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	start := time.Now()
	end := start.AddDate(0, 0, p.cfg.Days)

	for _, entityID := range p.cfg.Entities {
		if p.events.fresh(entityID.ID) {
			continue
		}

		events, err := p.deps.REST.GetCalendar(ctx, entityID, start, end)
		if err != nil {
			p.pr.Warnf("%s fetching %s failed: %v", icons.Calendar, entityID.ID, err)

			continue
		}

		items := make([]CalendarItem, 0, len(events))

		for _, event := range events {
			eventStart, allDay := event.Start.Time()
			eventEnd, _ := event.End.Time()

			items = append(items, CalendarItem{
				Summary:     event.Summary,
				Start:       eventStart,
				End:         eventEnd,
				AllDay:      allDay,
				Calendar:    entityID.EntityName(),
				Description: event.Description,
			})
		}

		p.events.put(entityID.ID, items)
	}

	p.derive()
}

func (p *calendarProvider) derive() {
	merged := make([]CalendarItem, 0)

	for _, entityID := range p.cfg.Entities {
		if items, ok := p.events.get(entityID.ID); ok {
			merged = append(merged, items...)
		}
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].Start.Before(merged[j].Start) })

	p.set(CalendarData{Events: merged})
}
