package widgets

import (
	"context"
	"sort"
	"time"

	"github.com/homedash/homedash/internal/dashboard"
	"github.com/homedash/homedash/internal/homeassistant"
	"github.com/homedash/homedash/internal/icons"
)

var foodMenuInterval = time.Minute

// FoodMenuConfig points at a calendar entity whose events are menu items
// (e.g. a school lunch calendar).
type FoodMenuConfig struct {
	Entity homeassistant.EntityID `mapstructure:"entity"`
	Days   int                    `mapstructure:"days,omitempty"`
}

type FoodMenuDay struct {
	Date  string   `json:"date"` // 2006-01-02
	Items []string `json:"items"`
}

type FoodMenuData struct {
	Days []FoodMenuDay `json:"days"`
}

type foodMenuProvider struct {
	binding
	cfg FoodMenuConfig

	menu *sideCache[[]FoodMenuDay]
}

func newFoodMenuProvider(cfg dashboard.WidgetConfig, deps Deps) (Provider, error) {
	p := &foodMenuProvider{
		binding: newBinding(cfg.ID, "foodmenu", deps),
		menu:    newSideCache[[]FoodMenuDay](foodMenuInterval),
	}

	if err := decodeOptions(cfg.Options, &p.cfg); err != nil {
		return nil, err
	}

	if p.cfg.Days <= 0 {
		p.cfg.Days = 5
	}

	if p.deps.demoMode() || p.cfg.Entity.ID == "" || p.deps.REST == nil {
		p.set(demoFoodMenu(p.cfg.Days))

		return p, nil
	}

	p.every(foodMenuInterval, p.fetch)

	return p, nil
}

func (p *foodMenuProvider) fetch() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	start := time.Now()
	end := start.AddDate(0, 0, p.cfg.Days)

	events, err := p.deps.REST.GetCalendar(ctx, p.cfg.Entity, start, end)
	if err != nil {
		p.pr.Warnf("%s fetching menu failed: %v", icons.Calendar, err)

		// keep the previous value, the next tick retries
		if cached, ok := p.menu.get(p.cfg.Entity.ID); ok {
			p.set(FoodMenuData{Days: cached})
		}

		return
	}

	byDate := make(map[string][]string)

	for _, event := range events {
		eventStart, _ := event.Start.Time()
		date := eventStart.Format("2006-01-02")
		byDate[date] = append(byDate[date], event.Summary)
	}

	days := make([]FoodMenuDay, 0, len(byDate))
	for date, items := range byDate {
		days = append(days, FoodMenuDay{Date: date, Items: items})
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	p.menu.put(p.cfg.Entity.ID, days)
	p.set(FoodMenuData{Days: days})
}
