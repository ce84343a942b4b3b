package widgets

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/homedash/homedash/internal/dashboard"
	"github.com/homedash/homedash/internal/homeassistant"
)

const persistentNotificationPrefix = "persistent_notification."

// AlertRule is a user-defined threshold check against a numeric entity
// value. Exactly one of Above/Below/Equals should be set.
type AlertRule struct {
	Entity  string   `mapstructure:"entity"`
	Above   *float64 `mapstructure:"above,omitempty"`
	Below   *float64 `mapstructure:"below,omitempty"`
	Equals  *float64 `mapstructure:"equals,omitempty"`
	Message string   `mapstructure:"message,omitempty"`
}

type NotificationsConfig struct {
	Alerts []AlertRule `mapstructure:"alerts,omitempty"`
}

type Notification struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
	Kind    string `json:"kind"` // "system" or "alert"
}

type NotificationsData struct {
	Notifications []Notification `json:"notifications"`
}

type notificationsProvider struct {
	binding
	cfg NotificationsConfig
}

func newNotificationsProvider(cfg dashboard.WidgetConfig, deps Deps) (Provider, error) {
	p := &notificationsProvider{binding: newBinding(cfg.ID, "notifications", deps)}

	if err := decodeOptions(cfg.Options, &p.cfg); err != nil {
		return nil, err
	}

	if p.deps.demoMode() {
		p.set(demoNotifications())

		return p, nil
	}

	for _, alert := range p.cfg.Alerts {
		p.watch(homeassistant.ParseEntityRef(alert.Entity).EntityID)
	}

	// persistent notifications come and go under a fixed id prefix, so the
	// filter matches on the prefix instead of a static watch set
	p.subscribeFiltered(func(event homeassistant.StateEvent) bool {
		return p.watched.Contains(event.EntityID) ||
			strings.HasPrefix(event.EntityID.ID, persistentNotificationPrefix)
	}, p.derive)

	p.derive()

	return p, nil
}

// derive merges persistent system notifications (bulk-state scan by id
// prefix) with the configured threshold alerts into one list.
func (p *notificationsProvider) derive() {
	data := NotificationsData{Notifications: make([]Notification, 0)}

	for _, state := range p.deps.Source.AllStates() {
		if !strings.HasPrefix(state.EntityID.ID, persistentNotificationPrefix) {
			continue
		}

		title, _ := state.Attributes.String("title")
		message, _ := state.Attributes.String("message")

		data.Notifications = append(data.Notifications, Notification{
			ID:      state.EntityID.ID,
			Title:   title,
			Message: message,
			Kind:    "system",
		})
	}

	for i, alert := range p.cfg.Alerts {
		notification, firing := p.evaluate(i, alert)
		if firing {
			data.Notifications = append(data.Notifications, notification)
		}
	}

	p.set(data)
}

func (p *notificationsProvider) evaluate(index int, alert AlertRule) (Notification, bool) {
	resolved := homeassistant.ResolveEntityValue(alert.Entity, p.deps.Source)
	if !resolved.Valid {
		return Notification{}, false
	}

	value, err := strconv.ParseFloat(resolved.Value, 64)
	if err != nil {
		return Notification{}, false
	}

	firing := false

	switch {
	case alert.Above != nil:
		firing = value > *alert.Above
	case alert.Below != nil:
		firing = value < *alert.Below
	case alert.Equals != nil:
		firing = value == *alert.Equals
	}

	if !firing {
		return Notification{}, false
	}

	message := alert.Message
	if message == "" {
		message = fmt.Sprintf("%s is %v%s", alert.Entity, resolved.Value, resolved.Unit)
	}

	return Notification{
		ID:      fmt.Sprintf("alert-%d", index),
		Title:   "Alert",
		Message: message,
		Kind:    "alert",
	}, true
}
