package dashboard

import (
	"encoding/json"
	"fmt"
)

// Config is the dashboard configuration document edited by the browser UI.
// The store treats it as opaque, this is only the shape the server needs.
type Config struct {
	Settings Settings       `json:"settings"`
	Widgets  []WidgetConfig `json:"widgets"`
}

// Settings are the dashboard-wide options.
type Settings struct {
	Title string `json:"title,omitempty"`

	// RefreshSeconds is the poll interval of the legacy REST states cache.
	RefreshSeconds int `json:"refreshSeconds,omitempty"`
}

// WidgetConfig is one widget instance: its family plus free-form options
// decoded by the matching provider.
type WidgetConfig struct {
	ID       string         `json:"id,omitempty"`
	Type     string         `json:"type"`
	Title    string         `json:"title,omitempty"`
	Position int            `json:"position,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

// Decode parses a raw document, applying shape-compatible defaults: widgets
// without an id get a stable one derived from type and index.
func Decode(raw []byte) (*Config, error) {
	var cfg Config

	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config document: %w", err)
	}

	for i := range cfg.Widgets {
		if cfg.Widgets[i].ID == "" {
			cfg.Widgets[i].ID = fmt.Sprintf("%s-%d", cfg.Widgets[i].Type, i)
		}
	}

	return &cfg, nil
}

// Default returns the configuration used when no document has been saved
// yet: one widget per family so a fresh install renders a full (demo) board.
func Default() *Config {
	return &Config{
		Settings: Settings{Title: "homedash", RefreshSeconds: 60},
		Widgets: []WidgetConfig{
			{ID: "temperature-0", Type: "temperature"},
			{ID: "weather-0", Type: "weather"},
			{ID: "electricity-0", Type: "electricity"},
			{ID: "person-0", Type: "person"},
			{ID: "vehicle-0", Type: "vehicle"},
			{ID: "sensor-0", Type: "sensor"},
			{ID: "sensorgrid-0", Type: "sensorgrid"},
			{ID: "notifications-0", Type: "notifications"},
			{ID: "pollen-0", Type: "pollen"},
			{ID: "foodmenu-0", Type: "foodmenu"},
			{ID: "calendar-0", Type: "calendar"},
			{ID: "rss-0", Type: "rss"},
		},
	}
}
