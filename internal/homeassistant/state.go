package homeassistant

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/homedash/homedash/internal/models"
	"github.com/mitchellh/mapstructure"
)

// State is the last known condition of one entity.
type State struct {
	EntityID    EntityID   `json:"entity_id"    mapstructure:"entity_id"`
	State       string     `json:"state"        mapstructure:"state"`
	LastChanged time.Time  `json:"last_changed" mapstructure:"last_changed"`
	LastUpdated time.Time  `json:"last_updated" mapstructure:"last_updated"`
	Attributes  Attributes `json:"attributes"   mapstructure:"attributes"`
}

// Float parses the primary state value as a number.
func (s *State) Float() (float64, bool) {
	if s == nil {
		return 0, false
	}

	value, err := strconv.ParseFloat(s.State, 64)
	if err != nil {
		return 0, false
	}

	return value, true
}

// Attributes is the open string-keyed map of auxiliary entity values.
type Attributes map[string]any

// String returns the attribute rendered as string.
func (a Attributes) String(key string) (string, bool) {
	value, ok := a[key]
	if !ok || value == nil {
		return "", false
	}

	return fmt.Sprintf("%v", value), true
}

// Float returns the attribute as float64 if it is (or parses as) a number.
func (a Attributes) Float(key string) (float64, bool) {
	switch value := a[key].(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case string:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, false
		}

		return parsed, true
	default:
		return 0, false
	}
}

// Slice returns the attribute as a generic slice.
func (a Attributes) Slice(key string) ([]any, bool) {
	value, ok := a[key].([]any)

	return value, ok
}

// Time parses the attribute as RFC3339 timestamp.
func (a Attributes) Time(key string) (time.Time, bool) {
	raw, ok := a.String(key)
	if !ok {
		return time.Time{}, false
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}

	return parsed, true
}

func (a Attributes) FriendlyName() string {
	name, _ := a.String("friendly_name")

	return name
}

func (a Attributes) Unit() string {
	unit, _ := a.String("unit_of_measurement")

	return unit
}

// StringToEntityIDHookFunc decodes raw entity id strings into EntityID values.
func StringToEntityIDHookFunc() mapstructure.DecodeHookFunc { //nolint:ireturn
	return func(f reflect.Type, targetType reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}

		if targetType != reflect.TypeOf(EntityID{}) {
			return data, nil
		}

		if rawEntityID, ok := data.(string); ok {
			return NewEntityID(rawEntityID)
		}

		return nil, models.InvalidEntityIDErr(fmt.Sprint(data))
	}
}

// decodeHooks are the hooks used for all incoming websocket payloads.
func decodeHooks() mapstructure.DecodeHookFunc { //nolint:ireturn
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		StringToEntityIDHookFunc(),
	)
}
