package homeassistant

import (
	"fmt"
	"strings"
)

// EntityRef is a parsed entity reference: an entity id plus an optional
// attribute suffix ("sensor.car.battery_level" → sensor.car / battery_level).
type EntityRef struct {
	EntityID  EntityID
	Attribute string
}

// ParseEntityRef splits a raw reference on ".". With three or more segments
// the first two form the entity id and the rest (rejoined with ".") is the
// attribute name, otherwise the whole string is the entity id.
func ParseEntityRef(raw string) EntityRef {
	parts := strings.Split(raw, ".")
	if len(parts) >= 3 {
		return EntityRef{
			EntityID:  EntityID{ID: parts[0] + "." + parts[1]},
			Attribute: strings.Join(parts[2:], "."),
		}
	}

	return EntityRef{EntityID: EntityID{ID: raw}}
}

// ResolvedValue is the display value and unit extracted for a reference.
// Valid is false when the entity (or the named attribute) is not in the cache.
type ResolvedValue struct {
	Value string
	Valid bool
	Unit  string
}

// Resolve looks up the reference in the given state source. A named attribute
// other than the literal "state" resolves to the stringified attribute value
// with no unit, everything else resolves to the primary state value with the
// entity's unit of measurement.
func (ref EntityRef) Resolve(source StateSource) ResolvedValue {
	state := source.GetState(ref.EntityID)
	if state == nil {
		return ResolvedValue{}
	}

	if ref.Attribute != "" && ref.Attribute != "state" {
		raw, ok := state.Attributes[ref.Attribute]
		if !ok || raw == nil {
			return ResolvedValue{}
		}

		return ResolvedValue{Value: fmt.Sprintf("%v", raw), Valid: true}
	}

	return ResolvedValue{Value: state.State, Valid: true, Unit: state.Attributes.Unit()}
}

// ResolveEntityValue parses and resolves a raw reference in one step.
func ResolveEntityValue(raw string, source StateSource) ResolvedValue {
	return ParseEntityRef(raw).Resolve(source)
}
