package homeassistant

import (
	"testing"
)

// fakeSource is a map-backed StateSource for tests.
type fakeSource map[string]*State

func (fs fakeSource) GetState(entityID EntityID) *State { return fs[entityID.ID] }

func (fs fakeSource) AllStates() []*State {
	states := make([]*State, 0, len(fs))
	for _, state := range fs {
		states = append(states, state)
	}

	return states
}

func Test_ParseEntityRef(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantID   string
		wantAttr string
	}{
		{
			name:   "plain entity id",
			raw:    "sensor.outdoor_temperature",
			wantID: "sensor.outdoor_temperature",
		},
		{
			name:     "entity id with attribute",
			raw:      "sensor.car.battery_level",
			wantID:   "sensor.car",
			wantAttr: "battery_level",
		},
		{
			name:     "attribute containing dots",
			raw:      "sensor.car.position.latitude",
			wantID:   "sensor.car",
			wantAttr: "position.latitude",
		},
		{
			name:     "explicit state attribute",
			raw:      "sensor.car.state",
			wantID:   "sensor.car",
			wantAttr: "state",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := ParseEntityRef(tt.raw)

			if ref.EntityID.ID != tt.wantID {
				t.Errorf("ParseEntityRef(%q).EntityID = %q, want %q", tt.raw, ref.EntityID.ID, tt.wantID)
			}

			if ref.Attribute != tt.wantAttr {
				t.Errorf("ParseEntityRef(%q).Attribute = %q, want %q", tt.raw, ref.Attribute, tt.wantAttr)
			}
		})
	}
}

func Test_EntityRef_Resolve(t *testing.T) {
	source := fakeSource{
		"sensor.power": {
			EntityID: EntityID{ID: "sensor.power"},
			State:    "1337",
			Attributes: Attributes{
				"unit_of_measurement": "W",
				"phase":               "L1",
			},
		},
	}

	tests := []struct {
		name string
		raw  string
		want ResolvedValue
	}{
		{
			name: "state with unit",
			raw:  "sensor.power",
			want: ResolvedValue{Value: "1337", Valid: true, Unit: "W"},
		},
		{
			name: "explicit state suffix resolves like plain state",
			raw:  "sensor.power.state",
			want: ResolvedValue{Value: "1337", Valid: true, Unit: "W"},
		},
		{
			name: "attribute without unit",
			raw:  "sensor.power.phase",
			want: ResolvedValue{Value: "L1", Valid: true},
		},
		{
			name: "missing attribute",
			raw:  "sensor.power.voltage",
			want: ResolvedValue{},
		},
		{
			name: "unknown entity",
			raw:  "sensor.water",
			want: ResolvedValue{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveEntityValue(tt.raw, source); got != tt.want {
				t.Errorf("ResolveEntityValue(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}
