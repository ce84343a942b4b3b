package homeassistant

import (
	"errors"
	"testing"

	"github.com/homedash/homedash/internal/models"
)

func Test_NewEntityID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{
			name: "valid entity id",
			raw:  "sensor.living_room_temperature",
		},
		{
			name: "valid entity id with 'subdomain'",
			raw:  "light.living_room.hue",
		},
		{
			name:    "empty entity id",
			raw:     "",
			wantErr: models.ErrEmptyEntityID,
		},
		{
			name:    "entity id without domain",
			raw:     "living_room",
			wantErr: models.ErrInvalidEntityID,
		},
		{
			name:    "entity id with empty domain",
			raw:     ".living_room",
			wantErr: models.ErrInvalidEntityID,
		},
		{
			name:    "entity id with empty name",
			raw:     "sensor.",
			wantErr: models.ErrInvalidEntityID,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eID, err := NewEntityID(tt.raw)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewEntityID(%q) error = %v, want %v", tt.raw, err, tt.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("NewEntityID(%q) unexpected error: %v", tt.raw, err)
			}

			if eID.String() != tt.raw {
				t.Errorf("NewEntityID(%q).String() = %q", tt.raw, eID.String())
			}
		})
	}
}

func Test_EntityID_Domain(t *testing.T) {
	tests := []struct {
		name string
		eID  EntityID
		want string
	}{
		{
			name: "plain entity id",
			eID:  EntityID{ID: "binary_sensor.motion_hallway"},
			want: "binary_sensor",
		},
		{
			name: "entity id with 'subdomain'",
			eID:  EntityID{ID: "light.living_room.hue"},
			want: "light",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eID.Domain(); got != tt.want {
				t.Errorf("EntityID.Domain() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_EntityID_EntityName(t *testing.T) {
	eID := EntityID{ID: "sensor.outdoor_temperature"}

	if got := eID.EntityName(); got != "outdoor_temperature" {
		t.Errorf("EntityID.EntityName() = %v, want outdoor_temperature", got)
	}
}
