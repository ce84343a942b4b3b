package dashboard

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homedash/homedash/internal/models"
)

func TestMain(m *testing.M) {
	models.Printer = log.New(io.Discard)

	os.Exit(m.Run())
}

func Test_Decode(t *testing.T) {
	raw := []byte(`{
		"settings": {"title": "our home", "refreshSeconds": 30},
		"widgets": [
			{"type": "weather", "options": {"entity": "weather.home"}},
			{"id": "custom", "type": "rss"}
		]
	}`)

	cfg, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, "our home", cfg.Settings.Title)
	assert.Equal(t, 30, cfg.Settings.RefreshSeconds)
	require.Len(t, cfg.Widgets, 2)

	// a missing id gets a stable generated one, an explicit id is kept
	assert.Equal(t, "weather-0", cfg.Widgets[0].ID)
	assert.Equal(t, "custom", cfg.Widgets[1].ID)
}

func Test_Decode_Invalid(t *testing.T) {
	_, err := Decode([]byte("{not json"))

	assert.Error(t, err)
}

func Test_Store_RawMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "dashboard.json"))

	raw, err := store.Raw()
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, json.Unmarshal(raw, &cfg))
	assert.Len(t, cfg.Widgets, len(Default().Widgets))
}

func Test_Store_SaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dashboard.json")
	store := NewStore(path)

	raw := []byte(`{"settings": {"title": "saved"}, "widgets": [{"type": "person"}]}`)

	cfg, err := store.Save(raw)
	require.NoError(t, err)
	assert.Equal(t, "saved", cfg.Settings.Title)

	loaded := store.Load()
	require.Len(t, loaded.Widgets, 1)
	assert.Equal(t, "person-0", loaded.Widgets[0].ID)

	// the document is stored verbatim
	stored, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, raw, stored)
}

func Test_Store_SaveRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.json")
	store := NewStore(path)

	_, err := store.Save([]byte("nope"))
	require.Error(t, err)

	// nothing was written
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func Test_Store_LoadCorruptFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	cfg := NewStore(path).Load()

	assert.Len(t, cfg.Widgets, len(Default().Widgets))
}
