package homeassistant

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homedash/homedash/internal/models"
)

func TestMain(m *testing.M) {
	models.Printer = log.New(io.Discard)

	os.Exit(m.Run())
}

func Test_reconnectDelay(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{attempts: 0, want: 1 * time.Second},
		{attempts: 1, want: 2 * time.Second},
		{attempts: 2, want: 4 * time.Second},
		{attempts: 3, want: 8 * time.Second},
		{attempts: 4, want: 16 * time.Second},
		{attempts: 5, want: 30 * time.Second},
		{attempts: 6, want: 30 * time.Second},
		{attempts: 63, want: 30 * time.Second},
	}
	for _, tt := range tests {
		if got := reconnectDelay(tt.attempts); got != tt.want {
			t.Errorf("reconnectDelay(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func Test_New(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		token   string
		wantErr error
		wantWS  string
	}{
		{
			name:   "http becomes ws",
			url:    "http://hub.local:8123",
			token:  "secret",
			wantWS: "ws://hub.local:8123/api/websocket",
		},
		{
			name:   "https becomes wss",
			url:    "https://hub.example.org",
			token:  "secret",
			wantWS: "wss://hub.example.org/api/websocket",
		},
		{
			name:    "empty url",
			url:     "",
			token:   "secret",
			wantErr: models.ErrEmptyURL,
		},
		{
			name:    "empty token",
			url:     "http://hub.local:8123",
			token:   "",
			wantErr: models.ErrEmptyToken,
		},
		{
			name:    "unsupported scheme",
			url:     "ftp://hub.local",
			token:   "secret",
			wantErr: models.ErrEmptyURL,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ha, err := New(tt.url, tt.token)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("New() error = %v, want %v", err, tt.wantErr)
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantWS, ha.wsURL.String())
			assert.Equal(t, StateDisconnected, ha.ConnectionState())
		})
	}
}

// newWSHub runs a stub websocket hub and counts incoming dials. The session
// script services one accepted connection until it dies.
func newWSHub(t *testing.T, session func(ctx context.Context, conn *websocket.Conn)) (*httptest.Server, *atomic.Int64) {
	t.Helper()

	dials := &atomic.Int64{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials.Add(1)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer conn.CloseNow() //nolint:errcheck

		session(r.Context(), conn)
	}))
	t.Cleanup(srv.Close)

	return srv, dials
}

// scriptedHub speaks the hub side of the handshake: auth, a two-entity
// get_states result, subscribe confirmation, keepalive pongs.
func scriptedHub(token string) func(ctx context.Context, conn *websocket.Conn) {
	return func(ctx context.Context, conn *websocket.Conn) {
		if err := wsjson.Write(ctx, conn, map[string]any{"type": "auth_required", "ha_version": "2026.8.0"}); err != nil {
			return
		}

		var auth map[string]any
		if err := wsjson.Read(ctx, conn, &auth); err != nil {
			return
		}

		if auth["access_token"] != token {
			_ = wsjson.Write(ctx, conn, map[string]any{"type": "auth_invalid", "message": "invalid token"})
			_ = conn.Close(websocket.StatusPolicyViolation, "auth failed")

			return
		}

		if err := wsjson.Write(ctx, conn, map[string]any{"type": "auth_ok", "ha_version": "2026.8.0"}); err != nil {
			return
		}

		for {
			var msg map[string]any
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				return
			}

			var reply map[string]any

			switch msg["type"] {
			case "get_states":
				reply = map[string]any{
					"id": msg["id"], "type": "result", "success": true,
					"result": []map[string]any{
						{"entity_id": "sensor.power", "state": "42", "attributes": map[string]any{"unit_of_measurement": "W"}},
						{"entity_id": "light.kitchen", "state": "on"},
					},
				}
			case "subscribe_events":
				reply = map[string]any{"id": msg["id"], "type": "result", "success": true}
			case "ping":
				reply = map[string]any{"id": msg["id"], "type": "pong"}
			default:
				continue
			}

			if err := wsjson.Write(ctx, conn, reply); err != nil {
				return
			}
		}
	}
}

func Test_HomeAssistant_Session(t *testing.T) {
	srv, dials := newWSHub(t, scriptedHub("secret"))

	ha, err := New(srv.URL, "secret")
	require.NoError(t, err)

	// leftovers from failed cycles must be forgotten once auth succeeds
	ha.attempts = 4

	events := make(chan StateEvent, 8)
	ha.Events().Subscribe(func(event StateEvent) { events <- event })

	ha.Connect()
	defer ha.Close()

	require.Eventually(t, func() bool {
		return ha.ConnectionState() == StateConnected
	}, time.Second*5, time.Millisecond*10)

	select {
	case event := <-events:
		assert.Equal(t, EventBulkLoad, event.Kind)
	case <-time.After(time.Second * 5):
		t.Fatal("no bulk load event received")
	}

	state := ha.GetState(EntityID{ID: "sensor.power"})
	require.NotNil(t, state)
	assert.Equal(t, "42", state.State)
	assert.Equal(t, "W", state.Attributes.Unit())
	require.NotNil(t, ha.GetState(EntityID{ID: "light.kitchen"}))
	assert.Len(t, ha.AllStates(), 2)

	// successful auth resets the backoff counter
	assert.Equal(t, 0, ha.attempts)
	assert.Equal(t, int64(1), dials.Load())

	// the whole cycle fans out exactly one bulk load
	time.Sleep(time.Millisecond * 100)
	assert.Empty(t, events)
}

func Test_HomeAssistant_AuthInvalid(t *testing.T) {
	restore := baseReconnectDelay
	baseReconnectDelay = time.Millisecond * 10
	t.Cleanup(func() { baseReconnectDelay = restore })

	srv, dials := newWSHub(t, scriptedHub("secret"))

	ha, err := New(srv.URL, "wrong")
	require.NoError(t, err)

	ha.Connect()
	defer ha.Close()

	require.Eventually(t, func() bool {
		return dials.Load() == 1 && ha.ConnectionState() == StateDisconnected
	}, time.Second*5, time.Millisecond*10)

	// rejected credentials are terminal: no reconnect is ever scheduled
	time.Sleep(time.Millisecond * 250)
	assert.Equal(t, int64(1), dials.Load())
	assert.Equal(t, StateDisconnected, ha.ConnectionState())
}

func Test_HomeAssistant_handleEventMessage(t *testing.T) {
	ha, err := New("http://hub.local:8123", "secret")
	require.NoError(t, err)

	var events []StateEvent

	ha.Events().Subscribe(func(event StateEvent) { events = append(events, event) })

	changed := map[string]any{
		"id":   3,
		"type": "event",
		"event": map[string]any{
			"event_type": "state_changed",
			"origin":     "LOCAL",
			"time_fired": "2026-08-29T10:00:00+00:00",
			"data": map[string]any{
				"entity_id": "sensor.power",
				"new_state": map[string]any{
					"entity_id":    "sensor.power",
					"state":        "42.5",
					"last_changed": "2026-08-29T10:00:00+00:00",
					"last_updated": "2026-08-29T10:00:00+00:00",
					"attributes":   map[string]any{"unit_of_measurement": "W"},
				},
			},
		},
	}

	ha.handleEventMessage(changed)

	state := ha.GetState(EntityID{ID: "sensor.power"})
	require.NotNil(t, state)
	assert.Equal(t, "42.5", state.State)
	assert.Equal(t, "W", state.Attributes.Unit())

	require.Len(t, events, 1)
	assert.Equal(t, EventEntityChanged, events[0].Kind)
	assert.Equal(t, "sensor.power", events[0].EntityID.ID)

	// a nil new_state removes the entity from the cache
	removed := map[string]any{
		"id":   4,
		"type": "event",
		"event": map[string]any{
			"event_type": "state_changed",
			"data": map[string]any{
				"entity_id": "sensor.power",
				"old_state": map[string]any{
					"entity_id": "sensor.power",
					"state":     "42.5",
				},
			},
		},
	}

	ha.handleEventMessage(removed)

	assert.Nil(t, ha.GetState(EntityID{ID: "sensor.power"}))
	assert.Empty(t, ha.AllStates())

	require.Len(t, events, 2)
	assert.Equal(t, EventEntityRemoved, events[1].Kind)

	// non-state_changed events are ignored
	ha.handleEventMessage(map[string]any{
		"id":    5,
		"type":  "event",
		"event": map[string]any{"event_type": "call_service"},
	})

	assert.Len(t, events, 2)
}
