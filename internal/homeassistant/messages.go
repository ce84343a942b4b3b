package homeassistant

import (
	"strconv"
	"strings"
	"time"

	"github.com/homedash/homedash/internal/icons"
	"github.com/homedash/homedash/internal/style"
)

// Message is the interface for all messages sent to or received from Home Assistant.
type Message interface {
	// SetID sets the message ID and returns it.
	SetID(id int64) int64
	// GetID returns the message ID.
	GetID() int64

	// String returns a string representation of the message.
	String() string
}

// baseMessage is the base struct for all messages sent to or received from Home Assistant.
type baseMessage struct {
	ID   int64  `json:"id,omitempty" mapstructure:"id,omitempty"`
	Type string `json:"type"         mapstructure:"type"`
}

func (m *baseMessage) SetID(id int64) int64 {
	m.ID = id

	return m.ID
}

func (m *baseMessage) GetID() int64 {
	return m.ID
}

func (m *baseMessage) framelessString() string {
	out := strings.Builder{}
	out.WriteString(style.Gray(6).Render("#"))
	out.WriteString(strconv.FormatInt(m.ID, 10))
	out.WriteString(style.ColorizeHABlue("|"))

	return out.String()
}

func (m *baseMessage) framelessStringWithType() string {
	out := strings.Builder{}
	out.WriteString(m.framelessString())
	out.WriteString(style.Gray(8).Render(m.Type))

	return out.String()
}

func (m *baseMessage) String() string {
	return style.HABlueFrame(m.framelessStringWithType())
}

// VersionMsg is the server hello (auth_required / auth_ok / auth_invalid).
type VersionMsg struct {
	baseMessage `mapstructure:",squash"`
	HaVersion   string `json:"ha_version"`
	Message     string `json:"message,omitempty"`
}

type AuthMsg struct {
	baseMessage `mapstructure:",squash"`
	AccessToken string `json:"access_token"`
}

func NewAuthMsg(token string) AuthMsg {
	return AuthMsg{
		baseMessage: baseMessage{Type: "auth"},
		AccessToken: token,
	}
}

func NewGetStatesMsg() *baseMessage {
	return &baseMessage{Type: "get_states"}
}

func NewPingMsg() *baseMessage {
	return &baseMessage{Type: "ping"}
}

type SubscribeMsg struct {
	baseMessage `mapstructure:",squash"`
	EventType   string `json:"event_type"`
}

func (m *SubscribeMsg) String() string {
	out := strings.Builder{}

	out.WriteString(m.framelessStringWithType())
	out.WriteString(style.ColorizeHABlue(" → "))
	out.WriteString(style.Bold(m.EventType))

	return style.HABlueFrame(out.String())
}

func NewSubscribeMsg(eventType string) *SubscribeMsg {
	return &SubscribeMsg{
		baseMessage: baseMessage{Type: "subscribe_events"},
		EventType:   eventType,
	}
}

// EventMsg wraps an incoming event notification.
type EventMsg struct {
	baseMessage `mapstructure:",squash"`
	Event       *Event `json:"event" mapstructure:"event"`
}

// Event is the payload of a state_changed notification. NewState is nil when
// the entity was removed from the hub.
type Event struct {
	Type      string    `json:"event_type" mapstructure:"event_type"`
	Origin    string    `json:"origin"     mapstructure:"origin"`
	TimeFired time.Time `json:"time_fired" mapstructure:"time_fired"`
	Data      EventData `json:"data"       mapstructure:"data"`
}

type EventData struct {
	EntityID EntityID `json:"entity_id" mapstructure:"entity_id"`
	NewState *State   `json:"new_state" mapstructure:"new_state"`
	OldState *State   `json:"old_state" mapstructure:"old_state"`
}

type ResultMsg struct {
	baseMessage `mapstructure:",squash"`
	Success     bool        `json:"success" mapstructure:"success"`
	Result      any         `json:"result"  mapstructure:"result"`
	Error       ErrorResult `json:"error"   mapstructure:"error,omitempty"`
}

func (m *ResultMsg) String() string {
	out := strings.Builder{}

	out.WriteString(m.framelessString())

	var icon string
	if m.Success {
		icon = icons.GreenTick.String()
		out.WriteString("success")
	} else {
		icon = icons.RedCross.String()
		out.WriteString("fail")
	}

	return " " + icon + " " + style.HABlueFrame(out.String())
}

type ErrorResult struct {
	Code    string `json:"code"    mapstructure:"code"`
	Message string `json:"message" mapstructure:"message"`
}
