package icons

import "github.com/charmbracelet/lipgloss"

const (
	// connection related messages.
	ConnectionFailed = "🔴"
	ConnectionChain  = "🔗"
	ReconnectCircle  = "↻"

	// widget related messages.
	Widget   = "🧩"
	Chart    = "📈"
	Calendar = "📅"
	Camera   = "📷"

	// other messages.
	Cross     = "✖️"
	Tick      = "✔"
	Glasses   = "👓"
	Key       = "🔑"
	Home      = "🏠"
	Sub       = "🚇"
	Stopwatch = "⏱️"
	Ping      = "🏓"
	Disk      = "💾"
)

var (
	GreenTick = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).SetString(" " + Tick)
	RedCross  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).SetString(Cross)
)
