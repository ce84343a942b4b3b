package style

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	Gray = func(shade int) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(fmt.Sprintf("#%x%x%x", shade, shade, shade)))
	}

	BoldStyle = Gray(238).Bold(true) // #eeeeee
	Bold      = BoldStyle.Render

	HABlue  = lipgloss.Color("#1DAEEF")
	HAStyle = lipgloss.NewStyle().Foreground(HABlue)

	DashPink  = lipgloss.Color("#FF0099")
	DashStyle = lipgloss.NewStyle().Foreground(DashPink)
)

func ColorizeHABlue(text string) string {
	return HAStyle.SetString(text).Render()
}

func HABlueFrame(text string) string {
	return ColorizeHABlue("<") + text + ColorizeHABlue(">")
}
