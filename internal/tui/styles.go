package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/metcalfc/bookpilot/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	brandStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C9CFF"))

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	controlsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00D787")).
			Bold(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)

	selectedCardStyle = cardStyle.
				BorderForeground(lipgloss.Color("#7C9CFF"))

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#3D5AFE")).
			Padding(0, 2)

	focusedButtonStyle = buttonStyle.
				Background(lipgloss.Color("#7C9CFF")).
				Bold(true)

	disabledButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#777777")).
				Background(lipgloss.Color("#2A2A2A")).
				Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true).
			Foreground(lipgloss.Color("#7C9CFF")).
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(lipgloss.Color("#303F9F")).
				Padding(0, 1)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#00D787")).
				Bold(true)
)

// statusColors mirrors the badge colours of the book list.
var statusColors = map[domain.BookStatus]lipgloss.Color{
	domain.StatusUploaded:   lipgloss.Color("#5FAFFF"),
	domain.StatusProcessing: lipgloss.Color("#FFD75F"),
	domain.StatusProcessed:  lipgloss.Color("#00D787"),
	domain.StatusError:      lipgloss.Color("#FF5F5F"),
}

func statusStyle(s domain.BookStatus) lipgloss.Style {
	c, ok := statusColors[s]
	if !ok {
		c = lipgloss.Color("#888888")
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}
