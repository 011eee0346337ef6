package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/metcalfc/bookpilot/internal/domain"
	"github.com/metcalfc/bookpilot/internal/pages"
)

// Card frames body under an optional title.
func Card(title, body string, width int, selected bool) string {
	style := cardStyle
	if selected {
		style = selectedCardStyle
	}
	if width > 4 {
		style = style.Width(width - 2)
	}
	if title == "" {
		return style.Render(body)
	}
	return style.Render(titleStyle.Render(title) + "\n" + body)
}

// Button renders a labelled control. Disabled buttons never look focused.
func Button(label string, focused, enabled bool) string {
	switch {
	case !enabled:
		return disabledButtonStyle.Render(label)
	case focused:
		return focusedButtonStyle.Render(label)
	default:
		return buttonStyle.Render(label)
	}
}

// Input is a labelled single-line text field.
type Input struct {
	Label string
	textinput.Model
}

// NewInput returns an input with the given label and placeholder.
func NewInput(label, placeholder string) Input {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "> "
	ti.CharLimit = 512
	ti.Width = 48
	return Input{Label: label, Model: ti}
}

// NewPasswordInput returns an input that masks what is typed.
func NewPasswordInput(label string) Input {
	in := NewInput(label, "optional")
	in.EchoMode = textinput.EchoPassword
	in.EchoCharacter = '•'
	return in
}

// Render draws the label above the field.
func (in Input) Render() string {
	label := subtleStyle.Render(in.Label)
	if in.Focused() {
		label = titleStyle.Render(in.Label)
	}
	return label + "\n" + in.View()
}

// Navbar is the top bar of every signed-in screen.
func Navbar(user *domain.User, active pages.Route, width int) string {
	links := []struct {
		route pages.Route
		label string
	}{
		{pages.RouteBooks, "My Books"},
		{pages.RouteUpload, "Upload"},
	}
	var parts []string
	parts = append(parts, brandStyle.Render("BookPilot"))
	for _, l := range links {
		if l.route == active {
			parts = append(parts, activeTabStyle.Render(l.label))
		} else {
			parts = append(parts, tabStyle.Render(l.label))
		}
	}
	left := strings.Join(parts, " ")

	right := ""
	if user != nil {
		right = subtleStyle.Render(user.Email + " · ctrl+o logout")
	}
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// BookCard renders one entry of the book list.
func BookCard(b domain.Book, selected bool, width int) string {
	var sb strings.Builder
	if b.Author != "" {
		sb.WriteString(subtleStyle.Render("by "+b.Author) + "\n")
	}
	sb.WriteString(statusStyle(b.Status).Render(pages.StatusLabel(b.Status)))
	if b.FileType != "" {
		sb.WriteString(subtleStyle.Render(fmt.Sprintf("  %s · %s", strings.ToUpper(b.FileType), humanSize(b.FileSize))))
	}
	action := pages.ActionFor(b)
	sb.WriteString("\n" + Button(action.Label, selected, action.Enabled))
	return Card(b.Title, sb.String(), width, selected)
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}

// ProgressTracker shows chapter completion as a bar with a count.
type ProgressTracker struct {
	bar progress.Model
}

// NewProgressTracker returns a tracker sized to width.
func NewProgressTracker(width int) ProgressTracker {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	t := ProgressTracker{bar: bar}
	t.SetWidth(width)
	return t
}

// SetWidth resizes the bar.
func (t *ProgressTracker) SetWidth(width int) {
	t.bar.Width = max(width-24, 10)
}

// View renders completed out of total chapters.
func (t ProgressTracker) View(completed, total int) string {
	pct := domain.Percentage(completed, total)
	label := fmt.Sprintf(" %d%% · %d of %d chapters", pct, completed, total)
	return t.bar.ViewAs(float64(pct)/100) + subtleStyle.Render(label)
}

// markdown renders markdown for the terminal, reusing the renderer while
// the wrap width is unchanged.
type markdown struct {
	width    int
	renderer *glamour.TermRenderer
}

func (m *markdown) render(md string, width int) string {
	if width < 20 {
		width = 20
	}
	if m.renderer == nil || m.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		m.renderer, m.width = r, width
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func banner(msg string) string {
	if msg == "" {
		return ""
	}
	return errorStyle.Render(msg) + "\n"
}

func notice(msg string) string {
	if msg == "" {
		return ""
	}
	return noticeStyle.Render(msg) + "\n"
}
