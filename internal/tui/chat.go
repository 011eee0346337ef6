package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/metcalfc/bookpilot/internal/domain"
	"github.com/metcalfc/bookpilot/internal/pages"
)

type chatScreen struct {
	env
	page     *pages.Chat
	viewport viewport.Model
	input    Input
	spinner  spinner.Model
	md       markdown
	rendered int
	width    int
	height   int
}

func newChatScreen(e env, page *pages.Chat) *chatScreen {
	in := NewInput("Message", "Ask a question about this book...")
	in.Prompt = "› "
	return &chatScreen{
		env:      e,
		page:     page,
		viewport: viewport.New(80, 16),
		input:    in,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		rendered: -1,
	}
}

func (s *chatScreen) Init() tea.Cmd {
	page := s.page
	load := s.async(func(ctx context.Context) tea.Msg {
		t, err := page.Load(ctx)
		return loadedMsg{target: t, err: err}
	})
	return tea.Batch(load, s.spinner.Tick, s.input.Focus())
}

func (s *chatScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	defer s.refresh()

	switch msg := msg.(type) {
	case loadedMsg:
		return s, navigate(msg.target)

	case actionMsg:
		return s, nil

	case spinner.TickMsg:
		if !s.page.Loading() && !s.page.Sending() {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, navigate(s.page.GuideTarget())
		case "r":
			if s.page.Status() == pages.StatusError {
				return s, s.Init()
			}
		case "enter":
			content := s.input.Value()
			if strings.TrimSpace(content) == "" || s.page.Sending() || s.page.Status() != pages.StatusReady {
				return s, nil
			}
			s.input.SetValue("")
			page := s.page
			send := s.async(func(ctx context.Context) tea.Msg {
				return actionMsg{err: page.Send(ctx, content)}
			})
			return s, tea.Batch(send, s.spinner.Tick)
		case "pgup", "pgdown", "ctrl+u", "ctrl+d":
			var cmd tea.Cmd
			s.viewport, cmd = s.viewport.Update(msg)
			return s, cmd
		}
	}

	var cmd tea.Cmd
	s.input.Model, cmd = s.input.Model.Update(msg)
	return s, cmd
}

// refresh redraws the conversation when it changed and keeps the newest
// message in view.
func (s *chatScreen) refresh() {
	msgs := s.page.Messages()
	key := len(msgs)
	for _, m := range msgs {
		key = key*3 + int(m.Delivery)
	}
	if key == s.rendered {
		return
	}
	s.rendered = key
	s.viewport.SetContent(s.transcript(msgs))
	s.viewport.GotoBottom()
}

func (s *chatScreen) transcript(msgs []domain.ChatMessage) string {
	if len(msgs) == 0 {
		return subtleStyle.Render("No messages yet. Ask something about the book to get started.")
	}
	width := max(s.viewport.Width-4, 20)
	var blocks []string
	for _, m := range msgs {
		stamp := ""
		if !m.Timestamp.IsZero() {
			stamp = subtleStyle.Render(" " + m.Timestamp.Local().Format("15:04"))
		}
		if m.Role == domain.RoleUser {
			status := ""
			switch m.Delivery {
			case domain.Pending:
				status = subtleStyle.Render(" sending...")
			case domain.Failed:
				status = errorStyle.Render(" not sent")
			}
			blocks = append(blocks, titleStyle.Render("You")+stamp+status+"\n"+userMessageStyle.Width(width).Render(m.Content))
			continue
		}
		blocks = append(blocks, assistantLabelStyle.Render("BookPilot")+stamp+"\n"+s.md.render(m.Content, width))
	}
	return strings.Join(blocks, "\n\n")
}

func (s *chatScreen) View() string {
	var sb strings.Builder
	sb.WriteString(Navbar(s.deps.Session.User(), pages.RouteChat, s.width) + "\n\n")

	switch s.page.Status() {
	case pages.StatusReady:
	case pages.StatusError:
		sb.WriteString(banner(s.page.Banner()))
		sb.WriteString(controlsStyle.Render("R: retry  ESC: back to guide"))
		return sb.String()
	default:
		sb.WriteString(s.spinner.View() + " " + subtleStyle.Render("Loading chat...") + "\n")
		return sb.String()
	}

	sb.WriteString(titleStyle.Render("Chat about "+s.page.Book().Title) + "\n\n")
	sb.WriteString(s.viewport.View() + "\n\n")
	sb.WriteString(notice(s.page.Notice()))
	if s.page.Sending() {
		sb.WriteString(s.spinner.View() + " " + subtleStyle.Render("BookPilot is thinking...") + "\n")
	}
	sb.WriteString(s.input.Render() + "\n\n")
	sb.WriteString(controlsStyle.Render("ENTER: send  PGUP/PGDN: scroll  ESC: back to guide"))
	return sb.String()
}

func (s *chatScreen) Resize(width, height int) {
	s.width, s.height = width, height
	s.viewport.Width = width
	s.viewport.Height = max(height-12, 3)
	s.input.Width = max(width-6, 10)
	s.rendered = -1
	s.refresh()
}

func (s *chatScreen) Leave() {
	s.page.Leave()
}
