package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/metcalfc/bookpilot/internal/pages"
)

// signInPage is satisfied by both the login and register controllers.
type signInPage interface {
	Enter() *pages.Target
	Submit(ctx context.Context, email, password string) (*pages.Target, error)
	Loading() bool
	Banner() string
}

type submittedMsg struct {
	target *pages.Target
	err    error
}

const (
	focusEmail = iota
	focusPassword
	focusSubmit
	focusCount
)

type loginScreen struct {
	env
	page     signInPage
	register bool
	email    Input
	password Input
	focus    int
	spinner  spinner.Model
	width    int
}

func newLoginScreen(e env, page signInPage, register bool) *loginScreen {
	s := &loginScreen{
		env:      e,
		page:     page,
		register: register,
		email:    NewInput("Email", "you@example.com"),
		password: NewPasswordInput("Password"),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	return s
}

func (s *loginScreen) Init() tea.Cmd {
	if t := s.page.Enter(); t != nil {
		return navigate(t)
	}
	return s.email.Focus()
}

func (s *loginScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if s.page.Loading() {
			return s, nil
		}
		switch msg.String() {
		case "tab", "down":
			return s, s.setFocus((s.focus + 1) % focusCount)
		case "shift+tab", "up":
			return s, s.setFocus((s.focus + focusCount - 1) % focusCount)
		case "ctrl+r":
			if s.register {
				return s, navigate(&pages.Target{Route: pages.RouteLogin})
			}
			return s, navigate(&pages.Target{Route: pages.RouteRegister})
		case "esc":
			return s, quit
		case "enter":
			if s.focus == focusEmail {
				return s, s.setFocus(focusPassword)
			}
			return s, s.submit()
		}

	case submittedMsg:
		return s, navigate(msg.target)

	case spinner.TickMsg:
		if !s.page.Loading() {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd
	}

	var cmd tea.Cmd
	switch s.focus {
	case focusEmail:
		s.email.Model, cmd = s.email.Model.Update(msg)
	case focusPassword:
		s.password.Model, cmd = s.password.Model.Update(msg)
	}
	return s, cmd
}

func (s *loginScreen) setFocus(i int) tea.Cmd {
	s.focus = i
	s.email.Blur()
	s.password.Blur()
	switch i {
	case focusEmail:
		return s.email.Focus()
	case focusPassword:
		return s.password.Focus()
	}
	return nil
}

func (s *loginScreen) submit() tea.Cmd {
	email, password := s.email.Value(), s.password.Value()
	page := s.page
	run := s.async(func(ctx context.Context) tea.Msg {
		t, err := page.Submit(ctx, email, password)
		return submittedMsg{target: t, err: err}
	})
	return tea.Batch(run, s.spinner.Tick)
}

func (s *loginScreen) View() string {
	title := "Sign in to BookPilot"
	switchHint := "CTRL+R: create an account"
	label := "Sign in"
	if s.register {
		title = "Create your BookPilot account"
		switchHint = "CTRL+R: sign in instead"
		label = "Create account"
	}

	var body strings.Builder
	body.WriteString(banner(s.page.Banner()))
	body.WriteString(s.email.Render() + "\n\n")
	body.WriteString(s.password.Render() + "\n\n")
	if s.page.Loading() {
		body.WriteString(s.spinner.View() + " " + subtleStyle.Render("Signing in..."))
	} else {
		body.WriteString(Button(label, s.focus == focusSubmit, true))
	}

	card := Card(title, body.String(), min(s.width, 64), false)
	controls := controlsStyle.Render("TAB: next field  ENTER: submit  " + switchHint + "  ESC: quit")
	return lipgloss.JoinVertical(lipgloss.Left, brandStyle.Render("BookPilot"), "", card, "", controls)
}

func (s *loginScreen) Resize(width, height int) {
	s.width = width
}

func (s *loginScreen) Leave() {}
