package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/metcalfc/bookpilot/internal/pages"
)

// loadedMsg reports a finished page load.
type loadedMsg struct {
	target *pages.Target
	err    error
}

// actionMsg reports a finished page action; the screen re-reads its page.
type actionMsg struct {
	target *pages.Target
	err    error
}

type booksScreen struct {
	env
	page    *pages.BookList
	cursor  int
	confirm string
	spinner spinner.Model
	width   int
	height  int
}

func newBooksScreen(e env, page *pages.BookList) *booksScreen {
	return &booksScreen{env: e, page: page, spinner: spinner.New(spinner.WithSpinner(spinner.Dot))}
}

func (s *booksScreen) Init() tea.Cmd {
	return tea.Batch(s.load(), s.spinner.Tick)
}

func (s *booksScreen) load() tea.Cmd {
	page := s.page
	return s.async(func(ctx context.Context) tea.Msg {
		t, err := page.Load(ctx)
		return loadedMsg{target: t, err: err}
	})
}

func (s *booksScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.cursor = min(s.cursor, max(len(s.page.Books())-1, 0))
		return s, navigate(msg.target)

	case actionMsg:
		s.cursor = min(s.cursor, max(len(s.page.Books())-1, 0))
		return s, navigate(msg.target)

	case spinner.TickMsg:
		if !s.page.Loading() {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case tea.KeyMsg:
		key := msg.String()
		if s.confirm != "" {
			id := s.confirm
			s.confirm = ""
			if key == "y" || key == "Y" {
				return s, s.act(func(ctx context.Context) (*pages.Target, error) {
					return nil, s.page.Delete(ctx, id)
				})
			}
			return s, nil
		}
		books := s.page.Books()
		switch key {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < len(books)-1 {
				s.cursor++
			}
		case "u":
			return s, navigate(&pages.Target{Route: pages.RouteUpload})
		case "r":
			s.page.ClearNotice()
			return s, tea.Batch(s.load(), s.spinner.Tick)
		case "enter", " ":
			if s.page.Empty() {
				return s, navigate(&pages.Target{Route: pages.RouteUpload})
			}
			if s.cursor < len(books) {
				id := books[s.cursor].ID
				return s, s.act(func(ctx context.Context) (*pages.Target, error) {
					return s.page.Activate(ctx, id)
				})
			}
		case "c":
			if s.cursor < len(books) && books[s.cursor].HasGuide() {
				return s, navigate(&pages.Target{Route: pages.RouteChat, BookID: books[s.cursor].ID})
			}
		case "d", "delete":
			if s.cursor < len(books) {
				s.confirm = books[s.cursor].ID
			}
		case "q", "esc":
			return s, quit
		}
	}
	return s, nil
}

func (s *booksScreen) act(fn func(ctx context.Context) (*pages.Target, error)) tea.Cmd {
	return s.async(func(ctx context.Context) tea.Msg {
		t, err := fn(ctx)
		return actionMsg{target: t, err: err}
	})
}

func (s *booksScreen) View() string {
	var sb strings.Builder
	sb.WriteString(Navbar(s.deps.Session.User(), pages.RouteBooks, s.width) + "\n\n")
	sb.WriteString(titleStyle.Render("My Books") + "\n\n")

	switch {
	case s.page.Loading():
		sb.WriteString(s.spinner.View() + " " + subtleStyle.Render("Loading books...") + "\n")
	case s.page.Status() == pages.StatusError:
		sb.WriteString(banner(s.page.Banner()))
		sb.WriteString(subtleStyle.Render("Press r to try again.") + "\n")
	case s.page.Empty():
		body := "You haven't uploaded any books yet.\n\n" + Button("Upload Your First Book", true, true)
		sb.WriteString(Card("No books yet", body, min(s.width, 60), false) + "\n")
	default:
		sb.WriteString(notice(s.page.Notice()))
		sb.WriteString(s.list())
	}

	if s.confirm != "" {
		sb.WriteString("\n" + errorStyle.Render("Delete this book? (y/n)") + "\n")
	}
	sb.WriteString("\n" + controlsStyle.Render("↑/↓: select  ENTER: open  C: chat  U: upload  D: delete  R: refresh  Q: quit"))
	return sb.String()
}

// list lays cards out two per row on wide terminals.
func (s *booksScreen) list() string {
	books := s.page.Books()
	cols := 1
	if s.width >= 100 {
		cols = 2
	}
	cardWidth := s.width / cols

	var rows []string
	for i := 0; i < len(books); i += cols {
		var row []string
		for j := i; j < min(i+cols, len(books)); j++ {
			row = append(row, BookCard(books[j], j == s.cursor, cardWidth))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (s *booksScreen) Resize(width, height int) {
	s.width, s.height = width, height
}

func (s *booksScreen) Leave() {
	s.page.Leave()
}
