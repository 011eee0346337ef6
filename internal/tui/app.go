// Package tui is the terminal front end: one bubbletea screen per page
// controller and an App model that routes between them.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/metcalfc/bookpilot/internal/domain"
	"github.com/metcalfc/bookpilot/internal/pages"
)

// Session is the session store as the terminal UI uses it.
type Session interface {
	pages.Session
	User() *domain.User
}

// BooksAPI covers both the book list and the upload page.
type BooksAPI interface {
	pages.BooksAPI
	pages.Uploader
}

// Deps are the collaborators every screen is built from.
type Deps struct {
	Session Session
	Auth    pages.AuthAPI
	Books   BooksAPI
	Guides  pages.GuidesAPI
	Chat    pages.ChatAPI
	Logger  *zap.Logger
}

// screen is one page of the terminal UI.
type screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (screen, tea.Cmd)
	View() string
	Resize(width, height int)
	Leave()
}

// navigateMsg asks the App to switch screens.
type navigateMsg struct {
	target pages.Target
}

// SessionChangedMsg is sent when the session store changes outside the UI.
type SessionChangedMsg struct{}

// pageMsg carries an async result for the screen that started it.
type pageMsg struct {
	id  uint64
	msg tea.Msg
}

// env is what a screen needs to run async work that outlives a keypress.
type env struct {
	ctx    context.Context
	id     uint64
	deps   Deps
	logger *zap.Logger
}

// async runs fn off the event loop and delivers its result to this screen only.
func (e env) async(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	ctx, id := e.ctx, e.id
	return func() tea.Msg {
		return pageMsg{id: id, msg: fn(ctx)}
	}
}

func navigate(t *pages.Target) tea.Cmd {
	if t == nil {
		return nil
	}
	target := *t
	return func() tea.Msg { return navigateMsg{target: target} }
}

// App routes between screens. It owns the current screen and leaves it,
// cancelling its requests, before entering the next.
type App struct {
	ctx    context.Context
	deps   Deps
	logger *zap.Logger

	screen   screen
	cancel   context.CancelFunc
	route    pages.Route
	seq      uint64
	width    int
	height   int
	quitting bool
}

// NewApp returns the root model. The session must already be rehydrated.
func NewApp(ctx context.Context, deps Deps) *App {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	deps.Logger = logger
	return &App{ctx: ctx, deps: deps, logger: logger, width: 80, height: 24}
}

// Route is the current screen.
func (a *App) Route() pages.Route {
	return a.route
}

func (a *App) Init() tea.Cmd {
	start := pages.Target{Route: pages.RouteBooks}
	if !a.deps.Session.IsAuthenticated() {
		start = pages.Target{Route: pages.RouteLogin}
	}
	return a.enter(start)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			a.quit()
			return a, tea.Quit
		case "ctrl+o":
			if a.deps.Session.IsAuthenticated() {
				return a, a.enter(*pages.Logout(a.deps.Session))
			}
		}

	case tea.WindowSizeMsg:
		a.width = max(msg.Width, 20)
		a.height = max(msg.Height, 8)
		if a.screen != nil {
			a.screen.Resize(a.width, a.height)
		}
		return a, nil

	case navigateMsg:
		return a, a.enter(msg.target)

	case quitMsg:
		a.quit()
		return a, tea.Quit

	case SessionChangedMsg:
		if !a.deps.Session.IsAuthenticated() && a.route != pages.RouteLogin && a.route != pages.RouteRegister {
			return a, a.enter(pages.Target{Route: pages.RouteLogin})
		}
		return a, nil

	case pageMsg:
		if msg.id != a.seq {
			a.logger.Debug("dropping result for a left screen", zap.Uint64("screen", msg.id))
			return a, nil
		}
		return a.forward(msg.msg)
	}

	return a.forward(msg)
}

func (a *App) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.screen == nil {
		return a, nil
	}
	var cmd tea.Cmd
	a.screen, cmd = a.screen.Update(msg)
	return a, cmd
}

func (a *App) View() string {
	if a.quitting || a.screen == nil {
		return ""
	}
	return a.screen.View()
}

// enter leaves the current screen and builds the one for t.
func (a *App) enter(t pages.Target) tea.Cmd {
	a.leave()
	a.seq++
	ctx, cancel := context.WithCancel(a.ctx)
	a.cancel = cancel
	e := env{ctx: ctx, id: a.seq, deps: a.deps, logger: a.logger}
	d := a.deps

	switch t.Route {
	case pages.RouteRegister:
		a.screen = newLoginScreen(e, pages.NewRegister(d.Session, d.Auth, a.logger), true)
	case pages.RouteBooks:
		a.screen = newBooksScreen(e, pages.NewBookList(d.Session, d.Books, a.logger))
	case pages.RouteUpload:
		a.screen = newUploadScreen(e, pages.NewUpload(d.Session, d.Books, a.logger))
	case pages.RouteGuide:
		a.screen = newGuideScreen(e, pages.NewGuide(d.Session, t.BookID, d.Guides, d.Books, a.logger))
	case pages.RouteChat:
		a.screen = newChatScreen(e, pages.NewChat(d.Session, t.BookID, d.Chat, d.Books, a.logger))
	default:
		t.Route = pages.RouteLogin
		a.screen = newLoginScreen(e, pages.NewLogin(d.Session, d.Auth, a.logger), false)
	}
	a.route = t.Route
	a.logger.Debug("navigate", zap.String("route", string(t.Route)), zap.String("book_id", t.BookID))
	a.screen.Resize(a.width, a.height)
	return a.screen.Init()
}

// leave ends the current screen's visit and cancels its requests.
func (a *App) leave() {
	if a.screen != nil {
		a.screen.Leave()
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

func (a *App) quit() {
	a.leave()
	a.quitting = true
}

type quitMsg struct{}

func quit() tea.Msg { return quitMsg{} }
