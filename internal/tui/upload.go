package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/metcalfc/bookpilot/internal/bookfile"
	"github.com/metcalfc/bookpilot/internal/pages"
)

const (
	uploadFile = iota
	uploadTitle
	uploadAuthor
	uploadSubmit
	uploadFieldCount
)

type uploadScreen struct {
	env
	page    *pages.Upload
	inputs  [uploadSubmit]Input
	focus   int
	spinner spinner.Model
	width   int
}

func newUploadScreen(e env, page *pages.Upload) *uploadScreen {
	s := &uploadScreen{env: e, page: page, spinner: spinner.New(spinner.WithSpinner(spinner.Dot))}
	s.inputs[uploadFile] = NewInput("Book file (PDF, EPUB or TXT, max 50MB)", "~/books/deep-work.epub")
	s.inputs[uploadTitle] = NewInput("Title", "Enter book title")
	s.inputs[uploadAuthor] = NewInput("Author (optional)", "Enter author name")
	return s
}

func (s *uploadScreen) Init() tea.Cmd {
	if t := s.page.Enter(s.ctx); t != nil {
		return navigate(t)
	}
	return s.inputs[uploadFile].Focus()
}

func (s *uploadScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if s.page.Form().Submitting {
			return s, nil
		}
		switch msg.String() {
		case "esc":
			return s, navigate(&pages.Target{Route: pages.RouteBooks})
		case "tab", "down":
			return s, s.setFocus((s.focus + 1) % uploadFieldCount)
		case "shift+tab", "up":
			return s, s.setFocus((s.focus + uploadFieldCount - 1) % uploadFieldCount)
		case "enter":
			if s.focus == uploadSubmit {
				s.sync()
				return s, s.submit()
			}
			return s, s.setFocus(s.focus + 1)
		}

	case actionMsg:
		s.refresh()
		return s, navigate(msg.target)

	case spinner.TickMsg:
		if !s.page.Form().Submitting {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd
	}

	if s.focus >= uploadSubmit {
		return s, nil
	}
	var cmd tea.Cmd
	s.inputs[s.focus].Model, cmd = s.inputs[s.focus].Model.Update(msg)
	return s, cmd
}

// setFocus moves between fields. Leaving the file field chooses the file,
// which may fill in the title and author.
func (s *uploadScreen) setFocus(i int) tea.Cmd {
	if s.focus == uploadFile && i != uploadFile {
		s.chooseFile()
	}
	s.sync()
	s.focus = i
	for j := range s.inputs {
		s.inputs[j].Blur()
	}
	if i < uploadSubmit {
		return s.inputs[i].Focus()
	}
	return nil
}

func (s *uploadScreen) chooseFile() {
	path := expandHome(strings.TrimSpace(s.inputs[uploadFile].Value()))
	if path == "" || path == s.page.Form().Path {
		return
	}
	s.sync()
	if err := s.page.ChooseFile(path); err != nil {
		s.logger.Debug("file rejected", zap.String("path", path), zap.Error(err))
	}
	s.refresh()
}

// sync copies the text fields into the page.
func (s *uploadScreen) sync() {
	s.page.SetTitle(s.inputs[uploadTitle].Value())
	s.page.SetAuthor(s.inputs[uploadAuthor].Value())
}

// refresh copies the page's form back into the text fields.
func (s *uploadScreen) refresh() {
	f := s.page.Form()
	s.inputs[uploadTitle].SetValue(f.Title)
	s.inputs[uploadAuthor].SetValue(f.Author)
	if f.Path != "" {
		s.inputs[uploadFile].SetValue(f.Path)
	}
}

func (s *uploadScreen) submit() tea.Cmd {
	if s.page.Form().Path == "" {
		s.chooseFile()
	}
	page := s.page
	run := s.async(func(ctx context.Context) tea.Msg {
		t, err := page.Submit(ctx)
		return actionMsg{target: t, err: err}
	})
	return tea.Batch(run, s.spinner.Tick)
}

func (s *uploadScreen) View() string {
	form := s.page.Form()

	var body strings.Builder
	body.WriteString(banner(form.Banner))
	for i := range s.inputs {
		body.WriteString(s.inputs[i].Render() + "\n\n")
	}
	if meta := form.Meta; meta != nil {
		body.WriteString(subtleStyle.Render(describe(form.FileName(), form.Size, *meta)) + "\n\n")
	}
	if form.Submitting {
		body.WriteString(s.spinner.View() + " " + subtleStyle.Render("Uploading..."))
	} else {
		body.WriteString(Button("Upload Book", s.focus == uploadSubmit, form.CanSubmit()))
	}

	var sb strings.Builder
	sb.WriteString(Navbar(s.deps.Session.User(), pages.RouteUpload, s.width) + "\n\n")
	sb.WriteString(Card("Upload a Book", body.String(), min(s.width, 72), false) + "\n\n")
	sb.WriteString(controlsStyle.Render("TAB: next field  ENTER: confirm  ESC: back to books"))
	return sb.String()
}

func describe(name string, size int64, meta bookfile.Metadata) string {
	parts := []string{fmt.Sprintf("%s · %s", name, humanSize(size))}
	if meta.Pages > 0 {
		parts = append(parts, fmt.Sprintf("%d pages", meta.Pages))
	}
	if meta.Words > 0 {
		parts = append(parts, fmt.Sprintf("%d words", meta.Words))
	}
	if len(meta.Chapters) > 0 {
		parts = append(parts, fmt.Sprintf("%d chapters", len(meta.Chapters)))
	}
	out := strings.Join(parts, " · ")
	if meta.Preview != "" {
		out += "\n" + meta.Preview
	}
	return out
}

// expandHome resolves a leading ~ the way a shell would.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func (s *uploadScreen) Resize(width, height int) {
	s.width = width
}

func (s *uploadScreen) Leave() {
	s.page.Leave()
}
