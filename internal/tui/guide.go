package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/metcalfc/bookpilot/internal/domain"
	"github.com/metcalfc/bookpilot/internal/pages"
)

var tabTitles = map[pages.Tab]string{
	pages.TabChapters:  "Chapters",
	pages.TabSynthesis: "Synthesis",
	pages.TabQuiz:      "Quiz",
}

type guideScreen struct {
	env
	page     *pages.Guide
	viewport viewport.Model
	tracker  ProgressTracker
	spinner  spinner.Model
	md       markdown
	question int
	width    int
	height   int
}

func newGuideScreen(e env, page *pages.Guide) *guideScreen {
	return &guideScreen{
		env:      e,
		page:     page,
		viewport: viewport.New(80, 16),
		tracker:  NewProgressTracker(80),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (s *guideScreen) Init() tea.Cmd {
	page := s.page
	load := s.async(func(ctx context.Context) tea.Msg {
		t, err := page.Load(ctx)
		return loadedMsg{target: t, err: err}
	})
	return tea.Batch(load, s.spinner.Tick)
}

func (s *guideScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.refresh(true)
		return s, navigate(msg.target)

	case actionMsg:
		s.refresh(false)
		return s, navigate(msg.target)

	case spinner.TickMsg:
		if !s.page.Loading() {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case tea.KeyMsg:
		if cmd, handled := s.key(msg.String()); handled {
			return s, cmd
		}
	}

	var cmd tea.Cmd
	s.viewport, cmd = s.viewport.Update(msg)
	return s, cmd
}

func (s *guideScreen) key(key string) (tea.Cmd, bool) {
	switch key {
	case "esc", "q":
		return navigate(&pages.Target{Route: pages.RouteBooks}), true
	case "r":
		if s.page.Status() == pages.StatusError {
			return s.Init(), true
		}
	}
	if s.page.Status() != pages.StatusReady {
		return nil, true
	}

	v := s.page.View()
	switch key {
	case "tab":
		s.page.NextTab()
		s.refresh(true)
		return nil, true
	case "c":
		return navigate(s.page.ChatTarget()), true
	case "e":
		return s.do(func(ctx context.Context) error {
			_, err := s.page.Export(ctx)
			return err
		}), true
	}

	switch v.Tab {
	case pages.TabChapters:
		switch key {
		case "left", "h":
			s.page.PrevChapter()
			s.refresh(true)
			return nil, true
		case "right", "l":
			s.page.NextChapter()
			s.refresh(true)
			return nil, true
		case "m":
			save := s.page.StageComplete()
			if save == nil {
				return nil, true
			}
			s.refresh(true)
			return s.do(save), true
		}
	case pages.TabQuiz:
		switch key {
		case "up", "k":
			s.question = max(s.question-1, 0)
			s.refresh(false)
			return nil, true
		case "down", "j":
			s.question = min(s.question+1, max(len(v.Guide.Content.Quiz)-1, 0))
			s.refresh(false)
			return nil, true
		}
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			save := s.page.StageAnswer(s.question, int(key[0]-'1'))
			if save == nil {
				return nil, true
			}
			s.refresh(false)
			return s.do(save), true
		}
	}
	return nil, false
}

func (s *guideScreen) do(fn func(ctx context.Context) error) tea.Cmd {
	return s.async(func(ctx context.Context) tea.Msg {
		return actionMsg{err: fn(ctx)}
	})
}

// refresh re-renders the active tab into the viewport.
func (s *guideScreen) refresh(top bool) {
	v := s.page.View()
	if v.Status != pages.StatusReady {
		return
	}
	width := s.viewport.Width - 2
	var content string
	switch v.Tab {
	case pages.TabSynthesis:
		content = s.md.render(synthesisMarkdown(v.Guide.Content.Synthesis), width)
	case pages.TabQuiz:
		content = quizView(v.Guide.Content.Quiz, v.Guide.Progress, s.question)
	default:
		content = s.md.render(chapterMarkdown(v), width)
	}
	s.viewport.SetContent(content)
	if top {
		s.viewport.GotoTop()
	}
}

func chapterMarkdown(v pages.GuideView) string {
	ch, ok := v.CurrentChapter()
	if !ok {
		return "_This guide has no chapters._"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", ch.Title)
	if v.Guide.Progress.IsCompleted(v.Chapter) {
		sb.WriteString("**✓ Completed**\n\n")
	}
	fmt.Fprintf(&sb, "## Summary\n\n%s\n\n", ch.Summary)
	if len(ch.Questions) > 0 {
		sb.WriteString("## Reflection Questions\n\n")
		for _, q := range ch.Questions {
			fmt.Fprintf(&sb, "- %s\n", q)
		}
		sb.WriteString("\n")
	}
	if ch.Task != "" {
		fmt.Fprintf(&sb, "## Action Task\n\n%s\n", ch.Task)
	}
	return sb.String()
}

func synthesisMarkdown(s domain.Synthesis) string {
	var sb strings.Builder
	sb.WriteString("## Key Takeaways\n\n")
	for _, k := range s.KeyTakeaways {
		fmt.Fprintf(&sb, "- %s\n", k)
	}
	fmt.Fprintf(&sb, "\n## Action Plan\n\n%s\n", s.ActionPlan)
	return sb.String()
}

func quizView(quiz []domain.QuizQuestion, progress domain.Progress, cursor int) string {
	if len(quiz) == 0 {
		return subtleStyle.Render("This guide has no quiz.")
	}
	var sb strings.Builder
	score := 0
	for i, q := range quiz {
		marker := "  "
		if i == cursor {
			marker = brandStyle.Render("▸ ")
		}
		sb.WriteString(marker + titleStyle.Render(fmt.Sprintf("%d. %s", i+1, q.Question)) + "\n")

		answer, answered := progress.Answer(i)
		for j, opt := range q.Options {
			line := fmt.Sprintf("    %d) %s", j+1, opt)
			switch {
			case answered && j == q.CorrectAnswer:
				line = successStyle.Render(line + "  ✓")
			case answered && j == answer:
				line = errorStyle.Render(line + "  ✗")
			case answered:
				line = subtleStyle.Render(line)
			}
			sb.WriteString(line + "\n")
		}
		if answered && q.IsCorrect(answer) {
			score++
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Score: %d / %d", score, len(quiz))
	return sb.String()
}

func (s *guideScreen) View() string {
	v := s.page.View()

	var sb strings.Builder
	sb.WriteString(Navbar(s.deps.Session.User(), pages.RouteGuide, s.width) + "\n\n")

	switch v.Status {
	case pages.StatusReady:
	case pages.StatusNotFound:
		body := "The guide you're looking for doesn't exist or is still being processed.\n\n" + Button("Back to Books", true, true)
		sb.WriteString(Card("Guide not found", body, min(s.width, 72), false) + "\n\n")
		sb.WriteString(controlsStyle.Render("ESC: back to books"))
		return sb.String()
	case pages.StatusError:
		sb.WriteString(banner(v.Banner))
		sb.WriteString(controlsStyle.Render("R: retry  ESC: back to books"))
		return sb.String()
	default:
		sb.WriteString(s.spinner.View() + " " + subtleStyle.Render("Loading guide...") + "\n")
		return sb.String()
	}

	title := v.Guide.Content.Title
	if title == "" {
		title = v.Book.Title
	}
	sb.WriteString(titleStyle.Render(title))
	if author := v.Guide.Content.Author; author != "" {
		sb.WriteString(subtleStyle.Render("  by " + author))
	}
	sb.WriteString("\n" + s.tracker.View(len(v.Guide.Progress.CompletedChapters), v.ChapterCount()) + "\n\n")

	var tabs []string
	for _, t := range pages.Tabs {
		if t == v.Tab {
			tabs = append(tabs, activeTabStyle.Render(tabTitles[t]))
		} else {
			tabs = append(tabs, tabStyle.Render(tabTitles[t]))
		}
	}
	sb.WriteString(strings.Join(tabs, " "))
	if v.Tab == pages.TabChapters && v.ChapterCount() > 0 {
		sb.WriteString(subtleStyle.Render(fmt.Sprintf("   chapter %d of %d", v.Chapter+1, v.ChapterCount())))
	}
	sb.WriteString("\n" + notice(v.Notice) + "\n")
	sb.WriteString(s.viewport.View() + "\n")

	controls := "TAB: section  E: export  C: chat  ESC: books"
	switch v.Tab {
	case pages.TabChapters:
		controls = "←/→: chapter  M: mark complete  " + controls
	case pages.TabQuiz:
		controls = "↑/↓: question  1-9: answer  " + controls
	}
	sb.WriteString(controlsStyle.Render(controls))
	return sb.String()
}

func (s *guideScreen) Resize(width, height int) {
	s.width, s.height = width, height
	s.viewport.Width = width
	s.viewport.Height = max(height-12, 3)
	s.tracker.SetWidth(width)
	s.refresh(false)
}

func (s *guideScreen) Leave() {
	s.page.Leave()
}
