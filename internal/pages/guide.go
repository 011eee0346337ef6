package pages

import (
	"context"
	"maps"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/metcalfc/bookpilot/internal/api"
	"github.com/metcalfc/bookpilot/internal/domain"
)

// GuidesAPI is the guide resource as pages use it.
type GuidesAPI interface {
	Get(ctx context.Context, bookID string) (domain.Guide, error)
	UpdateProgress(ctx context.Context, bookID string, update domain.ProgressUpdate) (domain.Guide, error)
	Export(ctx context.Context, bookID, format string) (domain.Export, error)
}

// BookGetter fetches a single book.
type BookGetter interface {
	Get(ctx context.Context, id string) (domain.Book, error)
}

// Tab is a section of the guide viewer.
type Tab string

const (
	TabChapters  Tab = "chapters"
	TabSynthesis Tab = "synthesis"
	TabQuiz      Tab = "quiz"
)

// Tabs in display order.
var Tabs = []Tab{TabChapters, TabSynthesis, TabQuiz}

const (
	exportSucceeded = "Guide exported successfully! Download would start in a real implementation."
	exportFailed    = "Failed to export guide. Please try again."
)

// GuideView is a snapshot of the guide page.
type GuideView struct {
	Status     Status
	Loading    bool
	Banner     string
	Notice     string
	Book       domain.Book
	Guide      domain.Guide
	Tab        Tab
	Chapter    int
	Percentage int
}

// ChapterCount is the number of chapters in the guide.
func (v GuideView) ChapterCount() int {
	return len(v.Guide.Content.Chapters)
}

// CurrentChapter returns the active chapter, if any.
func (v GuideView) CurrentChapter() (domain.Chapter, bool) {
	chapters := v.Guide.Content.Chapters
	if v.Chapter < 0 || v.Chapter >= len(chapters) {
		return domain.Chapter{}, false
	}
	return chapters[v.Chapter], true
}

// Guide is the guide viewer page for one book.
type Guide struct {
	base
	bookID string
	guides GuidesAPI
	books  BookGetter

	book    domain.Book
	guide   domain.Guide
	tab     Tab
	chapter int
}

// NewGuide returns the guide controller for bookID.
func NewGuide(s Session, bookID string, guides GuidesAPI, books BookGetter, logger *zap.Logger) *Guide {
	return &Guide{
		base:   newBase(s, orNop(logger).With(zap.String("book_id", bookID))),
		bookID: bookID,
		guides: guides,
		books:  books,
		tab:    TabChapters,
	}
}

// BookID is the book this page shows.
func (p *Guide) BookID() string {
	return p.bookID
}

// Load fetches the guide and its book together. Either failing fails the page;
// a missing guide, or a book that is not processed yet, renders as not found.
func (p *Guide) Load(parent context.Context) (*Target, error) {
	if t := p.gate(); t != nil {
		return t, nil
	}
	ctx, gen := p.startLoad(parent)

	var guide domain.Guide
	var book domain.Book
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		guide, err = p.guides.Get(gctx, p.bookID)
		return err
	})
	g.Go(func() error {
		var err error
		book, err = p.books.Get(gctx, p.bookID)
		return err
	})
	err := g.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.finishLoad(gen) {
		return nil, ErrStale
	}
	switch {
	case api.IsNotFound(err):
		p.logger.Info("guide not found", zap.Error(err))
		p.status = StatusNotFound
		return nil, err
	case err != nil:
		p.fail("load guide", "Failed to load guide. Please try again.", err)
		return nil, err
	case !book.HasGuide():
		p.status = StatusNotFound
		return nil, nil
	}
	if guide.Progress.QuizResults == nil {
		guide.Progress.QuizResults = map[int]int{}
	}
	p.guide = guide
	p.book = book
	p.chapter = 0
	p.status = StatusReady
	return nil, nil
}

// View returns a snapshot for rendering.
func (p *Guide) View() GuideView {
	p.mu.RLock()
	defer p.mu.RUnlock()
	g := p.guide
	g.Progress.CompletedChapters = slices.Clone(g.Progress.CompletedChapters)
	g.Progress.QuizResults = maps.Clone(g.Progress.QuizResults)
	return GuideView{
		Status:     p.status,
		Loading:    p.loading,
		Banner:     p.banner,
		Notice:     p.notice,
		Book:       p.book,
		Guide:      g,
		Tab:        p.tab,
		Chapter:    p.chapter,
		Percentage: p.guide.CompletionPercentage(),
	}
}

// Percentage is the share of chapters completed.
func (p *Guide) Percentage() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.guide.CompletionPercentage()
}

// SetTab switches the visible section.
func (p *Guide) SetTab(t Tab) {
	if !slices.Contains(Tabs, t) {
		return
	}
	p.mu.Lock()
	p.tab = t
	p.mu.Unlock()
}

// NextTab cycles through the sections.
func (p *Guide) NextTab() {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := slices.Index(Tabs, p.tab)
	p.tab = Tabs[(i+1)%len(Tabs)]
}

// SelectChapter makes chapter i active when it exists.
func (p *Guide) SelectChapter(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i >= 0 && i < len(p.guide.Content.Chapters) {
		p.chapter = i
	}
}

// PrevChapter moves back one chapter, stopping at the first.
func (p *Guide) PrevChapter() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.chapter > 0 {
		p.chapter--
	}
}

// NextChapter moves forward one chapter, stopping at the last.
func (p *Guide) NextChapter() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.chapter < len(p.guide.Content.Chapters)-1 {
		p.chapter++
	}
}

// MarkComplete adds the active chapter to the completed set and advances
// to the next chapter. The set is updated locally first; if the patch
// fails the chapter is taken out again.
func (p *Guide) MarkComplete(ctx context.Context) error {
	save := p.StageComplete()
	if save == nil {
		return nil
	}
	return save(ctx)
}

// StageComplete applies MarkComplete locally and returns the call that
// persists it, so a view can redraw before the network round trip. It
// returns nil when there is nothing to complete.
func (p *Guide) StageComplete() func(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != StatusReady || len(p.guide.Content.Chapters) == 0 {
		return nil
	}
	idx := p.chapter
	wasDone := p.guide.Progress.IsCompleted(idx)
	completed := p.guide.Progress.WithCompleted(idx)
	p.guide.Progress.CompletedChapters = completed
	if p.chapter < len(p.guide.Content.Chapters)-1 {
		p.chapter++
	}

	return func(ctx context.Context) error {
		visit, gen := p.life.join(ctx)
		_, err := p.guides.UpdateProgress(visit, p.bookID, domain.ProgressUpdate{CompletedChapters: completed})
		if err == nil {
			return nil
		}

		p.logger.Error("update progress", zap.Int("chapter", idx), zap.Error(err))
		p.mu.Lock()
		defer p.mu.Unlock()
		if !p.life.current(gen) {
			return ErrStale
		}
		if !wasDone {
			p.guide.Progress.CompletedChapters = slices.DeleteFunc(
				slices.Clone(p.guide.Progress.CompletedChapters),
				func(c int) bool { return c == idx })
		}
		p.notice = "Failed to save progress. Please try again."
		return err
	}
}

// AnswerQuiz records option as the answer to question q. Only the first
// answer to a question counts; later calls return false and change nothing.
//
// The patch carries just {q: option}. Whether the server merges it with
// earlier answers or replaces them is up to the server.
func (p *Guide) AnswerQuiz(ctx context.Context, q, option int) (bool, error) {
	save := p.StageAnswer(q, option)
	if save == nil {
		return false, nil
	}
	return true, save(ctx)
}

// StageAnswer records the answer locally and returns the call that
// persists it, or nil when the answer is not accepted.
func (p *Guide) StageAnswer(q, option int) func(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	quiz := p.guide.Content.Quiz
	if p.status != StatusReady || q < 0 || q >= len(quiz) || option < 0 || option >= len(quiz[q].Options) {
		return nil
	}
	if _, answered := p.guide.Progress.Answer(q); answered {
		return nil
	}
	if p.guide.Progress.QuizResults == nil {
		p.guide.Progress.QuizResults = map[int]int{}
	}
	p.guide.Progress.QuizResults[q] = option

	return func(ctx context.Context) error {
		visit, gen := p.life.join(ctx)
		update := domain.ProgressUpdate{QuizResults: map[int]int{q: option}}
		_, err := p.guides.UpdateProgress(visit, p.bookID, update)
		if err == nil {
			return nil
		}
		p.logger.Error("save quiz answer", zap.Int("question", q), zap.Error(err))
		p.mu.Lock()
		defer p.mu.Unlock()
		if !p.life.current(gen) {
			return ErrStale
		}
		delete(p.guide.Progress.QuizResults, q)
		p.notice = "Failed to save your answer. Please try again."
		return err
	}
}

// Export asks the backend for a PDF of the guide. Nothing is downloaded;
// the notice reports the outcome.
func (p *Guide) Export(ctx context.Context) (domain.Export, error) {
	visit, gen := p.life.join(ctx)
	out, err := p.guides.Export(visit, p.bookID, "pdf")
	if err != nil {
		p.logger.Error("export guide", zap.Error(err))
		p.setNotice(gen, exportFailed)
		return domain.Export{}, err
	}
	p.setNotice(gen, exportSucceeded)
	return out, nil
}

// ChatTarget is where "Chat with Book" leads.
func (p *Guide) ChatTarget() *Target {
	return &Target{Route: RouteChat, BookID: p.bookID}
}
