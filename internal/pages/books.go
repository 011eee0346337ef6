package pages

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/metcalfc/bookpilot/internal/domain"
)

// BooksAPI is the book resource as pages use it.
type BooksAPI interface {
	List(ctx context.Context) ([]domain.Book, error)
	Get(ctx context.Context, id string) (domain.Book, error)
	Process(ctx context.Context, id string) (domain.Book, error)
	Delete(ctx context.Context, id string) error
}

// ActionKind is what a book card's primary control does.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionViewGuide
	ActionRetry
)

// Action is a book card's primary control.
type Action struct {
	Kind    ActionKind
	Label   string
	Enabled bool
}

// ActionFor picks the card control for a book's status.
func ActionFor(b domain.Book) Action {
	switch b.Status {
	case domain.StatusProcessed:
		return Action{Kind: ActionViewGuide, Label: "View Guide", Enabled: true}
	case domain.StatusError:
		return Action{Kind: ActionRetry, Label: "Retry Processing", Enabled: true}
	case domain.StatusProcessing:
		return Action{Label: "Processing..."}
	default:
		return Action{Label: "Awaiting Processing"}
	}
}

// StatusLabel capitalises a status for display.
func StatusLabel(s domain.BookStatus) string {
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// BookList is the "My Books" page.
type BookList struct {
	base
	books BooksAPI
	list  []domain.Book
}

// NewBookList returns the book list controller.
func NewBookList(s Session, books BooksAPI, logger *zap.Logger) *BookList {
	return &BookList{base: newBase(s, logger), books: books}
}

// Load fetches the session's books. A signed-out session gets a redirect
// to login and nothing is fetched.
func (p *BookList) Load(parent context.Context) (*Target, error) {
	if t := p.gate(); t != nil {
		return t, nil
	}
	ctx, gen := p.startLoad(parent)
	books, err := p.books.List(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.finishLoad(gen) {
		return nil, ErrStale
	}
	if err != nil {
		p.fail("load books", "Failed to load books. Please try again.", err)
		return nil, err
	}
	p.list = books
	p.status = StatusReady
	p.logger.Debug("books loaded", zap.Int("count", len(books)))
	return nil, nil
}

// Books returns a copy of the loaded books.
func (p *BookList) Books() []domain.Book {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.list)
}

// Empty reports a loaded list with no books, which renders the call to action.
func (p *BookList) Empty() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status == StatusReady && len(p.list) == 0
}

// Activate runs the primary action of the book with id. Viewing a guide
// returns the navigation target; retrying reprocesses and reloads the list.
func (p *BookList) Activate(ctx context.Context, id string) (*Target, error) {
	book, ok := p.find(id)
	if !ok {
		return nil, nil
	}
	action := ActionFor(book)
	switch action.Kind {
	case ActionViewGuide:
		return &Target{Route: RouteGuide, BookID: id}, nil
	case ActionRetry:
		return nil, p.Retry(ctx, id)
	default:
		return nil, nil
	}
}

// Retry asks the backend to process the book again and reloads the list.
func (p *BookList) Retry(ctx context.Context, id string) error {
	visit, gen := p.life.join(ctx)
	if _, err := p.books.Process(visit, id); err != nil {
		p.logger.Error("retry processing", zap.String("book_id", id), zap.Error(err))
		p.setNotice(gen, "Failed to start processing. Please try again.")
		return err
	}
	p.setNotice(gen, "Processing restarted.")
	_, err := p.Load(ctx)
	return err
}

// Delete removes a book and drops it from the list.
func (p *BookList) Delete(ctx context.Context, id string) error {
	visit, gen := p.life.join(ctx)
	if err := p.books.Delete(visit, id); err != nil {
		p.logger.Error("delete book", zap.String("book_id", id), zap.Error(err))
		p.setNotice(gen, "Failed to delete book. Please try again.")
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.life.current(gen) {
		return ErrStale
	}
	p.list = slices.DeleteFunc(p.list, func(b domain.Book) bool { return b.ID == id })
	p.notice = "Book deleted."
	return nil
}

func (p *BookList) find(id string) (domain.Book, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, b := range p.list {
		if b.ID == id {
			return b, true
		}
	}
	return domain.Book{}, false
}
