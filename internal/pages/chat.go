package pages

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/metcalfc/bookpilot/internal/domain"
)

// ChatAPI is the chat resource as pages use it.
type ChatAPI interface {
	Messages(ctx context.Context, bookID string) ([]domain.ChatMessage, error)
	Send(ctx context.Context, bookID, content string) (domain.ChatMessage, error)
}

// Chat is the conversation page for one book.
type Chat struct {
	base
	bookID string
	chat   ChatAPI
	books  BookGetter

	book     domain.Book
	messages []domain.ChatMessage
	sending  bool
	now      func() domain.Time
}

// NewChat returns the chat controller for bookID.
func NewChat(s Session, bookID string, chat ChatAPI, books BookGetter, logger *zap.Logger) *Chat {
	return &Chat{
		base:   newBase(s, orNop(logger).With(zap.String("book_id", bookID))),
		bookID: bookID,
		chat:   chat,
		books:  books,
		now:    domain.Now,
	}
}

// BookID is the book this conversation is about.
func (p *Chat) BookID() string {
	return p.bookID
}

// Load fetches the book and the message history together.
func (p *Chat) Load(parent context.Context) (*Target, error) {
	if t := p.gate(); t != nil {
		return t, nil
	}
	ctx, gen := p.startLoad(parent)

	var book domain.Book
	var history []domain.ChatMessage
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		book, err = p.books.Get(gctx, p.bookID)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = p.chat.Messages(gctx, p.bookID)
		return err
	})
	err := g.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.finishLoad(gen) {
		return nil, ErrStale
	}
	if err != nil {
		p.fail("load chat", "Failed to load chat. Please try again.", err)
		return nil, err
	}
	p.book = book
	p.messages = history
	p.status = StatusReady
	return nil, nil
}

// Book is the loaded book.
func (p *Chat) Book() domain.Book {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.book
}

// Messages returns the conversation in insertion order.
func (p *Chat) Messages() []domain.ChatMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.messages)
}

// Sending reports a message awaiting its reply.
func (p *Chat) Sending() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sending
}

// Send appends the user's message at once, then the assistant's reply when
// it arrives. Blank input is ignored. A failed send keeps the message,
// marked failed.
func (p *Chat) Send(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	p.mu.Lock()
	if p.sending {
		p.mu.Unlock()
		return nil
	}
	p.messages = append(p.messages, domain.ChatMessage{
		Role:      domain.RoleUser,
		Content:   content,
		Timestamp: p.now(),
		Delivery:  domain.Pending,
	})
	idx := len(p.messages) - 1
	p.sending = true
	p.notice = ""
	p.mu.Unlock()

	visit, gen := p.life.join(ctx)
	reply, err := p.chat.Send(visit, p.bookID, content)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.life.current(gen) {
		return ErrStale
	}
	p.sending = false
	if err != nil {
		p.logger.Error("send message", zap.Error(err))
		p.messages[idx].Delivery = domain.Failed
		p.notice = "Failed to send message. Please try again."
		return err
	}
	p.messages[idx].Delivery = domain.Sent
	if reply.Role == "" {
		reply.Role = domain.RoleAssistant
	}
	if reply.Timestamp.IsZero() {
		reply.Timestamp = p.now()
	}
	p.messages = append(p.messages, reply)
	return nil
}

// GuideTarget is where "Back to Guide" leads.
func (p *Chat) GuideTarget() *Target {
	return &Target{Route: RouteGuide, BookID: p.bookID}
}
