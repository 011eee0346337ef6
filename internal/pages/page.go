// Package pages holds one controller per screen of the client.
//
// Controllers own their page state, gate access on the session, fetch
// through the API and expose snapshots for rendering. They are safe to call
// from goroutines: long calls run without the lock and their results are
// applied only if the page has not been left in the meantime.
package pages

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/metcalfc/bookpilot/internal/domain"
)

// Status is the load state of a page.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusError
	StatusNotFound
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	case StatusNotFound:
		return "not found"
	default:
		return "idle"
	}
}

// Route names a screen.
type Route string

const (
	RouteLogin    Route = "login"
	RouteRegister Route = "register"
	RouteBooks    Route = "books"
	RouteUpload   Route = "upload"
	RouteGuide    Route = "guide"
	RouteChat     Route = "chat"
)

// Target is a navigation request. BookID is set for guide and chat.
type Target struct {
	Route  Route
	BookID string
}

var loginTarget = &Target{Route: RouteLogin}

// ErrStale is returned when a response arrives after its page was left.
var ErrStale = errors.New("page was left before the response arrived")

// Session is the part of the session store pages depend on.
type Session interface {
	IsAuthenticated() bool
	Login(email string) (domain.User, error)
	SetToken(token string) error
	Logout()
}

// lifetime ties requests to one visit of a page. Leaving cancels the
// context and bumps the generation so late results can be recognised.
type lifetime struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	gen    uint64
}

func (l *lifetime) begin(parent context.Context) (context.Context, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	l.ctx, l.cancel = context.WithCancel(parent)
	return l.ctx, l.gen
}

// join returns the context of the current visit, starting one if needed.
func (l *lifetime) join(parent context.Context) (context.Context, uint64) {
	l.mu.Lock()
	if l.ctx != nil && l.ctx.Err() == nil {
		ctx, gen := l.ctx, l.gen
		l.mu.Unlock()
		return mergeCancel(parent, ctx), gen
	}
	l.mu.Unlock()
	return l.begin(parent)
}

func (l *lifetime) end() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
}

func (l *lifetime) current(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen == gen && l.ctx != nil && l.ctx.Err() == nil
}

// mergeCancel returns a context of parent that is also cancelled with visit.
func mergeCancel(parent, visit context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(visit, cancel)
	context.AfterFunc(ctx, func() { stop() })
	return ctx
}

// base carries what every data page shares.
type base struct {
	mu      sync.RWMutex
	life    lifetime
	session Session
	logger  *zap.Logger

	status  Status
	loading bool
	banner  string
	notice  string
}

func newBase(s Session, logger *zap.Logger) base {
	return base{session: s, logger: orNop(logger)}
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// gate reports the redirect to login for a signed-out session.
func (b *base) gate() *Target {
	if !b.session.IsAuthenticated() {
		return loginTarget
	}
	return nil
}

// startLoad begins a new visit and marks the page loading.
func (b *base) startLoad(parent context.Context) (context.Context, uint64) {
	ctx, gen := b.life.begin(parent)
	b.mu.Lock()
	b.status = StatusLoading
	b.loading = true
	b.banner = ""
	b.mu.Unlock()
	return ctx, gen
}

// finishLoad clears the loading flag whatever the outcome; callers hold mu.
// It reports false when the visit is over and the result must be dropped.
func (b *base) finishLoad(gen uint64) bool {
	if !b.life.current(gen) {
		return false
	}
	b.loading = false
	return true
}

// fail records a load failure: the cause is logged, the user sees message.
func (b *base) fail(what, message string, err error) {
	b.logger.Error(what, zap.Error(err))
	b.status = StatusError
	b.banner = message
}

// setNotice records msg unless the visit gen belongs to is over.
func (b *base) setNotice(gen uint64, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.life.current(gen) {
		b.notice = msg
	}
}

// Leave ends the visit. Pending responses are discarded.
func (b *base) Leave() {
	b.life.end()
	b.mu.Lock()
	b.loading = false
	b.mu.Unlock()
}

// Status returns the load state.
func (b *base) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// Loading reports whether a load is in flight.
func (b *base) Loading() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loading
}

// Banner is the user-facing error of the last failed load, if any.
func (b *base) Banner() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.banner
}

// Notice is a transient message about the last action.
func (b *base) Notice() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.notice
}

// ClearNotice dismisses the notice.
func (b *base) ClearNotice() {
	b.mu.Lock()
	b.notice = ""
	b.mu.Unlock()
}
