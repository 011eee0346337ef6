package pages

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/metcalfc/bookpilot/internal/domain"
)

// AuthAPI is the auth resource as pages use it.
type AuthAPI interface {
	Register(ctx context.Context, email string) (domain.User, error)
	Login(ctx context.Context, email, password string) (domain.Token, error)
}

var errBlankEmail = errors.New("email is required")

// Login is the sign-in page. Any non-blank email signs in; a password, when
// given, is exchanged for a bearer token.
type Login struct {
	session Session
	auth    AuthAPI
	logger  *zap.Logger

	mu      sync.RWMutex
	loading bool
	banner  string
}

// NewLogin returns the login controller.
func NewLogin(s Session, auth AuthAPI, logger *zap.Logger) *Login {
	return &Login{session: s, auth: auth, logger: orNop(logger)}
}

// Enter sends an already signed-in session to the book list.
func (p *Login) Enter() *Target {
	if p.session.IsAuthenticated() {
		return &Target{Route: RouteBooks}
	}
	return nil
}

// Submit signs in and returns the book list as the next page.
func (p *Login) Submit(ctx context.Context, email, password string) (*Target, error) {
	p.begin()
	defer p.end()

	if strings.TrimSpace(email) == "" {
		p.setBanner("Please enter your email address.")
		return nil, errBlankEmail
	}
	if err := signIn(ctx, p.session, p.auth, p.logger, email, password); err != nil {
		p.setBanner("Failed to login. Please try again.")
		return nil, err
	}
	return &Target{Route: RouteBooks}, nil
}

// Loading reports a submission in flight.
func (p *Login) Loading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading
}

// Banner is the last submission error.
func (p *Login) Banner() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.banner
}

func (p *Login) begin() {
	p.mu.Lock()
	p.loading = true
	p.banner = ""
	p.mu.Unlock()
}

func (p *Login) end() {
	p.mu.Lock()
	p.loading = false
	p.mu.Unlock()
}

func (p *Login) setBanner(msg string) {
	p.mu.Lock()
	p.banner = msg
	p.mu.Unlock()
}

// Register creates an account and signs in.
type Register struct {
	Login
}

// NewRegister returns the registration controller.
func NewRegister(s Session, auth AuthAPI, logger *zap.Logger) *Register {
	return &Register{Login: Login{session: s, auth: auth, logger: orNop(logger)}}
}

// Submit registers email with the backend, then signs in.
func (p *Register) Submit(ctx context.Context, email, password string) (*Target, error) {
	p.begin()
	defer p.end()

	email = strings.TrimSpace(email)
	if email == "" {
		p.setBanner("Please enter your email address.")
		return nil, errBlankEmail
	}
	if _, err := p.auth.Register(ctx, email); err != nil {
		p.logger.Error("register", zap.String("email", email), zap.Error(err))
		p.setBanner("Failed to register. Please try again or use a different email.")
		return nil, err
	}
	if err := signIn(ctx, p.session, p.auth, p.logger, email, password); err != nil {
		p.setBanner("Registration successful, but failed to login. Please go to login page.")
		return nil, err
	}
	return &Target{Route: RouteBooks}, nil
}

// signIn creates the local session and, with a password, attaches a token.
// A failed token exchange is logged; the session stays signed in.
func signIn(ctx context.Context, s Session, auth AuthAPI, logger *zap.Logger, email, password string) error {
	user, err := s.Login(email)
	if err != nil {
		return err
	}
	logger.Info("signed in", zap.String("user_id", user.ID))

	if password == "" {
		logger.Debug("no password given, requests will be unauthenticated")
		return nil
	}
	token, err := auth.Login(ctx, user.Email, password)
	if err != nil {
		logger.Warn("token exchange failed", zap.Error(err))
		return nil
	}
	if err := s.SetToken(token.AccessToken); err != nil {
		logger.Error("store token", zap.Error(err))
	}
	return nil
}

// Logout signs out; the caller navigates to the returned target.
func Logout(s Session) *Target {
	s.Logout()
	return loginTarget
}
