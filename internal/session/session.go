// Package session keeps the signed-in identity and its bearer token.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/metcalfc/bookpilot/internal/domain"
)

const sessionFileName = "session.json"

// ErrEmailRequired is returned by Login for a blank email.
var ErrEmailRequired = errors.New("email is required")

// record is the persisted form of a session.
type record struct {
	User  *domain.User `json:"user,omitempty"`
	Token string       `json:"token,omitempty"`
}

// Store holds the current session and mirrors it to disk.
type Store struct {
	path   string
	logger *zap.Logger
	now    func() time.Time

	mu         sync.RWMutex
	data       record
	loading    bool
	rehydrated bool
	listeners  []func(*domain.User)
}

// NewStore creates a store persisting to dir. Nothing is read until Rehydrate.
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:    filepath.Join(dir, sessionFileName),
		logger:  logger,
		now:     time.Now,
		loading: true,
	}
}

// Rehydrate loads the persisted session once. Later calls are no-ops.
// Listeners are notified when loading finishes, whatever the outcome.
func (s *Store) Rehydrate() error {
	s.mu.Lock()
	if s.rehydrated {
		s.mu.Unlock()
		return nil
	}
	s.rehydrated = true
	err := s.load()
	if err != nil {
		// Non-fatal - start signed out
		s.data = record{}
	}
	s.loading = false
	s.mu.Unlock()

	s.notify()
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	return nil
}

// Loading reports whether the persisted session has not been read yet.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// OnChange registers fn to run after rehydration, login and logout.
func (s *Store) OnChange(fn func(*domain.User)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Login signs in as email. Any non-blank email succeeds; the user record is
// generated locally. A failure to persist is logged and does not fail the login.
func (s *Store) Login(email string) (domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.User{}, ErrEmailRequired
	}

	user := domain.User{
		ID:    "user-" + uuid.NewString(),
		Email: email,
		Name:  localPart(email),
	}

	s.mu.Lock()
	s.data = record{User: &user}
	if err := s.save(); err != nil {
		s.logger.Error("persist session", zap.String("email", email), zap.Error(err))
	}
	s.mu.Unlock()

	s.notify()
	return user, nil
}

// Logout forgets the user and token.
func (s *Store) Logout() {
	s.mu.Lock()
	s.data = record{}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.logger.Error("remove session", zap.Error(err))
	}
	s.mu.Unlock()

	s.notify()
}

// SetToken attaches a bearer token to the current session.
func (s *Store) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.User == nil {
		return errors.New("no user signed in")
	}
	s.data.Token = token
	return s.save()
}

// Token returns the bearer token, or "" when there is none or it is a JWT past its expiry.
func (s *Store) Token() string {
	s.mu.RLock()
	token := s.data.Token
	s.mu.RUnlock()

	if token == "" || s.expired(token) {
		return ""
	}
	return token
}

// User returns the signed-in user, or nil.
func (s *Store) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.User == nil {
		return nil
	}
	u := *s.data.User
	return &u
}

// IsAuthenticated reports whether a user is signed in.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.User != nil
}

// expired inspects the exp claim without verifying the signature; the server does that.
func (s *Store) expired(token string) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		// Opaque tokens are passed through as-is
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !s.now().Before(claims.ExpiresAt.Time)
}

func (s *Store) notify() {
	s.mu.RLock()
	listeners := append([]func(*domain.User){}, s.listeners...)
	var user *domain.User
	if s.data.User != nil {
		u := *s.data.User
		user = &u
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(user)
	}
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	s.data = rec
	return nil
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

func localPart(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}
