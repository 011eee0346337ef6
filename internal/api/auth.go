package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/metcalfc/bookpilot/internal/domain"
)

// ErrPasswordRequired is returned by Login when no password is given.
var ErrPasswordRequired = errors.New("password is required for token login")

// AuthService covers /auth.
type AuthService struct{ c *Client }

// Register creates an account for email.
func (s *AuthService) Register(ctx context.Context, email string) (domain.User, error) {
	in := map[string]string{"email": email, "provider": "email"}
	var user domain.User
	if err := s.c.doJSON(ctx, http.MethodPost, "/auth/register", in, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Login exchanges credentials for a bearer token. The body is form encoded
// as the OAuth2 password flow expects.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.Token, error) {
	if password == "" {
		return domain.Token{}, ErrPasswordRequired
	}
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req, err := s.c.newRequest(ctx, http.MethodPost, "/auth/login",
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return domain.Token{}, err
	}
	var token domain.Token
	if err := s.c.do(req, &token); err != nil {
		return domain.Token{}, err
	}
	return token, nil
}

// Me returns the user the current token belongs to.
func (s *AuthService) Me(ctx context.Context) (domain.User, error) {
	var user domain.User
	if err := s.c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}
