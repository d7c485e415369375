package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoSession is returned when no device principal is signed in.
var ErrNoSession = errors.New("auth: no signed-in session")

// Session holds the device's current signed-in token.
// Current re-verifies the token on every call so an expired session stops authorizing uploads.
type Session struct {
	m   *Manager
	now func() time.Time

	mu    sync.RWMutex
	token string
}

func NewSession(m *Manager) *Session {
	return &Session{m: m, now: time.Now}
}

// SignIn verifies an access token and makes its principal current.
func (s *Session) SignIn(token string) (Principal, error) {
	if s.m == nil {
		return Principal{}, errors.New("auth: session manager not configured")
	}
	claims, err := s.m.Verify(token, TokenTypeAccess, s.now())
	if err != nil {
		return Principal{}, err
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return claims.Principal(), nil
}

// Refresh trades a refresh token for a new pair and signs in its access token.
func (s *Session) Refresh(refreshToken string) (TokenPair, Principal, error) {
	if s.m == nil {
		return TokenPair{}, Principal{}, errors.New("auth: session manager not configured")
	}
	pair, p, err := s.m.Refresh(s.now(), refreshToken)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}

	s.mu.Lock()
	s.token = pair.AccessToken
	s.mu.Unlock()
	return pair, p, nil
}

func (s *Session) SignOut() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// Current returns the signed-in principal.
func (s *Session) Current(_ context.Context) (Principal, error) {
	s.mu.RLock()
	tok := s.token
	s.mu.RUnlock()

	if tok == "" || s.m == nil {
		return Principal{}, ErrNoSession
	}
	claims, err := s.m.Verify(tok, TokenTypeAccess, s.now())
	if err != nil {
		return Principal{}, err
	}
	return claims.Principal(), nil
}

// StaticIdentity always reports the same principal. Used in tests and for
// single-user deployments that skip the session flow.
type StaticIdentity Principal

func (s StaticIdentity) Current(context.Context) (Principal, error) {
	if s.Email == "" {
		return Principal{}, ErrNoSession
	}
	return Principal(s), nil
}
