package auth

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// DefaultRotationThreshold is how many synthesis requests one identity serves
// before the session rotates to the next. The synthesis backend degrades
// per-account throughput, so load is spread round-robin.
const DefaultRotationThreshold = 2

// TokenSource exchanges an identity's credentials for a bearer token.
type TokenSource interface {
	SignIn(ctx context.Context, identity Identity) (string, error)
}

// Session owns the rotation and token state shared by all synthesis calls:
// the credential pool cursor, the per-identity request counter, and the one
// cached token. At most one token is cached, always belonging to the active
// identity; rotation discards it. All methods are safe for concurrent use —
// the worker may assemble several episodes at once against one session.
type Session struct {
	mu        sync.Mutex
	pool      *CredentialPool
	tokens    TokenSource
	threshold int

	token    string // empty = not cached
	requests int    // synthesis requests served by the active identity
}

// NewSession creates a session over the given pool with the default rotation
// threshold.
func NewSession(pool *CredentialPool, tokens TokenSource) *Session {
	return &Session{
		pool:      pool,
		tokens:    tokens,
		threshold: DefaultRotationThreshold,
	}
}

// RotateIfNeeded advances to the next identity when the active one has served
// its quota. Rotation resets the request counter and invalidates the cached
// token. Returns true when a rotation happened.
func (s *Session) RotateIfNeeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.requests < s.threshold {
		return false
	}

	next := s.pool.Advance()
	s.requests = 0
	s.token = ""
	log.Printf("[Auth] Rotated to account %s (cursor %d/%d)", next.Email, s.pool.Cursor(), s.pool.Size())
	return true
}

// Token returns the cached token for the active identity, signing in when no
// token is cached. The token stays cached until the next rotation or explicit
// Invalidate.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		return s.token, nil
	}

	identity := s.pool.Current()
	token, err := s.tokens.SignIn(ctx, identity)
	if err != nil {
		return "", fmt.Errorf("sign-in failed for %s: %w", identity.Email, err)
	}

	s.token = token
	log.Printf("[Auth] Token obtained for %s", identity.Email)
	return token, nil
}

// BeginRequest counts one synthesis request against the active identity and
// returns the new count. The count increments before the request outcome is
// known, so failed calls still advance the rotation schedule.
func (s *Session) BeginRequest() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests++
	log.Printf("[Auth] Account request count: %d/%d", s.requests, s.threshold)
	return s.requests
}

// Invalidate drops the cached token, forcing a fresh sign-in on the next
// Token call.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// Cursor returns the pool index of the active identity.
func (s *Session) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool.Cursor()
}
