package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown, revoked or expired sessions
var ErrSessionNotFound = errors.New("session not found")

// Session is a login of one user. A zero ExpiresAt means the session never expires.
type Session struct {
	Token     string
	UserEmail string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at the given time
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store keeps at most one active session per user. Create replaces any
// previous session of the same user atomically.
type Store interface {
	Create(ctx context.Context, userEmail string) (*Session, error)
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteForUser(ctx context.Context, userEmail string) error
}

func newSession(userEmail string, now time.Time, ttl time.Duration) *Session {
	s := &Session{
		Token:     uuid.NewString(),
		UserEmail: userEmail,
		IssuedAt:  now,
	}
	if ttl > 0 {
		s.ExpiresAt = now.Add(ttl)
	}
	return s
}
