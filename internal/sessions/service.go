package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// DefaultIdleTimeout logs an admin out after five minutes without activity.
const DefaultIdleTimeout = 5 * time.Minute

// Service wraps repository operations with the sliding idle expiry.
type Service struct {
	repo Repository
	idle time.Duration
	now  func() time.Time
}

func NewService(r Repository, idle time.Duration) *Service {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Service{repo: r, idle: idle, now: time.Now}
}

// IdleTimeout reports how long a session survives without activity.
func (s *Service) IdleTimeout() time.Duration { return s.idle }

// Create stores a new session for sub and returns it. The ID is an opaque random token.
func (s *Service) Create(ctx context.Context, sub string) (*Session, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := &Session{
		ID:         hex.EncodeToString(b),
		Sub:        sub,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(s.idle),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Validate returns the session when it is still live and pushes its expiry forward.
// Unknown or idle sessions yield (nil, nil).
func (s *Service) Validate(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}
	sess, err := s.repo.Get(ctx, id)
	if err != nil || sess == nil {
		return nil, err
	}
	now := s.now().UTC()
	if sess.expired(now) {
		_ = s.repo.Delete(ctx, id)
		return nil, nil
	}
	sess.LastSeenAt, sess.ExpiresAt = now, now.Add(s.idle)
	if err := s.repo.Touch(ctx, id, sess.LastSeenAt, sess.ExpiresAt); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
