package sessions

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository keeps sessions in process. Used when neither Redis nor MongoDB is configured.
type MemoryRepository struct {
	mu    sync.Mutex
	items map[string]Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: map[string]Session{}}
}

// Create stores s and drops every session that had already expired when s was created.
func (r *MemoryRepository) Create(_ context.Context, s *Session) error {
	now := s.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, old := range r.items {
		if old.expired(now) {
			delete(r.items, id)
		}
	}
	r.items[s.ID] = *s
	return nil
}

// Len reports how many sessions are held, expired ones included.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *MemoryRepository) Touch(_ context.Context, id string, seen, expires time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.items[id]; ok {
		s.LastSeenAt, s.ExpiresAt = seen, expires
		r.items[id] = s
	}
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}
