package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rustpranker/callapp/internal/session/domain"
)

// MemoryRepository keeps sessions in process memory. It is the default when no database is configured.
type MemoryRepository struct {
	mu   sync.RWMutex
	m    map[string]*domain.Session
	nowF func() time.Time
}

// NewMemoryRepository returns an empty in-memory session repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		m:    make(map[string]*domain.Session),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Get returns a copy of the session for id.
func (r *MemoryRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.RLock()
	s, ok := r.m[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if s.Expired(r.nowF()) {
		r.mu.Lock()
		delete(r.m, id)
		r.mu.Unlock()
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// Save stores a copy of s.
func (r *MemoryRepository) Save(ctx context.Context, s *domain.Session) error {
	if s == nil || s.ID == "" {
		return errors.New("session: id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[s.ID] = s.Clone()
	return nil
}

// Delete removes the session for id.
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
	return nil
}

// DeleteExpired drops every expired session.
func (r *MemoryRepository) DeleteExpired(ctx context.Context) (int, error) {
	now := r.nowF()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.m {
		if s.Expired(now) {
			delete(r.m, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions, expired ones included.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.m)
}
