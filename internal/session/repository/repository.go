package repository

import (
	"context"
	"errors"

	"github.com/rustpranker/callapp/internal/session/domain"
)

// ErrNotFound is returned by Get when no live session exists for the id.
var ErrNotFound = errors.New("session not found")

// Repository defines persistence for sessions.
type Repository interface {
	// Get returns the session for id. Expired sessions are reported as ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Session, error)
	// Save inserts or replaces the session. The session must have ID set.
	Save(ctx context.Context, s *domain.Session) error
	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes sessions that expired before now and returns how many were removed.
	DeleteExpired(ctx context.Context) (int, error)
}
