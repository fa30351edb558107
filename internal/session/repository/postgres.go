package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rustpranker/callapp/internal/session/domain"
)

const (
	getSessionSQL = `SELECT id, verified, phone, last_call_sid, created_at, updated_at, expires_at
FROM sessions WHERE id = $1 AND expires_at > $2`

	saveSessionSQL = `INSERT INTO sessions (id, verified, phone, last_call_sid, created_at, updated_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    verified = EXCLUDED.verified,
    phone = EXCLUDED.phone,
    last_call_sid = EXCLUDED.last_call_sid,
    updated_at = EXCLUDED.updated_at,
    expires_at = EXCLUDED.expires_at`

	deleteSessionSQL = `DELETE FROM sessions WHERE id = $1`

	deleteExpiredSQL = `DELETE FROM sessions WHERE expires_at <= $1`
)

// PostgresRepository persists sessions in the sessions table.
type PostgresRepository struct {
	db   *sql.DB
	nowF func() time.Time
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, nowF: func() time.Time { return time.Now().UTC() }}
}

// Get returns the live session for id, or ErrNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRowContext(ctx, getSessionSQL, id, r.nowF()).Scan(
		&s.ID, &s.Verified, &s.Phone, &s.LastCallSID, &s.CreatedAt, &s.UpdatedAt, &s.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Save upserts the session.
func (r *PostgresRepository) Save(ctx context.Context, s *domain.Session) error {
	if s == nil || s.ID == "" {
		return errors.New("session: id required")
	}
	_, err := r.db.ExecContext(ctx, saveSessionSQL,
		s.ID, s.Verified, s.Phone, s.LastCallSID, s.CreatedAt, s.UpdatedAt, s.ExpiresAt,
	)
	return err
}

// Delete removes the session for id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, deleteSessionSQL, id)
	return err
}

// DeleteExpired removes every session whose expiry has passed.
func (r *PostgresRepository) DeleteExpired(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, deleteExpiredSQL, r.nowF())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
