package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rustpranker/callapp/internal/db"
	"github.com/rustpranker/callapp/internal/db/migrate"
	"github.com/rustpranker/callapp/internal/session/domain"
)

func TestPostgresRepository_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	conn, err := db.Open(ctx, dsn)
	if err != nil {
		t.Skipf("Database connection failed (expected in test environment): %v", err)
	}
	defer conn.Close()
	if _, err := migrate.Run(dsn, migrate.Up); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	r := NewPostgresRepository(conn)
	now := time.Now().UTC().Truncate(time.Millisecond)
	s := &domain.Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := r.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s.MarkVerified("+15551234567")
	s.LastCallSID = "CA123"
	if err := r.Save(ctx, s); err != nil {
		t.Fatalf("Save (update): %v", err)
	}

	got, err := r.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Verified || got.Phone != "+15551234567" || got.LastCallSID != "CA123" {
		t.Errorf("Get = %+v", got)
	}

	if err := r.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.Get(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete err = %v, want ErrNotFound", err)
	}
}
