package domain

import "time"

// Session is the server-side state behind a browser's session cookie.
// Verified implies Phone holds a number whose code the provider approved.
type Session struct {
	ID          string
	Verified    bool
	Phone       string
	LastCallSID string // empty until a call has been placed
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// MarkVerified records an approved phone number.
func (s *Session) MarkVerified(phone string) {
	s.Verified = true
	s.Phone = phone
}

// Clone returns a copy safe to hand out from a shared store.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
