package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rustpranker/callapp/internal/session/domain"
	"github.com/rustpranker/callapp/internal/session/repository"
)

// Options configures a Manager.
type Options struct {
	// TTL is the session lifetime; the cookie expires with the session.
	TTL time.Duration
	// Secure marks the cookie Secure (production).
	Secure bool
	Logger *logrus.Entry
}

// Manager loads and persists sessions for HTTP requests.
type Manager struct {
	repo   repository.Repository
	codec  *Codec
	ttl    time.Duration
	secure bool
	nowF   func() time.Time
	log    *logrus.Entry
}

// NewManager returns a Manager backed by repo. TTL defaults to 24h.
func NewManager(repo repository.Repository, codec *Codec, opts Options) *Manager {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{
		repo:   repo,
		codec:  codec,
		ttl:    ttl,
		secure: opts.Secure,
		nowF:   func() time.Time { return time.Now().UTC() },
		log:    log,
	}
}

// Load resolves the request's cookie into a Handle. A missing, invalid or expired cookie
// yields an empty Handle; store failures are logged and treated the same way.
func (m *Manager) Load(r *http.Request) *Handle {
	h := &Handle{m: m}
	c, err := r.Cookie(CookieName)
	if err != nil {
		return h
	}
	id, err := m.codec.Decode(c.Value)
	if err != nil {
		return h
	}
	s, err := m.repo.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			m.log.WithError(err).Warn("session lookup failed")
		}
		return h
	}
	h.sess = s
	return h
}

func (m *Manager) setCookie(w http.ResponseWriter, s *domain.Session) error {
	value, err := m.codec.Encode(s.ID, s.ExpiresAt)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  s.ExpiresAt,
		MaxAge:   int(s.ExpiresAt.Sub(m.nowF()).Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Handle is the per-request view of a session. It is not safe for concurrent use.
type Handle struct {
	m    *Manager
	sess *domain.Session
}

// Session returns a copy of the current session, or nil when the request has none.
func (h *Handle) Session() *domain.Session {
	return h.sess.Clone()
}

// Verified reports whether the request carries a verified session.
func (h *Handle) Verified() bool {
	return h.sess != nil && h.sess.Verified
}

// Update applies fn to the session, creating one first if the request has none, persists it,
// and sets the cookie when the session is new.
func (h *Handle) Update(ctx context.Context, w http.ResponseWriter, fn func(*domain.Session)) error {
	now := h.m.nowF()
	created := false
	s := h.sess.Clone()
	if s == nil {
		s = &domain.Session{
			ID:        uuid.NewString(),
			CreatedAt: now,
			ExpiresAt: now.Add(h.m.ttl),
		}
		created = true
	}
	fn(s)
	s.UpdatedAt = now
	if err := h.m.repo.Save(ctx, s); err != nil {
		return err
	}
	if created {
		if err := h.m.setCookie(w, s); err != nil {
			return err
		}
	}
	h.sess = s
	return nil
}

// Renew applies fn like Update but stores the result under a fresh ID with a fresh expiry,
// deletes the previous session and reissues the cookie. Use it when the session gains privileges.
func (h *Handle) Renew(ctx context.Context, w http.ResponseWriter, fn func(*domain.Session)) error {
	now := h.m.nowF()
	s := h.sess.Clone()
	if s == nil {
		s = &domain.Session{CreatedAt: now}
	}
	oldID := s.ID
	s.ID = uuid.NewString()
	s.ExpiresAt = now.Add(h.m.ttl)
	fn(s)
	s.UpdatedAt = now
	if err := h.m.repo.Save(ctx, s); err != nil {
		return err
	}
	if oldID != "" {
		if err := h.m.repo.Delete(ctx, oldID); err != nil {
			h.m.log.WithError(err).WithField("session_id", oldID).Warn("previous session not deleted")
		}
	}
	if err := h.m.setCookie(w, s); err != nil {
		return err
	}
	h.sess = s
	return nil
}

// Destroy deletes the session and expires the cookie. It is a no-op on the store when there is no session.
func (h *Handle) Destroy(ctx context.Context, w http.ResponseWriter) error {
	if h.sess != nil {
		if err := h.m.repo.Delete(ctx, h.sess.ID); err != nil {
			return err
		}
		h.sess = nil
	}
	h.m.clearCookie(w)
	return nil
}

type ctxKey struct{}

// NewContext returns ctx carrying h.
func NewContext(ctx context.Context, h *Handle) context.Context {
	return context.WithValue(ctx, ctxKey{}, h)
}

// FromContext returns the Handle stored in ctx, if any.
func FromContext(ctx context.Context) (*Handle, bool) {
	h, ok := ctx.Value(ctxKey{}).(*Handle)
	return h, ok && h != nil
}
