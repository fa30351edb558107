package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rustpranker/callapp/internal/logging"
	"github.com/rustpranker/callapp/internal/session/domain"
	"github.com/rustpranker/callapp/internal/session/repository"
)

func newTestManager(t *testing.T, secure bool) (*Manager, *repository.MemoryRepository) {
	t.Helper()
	codec, err := NewCodec("test-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	repo := repository.NewMemoryRepository()
	return NewManager(repo, codec, Options{TTL: time.Hour, Secure: secure, Logger: logging.Discard()}), repo
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	return nil
}

func TestManager_LoadWithoutCookie(t *testing.T) {
	m, _ := newTestManager(t, false)
	h := m.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	if h.Session() != nil {
		t.Error("Session() should be nil without cookie")
	}
	if h.Verified() {
		t.Error("Verified() should be false without cookie")
	}
}

func TestManager_LoadInvalidCookie(t *testing.T) {
	m, _ := newTestManager(t, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "forged"})
	if m.Load(req).Session() != nil {
		t.Error("Session() should be nil for invalid cookie")
	}
}

func TestHandle_UpdateCreatesSessionAndCookie(t *testing.T) {
	m, repo := newTestManager(t, true)
	rec := httptest.NewRecorder()
	h := m.Load(httptest.NewRequest(http.MethodPost, "/api/verify-code", nil))

	err := h.Update(context.Background(), rec, func(s *domain.Session) {
		s.MarkVerified("+15551234567")
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !h.Verified() {
		t.Error("Verified() should be true after update")
	}
	if repo.Len() != 1 {
		t.Errorf("repo.Len() = %d, want 1", repo.Len())
	}

	c := sessionCookie(t, rec)
	if c == nil {
		t.Fatal("session cookie not set")
	}
	if !c.HttpOnly {
		t.Error("cookie should be HttpOnly")
	}
	if !c.Secure {
		t.Error("cookie should be Secure when configured")
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", c.SameSite)
	}
	if c.Path != "/" {
		t.Errorf("Path = %q, want /", c.Path)
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(c)
	loaded := m.Load(req)
	if !loaded.Verified() {
		t.Fatal("reloaded session should be verified")
	}
	if got := loaded.Session().Phone; got != "+15551234567" {
		t.Errorf("Phone = %q, want %q", got, "+15551234567")
	}
}

func TestHandle_UpdateExistingDoesNotResetCookie(t *testing.T) {
	m, _ := newTestManager(t, false)
	rec := httptest.NewRecorder()
	h := m.Load(httptest.NewRequest(http.MethodPost, "/", nil))
	_ = h.Update(context.Background(), rec, func(s *domain.Session) { s.MarkVerified("+1555") })
	c := sessionCookie(t, rec)

	req := httptest.NewRequest(http.MethodPost, "/api/call", nil)
	req.AddCookie(c)
	h2 := m.Load(req)
	rec2 := httptest.NewRecorder()
	if err := h2.Update(context.Background(), rec2, func(s *domain.Session) { s.LastCallSID = "CA1" }); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if sessionCookie(t, rec2) != nil {
		t.Error("cookie should not be rewritten for an existing session")
	}
	if h2.Session().ID != h.Session().ID {
		t.Error("update should keep the session ID")
	}
	if h2.Session().LastCallSID != "CA1" {
		t.Errorf("LastCallSID = %q, want CA1", h2.Session().LastCallSID)
	}
}

func TestHandle_RenewRotatesID(t *testing.T) {
	m, repo := newTestManager(t, false)
	rec := httptest.NewRecorder()
	h := m.Load(httptest.NewRequest(http.MethodPost, "/api/send-code", nil))
	_ = h.Update(context.Background(), rec, func(s *domain.Session) { s.LastCallSID = "CA1" })
	before := sessionCookie(t, rec)
	oldID := h.Session().ID

	req := httptest.NewRequest(http.MethodPost, "/api/verify-code", nil)
	req.AddCookie(before)
	h2 := m.Load(req)
	rec2 := httptest.NewRecorder()
	if err := h2.Renew(context.Background(), rec2, func(s *domain.Session) { s.MarkVerified("+1555") }); err != nil {
		t.Fatalf("Renew: %v", err)
	}
	after := sessionCookie(t, rec2)
	if after == nil || after.Value == before.Value {
		t.Fatal("Renew should issue a new cookie")
	}
	if h2.Session().ID == oldID {
		t.Error("Renew should change the session ID")
	}
	if h2.Session().LastCallSID != "CA1" || !h2.Verified() {
		t.Errorf("renewed session = %+v, want verified with data kept", h2.Session())
	}
	if repo.Len() != 1 {
		t.Errorf("repo.Len() = %d, want 1", repo.Len())
	}

	stale := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	stale.AddCookie(before)
	if m.Load(stale).Session() != nil {
		t.Error("previous cookie should not resolve after Renew")
	}
	fresh := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	fresh.AddCookie(after)
	if !m.Load(fresh).Verified() {
		t.Error("new cookie should resolve to the verified session")
	}
}

func TestHandle_RenewWithoutSession(t *testing.T) {
	m, repo := newTestManager(t, false)
	rec := httptest.NewRecorder()
	h := m.Load(httptest.NewRequest(http.MethodPost, "/api/verify-code", nil))
	if err := h.Renew(context.Background(), rec, func(s *domain.Session) { s.MarkVerified("+1555") }); err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if sessionCookie(t, rec) == nil || repo.Len() != 1 || !h.Verified() {
		t.Error("Renew without a session should create one and set the cookie")
	}
}

func TestHandle_Destroy(t *testing.T) {
	m, repo := newTestManager(t, false)
	rec := httptest.NewRecorder()
	h := m.Load(httptest.NewRequest(http.MethodPost, "/", nil))
	_ = h.Update(context.Background(), rec, func(s *domain.Session) { s.MarkVerified("+1555") })
	c := sessionCookie(t, rec)

	rec2 := httptest.NewRecorder()
	if err := h.Destroy(context.Background(), rec2); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if repo.Len() != 0 {
		t.Errorf("repo.Len() = %d, want 0", repo.Len())
	}
	cleared := sessionCookie(t, rec2)
	if cleared == nil || cleared.MaxAge >= 0 {
		t.Errorf("Destroy should expire the cookie, got %+v", cleared)
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(c)
	if m.Load(req).Session() != nil {
		t.Error("old cookie should not resolve after Destroy")
	}
}

func TestHandle_DestroyWithoutSession(t *testing.T) {
	m, _ := newTestManager(t, false)
	h := m.Load(httptest.NewRequest(http.MethodPost, "/api/logout", nil))
	if err := h.Destroy(context.Background(), httptest.NewRecorder()); err != nil {
		t.Errorf("Destroy without session: %v", err)
	}
}

func TestContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("FromContext on empty context should report false")
	}
	m, _ := newTestManager(t, false)
	h := m.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	got, ok := FromContext(NewContext(context.Background(), h))
	if !ok || got != h {
		t.Error("FromContext should return the stored handle")
	}
}
