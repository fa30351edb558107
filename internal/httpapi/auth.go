package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rustpranker/callapp/internal/session"
	sessiondomain "github.com/rustpranker/callapp/internal/session/domain"
	"github.com/rustpranker/callapp/internal/telemetry/domain"
)

type phoneRequest struct {
	Phone string `json:"phone"`
}

type verifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type sendCodeResponse struct {
	OK     bool   `json:"ok"`
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// handleSendCode starts an SMS verification for the submitted phone.
func (s *Server) handleSendCode(w http.ResponseWriter, r *http.Request) {
	req := decodeJSON[phoneRequest](w, r)
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		s.fail(w, r, errPhoneRequired)
		return
	}
	v, err := s.gateway.StartVerification(r.Context(), phone)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.emit(r, domain.TypeCodeSent, "", map[string]any{"status": v.Status})
	writeJSON(w, http.StatusOK, sendCodeResponse{OK: true, SID: v.SID, Status: v.Status})
}

// handleVerifyCode checks the code and, on approval, reissues the session under a new ID marked
// verified for phone.
func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	req := decodeJSON[verifyRequest](w, r)
	phone := strings.TrimSpace(req.Phone)
	code := strings.TrimSpace(req.Code)
	if phone == "" || code == "" {
		s.fail(w, r, errPhoneAndCodeRequired)
		return
	}
	err := s.gateway.CheckVerification(r.Context(), phone, code)
	s.emit(r, domain.TypeCodeChecked, "", map[string]any{"approved": err == nil})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	h := s.handle(r)
	if err := h.Renew(r.Context(), w, func(sess *sessiondomain.Session) { sess.MarkVerified(phone) }); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

// handleLogout drops the session and expires the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	h := s.handle(r)
	s.emit(r, domain.TypeLogout, "", nil)
	if err := h.Destroy(r.Context(), w); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

// handleToken issues a softphone access token for the session's phone, or an anonymous identity.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	identity := ""
	if sess := s.handle(r).Session(); sess != nil {
		identity = sess.Phone
	}
	if identity == "" {
		identity = "user-" + strconv.FormatInt(s.nowF().UnixMilli(), 10)
	}
	token, err := s.gateway.IssueToken(r.Context(), identity)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token, "identity": identity})
}

// handle returns the request's session handle, loading it when loadSession did not run.
func (s *Server) handle(r *http.Request) *session.Handle {
	if h, ok := session.FromContext(r.Context()); ok {
		return h
	}
	return s.sessions.Load(r)
}
