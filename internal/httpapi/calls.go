package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rustpranker/callapp/internal/callstate"
	"github.com/rustpranker/callapp/internal/dialplan"
	"github.com/rustpranker/callapp/internal/policy"
	sessiondomain "github.com/rustpranker/callapp/internal/session/domain"
	"github.com/rustpranker/callapp/internal/telemetry/domain"
	"github.com/rustpranker/callapp/internal/telephony"
)

type callRequest struct {
	Target string `json:"target"`
}

type callResponse struct {
	OK  bool   `json:"ok"`
	SID string `json:"sid"`
}

// handleCall rings the verified phone and has the provider bridge it to the target.
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	req := decodeJSON[callRequest](w, r)
	target := strings.TrimSpace(req.Target)
	if target == "" {
		s.fail(w, r, errTargetRequired)
		return
	}
	h := s.handle(r)
	sess := h.Session()
	if err := s.policy.CheckDial(r.Context(), policy.DialRequest{Target: target, Caller: sess.Phone}); err != nil {
		s.fail(w, r, err)
		return
	}

	base := s.callbackBase(r)
	sid, err := s.gateway.PlaceCall(r.Context(), telephony.CallRequest{
		To:                sess.Phone,
		DialplanURL:       base + "/voice?target=" + url.QueryEscape(target),
		StatusCallbackURL: base + "/voice/status",
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.tracker.Start(sid)
	if err := h.Update(r.Context(), w, func(sess *sessiondomain.Session) { sess.LastCallSID = sid }); err != nil {
		s.fail(w, r, err)
		return
	}
	s.emit(r, domain.TypeCallPlaced, sid, map[string]any{"target": target})
	writeJSON(w, http.StatusOK, callResponse{OK: true, SID: sid})
}

// handleCallStatus reports the tracked state of the session's last call.
func (s *Server) handleCallStatus(w http.ResponseWriter, r *http.Request) {
	sid := s.handle(r).Session().LastCallSID
	if sid == "" {
		s.fail(w, r, errNoCall)
		return
	}
	call, ok := s.tracker.Get(sid)
	if !ok {
		s.fail(w, r, errNoCall)
		return
	}
	writeJSON(w, http.StatusOK, call)
}

// handleVoice returns the dialplan for the provider: Dial the target query parameter, or speak the fallback.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	doc, err := s.dialplan.Render(r.URL.Query().Get("target"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", dialplan.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// handleVoiceStatus feeds provider status callbacks into the call-state tracker.
func (s *Server) handleVoiceStatus(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.fail(w, r, errCallSIDRequired)
		return
	}
	sid := strings.TrimSpace(r.PostForm.Get("CallSid"))
	if sid == "" {
		s.fail(w, r, errCallSIDRequired)
		return
	}
	status := r.PostForm.Get("CallStatus")
	call, err := s.tracker.Apply(sid, status)
	entry := s.log.WithField("call_sid", sid).WithField("status", status)
	switch {
	case errors.Is(err, callstate.ErrUnknownCall):
		entry.Warn("status for untracked call ignored")
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		entry.WithError(err).Warn("call status ignored")
	default:
		entry.WithField("state", call.State).Debug("call status")
	}
	s.emit(r, domain.TypeCallStatus, sid, map[string]any{"status": status, "state": call.State})
	w.WriteHeader(http.StatusNoContent)
}

// callbackBase is the public origin the provider should call back on.
func (s *Server) callbackBase(r *http.Request) string {
	if s.baseURL != "" {
		return s.baseURL
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
