package httpapi

import (
	"net/http"
	"strings"

	"github.com/rustpranker/callapp/internal/session"
	"github.com/rustpranker/callapp/internal/telemetry/domain"
)

const eventSource = "httpapi"

// page serves a bundled HTML page.
func (s *Server) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, s.web, name)
	}
}

// assets serves the bundle's static files. HTML pages are only reachable through their routes
// so the verification redirect cannot be bypassed.
func (s *Server) assets() http.Handler {
	files := http.FileServerFS(s.web)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".html") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.health.Check(r.Context()); err != nil {
		s.log.WithError(err).Warn("readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// emit records a best-effort domain event tagged with the request's session.
func (s *Server) emit(r *http.Request, eventType, callSID string, metadata map[string]any) {
	if s.events == nil {
		return
	}
	event := domain.NewEvent(eventType, eventSource, metadata)
	event.CallSID = callSID
	if h, ok := session.FromContext(r.Context()); ok {
		if sess := h.Session(); sess != nil {
			event.SessionID = sess.ID
		}
	}
	s.events.Emit(event)
}
