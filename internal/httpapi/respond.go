package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rustpranker/callapp/internal/policy"
	"github.com/rustpranker/callapp/internal/telephony"
)

const maxBodyBytes = 1 << 20

var (
	errPhoneRequired        = errors.New("Phone required")
	errPhoneAndCodeRequired = errors.New("Phone and code required")
	errTargetRequired       = errors.New("Target number required")
	errCallSIDRequired      = errors.New("CallSid required")
	errNotVerified          = errors.New("Not verified")
	errNoCall               = errors.New("No call")
	errBadSignature         = errors.New("Invalid signature")
)

type errorBody struct {
	Error string `json:"error"`
}

type okBody struct {
	OK bool `json:"ok"`
}

// errorStatus maps an error to its HTTP status. Anything unrecognised is a provider or
// configuration failure.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, errPhoneRequired),
		errors.Is(err, errPhoneAndCodeRequired),
		errors.Is(err, errTargetRequired),
		errors.Is(err, errCallSIDRequired):
		return http.StatusBadRequest
	case errors.Is(err, errNotVerified), errors.Is(err, telephony.ErrCodeRejected):
		return http.StatusUnauthorized
	case errors.Is(err, policy.ErrDenied), errors.Is(err, errBadSignature):
		return http.StatusForbidden
	case errors.Is(err, errNoCall):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err and writes it as {error}. The message is passed through unchanged so
// provider errors reach the browser verbatim.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	entry := s.log.WithError(err).WithField("path", r.URL.Path).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the body as T. Malformed or missing bodies yield the zero value,
// so handlers report the missing fields instead of a parse error.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request) T {
	var v T
	if r.Body == nil {
		return v
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&v); err != nil {
		var zero T
		return zero
	}
	return v
}
