// Package telephony wraps the voice and verification provider behind a small interface.
package telephony

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured is returned when provider credentials, the Verify service or the caller ID are missing.
	ErrNotConfigured = errors.New("Twilio not configured")
	// ErrTokenNotConfigured is returned by IssueToken when API key credentials are missing.
	ErrTokenNotConfigured = errors.New("Twilio API key not configured")
	// ErrCodeRejected is returned by CheckVerification when the provider does not approve the code.
	ErrCodeRejected = errors.New("invalid code")
)

// Verification is the provider's answer to a start request.
type Verification struct {
	SID    string
	Status string
}

// CallRequest describes an outbound bridged call.
type CallRequest struct {
	// To is the verified user's phone, rung first.
	To string
	// DialplanURL is fetched by the provider once To answers.
	DialplanURL string
	// StatusCallbackURL receives call progress events; optional.
	StatusCallbackURL string
}

// Gateway is everything the HTTP layer needs from the provider.
type Gateway interface {
	StartVerification(ctx context.Context, phone string) (*Verification, error)
	// CheckVerification returns nil when the code is approved and ErrCodeRejected when it is not.
	CheckVerification(ctx context.Context, phone, code string) error
	// PlaceCall starts the call and returns the provider call SID.
	PlaceCall(ctx context.Context, req CallRequest) (string, error)
	IssueToken(ctx context.Context, identity string) (string, error)
}

// ProviderError carries the provider's own message for a failed request.
type ProviderError struct {
	Op      string
	Status  int
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return e.Message
}
