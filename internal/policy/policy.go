// Package policy decides whether a verified caller may dial a target number.
package policy

import (
	"context"
	"errors"
)

// ErrDenied is returned when the dial policy refuses a target.
var ErrDenied = errors.New("target number is not allowed")

// DialRequest is the input to a dial decision.
type DialRequest struct {
	Target string
	Caller string
}

// DialChecker returns nil when the call may proceed and ErrDenied when it may not.
type DialChecker interface {
	CheckDial(ctx context.Context, req DialRequest) error
}

// AllowAll permits every target. Used when no policy engine is wired.
type AllowAll struct{}

func (AllowAll) CheckDial(context.Context, DialRequest) error { return nil }
