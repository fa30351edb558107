// Package telephonytest provides an in-memory telephony.Gateway for tests.
package telephonytest

import (
	"context"
	"sync"

	"github.com/rustpranker/callapp/internal/telephony"
)

// Gateway is a scriptable fake. Set the *Err fields to make operations fail; the recorded
// slices show what the caller asked for.
type Gateway struct {
	mu sync.Mutex

	// ApprovedCodes maps phone to the code CheckVerification approves.
	ApprovedCodes map[string]string
	CallSID       string
	Token         string

	StartErr error
	CheckErr error
	CallErr  error
	TokenErr error

	Started []string
	Checked []string
	Calls   []telephony.CallRequest
	Tokens  []string
}

// New returns a fake that approves nothing and returns "CA0000" for calls.
func New() *Gateway {
	return &Gateway{ApprovedCodes: map[string]string{}, CallSID: "CA0000", Token: "fake-token"}
}

func (g *Gateway) StartVerification(ctx context.Context, phone string) (*telephony.Verification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Started = append(g.Started, phone)
	if g.StartErr != nil {
		return nil, g.StartErr
	}
	return &telephony.Verification{SID: "VE" + phone, Status: "pending"}, nil
}

func (g *Gateway) CheckVerification(ctx context.Context, phone, code string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Checked = append(g.Checked, phone)
	if g.CheckErr != nil {
		return g.CheckErr
	}
	if want, ok := g.ApprovedCodes[phone]; !ok || want != code {
		return telephony.ErrCodeRejected
	}
	return nil
}

func (g *Gateway) PlaceCall(ctx context.Context, req telephony.CallRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls = append(g.Calls, req)
	if g.CallErr != nil {
		return "", g.CallErr
	}
	return g.CallSID, nil
}

func (g *Gateway) IssueToken(ctx context.Context, identity string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Tokens = append(g.Tokens, identity)
	if g.TokenErr != nil {
		return "", g.TokenErr
	}
	return g.Token, nil
}

var _ telephony.Gateway = (*Gateway)(nil)
