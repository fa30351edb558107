package telephony

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	twilio "github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	twapi "github.com/twilio/twilio-go/rest/api/v2010"
	twverify "github.com/twilio/twilio-go/rest/verify/v2"
)

// StatusCallbackEvents are the call progress events requested from the provider.
var StatusCallbackEvents = []string{"initiated", "ringing", "answered", "completed"}

const approvedStatus = "approved"

// TwilioConfig holds provider credentials. Empty fields leave the matching operation unconfigured.
type TwilioConfig struct {
	AccountSID       string
	AuthToken        string
	VerifyServiceSID string
	FromNumber       string
	APIKeySID        string
	APIKeySecret     string
	TwiMLAppSID      string
	TokenTTL         time.Duration
}

type verifyService interface {
	CreateVerification(serviceSid string, params *twverify.CreateVerificationParams) (*twverify.VerifyV2Verification, error)
	CreateVerificationCheck(serviceSid string, params *twverify.CreateVerificationCheckParams) (*twverify.VerifyV2VerificationCheck, error)
}

type callService interface {
	CreateCall(params *twapi.CreateCallParams) (*twapi.ApiV2010Call, error)
}

// TwilioGateway implements Gateway with the Twilio REST API.
type TwilioGateway struct {
	verify    verifyService
	calls     callService
	verifySID string
	from      string
	tokens    *TokenIssuer
	log       *logrus.Entry
}

// NewTwilioGateway builds a gateway from cfg. Missing account credentials are not an error here;
// operations report ErrNotConfigured instead.
func NewTwilioGateway(cfg TwilioConfig, log *logrus.Entry) *TwilioGateway {
	g := &TwilioGateway{
		verifySID: cfg.VerifyServiceSID,
		from:      cfg.FromNumber,
		tokens:    NewTokenIssuer(cfg.AccountSID, cfg.APIKeySID, cfg.APIKeySecret, cfg.TwiMLAppSID, cfg.TokenTTL),
		log:       log,
	}
	if cfg.AccountSID != "" && cfg.AuthToken != "" {
		c := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
		g.verify = c.VerifyV2
		g.calls = c.Api
	}
	return g
}

// StartVerification sends an SMS code to phone.
func (g *TwilioGateway) StartVerification(ctx context.Context, phone string) (*Verification, error) {
	if g.verify == nil || g.verifySID == "" {
		return nil, ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := &twverify.CreateVerificationParams{}
	params.SetTo(phone)
	params.SetChannel("sms")

	resp, err := g.verify.CreateVerification(g.verifySID, params)
	if err != nil {
		return nil, providerError("start verification", err)
	}
	v := &Verification{SID: deref(resp.Sid), Status: deref(resp.Status)}
	g.log.WithFields(logrus.Fields{"sid": v.SID, "status": v.Status}).Info("verification started")
	return v, nil
}

// CheckVerification asks the provider whether code is valid for phone.
func (g *TwilioGateway) CheckVerification(ctx context.Context, phone, code string) error {
	if g.verify == nil || g.verifySID == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &twverify.CreateVerificationCheckParams{}
	params.SetTo(phone)
	params.SetCode(code)

	resp, err := g.verify.CreateVerificationCheck(g.verifySID, params)
	if err != nil {
		return providerError("check verification", err)
	}
	if deref(resp.Status) != approvedStatus {
		return ErrCodeRejected
	}
	return nil
}

// PlaceCall rings req.To from the configured caller ID.
func (g *TwilioGateway) PlaceCall(ctx context.Context, req CallRequest) (string, error) {
	if g.calls == nil || g.from == "" {
		return "", ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	params := &twapi.CreateCallParams{}
	params.SetTo(req.To)
	params.SetFrom(g.from)
	params.SetUrl(req.DialplanURL)
	if req.StatusCallbackURL != "" {
		params.SetStatusCallback(req.StatusCallbackURL)
		params.SetStatusCallbackMethod("POST")
		params.SetStatusCallbackEvent(StatusCallbackEvents)
	}

	resp, err := g.calls.CreateCall(params)
	if err != nil {
		return "", providerError("create call", err)
	}
	sid := deref(resp.Sid)
	g.log.WithField("call_sid", sid).Info("call created")
	return sid, nil
}

// IssueToken returns a softphone access token for identity.
func (g *TwilioGateway) IssueToken(ctx context.Context, identity string) (string, error) {
	return g.tokens.Issue(identity)
}

func providerError(op string, err error) error {
	var restErr *twclient.TwilioRestError
	if errors.As(err, &restErr) {
		msg := restErr.Message
		if msg == "" {
			msg = restErr.Error()
		}
		return &ProviderError{Op: op, Status: restErr.Status, Code: restErr.Code, Message: msg}
	}
	return &ProviderError{Op: op, Message: err.Error()}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
