package telephony

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// accessTokenContentType marks the JWT as a Twilio access token.
const accessTokenContentType = "twilio-fpa;v=1"

// AccessTokenClaims is the payload of a softphone access token.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Grants Grants `json:"grants"`
}

// Grants lists what the token holder may do.
type Grants struct {
	Identity string      `json:"identity,omitempty"`
	Voice    *VoiceGrant `json:"voice,omitempty"`
}

// VoiceGrant allows incoming calls to the identity and outgoing calls through a TwiML app.
type VoiceGrant struct {
	Incoming *VoiceIncoming `json:"incoming,omitempty"`
	Outgoing *VoiceOutgoing `json:"outgoing,omitempty"`
}

type VoiceIncoming struct {
	Allow bool `json:"allow"`
}

type VoiceOutgoing struct {
	ApplicationSID string `json:"application_sid"`
}

// TokenIssuer signs access tokens with an API key secret.
type TokenIssuer struct {
	accountSID string
	keySID     string
	keySecret  string
	appSID     string
	ttl        time.Duration
	nowF       func() time.Time
}

// NewTokenIssuer returns an issuer. ttl defaults to one hour.
func NewTokenIssuer(accountSID, keySID, keySecret, appSID string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenIssuer{
		accountSID: accountSID,
		keySID:     keySID,
		keySecret:  keySecret,
		appSID:     appSID,
		ttl:        ttl,
		nowF:       time.Now,
	}
}

// Configured reports whether the issuer has the credentials it needs.
func (t *TokenIssuer) Configured() bool {
	return t.accountSID != "" && t.keySID != "" && t.keySecret != ""
}

// Issue signs a token for identity.
func (t *TokenIssuer) Issue(identity string) (string, error) {
	if !t.Configured() {
		return "", ErrTokenNotConfigured
	}
	now := t.nowF()
	voice := &VoiceGrant{Incoming: &VoiceIncoming{Allow: true}}
	if t.appSID != "" {
		voice.Outgoing = &VoiceOutgoing{ApplicationSID: t.appSID}
	}
	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        fmt.Sprintf("%s-%d", t.keySID, now.Unix()),
			Issuer:    t.keySID,
			Subject:   t.accountSID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Grants: Grants{Identity: identity, Voice: voice},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["cty"] = accessTokenContentType
	return token.SignedString([]byte(t.keySecret))
}
