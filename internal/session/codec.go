// Package session ties browser cookies to server-side sessions.
package session

import (
	"crypto/sha256"
	"errors"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// CookieName is the name of the session cookie.
const CookieName = "callapp_session"

const (
	cookieIssuer  = "callapp"
	cookieKeyInfo = "callapp session cookie v1"
)

// ErrInvalidCookie is returned when a cookie value is malformed, forged or expired.
var ErrInvalidCookie = errors.New("invalid session cookie")

// Codec signs and verifies session cookie values. The value is an HS256 JWT whose jti is the session ID.
type Codec struct {
	key  []byte
	nowF func() time.Time
}

// NewCodec derives the signing key from secret with HKDF-SHA256.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("session: empty secret")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(cookieKeyInfo)), key); err != nil {
		return nil, err
	}
	return &Codec{key: key, nowF: time.Now}, nil
}

// Encode returns a signed cookie value for the session id, valid until expiresAt.
func (c *Codec) Encode(id string, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        id,
		Issuer:    cookieIssuer,
		IssuedAt:  jwt.NewNumericDate(c.nowF()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// Decode verifies value and returns the session id it carries.
func (c *Codec) Decode(value string) (string, error) {
	if value == "" {
		return "", ErrInvalidCookie
	}
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(value, &claims, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cookieIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.nowF),
	)
	if err != nil || !token.Valid || claims.ID == "" {
		return "", ErrInvalidCookie
	}
	return claims.ID, nil
}
