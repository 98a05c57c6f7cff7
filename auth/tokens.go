// Package auth issues and verifies the bearer credentials that bind a
// connection to a user identity, and hashes passwords for the login path.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers expired, tampered, or malformed credentials.
var ErrInvalidToken = errors.New("invalid token")

// TokenTTL matches the 30-day expiry the clients were built against.
const TokenTTL = 30 * 24 * time.Hour

// Claims is the identity carried inside a token.
type Claims struct {
	UserID   string
	Username string
}

type tokenClaims struct {
	jwt.RegisteredClaims
	UserID   string `json:"id"`
	Username string `json:"username"`
}

// Tokens signs and verifies HMAC credentials with a shared secret.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

// NewTokens creates a token issuer/verifier. now is optional and exists for
// tests; nil means time.Now.
func NewTokens(secret string, now func() time.Time) *Tokens {
	if now == nil {
		now = time.Now
	}
	return &Tokens{secret: []byte(secret), now: now}
}

// IssueToken mints a signed credential for the given identity.
func (t *Tokens) IssueToken(userID, username string) (string, error) {
	issued := t.now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(TokenTTL)),
		},
		UserID:   userID,
		Username: username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks signature and expiry and recovers the identity.
func (t *Tokens) VerifyToken(credential string) (*Claims, error) {
	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(credential, &parsed, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if parsed.UserID == "" {
		return nil, ErrInvalidToken
	}

	return &Claims{UserID: parsed.UserID, Username: parsed.Username}, nil
}
