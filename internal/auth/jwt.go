// Package auth extracts the C1fApp API key from the caller's Bearer JWT.
package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"c1fapp/internal/apierr"
)

// keyClaim carries the feed API key inside the token.
const keyClaim = "key"

// Verifier checks HS256 tokens signed with the relay's secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier creates a verifier for secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// APIKey validates an Authorization header value and returns the key claim.
// A token without the claim yields an empty key. Any other problem returns
// apierr.ErrInvalidJWT.
func (v *Verifier) APIKey(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", apierr.ErrInvalidJWT
	}
	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(strings.TrimSpace(token), claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", apierr.ErrInvalidJWT
	}
	key, _ := claims[keyClaim].(string)
	return key, nil
}

// Sign issues a token carrying key. Used by tooling and tests.
func (v *Verifier) Sign(key string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{keyClaim: key}).SignedString(v.secret)
}
