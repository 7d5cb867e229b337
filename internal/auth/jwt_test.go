package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"c1fapp/internal/apierr"
)

func TestVerifier_APIKey(t *testing.T) {
	v := NewVerifier("s3cret")
	token, err := v.Sign("feed-key")
	require.NoError(t, err)

	key, err := v.APIKey("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "feed-key", key)

	key, err = v.APIKey("bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "feed-key", key)
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier("s3cret")
	good, err := v.Sign("feed-key")
	require.NoError(t, err)

	otherSecret, err := NewVerifier("other").Sign("feed-key")
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"key": "x"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":          "",
		"no scheme":      good,
		"basic scheme":   "Basic " + good,
		"bearer only":    "Bearer ",
		"garbage":        "Bearer not.a.jwt",
		"wrong secret":   "Bearer " + otherSecret,
		"none algorithm": "Bearer " + noneAlg,
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.APIKey(header)
			assert.ErrorIs(t, err, apierr.ErrInvalidJWT)
		})
	}
}

func TestVerifier_MissingKeyClaim(t *testing.T) {
	v := NewVerifier("s3cret")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"username": "analyst"}).
		SignedString([]byte("s3cret"))
	require.NoError(t, err)

	key, err := v.APIKey("Bearer " + token)
	require.NoError(t, err)
	assert.Empty(t, key)
}
