package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestCreateAndValidate(t *testing.T) {
	token, exp, err := Create("admin-1", "me@example.com", "admin", time.Hour, secret)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := Validate(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.Subject)
	assert.Equal(t, "me@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
}

func TestValidateRejects(t *testing.T) {
	token, _, err := Create("admin-1", "", "admin", time.Hour, secret)
	require.NoError(t, err)

	_, err = Validate(token, "other-secret")
	assert.Error(t, err)

	expired, _, err := Create("admin-1", "", "admin", -time.Minute, secret)
	require.NoError(t, err)
	_, err = Validate(expired, secret)
	assert.ErrorIs(t, err, gojwt.ErrTokenExpired)

	none, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, Claims{
		Role: "admin",
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   "admin-1",
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = Validate(none, secret)
	assert.Error(t, err)

	_, err = Validate("not.a.jwt", secret)
	assert.Error(t, err)

	_, _, err = Create("admin-1", "", "admin", time.Hour, "")
	assert.Error(t, err)
}
