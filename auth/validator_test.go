package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHS256Validator(t *testing.T) {
	_, err := NewHS256Validator("")
	assert.ErrorIs(t, err, ErrMissingSecret)

	v, err := NewHS256Validator("s3cret")
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestHS256Validator_IssueAndValidate(t *testing.T) {
	v, err := NewHS256Validator("s3cret")
	require.NoError(t, err)

	token, err := v.Issue("ops-lead", []string{"admin"}, time.Hour)
	require.NoError(t, err)

	claims, err := v.ValidateToken(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, "ops-lead", claims.Sub)
	assert.Equal(t, []string{"admin"}, claims.Roles)
	assert.Equal(t, "wisespirit", claims.Iss)
	assert.True(t, claims.HasRole("admin"))
	assert.Greater(t, claims.Exp, claims.Iat)
}

func TestHS256Validator_ValidateToken_Failures(t *testing.T) {
	v, err := NewHS256Validator("s3cret")
	require.NoError(t, err)
	ctx := context.Background()

	sign := func(t *testing.T, method jwt.SigningMethod, key interface{}, claims *Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}

	valid := func() *Claims {
		return &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "wisespirit",
				Subject:   "ops-lead",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Roles: []string{"admin"},
		}
	}

	t.Run("expired", func(t *testing.T) {
		c := valid()
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

		_, err := v.ValidateToken(ctx, sign(t, jwt.SigningMethodHS256, []byte("s3cret"), c))
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := v.ValidateToken(ctx, sign(t, jwt.SigningMethodHS256, []byte("other"), valid()))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		c := valid()
		c.Issuer = "someone-else"

		_, err := v.ValidateToken(ctx, sign(t, jwt.SigningMethodHS256, []byte("s3cret"), c))
		assert.ErrorIs(t, err, ErrInvalidIssuer)
	})

	t.Run("missing expiry", func(t *testing.T) {
		c := valid()
		c.ExpiresAt = nil

		_, err := v.ValidateToken(ctx, sign(t, jwt.SigningMethodHS256, []byte("s3cret"), c))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		c := valid()
		c.Subject = ""

		_, err := v.ValidateToken(ctx, sign(t, jwt.SigningMethodHS256, []byte("s3cret"), c))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token := sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid())

		_, err := v.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.ValidateToken(ctx, "not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
