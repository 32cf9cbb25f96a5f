package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, secret, userID string, exp time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(exp)),
		},
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestValidate(t *testing.T) {
	v := NewValidator("top-secret")

	userID, err := v.Validate(signed(t, "top-secret", "user-1", time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := v.Validate(signed(t, "other-secret", "user-1", time.Hour))
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		_, err := v.Validate(signed(t, "top-secret", "user-1", -time.Hour))
		assert.Error(t, err)
	})

	t.Run("empty subject", func(t *testing.T) {
		_, err := v.Validate(signed(t, "top-secret", "", time.Hour))
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Validate("not.a.token")
		assert.Error(t, err)
	})
}

func TestParseBearer(t *testing.T) {
	token, err := ParseBearer("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	_, err = ParseBearer("")
	assert.Error(t, err)

	_, err = ParseBearer("Basic dXNlcg==")
	assert.Error(t, err)
}
