package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(testSecret, time.Hour, "photoshelf-test")
	require.NoError(t, err)
	return m
}

func TestNewTokenManager(t *testing.T) {
	t.Run("short secret rejected", func(t *testing.T) {
		_, err := NewTokenManager([]byte("short"), time.Hour, "")
		assert.Error(t, err)
	})

	t.Run("zero ttl uses default", func(t *testing.T) {
		m, err := NewTokenManager(testSecret, 0, "")
		require.NoError(t, err)
		assert.Equal(t, DefaultTokenTTL, m.ttl)
	})
}

func TestTokenManager_IssueParse(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		m := newTestManager(t)
		id := uuid.New()

		token, expiresAt, err := m.Issue(id)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

		got, err := m.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	})

	t.Run("expired token", func(t *testing.T) {
		m := newTestManager(t)
		past := time.Now().Add(-2 * time.Hour)
		m.now = func() time.Time { return past }

		token, _, err := m.Issue(uuid.New())
		require.NoError(t, err)

		m.now = time.Now
		_, err = m.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		m := newTestManager(t)
		token, _, err := m.Issue(uuid.New())
		require.NoError(t, err)

		other, err := NewTokenManager([]byte(strings.Repeat("x", 32)), time.Hour, "photoshelf-test")
		require.NoError(t, err)

		_, err = other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		m := newTestManager(t)
		token, _, err := m.Issue(uuid.New())
		require.NoError(t, err)

		other, err := NewTokenManager(testSecret, time.Hour, "someone-else")
		require.NoError(t, err)

		_, err = other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm rejected", func(t *testing.T) {
		m := newTestManager(t)
		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   uuid.NewString(),
				Issuer:    "photoshelf-test",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = m.Parse(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("non uuid subject", func(t *testing.T) {
		m := newTestManager(t)
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "alice@example.com",
				Issuer:    "photoshelf-test",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := token.SignedString(testSecret)
		require.NoError(t, err)

		_, err = m.Parse(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		m := newTestManager(t)
		_, err := m.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
