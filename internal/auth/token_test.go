package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/casedesk/casedesk/internal/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewTokenManager(t *testing.T) {
	t.Run("rejects short secret", func(t *testing.T) {
		_, err := auth.NewTokenManager("tooshort", time.Hour)
		assert.Error(t, err)
	})

	t.Run("accepts a secret at the minimum length", func(t *testing.T) {
		require.Len(t, testSecret, auth.MinSecretLen)
		tm, err := auth.NewTokenManager(testSecret, time.Hour)
		require.NoError(t, err)
		assert.NotNil(t, tm)
	})
}

func TestTokenRoundTrip(t *testing.T) {
	tm, err := auth.NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)

	userID := uuid.New()
	orgID := uuid.New()

	t.Run("claims survive generate and validate", func(t *testing.T) {
		token, err := tm.Generate(userID, "alice@example.com", &orgID)
		require.NoError(t, err)

		claims, err := tm.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, userID.String(), claims.UserID)
		assert.Equal(t, "alice@example.com", claims.Email)
		assert.Equal(t, orgID.String(), claims.OrgID)
	})

	t.Run("org claim is optional", func(t *testing.T) {
		token, err := tm.Generate(userID, "alice@example.com", nil)
		require.NoError(t, err)

		claims, err := tm.Validate(token)
		require.NoError(t, err)
		assert.Empty(t, claims.OrgID)
	})

	t.Run("tampered token is rejected", func(t *testing.T) {
		token, err := tm.Generate(userID, "alice@example.com", nil)
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		parts[2] = strings.Repeat("A", len(parts[2]))

		_, err = tm.Validate(strings.Join(parts, "."))
		assert.Error(t, err)
	})

	t.Run("token signed with a different secret is rejected", func(t *testing.T) {
		other, err := auth.NewTokenManager("ffffffffffffffffffffffffffffffff", time.Hour)
		require.NoError(t, err)

		token, err := other.Generate(userID, "alice@example.com", nil)
		require.NoError(t, err)

		_, err = tm.Validate(token)
		assert.Error(t, err)
	})
}

func TestTokenExpiry(t *testing.T) {
	tm, err := auth.NewTokenManager(testSecret, -time.Minute)
	require.NoError(t, err)

	// A non-positive expiry falls back to the 7 day default.
	userID := uuid.New()
	token, err := tm.Generate(userID, "alice@example.com", nil)
	require.NoError(t, err)

	claims, err := tm.Validate(token)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(auth.DefaultTokenExpiry), claims.ExpiresAt.Time, time.Minute)
}

func TestExpiredTokenRejected(t *testing.T) {
	tm, err := auth.NewTokenManager(testSecret, time.Millisecond)
	require.NoError(t, err)

	userID := uuid.New()
	token, err := tm.Generate(userID, "alice@example.com", nil)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	_, err = tm.Validate(token)
	assert.Error(t, err)
}

func TestInviteToken(t *testing.T) {
	first, err := auth.NewInviteToken()
	require.NoError(t, err)
	second, err := auth.NewInviteToken()
	require.NoError(t, err)

	assert.Len(t, first, 64)
	assert.NotEqual(t, first, second)

	// The stored form never equals the plaintext handed to the invitee.
	hash := auth.HashInviteToken(first)
	assert.NotEqual(t, first, hash)
	assert.Equal(t, hash, auth.HashInviteToken(first))
}
