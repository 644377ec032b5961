package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbaird/gatehouse/internal/models"
)

const testSecret = "unit-test-signing-secret"

func TestTokenManager_IssueAndVerify(t *testing.T) {
	tm := NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)

	token, err := tm.IssueToken("user_123", models.PurposeEmailVerification, 24*time.Hour)
	require.NoError(t, err)

	userID, err := tm.VerifyToken(token, models.PurposeEmailVerification)
	require.NoError(t, err)
	assert.Equal(t, "user_123", userID)
}

func TestTokenManager_VerifyToken_PurposeMismatch(t *testing.T) {
	tm := NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)

	verification, err := tm.IssueToken("user_123", models.PurposeEmailVerification, 24*time.Hour)
	require.NoError(t, err)
	access, err := tm.GenerateAccessToken("user_123", "user@example.com")
	require.NoError(t, err)

	// A verification link can never be replayed as an API credential, and
	// vice versa.
	_, err = tm.VerifyToken(verification, models.PurposeAccess)
	assert.ErrorIs(t, err, models.ErrTokenPurposeMismatch)

	_, err = tm.VerifyToken(access, models.PurposeEmailVerification)
	assert.ErrorIs(t, err, models.ErrTokenPurposeMismatch)
}

func TestTokenManager_VerifyToken_Expired(t *testing.T) {
	tm := NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)

	token, err := tm.IssueToken("user_123", models.PurposeEmailVerification, -time.Minute)
	require.NoError(t, err)

	_, err = tm.VerifyToken(token, models.PurposeEmailVerification)
	assert.ErrorIs(t, err, models.ErrTokenExpired)
}

func TestTokenManager_VerifyToken_Tampered(t *testing.T) {
	tm := NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)

	token, err := tm.IssueToken("user_123", models.PurposeEmailVerification, 24*time.Hour)
	require.NoError(t, err)

	_, err = tm.VerifyToken(token+"tampered", models.PurposeEmailVerification)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestTokenManager_VerifyToken_WrongSecret(t *testing.T) {
	tm := NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)
	other := NewTokenManager("a-different-secret-entirely", 15*time.Minute, 7*24*time.Hour)

	token, err := other.IssueToken("user_123", models.PurposeEmailVerification, 24*time.Hour)
	require.NoError(t, err)

	_, err = tm.VerifyToken(token, models.PurposeEmailVerification)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestTokenManager_VerifyToken_Garbage(t *testing.T) {
	tm := NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := tm.VerifyToken(token, models.PurposeAccess)
		assert.ErrorIs(t, err, models.ErrTokenInvalid, "token %q", token)
	}
}

func TestTokenManager_CredentialTokens(t *testing.T) {
	tm := NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)

	access, err := tm.GenerateAccessToken("user_123", "user@example.com")
	require.NoError(t, err)
	refresh, err := tm.GenerateRefreshToken("user_123", "user@example.com")
	require.NoError(t, err)

	accessClaims, err := tm.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, models.PurposeAccess, accessClaims.Purpose)
	assert.Equal(t, "user_123", accessClaims.UserID)
	assert.Equal(t, "user@example.com", accessClaims.Email)

	refreshClaims, err := tm.ValidateToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, models.PurposeRefresh, refreshClaims.Purpose)

	// Each token carries a distinct ID even for the same user.
	assert.NotEqual(t, accessClaims.ID, refreshClaims.ID)
}
