package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbaird/gatehouse/internal/models"
)

func protectedHandler(t *testing.T, gotClaims **models.TokenClaims) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotClaims = GetUserFromContext(r)
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_ValidAccessToken(t *testing.T) {
	tm := NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)
	token, err := tm.GenerateAccessToken("user_123", "user@example.com")
	require.NoError(t, err)

	var claims *models.TokenClaims
	handler := Middleware(tm)(protectedHandler(t, &claims))

	req := httptest.NewRequest(http.MethodGet, "/users/me/settings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "user_123", claims.UserID)
	assert.Equal(t, models.PurposeAccess, claims.Purpose)
}

func TestMiddleware_Rejections(t *testing.T) {
	tm := NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)

	refreshToken, err := tm.GenerateRefreshToken("user_123", "user@example.com")
	require.NoError(t, err)
	verificationToken, err := tm.IssueToken("user_123", models.PurposeEmailVerification, 24*time.Hour)
	require.NoError(t, err)

	expiredTM := NewTokenManager(testSecret, -time.Minute, 7*24*time.Hour)
	expiredToken, err := expiredTM.GenerateAccessToken("user_123", "user@example.com")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer garbage"},
		{"expired token", "Bearer " + expiredToken},
		{"refresh token rejected for API access", "Bearer " + refreshToken},
		{"verification token rejected for API access", "Bearer " + verificationToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var claims *models.TokenClaims
			handler := Middleware(tm)(protectedHandler(t, &claims))

			req := httptest.NewRequest(http.MethodGet, "/users/me/settings", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, claims)
		})
	}
}

func TestGetUserFromContext_Unauthenticated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, GetUserFromContext(req))
}
