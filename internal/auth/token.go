package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/cbaird/gatehouse/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager issues and verifies signed, time-limited tokens. The signing
// secret is process-wide configuration injected at startup. Verification is
// side-effect-free: it never touches storage, and callers decide what a
// verified identity means.
type TokenManager struct {
	secret             string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, accessExpiry, refreshExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:             secret,
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
	}
}

// IssueToken signs a token carrying the user identity and a purpose tag,
// expiring ttl from now.
func (tm *TokenManager) IssueToken(userID, purpose string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &models.TokenClaims{
		Purpose: purpose,
		UserID:  userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// VerifyToken checks signature, expiry, and purpose together and returns the
// user ID the token was issued for. An expired token fails with
// models.ErrTokenExpired even when its signature is valid; any malformed or
// tampered token fails with models.ErrTokenInvalid; a valid token presented
// for the wrong purpose fails with models.ErrTokenPurposeMismatch.
func (tm *TokenManager) VerifyToken(tokenString, expectedPurpose string) (string, error) {
	claims, err := tm.parse(tokenString)
	if err != nil {
		return "", err
	}

	if claims.Purpose != expectedPurpose {
		return "", models.ErrTokenPurposeMismatch
	}

	return claims.UserID, nil
}

// GenerateAccessToken creates a short-lived access token for a user
func (tm *TokenManager) GenerateAccessToken(userID, email string) (string, error) {
	return tm.issueCredential(userID, email, models.PurposeAccess, tm.accessTokenExpiry)
}

// GenerateRefreshToken creates a long-lived refresh token for a user
func (tm *TokenManager) GenerateRefreshToken(userID, email string) (string, error) {
	return tm.issueCredential(userID, email, models.PurposeRefresh, tm.refreshTokenExpiry)
}

func (tm *TokenManager) issueCredential(userID, email, purpose string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &models.TokenClaims{
		Purpose: purpose,
		UserID:  userID,
		Email:   email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", purpose, err)
	}

	return tokenString, nil
}

// ValidateToken verifies a credential token and returns its claims. Callers
// that care which kind of credential they hold check claims.Purpose.
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	return tm.parse(tokenString)
}

func (tm *TokenManager) parse(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})
	if err != nil {
		// Expiry is reported separately from signature/shape problems so the
		// caller can tell the user "link expired" rather than "invalid link".
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		return nil, models.ErrTokenInvalid
	}

	if !token.Valid {
		return nil, models.ErrTokenInvalid
	}

	if claims.Purpose == "" {
		return nil, models.ErrTokenInvalid
	}

	return claims, nil
}
