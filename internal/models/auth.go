package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. A token verified against one purpose never satisfies
// another, so a verification link cannot be replayed as an access token.
const (
	PurposeAccess            = "access"
	PurposeRefresh           = "refresh"
	PurposeEmailVerification = "email_verification"
)

type TokenClaims struct {
	Purpose string `json:"purpose"`
	UserID  string `json:"user_id"`
	Email   string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
