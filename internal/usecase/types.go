package usecase

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sarunyu-dev/authkeeper/internal/model"
)

// SessionClaims are the claims carried by a session token. The session stays
// valid only while its document exists, so the token alone never authenticates.
type SessionClaims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// VerificationClaims are the claims carried by an email verification link token.
type VerificationClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	JTI    string `json:"jti"`
	jwt.RegisteredClaims
}

// PasswordResetClaims are the claims carried by a password reset token.
type PasswordResetClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	JTI    string `json:"jti"`
	jwt.RegisteredClaims
}

// AuthResult is returned by the sign-in and sign-up flows.
type AuthResult struct {
	SessionToken string
	Session      *model.Session
	User         *model.User
}

// EmailSender is the outbound mail dependency of the usecases. Implemented by
// mailer.Mailer.
type EmailSender interface {
	SendHTML(to []string, subject, htmlBody string) error
}

// generateJTI generates a unique JTI.
func generateJTI() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
