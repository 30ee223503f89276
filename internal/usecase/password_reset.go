package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/sarunyu-dev/authkeeper/internal/auth"
	"github.com/sarunyu-dev/authkeeper/internal/config"
	"github.com/sarunyu-dev/authkeeper/internal/model"
	"github.com/sarunyu-dev/authkeeper/internal/repository"
	"github.com/sarunyu-dev/authkeeper/internal/security"
)

// PasswordResetUsecase defines the business logic for password reset token operations.
type PasswordResetUsecase interface {
	// RequestPasswordReset initiates the password reset process for a given email.
	RequestPasswordReset(ctx context.Context, email string) error

	// ResetPassword resets the user's password using the reset token and new password.
	ResetPassword(ctx context.Context, token, newPassword string) error

	// ValidatePasswordResetToken checks that the provided token is still usable.
	ValidatePasswordResetToken(ctx context.Context, token string) error
}

var (
	ErrTokenNotFound    = errors.New("password reset token not found")
	ErrTokenAlreadyUsed = errors.New("password reset token has already been used")
	ErrTokenExpired     = errors.New("password reset token has expired")
	ErrInvalidToken     = errors.New("invalid password reset token")
)

type passwordResetUsecase struct {
	userRepo    repository.UserRepository
	tokenRepo   repository.PasswordResetTokenRepository
	sessionRepo repository.SessionRepository
	jwtAuth     auth.JWTAuthenticator
	sender      EmailSender
	cfg         *config.Config
	logger      *zerolog.Logger
	now         func() time.Time
}

// NewPasswordResetUsecase creates a new instance of PasswordResetUsecase.
func NewPasswordResetUsecase(
	userRepo repository.UserRepository,
	tokenRepo repository.PasswordResetTokenRepository,
	sessionRepo repository.SessionRepository,
	jwtAuth auth.JWTAuthenticator,
	sender EmailSender,
	cfg *config.Config,
	logger *zerolog.Logger,
) PasswordResetUsecase {
	return &passwordResetUsecase{
		userRepo:    userRepo,
		tokenRepo:   tokenRepo,
		sessionRepo: sessionRepo,
		jwtAuth:     jwtAuth,
		sender:      sender,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

func (u *passwordResetUsecase) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := u.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// To prevent email enumeration, do not reveal that the email does not exist.
			return nil
		}
		return err
	}

	// Invalidate any existing unused tokens for this user
	if err := u.tokenRepo.InvalidateUserTokens(ctx, user.ID.Hex()); err != nil {
		return err
	}

	tokenStr, jti, err := u.generatePasswordResetToken(user.ID.Hex(), user.Email)
	if err != nil {
		return err
	}

	resetToken := &model.PasswordResetToken{
		JTI:       jti,
		UserID:    user.ID,
		Email:     user.Email,
		Used:      false,
		ExpiresAt: u.now().Add(u.cfg.Token.PasswordResetTokenExpiresIn),
	}

	if _, err := u.tokenRepo.CreateToken(ctx, resetToken); err != nil {
		return err
	}

	resetLink := fmt.Sprintf("%s/password_reset?token=%s", u.cfg.AppBaseURL, tokenStr)
	htmlBody := fmt.Sprintf(`
		<p>Hi,</p>
		<p>We received a request to reset the password for your account.</p>
		<p>If you made this request, please click the link below to create a new password:</p>

		<p><a href="%s">%s</a></p>

		<p>This link will expire in %s for your security.</p>
		<p>If you did not request a password reset, you can safely ignore this email.</p>
	`, resetLink, resetLink, u.cfg.Token.PasswordResetTokenExpiresIn)

	u.sendAsync(user.Email, "Password Reset Request", htmlBody)

	return nil
}

func (u *passwordResetUsecase) ResetPassword(ctx context.Context, token, newPassword string) error {
	resetToken, err := u.checkToken(ctx, token)
	if err != nil {
		return err
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if _, err := u.userRepo.UpdateUser(ctx, resetToken.UserID.Hex(), repository.UpdateUserParams{
		PasswordHash: &passwordHash,
	}); err != nil {
		return err
	}

	if err := u.tokenRepo.MarkTokenAsUsed(ctx, resetToken.JTI); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrTokenAlreadyUsed
		}

		return err
	}

	// A reset proves the old credential may be compromised: sign out everywhere.
	if _, err := u.sessionRepo.DeleteSessionsByUserID(ctx, resetToken.UserID.Hex()); err != nil {
		return err
	}

	return nil
}

func (u *passwordResetUsecase) ValidatePasswordResetToken(ctx context.Context, token string) error {
	_, err := u.checkToken(ctx, token)
	return err
}

// checkToken verifies the token signature and looks up the stored JTI record.
func (u *passwordResetUsecase) checkToken(ctx context.Context, token string) (*model.PasswordResetToken, error) {
	claims := PasswordResetClaims{}
	if _, err := u.jwtAuth.ValidateTokenWithClaims(
		token,
		u.cfg.Token.PasswordResetTokenSecret,
		&claims,
	); err != nil {
		return nil, ErrInvalidToken
	}

	resetToken, err := u.tokenRepo.GetTokenByJTI(ctx, claims.JTI)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	if resetToken.Used {
		return nil, ErrTokenAlreadyUsed
	}

	if u.now().After(resetToken.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	return resetToken, nil
}

// generatePasswordResetToken creates a password reset JWT token with a unique JTI.
func (u *passwordResetUsecase) generatePasswordResetToken(userID, email string) (string, string, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", "", err
	}

	now := u.now()
	claims := PasswordResetClaims{
		UserID: userID,
		Email:  email,
		JTI:    jti,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    u.cfg.Token.Issuer,
			Audience:  jwt.ClaimStrings{u.cfg.Token.Issuer},
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(u.cfg.Token.PasswordResetTokenExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	tokenStr, err := u.jwtAuth.GenerateToken(claims, u.cfg.Token.PasswordResetTokenSecret)
	if err != nil {
		return "", "", err
	}

	return tokenStr, jti, nil
}

func (u *passwordResetUsecase) sendAsync(to, subject, htmlBody string) {
	go func() {
		if err := u.sender.SendHTML([]string{to}, subject, htmlBody); err != nil {
			u.logger.Error().Err(err).Str("to", to).Msg("failed to send password reset email")
		}
	}()
}
