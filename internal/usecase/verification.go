package usecase

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
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
)

// VerificationUsecase defines the business logic for email verification.
// A deployment runs in exactly one of the two modes: link-mode issues a signed
// URL token, code-mode issues a short numeric code. Either way a successful
// verification is single-use.
type VerificationUsecase interface {
	// Request issues a fresh token or code for an unverified user and sends
	// the verification email asynchronously.
	Request(ctx context.Context, userID string) error

	// VerifyLink consumes a link-mode token and marks the user verified.
	VerifyLink(ctx context.Context, token string) error

	// VerifyCode consumes a code-mode code for the given email address and
	// marks the user verified.
	VerifyCode(ctx context.Context, email, code string) error
}

var (
	ErrInvalidLink     = errors.New("invalid verification link")
	ErrInvalidCode     = errors.New("invalid verification code")
	ErrAlreadyVerified = errors.New("email already verified")
)

const verificationCodeLength = 6

type verificationUsecase struct {
	userRepo  repository.UserRepository
	tokenRepo repository.EmailVerificationTokenRepository
	jwtAuth   auth.JWTAuthenticator
	sender    EmailSender
	cfg       *config.Config
	logger    *zerolog.Logger
	now       func() time.Time
}

// NewVerificationUsecase creates a new instance of VerificationUsecase.
func NewVerificationUsecase(
	userRepo repository.UserRepository,
	tokenRepo repository.EmailVerificationTokenRepository,
	jwtAuth auth.JWTAuthenticator,
	sender EmailSender,
	cfg *config.Config,
	logger *zerolog.Logger,
) VerificationUsecase {
	return &verificationUsecase{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		jwtAuth:   jwtAuth,
		sender:    sender,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

func (u *verificationUsecase) Request(ctx context.Context, userID string) error {
	user, err := u.userRepo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrInvalidSession
		}

		return err
	}

	if user.Verified {
		return ErrAlreadyVerified
	}

	switch u.cfg.VerificationMode {
	case config.VerificationModeCode:
		return u.requestCode(ctx, user)
	default:
		return u.requestLink(ctx, user)
	}
}

func (u *verificationUsecase) requestLink(ctx context.Context, user *model.User) error {
	// A fresh request supersedes any outstanding link.
	if err := u.tokenRepo.InvalidateUserTokens(ctx, user.ID.Hex()); err != nil {
		return err
	}

	tokenStr, jti, err := u.generateVerificationToken(user.ID.Hex(), user.Email)
	if err != nil {
		return err
	}

	if _, err := u.tokenRepo.CreateToken(ctx, &model.EmailVerificationToken{
		JTI:       jti,
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: u.now().Add(u.cfg.Token.VerificationTokenExpiresIn),
	}); err != nil {
		return err
	}

	verifyLink := fmt.Sprintf("%s/verification?token=%s", u.cfg.AppBaseURL, tokenStr)
	htmlBody := fmt.Sprintf(`
		<p>Hi,</p>
		<p>Please confirm your email address by clicking the link below:</p>

		<p><a href="%s">%s</a></p>

		<p>This link will expire in %s.</p>
		<p>If you did not create an account, you can safely ignore this email.</p>
	`, verifyLink, verifyLink, u.cfg.Token.VerificationTokenExpiresIn)

	u.sendAsync(user.Email, "Verify your email address", htmlBody)

	return nil
}

func (u *verificationUsecase) requestCode(ctx context.Context, user *model.User) error {
	code, err := generateCode(verificationCodeLength)
	if err != nil {
		return err
	}

	expiresAt := u.now().Add(u.cfg.Token.VerificationTokenExpiresIn)
	if err := u.userRepo.SetVerificationCode(ctx, user.ID.Hex(), code, expiresAt); err != nil {
		return err
	}

	htmlBody := fmt.Sprintf(`
		<p>Hi,</p>
		<p>Your email verification code is:</p>

		<p><strong>%s</strong></p>

		<p>This code will expire in %s.</p>
		<p>If you did not create an account, you can safely ignore this email.</p>
	`, code, u.cfg.Token.VerificationTokenExpiresIn)

	u.sendAsync(user.Email, "Your verification code", htmlBody)

	return nil
}

func (u *verificationUsecase) VerifyLink(ctx context.Context, token string) error {
	claims := VerificationClaims{}
	if _, err := u.jwtAuth.ValidateTokenWithClaims(
		token,
		u.cfg.Token.VerificationTokenSecret,
		&claims,
	); err != nil {
		return ErrInvalidLink
	}

	consumed, err := u.tokenRepo.ConsumeToken(ctx, claims.JTI)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrInvalidLink
		}

		return err
	}

	return u.userRepo.SetVerified(ctx, consumed.UserID.Hex())
}

func (u *verificationUsecase) VerifyCode(ctx context.Context, email, code string) error {
	user, err := u.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrInvalidCode
		}

		return err
	}

	if user.VerificationCode == "" || u.now().After(user.VerificationCodeExpiresAt) {
		return ErrInvalidCode
	}

	if subtle.ConstantTimeCompare([]byte(user.VerificationCode), []byte(code)) != 1 {
		return ErrInvalidCode
	}

	// The repository re-checks the code inside the update filter, so a
	// concurrent consumer cannot redeem the same code twice.
	consumed, err := u.userRepo.ConsumeVerificationCode(ctx, user.ID.Hex(), code)
	if err != nil {
		return err
	}
	if !consumed {
		return ErrInvalidCode
	}

	return nil
}

// generateVerificationToken creates a verification JWT token with a unique JTI.
func (u *verificationUsecase) generateVerificationToken(userID, email string) (string, string, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", "", err
	}

	now := u.now()
	claims := VerificationClaims{
		UserID: userID,
		Email:  email,
		JTI:    jti,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    u.cfg.Token.Issuer,
			Audience:  jwt.ClaimStrings{u.cfg.Token.Issuer},
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(u.cfg.Token.VerificationTokenExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	tokenStr, err := u.jwtAuth.GenerateToken(claims, u.cfg.Token.VerificationTokenSecret)
	if err != nil {
		return "", "", err
	}

	return tokenStr, jti, nil
}

// sendAsync delivers the email off the request path. Failures are logged; the
// user can always request a resend.
func (u *verificationUsecase) sendAsync(to, subject, htmlBody string) {
	go func() {
		if err := u.sender.SendHTML([]string{to}, subject, htmlBody); err != nil {
			u.logger.Error().Err(err).Str("to", to).Msg("failed to send verification email")
		}
	}()
}

// generateCode generates a short numeric code from crypto/rand.
func generateCode(length int) (string, error) {
	const digits = "0123456789"

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	for i, b := range buf {
		buf[i] = digits[int(b)%len(digits)]
	}

	return string(buf), nil
}
