package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"google.golang.org/api/oauth2/v2"

	"github.com/sarunyu-dev/authkeeper/internal/auth"
	"github.com/sarunyu-dev/authkeeper/internal/config"
	"github.com/sarunyu-dev/authkeeper/internal/model"
	"github.com/sarunyu-dev/authkeeper/internal/repository"
	"github.com/sarunyu-dev/authkeeper/internal/security"
)

// AuthUsecase defines the interface for authentication-related use cases.
type AuthUsecase interface {
	Register(ctx context.Context, params RegisterParams) (*AuthResult, error)
	Login(ctx context.Context, params LoginParams) (*AuthResult, error)
	LoginWithGoogle(ctx context.Context, params GoogleLoginParams) (*AuthResult, error)

	// Authenticate resolves a session token back to its live session. Any
	// failure (missing, malformed, tampered, revoked) yields ErrInvalidSession.
	Authenticate(ctx context.Context, token string) (*model.Session, error)

	Logout(ctx context.Context, sessionID string) error
	ListSessions(ctx context.Context, userID string) ([]model.Session, error)
	RevokeSession(ctx context.Context, userID, sessionID string) error

	// ChangePassword re-hashes the password and signs out every other session.
	ChangePassword(ctx context.Context, userID, currentSessionID, newPassword string) error

	DeleteAccount(ctx context.Context, userID string) error
}

// RegisterParams defines the parameters for user registration.
type RegisterParams struct {
	Email     string
	Password  string
	IPAddress *string
	UserAgent *string
}

// LoginParams defines the parameters for user login.
type LoginParams struct {
	Email     string
	Password  string
	IPAddress *string
	UserAgent *string
}

// GoogleLoginParams defines the parameters for Google sign-in.
type GoogleLoginParams struct {
	IDToken   string
	IPAddress *string
	UserAgent *string
}

// IDTokenValidator validates an external provider ID token. Implemented by
// provider.GoogleVerifier.
type IDTokenValidator interface {
	ValidateIDToken(ctx context.Context, idToken string) (*oauth2.Tokeninfo, error)
}

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid session")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidGoogleToken = errors.New("invalid google token")
)

type authUsecase struct {
	identityRepo repository.IdentityRepository
	sessionRepo  repository.SessionRepository
	userRepo     repository.UserRepository
	jwtAuth      auth.JWTAuthenticator
	google       IDTokenValidator
	cfg          *config.Config
	now          func() time.Time
}

func NewAuthUsecase(
	identityRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	userRepo repository.UserRepository,
	jwtAuth auth.JWTAuthenticator,
	google IDTokenValidator,
	cfg *config.Config,
) AuthUsecase {
	return &authUsecase{
		identityRepo: identityRepo,
		sessionRepo:  sessionRepo,
		userRepo:     userRepo,
		jwtAuth:      jwtAuth,
		google:       google,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (u *authUsecase) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	passwordHash, err := security.HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	user, err := u.userRepo.CreateUser(ctx, &model.User{
		Email:        params.Email,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUserAlreadyExists
		}

		return nil, err
	}

	if _, err := u.identityRepo.CreateIdentity(ctx, &model.Identity{
		UserID:     user.ID.Hex(),
		Provider:   "email",
		ProviderID: "",
		Email:      user.Email,
	}); err != nil {
		return nil, err
	}

	return u.createAuthSession(ctx, user, params.IPAddress, params.UserAgent)
}

func (u *authUsecase) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	user, err := u.userRepo.GetUserByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	if ok, err := security.VerifyPassword(params.Password, user.PasswordHash); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrInvalidCredentials
	}

	if err := u.identityRepo.UpdateLastLogin(ctx, user.ID.Hex()); err != nil {
		return nil, err
	}

	return u.createAuthSession(ctx, user, params.IPAddress, params.UserAgent)
}

func (u *authUsecase) LoginWithGoogle(ctx context.Context, params GoogleLoginParams) (*AuthResult, error) {
	if u.google == nil {
		return nil, ErrInvalidGoogleToken
	}

	tokenInfo, err := u.google.ValidateIDToken(ctx, params.IDToken)
	if err != nil {
		return nil, ErrInvalidGoogleToken
	}

	if tokenInfo.Email == "" || !tokenInfo.VerifiedEmail {
		return nil, ErrInvalidGoogleToken
	}

	user, err := u.findOrCreateGoogleUser(ctx, tokenInfo)
	if err != nil {
		return nil, err
	}

	if err := u.identityRepo.UpdateLastLogin(ctx, user.ID.Hex()); err != nil {
		return nil, err
	}

	return u.createAuthSession(ctx, user, params.IPAddress, params.UserAgent)
}

func (u *authUsecase) findOrCreateGoogleUser(
	ctx context.Context,
	tokenInfo *oauth2.Tokeninfo,
) (*model.User, error) {
	identity, err := u.identityRepo.GetIdentityByProvider(ctx, tokenInfo.UserId, "google")
	if err == nil {
		return u.userRepo.GetUser(ctx, identity.UserID)
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	user, err := u.userRepo.GetUserByEmail(ctx, tokenInfo.Email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// First sign-in with this address. Google already proved ownership of
		// the mailbox, so the account starts verified. The local password is
		// random and unusable until reset.
		passwordHash, hashErr := randomPasswordHash()
		if hashErr != nil {
			return nil, hashErr
		}

		user, err = u.userRepo.CreateUser(ctx, &model.User{
			Email:        tokenInfo.Email,
			PasswordHash: passwordHash,
			Verified:     true,
		})
	}
	if err != nil {
		return nil, err
	}

	if _, err := u.identityRepo.CreateIdentity(ctx, &model.Identity{
		UserID:     user.ID.Hex(),
		Provider:   "google",
		ProviderID: tokenInfo.UserId,
		Email:      tokenInfo.Email,
	}); err != nil {
		return nil, err
	}

	return user, nil
}

func (u *authUsecase) Authenticate(ctx context.Context, token string) (*model.Session, error) {
	claims := SessionClaims{}
	if _, err := u.jwtAuth.ValidateTokenWithClaims(
		token,
		u.cfg.Token.SessionTokenSecret,
		&claims,
	); err != nil {
		return nil, ErrInvalidSession
	}

	session, err := u.sessionRepo.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidSession
		}

		return nil, err
	}

	if session.UserID != claims.UserID {
		return nil, ErrInvalidSession
	}

	return session, nil
}

func (u *authUsecase) Logout(ctx context.Context, sessionID string) error {
	if err := u.sessionRepo.DeleteSession(ctx, sessionID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrInvalidSession
		}

		return err
	}

	return nil
}

func (u *authUsecase) ListSessions(ctx context.Context, userID string) ([]model.Session, error) {
	return u.sessionRepo.ListSessionsByUserID(ctx, userID)
}

func (u *authUsecase) RevokeSession(ctx context.Context, userID, sessionID string) error {
	session, err := u.sessionRepo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrSessionNotFound
		}

		return err
	}

	if session.UserID != userID {
		return ErrSessionNotFound
	}

	return u.sessionRepo.DeleteSession(ctx, sessionID)
}

func (u *authUsecase) ChangePassword(ctx context.Context, userID, currentSessionID, newPassword string) error {
	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if _, err := u.userRepo.UpdateUser(ctx, userID, repository.UpdateUserParams{
		PasswordHash: &passwordHash,
	}); err != nil {
		return err
	}

	// Changing the password signs out every other device.
	_, err = u.sessionRepo.DeleteOtherSessions(ctx, userID, currentSessionID)
	return err
}

func (u *authUsecase) DeleteAccount(ctx context.Context, userID string) error {
	if _, err := u.sessionRepo.DeleteSessionsByUserID(ctx, userID); err != nil {
		return err
	}

	_, err := u.userRepo.DeleteUser(ctx, userID)
	return err
}

func (u *authUsecase) createAuthSession(
	ctx context.Context,
	user *model.User,
	ipAddress, userAgent *string,
) (*AuthResult, error) {
	session, err := u.sessionRepo.CreateSession(ctx, &model.Session{
		UserID:    user.ID.Hex(),
		IPAddress: ipAddress,
		UserAgent: userAgent,
		SudoAt:    u.now(),
	})
	if err != nil {
		return nil, err
	}

	token, err := u.generateSessionToken(user.ID.Hex(), session.ID.Hex())
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		SessionToken: token,
		Session:      session,
		User:         user,
	}, nil
}

func (u *authUsecase) generateSessionToken(userID, sessionID string) (string, error) {
	now := u.now()
	claims := SessionClaims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    u.cfg.Token.Issuer,
			Audience:  jwt.ClaimStrings{u.cfg.Token.Issuer},
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(u.cfg.Token.SessionTokenExpiresIn)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	return u.jwtAuth.GenerateToken(claims, u.cfg.Token.SessionTokenSecret)
}

func randomPasswordHash() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	return security.HashPassword(hex.EncodeToString(bytes))
}
