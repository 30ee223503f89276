package usecase

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"google.golang.org/api/oauth2/v2"

	"github.com/sarunyu-dev/authkeeper/internal/config"
	"github.com/sarunyu-dev/authkeeper/internal/model"
	"github.com/sarunyu-dev/authkeeper/internal/repository"
)

func newTestConfig() *config.Config {
	return &config.Config{
		AuthMode:         config.AuthModeAPI,
		VerificationMode: config.VerificationModeLink,
		AppBaseURL:       "http://localhost:8080",
		SudoWindow:       30 * time.Minute,
		Token: config.TokenConfig{
			Issuer:                      "authkeeper-test",
			SessionTokenSecret:          "session-secret",
			SessionTokenExpiresIn:       time.Hour,
			VerificationTokenSecret:     "verification-secret",
			VerificationTokenExpiresIn:  24 * time.Hour,
			PasswordResetTokenSecret:    "reset-secret",
			PasswordResetTokenExpiresIn: 20 * time.Minute,
		},
	}
}

func duplicateKeyError() error {
	return mongo.WriteException{
		WriteErrors: mongo.WriteErrors{{Code: 11000}},
	}
}

// --- user repository ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == user.Email {
			return nil, duplicateKeyError()
		}
	}

	user.ID = bson.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.users[user.ID.Hex()] = user

	return user, nil
}

func (f *fakeUserRepo) GetUser(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}

	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}

	return nil, mongo.ErrNoDocuments
}

func (f *fakeUserRepo) UpdateUser(
	_ context.Context,
	id string,
	params repository.UpdateUserParams,
) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}

	if params.Email != nil {
		user.Email = *params.Email
	}
	if params.PasswordHash != nil {
		user.PasswordHash = *params.PasswordHash
	}
	user.UpdatedAt = time.Now()

	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) DeleteUser(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}

	delete(f.users, id)
	return user, nil
}

func (f *fakeUserRepo) SetVerified(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return mongo.ErrNoDocuments
	}

	user.Verified = true
	return nil
}

func (f *fakeUserRepo) SetVerificationCode(_ context.Context, id, code string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return mongo.ErrNoDocuments
	}

	user.VerificationCode = code
	user.VerificationCodeExpiresAt = expiresAt
	return nil
}

func (f *fakeUserRepo) ConsumeVerificationCode(_ context.Context, id, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok || user.VerificationCode == "" || user.VerificationCode != code {
		return false, nil
	}

	user.Verified = true
	user.VerificationCode = ""
	user.VerificationCodeExpiresAt = time.Time{}
	return true, nil
}

// --- session repository ---

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*model.Session)}
}

func (f *fakeSessionRepo) CreateSession(_ context.Context, session *model.Session) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	session.ID = bson.NewObjectID()
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	f.sessions[session.ID.Hex()] = session

	return session, nil
}

func (f *fakeSessionRepo) GetSession(_ context.Context, id string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	session, ok := f.sessions[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}

	copied := *session
	return &copied, nil
}

func (f *fakeSessionRepo) ListSessionsByUserID(_ context.Context, userID string) ([]model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var sessions []model.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			sessions = append(sessions, *s)
		}
	}

	return sessions, nil
}

func (f *fakeSessionRepo) UpdateSudoAt(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	session, ok := f.sessions[id]
	if !ok {
		return mongo.ErrNoDocuments
	}

	session.SudoAt = at
	return nil
}

func (f *fakeSessionRepo) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.sessions[id]; !ok {
		return mongo.ErrNoDocuments
	}

	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionRepo) DeleteSessionsByUserID(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var deleted int64
	for id, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, id)
			deleted++
		}
	}

	return deleted, nil
}

func (f *fakeSessionRepo) DeleteOtherSessions(_ context.Context, userID, keepID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var deleted int64
	for id, s := range f.sessions {
		if s.UserID == userID && id != keepID {
			delete(f.sessions, id)
			deleted++
		}
	}

	return deleted, nil
}

// --- identity repository ---

type fakeIdentityRepo struct {
	mu         sync.Mutex
	identities []*model.Identity
}

func newFakeIdentityRepo() *fakeIdentityRepo {
	return &fakeIdentityRepo{}
}

func (f *fakeIdentityRepo) CreateIdentity(_ context.Context, identity *model.Identity) (*model.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	identity.ID = bson.NewObjectID()
	f.identities = append(f.identities, identity)
	return identity, nil
}

func (f *fakeIdentityRepo) GetIdentityByProvider(
	_ context.Context,
	providerID string,
	provider string,
) (*model.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, identity := range f.identities {
		if identity.ProviderID == providerID && identity.Provider == provider {
			copied := *identity
			return &copied, nil
		}
	}

	return nil, mongo.ErrNoDocuments
}

func (f *fakeIdentityRepo) UpdateLastLogin(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, identity := range f.identities {
		if identity.UserID == userID {
			identity.LastLoginAt = time.Now()
		}
	}

	return nil
}

// --- email verification token repository ---

type fakeVerificationTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*model.EmailVerificationToken
}

func newFakeVerificationTokenRepo() *fakeVerificationTokenRepo {
	return &fakeVerificationTokenRepo{tokens: make(map[string]*model.EmailVerificationToken)}
}

func (f *fakeVerificationTokenRepo) CreateToken(
	_ context.Context,
	token *model.EmailVerificationToken,
) (*model.EmailVerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	token.ID = bson.NewObjectID()
	token.Used = false
	f.tokens[token.JTI] = token
	return token, nil
}

func (f *fakeVerificationTokenRepo) ConsumeToken(
	_ context.Context,
	jti string,
) (*model.EmailVerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	token, ok := f.tokens[jti]
	if !ok || token.Used || time.Now().After(token.ExpiresAt) {
		return nil, mongo.ErrNoDocuments
	}

	token.Used = true
	copied := *token
	return &copied, nil
}

func (f *fakeVerificationTokenRepo) InvalidateUserTokens(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, token := range f.tokens {
		if token.UserID.Hex() == userID {
			token.Used = true
		}
	}

	return nil
}

// --- password reset token repository ---

type fakeResetTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*model.PasswordResetToken
}

func newFakeResetTokenRepo() *fakeResetTokenRepo {
	return &fakeResetTokenRepo{tokens: make(map[string]*model.PasswordResetToken)}
}

func (f *fakeResetTokenRepo) CreateToken(
	_ context.Context,
	token *model.PasswordResetToken,
) (*model.PasswordResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	token.ID = bson.NewObjectID()
	token.Used = false
	f.tokens[token.JTI] = token
	return token, nil
}

func (f *fakeResetTokenRepo) GetTokenByJTI(_ context.Context, jti string) (*model.PasswordResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	token, ok := f.tokens[jti]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}

	copied := *token
	return &copied, nil
}

func (f *fakeResetTokenRepo) MarkTokenAsUsed(_ context.Context, jti string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	token, ok := f.tokens[jti]
	if !ok || token.Used {
		return mongo.ErrNoDocuments
	}

	token.Used = true
	return nil
}

func (f *fakeResetTokenRepo) InvalidateUserTokens(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, token := range f.tokens {
		if token.UserID.Hex() == userID {
			token.Used = true
		}
	}

	return nil
}

// --- email sender ---

type sentEmail struct {
	To      []string
	Subject string
	Body    string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func newFakeSender() *fakeSender {
	return &fakeSender{}
}

func (f *fakeSender) SendHTML(to []string, subject, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.sent = append(f.sent, sentEmail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (f *fakeSender) Sent() []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]sentEmail, len(f.sent))
	copy(out, f.sent)
	return out
}

// --- google verifier ---

type fakeGoogleVerifier struct {
	tokenInfo *oauth2.Tokeninfo
	err       error
}

func (f *fakeGoogleVerifier) ValidateIDToken(context.Context, string) (*oauth2.Tokeninfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tokenInfo, nil
}
