package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarunyu-dev/authkeeper/internal/auth"
	"github.com/sarunyu-dev/authkeeper/internal/config"
	"github.com/sarunyu-dev/authkeeper/internal/model"
)

func newTestVerificationUsecase(
	t *testing.T,
	mode config.VerificationMode,
) (*verificationUsecase, *fakeUserRepo, *fakeSender, *model.User) {
	t.Helper()

	cfg := newTestConfig()
	cfg.VerificationMode = mode

	userRepo := newFakeUserRepo()
	tokenRepo := newFakeVerificationTokenRepo()
	sender := newFakeSender()
	jwtAuth := auth.NewJWTAuthenticator(cfg.Token.Issuer, cfg.Token.Issuer)
	logger := zerolog.Nop()

	u := NewVerificationUsecase(userRepo, tokenRepo, jwtAuth, sender, cfg, &logger).(*verificationUsecase)

	user, err := userRepo.CreateUser(context.Background(), &model.User{
		Email:        "alice@example.com",
		PasswordHash: "irrelevant",
	})
	require.NoError(t, err)

	return u, userRepo, sender, user
}

// waitForEmail blocks until the asynchronous delivery lands.
func waitForEmail(t *testing.T, sender *fakeSender, want int) sentEmail {
	t.Helper()

	require.Eventually(t, func() bool {
		return len(sender.Sent()) >= want
	}, time.Second, 10*time.Millisecond)

	return sender.Sent()[want-1]
}

// linkToken pulls the signed token out of the verification email body.
func linkToken(t *testing.T, body string) string {
	t.Helper()

	_, after, found := strings.Cut(body, "token=")
	require.True(t, found)

	token, _, found := strings.Cut(after, `"`)
	require.True(t, found)

	return token
}

func TestVerifyLink(t *testing.T) {
	u, userRepo, sender, user := newTestVerificationUsecase(t, config.VerificationModeLink)

	require.NoError(t, u.Request(context.Background(), user.ID.Hex()))

	email := waitForEmail(t, sender, 1)
	assert.Equal(t, []string{"alice@example.com"}, email.To)
	token := linkToken(t, email.Body)

	require.NoError(t, u.VerifyLink(context.Background(), token))

	stored, err := userRepo.GetUser(context.Background(), user.ID.Hex())
	require.NoError(t, err)
	assert.True(t, stored.Verified)

	// Single use: the same link cannot be redeemed twice.
	assert.ErrorIs(t, u.VerifyLink(context.Background(), token), ErrInvalidLink)
}

func TestVerifyLinkRejectsBadTokens(t *testing.T) {
	u, _, sender, user := newTestVerificationUsecase(t, config.VerificationModeLink)

	require.NoError(t, u.Request(context.Background(), user.ID.Hex()))
	token := linkToken(t, waitForEmail(t, sender, 1).Body)

	cases := map[string]string{
		"empty":     "",
		"malformed": "not.a.jwt",
		"tampered":  token[:len(token)-2] + "xx",
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, u.VerifyLink(context.Background(), tok), ErrInvalidLink)
		})
	}
}

func TestVerifyLinkExpired(t *testing.T) {
	u, _, sender, user := newTestVerificationUsecase(t, config.VerificationModeLink)

	// Issue the link in the past so it is already expired.
	u.now = func() time.Time { return time.Now().Add(-25 * time.Hour) }
	require.NoError(t, u.Request(context.Background(), user.ID.Hex()))
	token := linkToken(t, waitForEmail(t, sender, 1).Body)

	u.now = time.Now
	assert.ErrorIs(t, u.VerifyLink(context.Background(), token), ErrInvalidLink)
}

func TestRequestLinkSupersedesPrevious(t *testing.T) {
	u, _, sender, user := newTestVerificationUsecase(t, config.VerificationModeLink)

	require.NoError(t, u.Request(context.Background(), user.ID.Hex()))
	first := linkToken(t, waitForEmail(t, sender, 1).Body)

	require.NoError(t, u.Request(context.Background(), user.ID.Hex()))
	second := linkToken(t, waitForEmail(t, sender, 2).Body)

	assert.ErrorIs(t, u.VerifyLink(context.Background(), first), ErrInvalidLink)
	assert.NoError(t, u.VerifyLink(context.Background(), second))
}

func TestRequestAlreadyVerified(t *testing.T) {
	u, userRepo, _, user := newTestVerificationUsecase(t, config.VerificationModeLink)

	require.NoError(t, userRepo.SetVerified(context.Background(), user.ID.Hex()))

	err := u.Request(context.Background(), user.ID.Hex())
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestVerifyCode(t *testing.T) {
	u, userRepo, sender, user := newTestVerificationUsecase(t, config.VerificationModeCode)

	require.NoError(t, u.Request(context.Background(), user.ID.Hex()))

	stored, err := userRepo.GetUser(context.Background(), user.ID.Hex())
	require.NoError(t, err)
	require.Len(t, stored.VerificationCode, verificationCodeLength)

	email := waitForEmail(t, sender, 1)
	assert.Contains(t, email.Body, stored.VerificationCode)

	require.NoError(t, u.VerifyCode(context.Background(), user.Email, stored.VerificationCode))

	verified, err := userRepo.GetUser(context.Background(), user.ID.Hex())
	require.NoError(t, err)
	assert.True(t, verified.Verified)

	// Single use: the code is cleared on success.
	err = u.VerifyCode(context.Background(), user.Email, stored.VerificationCode)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyCodeMismatch(t *testing.T) {
	u, userRepo, _, user := newTestVerificationUsecase(t, config.VerificationModeCode)

	require.NoError(t, u.Request(context.Background(), user.ID.Hex()))

	assert.ErrorIs(t, u.VerifyCode(context.Background(), user.Email, "000000"), ErrInvalidCode)
	assert.ErrorIs(t, u.VerifyCode(context.Background(), "nobody@example.com", "000000"), ErrInvalidCode)

	// A failed attempt does not consume the real code.
	stored, err := userRepo.GetUser(context.Background(), user.ID.Hex())
	require.NoError(t, err)
	assert.NoError(t, u.VerifyCode(context.Background(), user.Email, stored.VerificationCode))
}

func TestVerifyCodeExpired(t *testing.T) {
	u, userRepo, _, user := newTestVerificationUsecase(t, config.VerificationModeCode)

	require.NoError(t, u.Request(context.Background(), user.ID.Hex()))

	stored, err := userRepo.GetUser(context.Background(), user.ID.Hex())
	require.NoError(t, err)

	u.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	err = u.VerifyCode(context.Background(), user.Email, stored.VerificationCode)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestGenerateCode(t *testing.T) {
	code, err := generateCode(verificationCodeLength)
	require.NoError(t, err)
	require.Len(t, code, verificationCodeLength)

	for _, c := range code {
		assert.True(t, c >= '0' && c <= '9')
	}
}
