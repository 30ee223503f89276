package usecase

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/sarunyu-dev/authkeeper/internal/model"
	"github.com/sarunyu-dev/authkeeper/internal/repository"
	"github.com/sarunyu-dev/authkeeper/internal/security"
)

// SudoUsecase gates sensitive operations behind a recent password re-entry.
type SudoUsecase interface {
	// RequireSudo returns ErrSudoRequired when the session's last password
	// re-entry is outside the freshness window. Exactly at the window boundary
	// the session is stale.
	RequireSudo(session *model.Session) error

	// ConfirmSudo re-checks the user's password and refreshes the session's
	// sudo timestamp on success.
	ConfirmSudo(ctx context.Context, session *model.Session, password string) error
}

var ErrSudoRequired = errors.New("sudo confirmation required")

type sudoUsecase struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	window      time.Duration
	now         func() time.Time
}

// NewSudoUsecase creates a new instance of SudoUsecase.
func NewSudoUsecase(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	window time.Duration,
) SudoUsecase {
	return &sudoUsecase{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		window:      window,
		now:         time.Now,
	}
}

func (u *sudoUsecase) RequireSudo(session *model.Session) error {
	if u.now().Sub(session.SudoAt) < u.window {
		return nil
	}

	return ErrSudoRequired
}

func (u *sudoUsecase) ConfirmSudo(ctx context.Context, session *model.Session, password string) error {
	user, err := u.userRepo.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrInvalidSession
		}

		return err
	}

	if ok, err := security.VerifyPassword(password, user.PasswordHash); err != nil {
		return err
	} else if !ok {
		return ErrInvalidCredentials
	}

	at := u.now()
	if err := u.sessionRepo.UpdateSudoAt(ctx, session.ID.Hex(), at); err != nil {
		return err
	}

	session.SudoAt = at

	return nil
}
