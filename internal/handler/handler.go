package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/form"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/rs/zerolog"

	"github.com/sarunyu-dev/authkeeper/internal/config"
	"github.com/sarunyu-dev/authkeeper/internal/usecase"
)

// Handler serves the HTTP endpoints of the authentication service.
type Handler struct {
	authUsecase          usecase.AuthUsecase
	sudoUsecase          usecase.SudoUsecase
	verificationUsecase  usecase.VerificationUsecase
	passwordResetUsecase usecase.PasswordResetUsecase

	validate    *validator.Validate
	trans       ut.Translator
	formDecoder *form.Decoder
	responder   *responder
	cfg         *config.Config
	logger      *zerolog.Logger
}

// NewHandler creates a new Handler instance.
func NewHandler(
	authUsecase usecase.AuthUsecase,
	sudoUsecase usecase.SudoUsecase,
	verificationUsecase usecase.VerificationUsecase,
	passwordResetUsecase usecase.PasswordResetUsecase,
	cfg *config.Config,
	logger *zerolog.Logger,
) *Handler {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := entranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		logger.Fatal().Err(err).Msg("failed to register validator translations")
	}

	return &Handler{
		authUsecase:          authUsecase,
		sudoUsecase:          sudoUsecase,
		verificationUsecase:  verificationUsecase,
		passwordResetUsecase: passwordResetUsecase,
		validate:             validate,
		trans:                trans,
		formDecoder:          form.NewDecoder(),
		responder:            newResponder(cfg.AuthMode, logger),
		cfg:                  cfg,
		logger:               logger,
	}
}

// Routes builds the service router. The authenticate and requireSudo
// middlewares are injected so that the wiring stays in one place in main.
func (h *Handler) Routes(authenticate, requireSudo func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Post("/sign_up", h.Register)
	r.Post("/sign_in", h.Login)

	if h.cfg.GoogleClientID != "" {
		r.Post("/oauth/google", h.LoginWithGoogle)
	}

	switch h.cfg.VerificationMode {
	case config.VerificationModeCode:
		r.Post("/verification", h.VerifyCode)
	default:
		r.Get("/verification", h.VerifyLink)
	}

	r.Post("/password_reset", h.RequestPasswordReset)
	r.Get("/password_reset", h.ValidatePasswordResetToken)
	r.Put("/password_reset", h.ResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Delete("/sign_out", h.Logout)
		r.Get("/sessions", h.ListSessions)
		r.Delete("/sessions/{id}", h.RevokeSession)
		r.Post("/sudo", h.ConfirmSudo)
		r.Post("/verification/resend", h.ResendVerification)

		r.Group(func(r chi.Router) {
			r.Use(requireSudo)

			r.Put("/account/password", h.ChangePassword)
			r.Delete("/account", h.DeleteAccount)
		})
	})

	return r
}

// decode parses the request payload into dst and validates it. HTML mode
// accepts form posts; API mode expects JSON.
func (h *Handler) decode(r *http.Request, dst any) error {
	if h.cfg.AuthMode == config.AuthModeHTML {
		if err := r.ParseForm(); err != nil {
			return err
		}
		if err := h.formDecoder.Decode(dst, r.PostForm); err != nil {
			return err
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return err
		}
	}

	return h.validate.Struct(dst)
}
