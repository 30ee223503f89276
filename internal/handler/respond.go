package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/sarunyu-dev/authkeeper/internal/config"
	"github.com/sarunyu-dev/authkeeper/internal/usecase"
)

// responder renders results according to the deployment mode: API deployments
// get structured JSON with a non-2xx status, HTML deployments get a redirect
// to a corrective page.
type responder struct {
	mode   config.AuthMode
	logger *zerolog.Logger
}

func newResponder(mode config.AuthMode, logger *zerolog.Logger) *responder {
	return &responder{mode: mode, logger: logger}
}

func (rp *responder) JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		rp.logger.Error().Err(err).Msg("failed to encode response body")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// errorMapping describes how one error kind is rendered in each mode.
type errorMapping struct {
	status   int
	message  string
	redirect string
}

var errorMappings = []struct {
	err     error
	mapping errorMapping
}{
	{usecase.ErrInvalidCredentials, errorMapping{http.StatusUnauthorized, "invalid email or password", "/sign_in"}},
	{usecase.ErrUserAlreadyExists, errorMapping{http.StatusConflict, "email is already taken", "/sign_up"}},
	{usecase.ErrInvalidSession, errorMapping{http.StatusUnauthorized, "invalid session", "/sign_in"}},
	{usecase.ErrSessionNotFound, errorMapping{http.StatusNotFound, "session not found", "/sessions"}},
	{usecase.ErrInvalidGoogleToken, errorMapping{http.StatusUnauthorized, "invalid google token", "/sign_in"}},
	{usecase.ErrSudoRequired, errorMapping{http.StatusForbidden, "sudo confirmation required", "/sudo"}},
	{usecase.ErrInvalidLink, errorMapping{http.StatusUnprocessableEntity, "invalid verification link", "/sign_in"}},
	{usecase.ErrInvalidCode, errorMapping{http.StatusUnprocessableEntity, "invalid verification code", "/sign_in"}},
	{usecase.ErrAlreadyVerified, errorMapping{http.StatusConflict, "email already verified", "/"}},
	{usecase.ErrTokenNotFound, errorMapping{http.StatusNotFound, "password reset token not found", "/password_reset"}},
	{usecase.ErrTokenAlreadyUsed, errorMapping{http.StatusConflict, "password reset token has already been used", "/password_reset"}},
	{usecase.ErrTokenExpired, errorMapping{http.StatusUnauthorized, "password reset token has expired", "/password_reset"}},
	{usecase.ErrInvalidToken, errorMapping{http.StatusUnauthorized, "invalid password reset token", "/password_reset"}},
}

// Error renders a usecase error. Unknown errors are logged and rendered as an
// opaque 500 so internals never leak to the client.
func (rp *responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			rp.renderError(w, r, m.mapping)
			return
		}
	}

	rp.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	rp.renderError(w, r, errorMapping{http.StatusInternalServerError, "something went wrong", "/"})
}

func (rp *responder) renderError(w http.ResponseWriter, r *http.Request, m errorMapping) {
	if rp.mode == config.AuthModeHTML {
		http.Redirect(w, r, m.redirect+"?alert="+url.QueryEscape(m.message), http.StatusSeeOther)
		return
	}

	rp.JSON(w, m.status, errorResponse{Error: m.message})
}

// ValidationError renders a payload validation failure with translated field
// messages in API mode, or a redirect back in HTML mode.
func (rp *responder) ValidationError(w http.ResponseWriter, r *http.Request, trans ut.Translator, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		rp.renderError(w, r, errorMapping{http.StatusBadRequest, "malformed request body", "/"})
		return
	}

	if rp.mode == config.AuthModeHTML {
		messages := validationErrors.Translate(trans)
		alert := ""
		for _, msg := range messages {
			alert = msg
			break
		}
		http.Redirect(w, r, r.URL.Path+"?alert="+url.QueryEscape(alert), http.StatusSeeOther)
		return
	}

	rp.JSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error":  "validation failed",
		"fields": validationErrors.Translate(trans),
	})
}
