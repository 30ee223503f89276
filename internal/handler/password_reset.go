package handler

import (
	"net/http"

	"github.com/sarunyu-dev/authkeeper/internal/config"
	"github.com/sarunyu-dev/authkeeper/internal/usecase"
)

// RequestPasswordReset starts the reset flow. The response never reveals
// whether the address exists.
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req RequestPasswordResetRequest
	if err := h.decode(r, &req); err != nil {
		h.responder.ValidationError(w, r, h.trans, err)
		return
	}

	if err := h.passwordResetUsecase.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	if h.cfg.AuthMode == config.AuthModeHTML {
		http.Redirect(w, r, "/sign_in?notice=reset+instructions+sent", http.StatusSeeOther)
		return
	}

	h.responder.JSON(w, http.StatusAccepted, nil)
}

// ValidatePasswordResetToken is the pre-flight check used before showing the
// new-password form.
func (h *Handler) ValidatePasswordResetToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.responder.Error(w, r, usecase.ErrInvalidToken)
		return
	}

	if err := h.passwordResetUsecase.ValidatePasswordResetToken(r.Context(), token); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	h.responder.JSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := h.decode(r, &req); err != nil {
		h.responder.ValidationError(w, r, h.trans, err)
		return
	}

	if err := h.passwordResetUsecase.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	if h.cfg.AuthMode == config.AuthModeHTML {
		http.Redirect(w, r, "/sign_in?notice=password+updated", http.StatusSeeOther)
		return
	}

	h.responder.JSON(w, http.StatusNoContent, nil)
}
