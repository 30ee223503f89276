package handler

import (
	"net/http"

	"github.com/sarunyu-dev/authkeeper/internal/config"
	"github.com/sarunyu-dev/authkeeper/internal/middleware"
	"github.com/sarunyu-dev/authkeeper/internal/usecase"
)

// ChangePassword updates the caller's password. The route sits behind the
// sudo gate, and every other session is signed out afterwards.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.responder.Error(w, r, usecase.ErrInvalidSession)
		return
	}

	var req ChangePasswordRequest
	if err := h.decode(r, &req); err != nil {
		h.responder.ValidationError(w, r, h.trans, err)
		return
	}

	if err := h.authUsecase.ChangePassword(
		r.Context(),
		session.UserID,
		session.ID.Hex(),
		req.NewPassword,
	); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	if h.cfg.AuthMode == config.AuthModeHTML {
		http.Redirect(w, r, "/?notice=password+updated", http.StatusSeeOther)
		return
	}

	h.responder.JSON(w, http.StatusNoContent, nil)
}

// DeleteAccount removes the caller's account and every session. Sudo-gated.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.responder.Error(w, r, usecase.ErrInvalidSession)
		return
	}

	if err := h.authUsecase.DeleteAccount(r.Context(), session.UserID); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	if h.cfg.AuthMode == config.AuthModeHTML {
		h.clearSessionCookie(w)
		http.Redirect(w, r, "/sign_up", http.StatusSeeOther)
		return
	}

	h.responder.JSON(w, http.StatusNoContent, nil)
}
