package handler

import (
	"net/http"

	"github.com/sarunyu-dev/authkeeper/internal/config"
	"github.com/sarunyu-dev/authkeeper/internal/middleware"
	"github.com/sarunyu-dev/authkeeper/internal/usecase"
)

// VerifyLink handles the verification URL from a link-mode email.
func (h *Handler) VerifyLink(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.responder.Error(w, r, usecase.ErrInvalidLink)
		return
	}

	if err := h.verificationUsecase.VerifyLink(r.Context(), token); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	if h.cfg.AuthMode == config.AuthModeHTML {
		http.Redirect(w, r, "/sign_in?notice=email+verified", http.StatusSeeOther)
		return
	}

	h.responder.JSON(w, http.StatusOK, map[string]bool{"verified": true})
}

// VerifyCode handles code submission in code-mode deployments.
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if err := h.decode(r, &req); err != nil {
		h.responder.ValidationError(w, r, h.trans, err)
		return
	}

	if err := h.verificationUsecase.VerifyCode(r.Context(), req.Email, req.Code); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	if h.cfg.AuthMode == config.AuthModeHTML {
		http.Redirect(w, r, "/sign_in?notice=email+verified", http.StatusSeeOther)
		return
	}

	h.responder.JSON(w, http.StatusOK, map[string]bool{"verified": true})
}

// ResendVerification issues a fresh token or code for the signed-in user. The
// response is only an acknowledgment; delivery happens asynchronously.
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.responder.Error(w, r, usecase.ErrInvalidSession)
		return
	}

	if err := h.verificationUsecase.Request(r.Context(), session.UserID); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	if h.cfg.AuthMode == config.AuthModeHTML {
		http.Redirect(w, r, "/?notice=verification+sent", http.StatusSeeOther)
		return
	}

	h.responder.JSON(w, http.StatusAccepted, nil)
}
