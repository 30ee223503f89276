package handler

import (
	"net/http"
	"strings"

	"github.com/sarunyu-dev/authkeeper/internal/config"
	"github.com/sarunyu-dev/authkeeper/internal/middleware"
	"github.com/sarunyu-dev/authkeeper/internal/usecase"
)

// ConfirmSudo re-checks the caller's password and refreshes the session's
// sudo window so the originally attempted sensitive action can be retried.
func (h *Handler) ConfirmSudo(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.responder.Error(w, r, usecase.ErrInvalidSession)
		return
	}

	var req ConfirmSudoRequest
	if err := h.decode(r, &req); err != nil {
		h.responder.ValidationError(w, r, h.trans, err)
		return
	}

	if err := h.sudoUsecase.ConfirmSudo(r.Context(), session, req.Password); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	if h.cfg.AuthMode == config.AuthModeHTML {
		http.Redirect(w, r, safeReturnTo(r), http.StatusSeeOther)
		return
	}

	h.responder.JSON(w, http.StatusNoContent, nil)
}

// safeReturnTo only honors relative return URLs so the sudo page cannot be
// used as an open redirect.
func safeReturnTo(r *http.Request) string {
	returnTo := r.URL.Query().Get("return_to")
	if returnTo == "" || !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") {
		return "/"
	}
	return returnTo
}
