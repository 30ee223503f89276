package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sarunyu-dev/authkeeper/internal/config"
	"github.com/sarunyu-dev/authkeeper/internal/middleware"
	"github.com/sarunyu-dev/authkeeper/internal/usecase"
)

// Register creates a new account, signs the user in and kicks off email
// verification for the fresh address.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := h.decode(r, &req); err != nil {
		h.responder.ValidationError(w, r, h.trans, err)
		return
	}

	result, err := h.authUsecase.Register(r.Context(), usecase.RegisterParams{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: clientAddr(r),
		UserAgent: userAgent(r),
	})
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}

	if err := h.verificationUsecase.Request(r.Context(), result.User.ID.Hex()); err != nil {
		h.logger.Error().Err(err).Msg("failed to request email verification")
	}

	h.respondWithSession(w, r, result, http.StatusCreated)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.decode(r, &req); err != nil {
		h.responder.ValidationError(w, r, h.trans, err)
		return
	}

	result, err := h.authUsecase.Login(r.Context(), usecase.LoginParams{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: clientAddr(r),
		UserAgent: userAgent(r),
	})
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}

	h.respondWithSession(w, r, result, http.StatusOK)
}

func (h *Handler) LoginWithGoogle(w http.ResponseWriter, r *http.Request) {
	var req GoogleLoginRequest
	if err := h.decode(r, &req); err != nil {
		h.responder.ValidationError(w, r, h.trans, err)
		return
	}

	result, err := h.authUsecase.LoginWithGoogle(r.Context(), usecase.GoogleLoginParams{
		IDToken:   req.IDToken,
		IPAddress: clientAddr(r),
		UserAgent: userAgent(r),
	})
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}

	h.respondWithSession(w, r, result, http.StatusOK)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.responder.Error(w, r, usecase.ErrInvalidSession)
		return
	}

	if err := h.authUsecase.Logout(r.Context(), session.ID.Hex()); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	if h.cfg.AuthMode == config.AuthModeHTML {
		h.clearSessionCookie(w)
		http.Redirect(w, r, "/sign_in", http.StatusSeeOther)
		return
	}

	h.responder.JSON(w, http.StatusNoContent, nil)
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.responder.Error(w, r, usecase.ErrInvalidSession)
		return
	}

	sessions, err := h.authUsecase.ListSessions(r.Context(), session.UserID)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}

	resp := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, SessionResponse{
			ID:        s.ID.Hex(),
			IPAddress: s.IPAddress,
			UserAgent: s.UserAgent,
			SudoAt:    s.SudoAt,
			CreatedAt: s.CreatedAt,
			Current:   s.ID == session.ID,
		})
	}

	h.responder.JSON(w, http.StatusOK, resp)
}

func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.responder.Error(w, r, usecase.ErrInvalidSession)
		return
	}

	if err := h.authUsecase.RevokeSession(r.Context(), session.UserID, chi.URLParam(r, "id")); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	if h.cfg.AuthMode == config.AuthModeHTML {
		http.Redirect(w, r, "/sessions", http.StatusSeeOther)
		return
	}

	h.responder.JSON(w, http.StatusNoContent, nil)
}

// respondWithSession delivers the freshly issued session token: HTML mode sets
// the signed cookie and redirects home, API mode returns it as a bearer token.
func (h *Handler) respondWithSession(w http.ResponseWriter, r *http.Request, result *usecase.AuthResult, status int) {
	if h.cfg.AuthMode == config.AuthModeHTML {
		h.setSessionCookie(w, result.SessionToken)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	h.responder.JSON(w, status, SessionTokenResponse{SessionToken: result.SessionToken})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func clientAddr(r *http.Request) *string {
	if r.RemoteAddr == "" {
		return nil
	}
	addr := r.RemoteAddr
	return &addr
}

func userAgent(r *http.Request) *string {
	ua := r.UserAgent()
	if ua == "" {
		return nil
	}
	return &ua
}
