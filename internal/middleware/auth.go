package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sarunyu-dev/authkeeper/internal/config"
	"github.com/sarunyu-dev/authkeeper/internal/model"
	"github.com/sarunyu-dev/authkeeper/internal/usecase"
)

type contextKey struct{ name string }

var sessionContextKey = &contextKey{"session"}

// SessionCookieName is the cookie carrying the session token in HTML mode.
const SessionCookieName = "session_token"

// SessionFromContext returns the authenticated session attached by Authenticator.
func SessionFromContext(ctx context.Context) (*model.Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*model.Session)
	return session, ok
}

// ContextWithSession attaches a session to the context. Exposed for handler tests.
func ContextWithSession(ctx context.Context, session *model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// Authenticator resolves the session token carried by the request (bearer
// header in API mode, cookie in HTML mode) and attaches the live session to
// the request context. Requests without a valid session never reach the next
// handler.
func Authenticator(authUsecase usecase.AuthUsecase, mode config.AuthMode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r, mode)
			if token == "" {
				unauthorized(w, r, mode)
				return
			}

			session, err := authUsecase.Authenticate(r.Context(), token)
			if err != nil {
				unauthorized(w, r, mode)
				return
			}

			ctx := ContextWithSession(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		}

		return http.HandlerFunc(fn)
	}
}

func extractToken(r *http.Request, mode config.AuthMode) string {
	if mode == config.AuthModeHTML {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			return ""
		}
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return parts[1]
}

func unauthorized(w http.ResponseWriter, r *http.Request, mode config.AuthMode) {
	if mode == config.AuthModeHTML {
		http.Redirect(w, r, "/sign_in", http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"invalid session"}`))
}
