package middleware

import (
	"net/http"
	"net/url"

	"github.com/sarunyu-dev/authkeeper/internal/config"
	"github.com/sarunyu-dev/authkeeper/internal/usecase"
)

// RequireSudo gates sensitive routes behind a recent password re-entry. Stale
// sessions are challenged instead of performing the action: HTML mode
// redirects to the sudo page with a return URL, API mode answers 403.
func RequireSudo(sudoUsecase usecase.SudoUsecase, mode config.AuthMode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			session, ok := SessionFromContext(r.Context())
			if !ok {
				unauthorized(w, r, mode)
				return
			}

			if err := sudoUsecase.RequireSudo(session); err != nil {
				challenge(w, r, mode)
				return
			}

			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(fn)
	}
}

func challenge(w http.ResponseWriter, r *http.Request, mode config.AuthMode) {
	if mode == config.AuthModeHTML {
		returnTo := url.QueryEscape(r.URL.RequestURI())
		http.Redirect(w, r, "/sudo?return_to="+returnTo, http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error":"sudo confirmation required"}`))
}
