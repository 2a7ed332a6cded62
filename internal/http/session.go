package http

import (
	"context"
	"net/http"

	"spend/internal/core"
	"spend/internal/log"
)

type contextKey string

const userContextKey contextKey = "user"

const sessionCookieName = "token"

// sessionMiddleware resolves the session cookie into a user and stores it in
// the request context. Missing, invalid or expired tokens clear the cookie and
// redirect to the login page; API routes get the same treatment so a stale
// cookie behaves identically everywhere.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			s.redirectToLogin(w, r)
			return
		}

		userID, err := s.auth.VerifyToken(cookie.Value)
		if err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rejected session token",
				log.FieldError, err)
			s.redirectToLogin(w, r)
			return
		}

		user, err := s.store.UserByID(r.Context(), userID)
		if err != nil {
			// Token verified but the account is gone, e.g. deleted since issuance.
			s.redirectToLogin(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userFrom returns the authenticated user. Only valid below sessionMiddleware.
func userFrom(ctx context.Context) *core.User {
	u, _ := ctx.Value(userContextKey).(*core.User)
	return u
}

func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.auth.TokenTTL().Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
