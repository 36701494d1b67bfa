package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/hivdash/internal/logging"
	"github.com/JonMunkholm/hivdash/internal/views"
)

type ctxKey int

const sessionKey ctxKey = iota

type sessionRef struct {
	id      string
	session *views.Session
}

// withSession resolves the visitor's session from the cookie, creating one
// when the cookie is missing or stale, and stores it in the request context.
// The cookie is re-issued on every request so its lifetime slides with the
// server-side TTL.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var cookieID string
		if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil {
			cookieID = c.Value
		}

		id, sess := s.sessions.Get(r.Context(), cookieID)
		http.SetCookie(w, &http.Cookie{
			Name:     s.cfg.Session.CookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   int(s.cfg.Session.TTL / time.Second),
			HttpOnly: true,
			Secure:   s.cfg.Session.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})

		ctx := context.WithValue(r.Context(), sessionKey, sessionRef{id: id, session: sess})
		ctx = logging.ContextWithSessionID(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFrom returns the session attached by withSession.
func sessionFrom(ctx context.Context) (string, *views.Session) {
	ref, _ := ctx.Value(sessionKey).(sessionRef)
	return ref.id, ref.session
}
