package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/erazemk/skrbnik/internal/auth"
	"github.com/erazemk/skrbnik/internal/session"
)

type webContextKey string

const webSessionKey webContextKey = "session"

// SessionMiddleware validates the session cookie, loads the session and
// adds it to the context. Cookies the backend rotated during the request are
// saved afterwards.
func (s *Server) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessionFromCookie(r)
		if err != nil {
			if !errors.Is(err, http.ErrNoCookie) {
				log.Debug().Err(err).Msg("rejecting session cookie")
			}
			s.clearSessionCookie(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), webSessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))

		if err := s.Sessions.Save(context.WithoutCancel(r.Context()), sess); err != nil {
			log.Error().Err(err).Str("session", sess.ID()).Msg("failed to save session cookies")
		}
	})
}

// sessionFromCookie resolves the session named by the signed cookie.
func (s *Server) sessionFromCookie(r *http.Request) (*session.Session, error) {
	cookie, err := r.Cookie(auth.CookieName)
	if err != nil {
		return nil, err
	}
	if cookie.Value == "" {
		return nil, http.ErrNoCookie
	}

	claims, err := auth.ValidateToken(s.CookieSecret, cookie.Value)
	if err != nil {
		return nil, err
	}

	sess, err := s.Sessions.Get(r.Context(), claims.SessionID())
	if err != nil {
		return nil, err
	}
	if sess.Username() != claims.Username {
		return nil, errors.New("session user does not match cookie")
	}
	return sess, nil
}

// GetSession retrieves the session from the request context.
func GetSession(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(webSessionKey).(*session.Session)
	return sess
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearSessionCookie clears the session cookie with consistent attributes.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// LoggingMiddleware logs HTTP requests with method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.RequestURI()).
			Int("status", status).
			Dur("duration", time.Since(start).Round(time.Millisecond)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
