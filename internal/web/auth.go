package web

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/erazemk/skrbnik/internal/auth"
	"github.com/erazemk/skrbnik/internal/backend"
	"github.com/erazemk/skrbnik/internal/session"
)

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	data := &PageData{Title: "Sign in"}
	if r.URL.Query().Get("expired") != "" {
		data.Error = "Your session has expired. Please sign in again."
	}
	s.Templates.Render(w, "login.html", data)
}

// LoginSubmit handles POST /login. The backend checks the credentials; the
// cookies it sets become the new session's credentials.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	if username == "" || password == "" {
		s.Templates.Render(w, "login.html", &PageData{
			Title: "Sign in",
			Error: "Enter your username and password.",
		})
		return
	}

	jar := session.NewJar()
	if err := s.Backend.WithJar(jar).Login(r.Context(), username, password); err != nil {
		msg := "Could not reach the server. Try again later."
		var se *backend.StatusError
		if errors.As(err, &se) {
			msg = backend.Message(err, "Invalid username or password.")
		}
		log.Warn().Err(err).Str("user", username).Msg("sign-in failed")
		s.Templates.Render(w, "login.html", &PageData{Title: "Sign in", Error: msg})
		return
	}

	sess, err := s.Sessions.Create(r.Context(), username, jar)
	if err != nil {
		log.Error().Err(err).Str("user", username).Msg("failed to create session")
		s.Templates.Render(w, "login.html", &PageData{Title: "Sign in", Error: "Sign-in failed."})
		return
	}

	token, err := auth.GenerateToken(s.CookieSecret, sess.ID(), username, sess.ExpiresAt())
	if err != nil {
		log.Error().Err(err).Msg("failed to sign session cookie")
		sess.Logout()
		s.Templates.Render(w, "login.html", &PageData{Title: "Sign in", Error: "Sign-in failed."})
		return
	}

	s.setSessionCookie(w, token, sess.ExpiresAt())
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

// Logout handles GET and POST /logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, err := s.sessionFromCookie(r); err == nil {
		sess.Logout()
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
