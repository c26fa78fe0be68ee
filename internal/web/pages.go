package web

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/erazemk/skrbnik/internal/view"
)

// Action handlers redirect back with view=keep so the page renders what the
// action left behind. A plain GET opens the screen afresh.
const keepView = "?view=keep"

func mounting(r *http.Request) bool {
	return r.URL.Query().Get("view") != "keep"
}

func (s *Server) pageData(r *http.Request, title, active string) PageData {
	sess := GetSession(r.Context())
	return PageData{
		Title:    title,
		Active:   active,
		User:     sess.CurrentUser(),
		Username: sess.Username(),
	}
}

// afterAction redirects to to, or to the login page once the backend session
// has expired.
func (s *Server) afterAction(w http.ResponseWriter, r *http.Request, err error, to string) {
	switch {
	case errors.Is(err, view.ErrSessionExpired):
		s.expired(w, r)
		return
	case err != nil:
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("action not applied")
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (s *Server) expired(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login?expired=1", http.StatusSeeOther)
}

// confirmFrom answers a delete confirmation from the submitted form and
// remembers the question asked.
func confirmFrom(r *http.Request, prompt *string) view.Confirm {
	return func(p string) bool {
		*prompt = p
		return r.FormValue("confirm") == "yes"
	}
}

// renderConfirm shows the confirmation dialog for a delete route. Confirming
// posts back to the same route with confirm=yes.
func (s *Server) renderConfirm(w http.ResponseWriter, r *http.Request, prompt, active, cancel string) {
	s.Templates.Render(w, "confirm.html", &struct {
		PageData
		Prompt string
		Action string
		Cancel string
	}{
		PageData: s.pageData(r, "Confirm", active),
		Prompt:   prompt,
		Action:   r.URL.Path,
		Cancel:   cancel,
	})
}
