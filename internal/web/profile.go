package web

import (
	"errors"
	"net/http"

	"github.com/erazemk/skrbnik/internal/model"
	"github.com/erazemk/skrbnik/internal/view"
)

// ProfilePage handles GET /profile.
func (s *Server) ProfilePage(w http.ResponseWriter, r *http.Request) {
	profile := s.Views.For(GetSession(r.Context())).Profile

	if mounting(r) {
		profile.Mount()
		if err := profile.Load(r.Context()); errors.Is(err, view.ErrSessionExpired) {
			s.expired(w, r)
			return
		}
	}

	s.Templates.Render(w, "profile.html", &struct {
		PageData
		view.ProfileState
	}{
		PageData:     s.pageData(r, "Profile", "profile"),
		ProfileState: profile.State(),
	})
}

// ProfileUpdateSubmit handles POST /profile.
func (s *Server) ProfileUpdateSubmit(w http.ResponseWriter, r *http.Request) {
	profile := s.Views.For(GetSession(r.Context())).Profile

	err := profile.Save(r.Context(), model.UserUpdate{
		FirstName: r.FormValue("firstname"),
		LastName:  r.FormValue("lastname"),
		Email:     r.FormValue("email"),
	})
	s.afterAction(w, r, err, "/profile"+keepView)
}

// ProfileImageSubmit handles POST /profile/image.
func (s *Server) ProfileImageSubmit(w http.ResponseWriter, r *http.Request) {
	profile := s.Views.For(GetSession(r.Context())).Profile

	upload, err := readUpload(w, r)
	if err != nil {
		http.Error(w, "upload too large or malformed", http.StatusBadRequest)
		return
	}
	err = profile.UpdateImage(r.Context(), upload)
	s.afterAction(w, r, err, "/profile"+keepView)
}

// ProfileImageDeleteSubmit handles POST /profile/image/delete.
func (s *Server) ProfileImageDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	profile := s.Views.For(GetSession(r.Context())).Profile
	err := profile.DeleteImage(r.Context())
	s.afterAction(w, r, err, "/profile"+keepView)
}
