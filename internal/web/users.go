package web

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/erazemk/skrbnik/internal/imaging"
	"github.com/erazemk/skrbnik/internal/model"
	"github.com/erazemk/skrbnik/internal/view"
)

// maxUploadSize bounds image form posts.
const maxUploadSize = 10 << 20

// UsersPage handles GET /users.
func (s *Server) UsersPage(w http.ResponseWriter, r *http.Request) {
	users := s.Views.For(GetSession(r.Context())).Users

	if mounting(r) {
		users.Mount()
		if err := users.Load(r.Context()); errors.Is(err, view.ErrSessionExpired) {
			s.expired(w, r)
			return
		}
	}
	s.renderUsers(w, r, users)
}

func (s *Server) renderUsers(w http.ResponseWriter, r *http.Request, users *view.UserList) {
	s.Templates.Render(w, "users.html", &struct {
		PageData
		view.UserListState
	}{
		PageData:      s.pageData(r, "Users", "users"),
		UserListState: users.State(),
	})
}

// UserCreateSubmit handles POST /users.
func (s *Server) UserCreateSubmit(w http.ResponseWriter, r *http.Request) {
	users := s.Views.For(GetSession(r.Context())).Users

	form := model.NewUserForm{
		Username:  r.FormValue("username"),
		Email:     r.FormValue("email"),
		Password:  r.FormValue("password"),
		FirstName: r.FormValue("firstname"),
		LastName:  r.FormValue("lastname"),
	}
	err := users.Create(r.Context(), form)
	s.afterAction(w, r, err, "/users"+keepView)
}

// UsersRefreshSubmit handles POST /users/refresh.
func (s *Server) UsersRefreshSubmit(w http.ResponseWriter, r *http.Request) {
	users := s.Views.For(GetSession(r.Context())).Users
	err := users.Load(r.Context())
	s.afterAction(w, r, err, "/users"+keepView)
}

// UserEditPage handles GET /users/{id}/edit.
func (s *Server) UserEditPage(w http.ResponseWriter, r *http.Request) {
	users := s.Views.For(GetSession(r.Context())).Users

	err := openEditor(r.Context(), users, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, view.ErrSessionExpired):
		s.expired(w, r)
		return
	case errors.Is(err, view.ErrUnknownUser):
		http.NotFound(w, r)
		return
	}
	s.renderUsers(w, r, users)
}

// UserModalCloseSubmit handles POST /users/modal/close.
func (s *Server) UserModalCloseSubmit(w http.ResponseWriter, r *http.Request) {
	s.Views.For(GetSession(r.Context())).Users.CloseModal()
	http.Redirect(w, r, "/users"+keepView, http.StatusSeeOther)
}

// UserUpdateSubmit handles POST /users/{id}.
func (s *Server) UserUpdateSubmit(w http.ResponseWriter, r *http.Request) {
	users := s.Views.For(GetSession(r.Context())).Users

	err := ensureEditing(r.Context(), users, chi.URLParam(r, "id"))
	if err == nil {
		err = users.Save(r.Context(), model.UserUpdate{
			FirstName: r.FormValue("firstname"),
			LastName:  r.FormValue("lastname"),
			Email:     r.FormValue("email"),
		})
	}
	s.afterAction(w, r, err, "/users"+keepView)
}

// UserDeleteSubmit handles POST /users/{id}/delete.
func (s *Server) UserDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	users := s.Views.For(GetSession(r.Context())).Users

	var prompt string
	err := users.Delete(r.Context(), chi.URLParam(r, "id"), confirmFrom(r, &prompt))
	if errors.Is(err, view.ErrNotConfirmed) {
		s.renderConfirm(w, r, prompt, "users", "/users"+keepView)
		return
	}
	s.afterAction(w, r, err, "/users"+keepView)
}

// UserImageSubmit handles POST /users/{id}/image.
func (s *Server) UserImageSubmit(w http.ResponseWriter, r *http.Request) {
	users := s.Views.For(GetSession(r.Context())).Users

	upload, err := readUpload(w, r)
	if err != nil {
		http.Error(w, "upload too large or malformed", http.StatusBadRequest)
		return
	}

	err = ensureEditing(r.Context(), users, chi.URLParam(r, "id"))
	if err == nil {
		err = users.UpdateImage(r.Context(), upload)
	}
	s.afterAction(w, r, err, "/users"+keepView)
}

// UserImageDeleteSubmit handles POST /users/{id}/image/delete.
func (s *Server) UserImageDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	users := s.Views.For(GetSession(r.Context())).Users

	err := ensureEditing(r.Context(), users, chi.URLParam(r, "id"))
	if err == nil {
		err = users.RemoveImage(r.Context())
	}
	s.afterAction(w, r, err, "/users"+keepView)
}

// openEditor opens the editor on id, fetching the list first if the user is
// not in it yet (a bookmarked edit link on a fresh session).
func openEditor(ctx context.Context, users *view.UserList, id string) error {
	err := users.OpenEdit(id)
	if !errors.Is(err, view.ErrUnknownUser) {
		return err
	}
	if err := users.Load(ctx); err != nil {
		return err
	}
	return users.OpenEdit(id)
}

// ensureEditing keeps the editor's unsaved state when it is already open on
// id, and opens it otherwise.
func ensureEditing(ctx context.Context, users *view.UserList, id string) error {
	if st := users.State(); st.Editing != nil && st.Editing.ID == id {
		return nil
	}
	return openEditor(ctx, users, id)
}

// readUpload reads the optional "file" part of a multipart post. A missing
// file yields nil.
func readUpload(w http.ResponseWriter, r *http.Request) (*imaging.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, err
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	log.Debug().Str("file", header.Filename).Int("size", len(data)).Msg("received upload")
	return &imaging.Upload{
		Name: header.Filename,
		MIME: header.Header.Get("Content-Type"),
		Data: data,
	}, nil
}
