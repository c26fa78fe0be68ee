package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/erazemk/skrbnik/internal/model"
	"github.com/erazemk/skrbnik/internal/view"
)

// ItemsPage handles GET /items.
func (s *Server) ItemsPage(w http.ResponseWriter, r *http.Request) {
	items := s.Views.For(GetSession(r.Context())).Items

	if mounting(r) {
		items.Mount()
		if err := items.Load(r.Context()); errors.Is(err, view.ErrSessionExpired) {
			s.expired(w, r)
			return
		}
	}

	s.Templates.Render(w, "items.html", &struct {
		PageData
		view.ItemListState
	}{
		PageData:      s.pageData(r, "Items", "items"),
		ItemListState: items.State(),
	})
}

// ItemCreateSubmit handles POST /items.
func (s *Server) ItemCreateSubmit(w http.ResponseWriter, r *http.Request) {
	items := s.Views.For(GetSession(r.Context())).Items

	form := model.ItemForm{
		Name:     r.FormValue("name"),
		Category: r.FormValue("category"),
		Price:    r.FormValue("price"),
	}
	err := items.Save(r.Context(), form)
	s.afterAction(w, r, err, "/items"+keepView)
}

// ItemDeleteSubmit handles POST /items/{id}/delete.
func (s *Server) ItemDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	items := s.Views.For(GetSession(r.Context())).Items

	var prompt string
	err := items.Delete(r.Context(), chi.URLParam(r, "id"), confirmFrom(r, &prompt))
	if errors.Is(err, view.ErrNotConfirmed) {
		s.renderConfirm(w, r, prompt, "items", "/items"+keepView)
		return
	}
	s.afterAction(w, r, err, "/items"+keepView)
}
