// Package web serves the admin console's HTML pages.
package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/erazemk/skrbnik/internal/backend"
	"github.com/erazemk/skrbnik/internal/session"
	webembed "github.com/erazemk/skrbnik/web"
)

// Server holds all dependencies for page handlers.
type Server struct {
	Backend      *backend.Client
	Sessions     *session.Manager
	Views        *Registry
	Templates    *Templates
	CookieSecret []byte
	CookieSecure bool
}

// Options configures NewRouter.
type Options struct {
	Backend      *backend.Client
	Sessions     *session.Manager
	CookieSecret []byte
	CookieSecure bool
}

// NewRouter creates the page router with all routes registered.
func NewRouter(opts Options) (http.Handler, error) {
	if opts.Backend == nil || opts.Sessions == nil {
		return nil, errors.New("web: backend and session manager are required")
	}
	if len(opts.CookieSecret) == 0 {
		return nil, errors.New("web: cookie secret is required")
	}

	templates, err := LoadTemplates(opts.Backend.BaseURL())
	if err != nil {
		return nil, err
	}

	s := &Server{
		Backend:      opts.Backend,
		Sessions:     opts.Sessions,
		Views:        NewRegistry(opts.Backend),
		Templates:    templates,
		CookieSecret: opts.CookieSecret,
		CookieSecure: opts.CookieSecure,
	}
	opts.Sessions.OnEnd(s.Views.Drop)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)

	// Static assets.
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))
	r.Get("/healthz", s.Health)

	// Public routes.
	r.Get("/login", s.LoginPage)
	r.Post("/login", s.LoginSubmit)
	r.Get("/logout", s.Logout)
	r.Post("/logout", s.Logout)

	// Session routes.
	r.Group(func(r chi.Router) {
		r.Use(s.SessionMiddleware)

		r.Get("/", s.Home)

		r.Get("/items", s.ItemsPage)
		r.Post("/items", s.ItemCreateSubmit)
		r.Post("/items/{id}/delete", s.ItemDeleteSubmit)

		r.Get("/users", s.UsersPage)
		r.Post("/users", s.UserCreateSubmit)
		r.Post("/users/refresh", s.UsersRefreshSubmit)
		r.Post("/users/modal/close", s.UserModalCloseSubmit)
		r.Get("/users/{id}/edit", s.UserEditPage)
		r.Post("/users/{id}", s.UserUpdateSubmit)
		r.Post("/users/{id}/delete", s.UserDeleteSubmit)
		r.Post("/users/{id}/image", s.UserImageSubmit)
		r.Post("/users/{id}/image/delete", s.UserImageDeleteSubmit)

		r.Get("/profile", s.ProfilePage)
		r.Post("/profile", s.ProfileUpdateSubmit)
		r.Post("/profile/image", s.ProfileImageSubmit)
		r.Post("/profile/image/delete", s.ProfileImageDeleteSubmit)
	})

	return r, nil
}

// Home handles GET /.
func (s *Server) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}
