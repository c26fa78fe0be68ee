package web

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/erazemk/skrbnik/internal/model"
	"github.com/erazemk/skrbnik/internal/view"
	webembed "github.com/erazemk/skrbnik/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map. Image references are joined
// with the backend's base URL.
func FuncMap(apiBase string) template.FuncMap {
	return template.FuncMap{
		"imageURL": func(ref string) string {
			return model.JoinImageURL(apiBase, ref)
		},
		"categories": func() []string {
			return model.Categories
		},
		"isError": func(m *view.Message) bool {
			return m != nil && m.Kind == view.KindError
		},
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates(apiBase string) (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	pages := []string{
		"login.html",
		"items.html",
		"users.html",
		"profile.html",
		"confirm.html",
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap(apiBase))
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("failed to render template")
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title string
	// Active names the nav entry to highlight.
	Active string
	User   *model.Profile
	// Username is who signed in, shown until the profile has loaded.
	Username string
	Error    string
}
