// Package web renders the server-side HTML pages.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Page names accepted by Render.
const (
	PageIndex = "index.html"
	PageForm  = "form.html"
	PageError = "error.html"
)

// Renderer executes the page templates, each combined with the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	pages := make(map[string]*template.Template)
	for _, page := range []string{PageIndex, PageForm, PageError} {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templateFiles, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		pages[page] = tmpl
	}
	return &Renderer{pages: pages}, nil
}

// Render writes the page with the given status. The page is executed into
// a buffer first so a template failure never leaves a half-written body.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data interface{}) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

var funcs = template.FuncMap{
	"deref": func(v *int) string {
		if v == nil {
			return ""
		}
		return fmt.Sprint(*v)
	},
}

// PageData is the context every page template receives.
type PageData struct {
	Title     string
	Flashes   []string
	CSRFField template.HTML

	// index
	Events interface{}

	// form
	Action  string
	EventID int64
	Form    interface{}
	Errors  map[string]string

	// error
	Status     int
	StatusText string
	Message    string
}
