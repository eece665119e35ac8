// Package render turns a view name and a data bag into HTML using the
// templates compiled into the binary.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/ecobridge/ecobridge-server/pkg/auth/session"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
)

//go:embed templates
var templateFS embed.FS

const (
	layoutFile = "templates/layout.html"
	pagesDir   = "templates/pages"
)

// View names.
const (
	ViewHome          = "home"
	ViewPrivacy       = "conditions/privacy"
	ViewTerms         = "conditions/terms"
	ViewSignup        = "users/signup"
	ViewLogin         = "users/login"
	ViewContribute    = "contribute"
	ViewNeedNew       = "needs/new"
	ViewNeedEdit      = "needs/edit"
	ViewUploads       = "uploads/index"
	ViewUploadShow    = "uploads/show"
	ViewProfile       = "profile"
	ViewNotifications = "notifications"
	ViewDashboard     = "dashboard"
	ViewError         = "error"
)

// Page is the data bag every view receives.
type Page struct {
	CurrentUser *models.User
	Flashes     []session.Flash
	Data        map[string]any
}

// Renderer holds one parsed template set per view.
type Renderer struct {
	views map[string]*template.Template
}

var funcs = template.FuncMap{
	"isAdmin": func(u *models.User) bool { return u.IsAdmin() },
	"formatTime": func(t time.Time) string {
		return t.Local().Format("02 Jan 2006, 15:04")
	},
}

// New parses every page against the shared layout.
func New() (*Renderer, error) {
	r := &Renderer{views: make(map[string]*template.Template)}
	err := fs.WalkDir(templateFS, pagesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}
		name := strings.TrimSuffix(strings.TrimPrefix(path, pagesDir+"/"), ".html")
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, layoutFile, path)
		if err != nil {
			return fmt.Errorf("parse view %s: %w", name, err)
		}
		r.views[name] = tmpl
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Has reports whether a view is registered.
func (r *Renderer) Has(view string) bool {
	_, ok := r.views[view]
	return ok
}

// Render executes view into a buffer and writes it with status. Nothing is
// written when execution fails, so callers can still send an error page.
func (r *Renderer) Render(w http.ResponseWriter, status int, view string, page Page) error {
	tmpl, ok := r.views[view]
	if !ok {
		return fmt.Errorf("render: unknown view %q", view)
	}
	if page.Data == nil {
		page.Data = map[string]any{}
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("render %s: %w", view, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
