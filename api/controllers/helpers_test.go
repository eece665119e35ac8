package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ecobridge/ecobridge-server/api/middleware"
	"github.com/ecobridge/ecobridge-server/api/responses"
	"github.com/ecobridge/ecobridge-server/pkg/auth/session"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
	"github.com/ecobridge/ecobridge-server/pkg/render"
)

type capturingViewer struct {
	view   string
	status int
	page   render.Page
}

func (v *capturingViewer) Render(w http.ResponseWriter, status int, view string, page render.Page) error {
	v.view, v.status, v.page = view, status, page
	w.WriteHeader(status)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func testPages() (*responses.Pages, *capturingViewer) {
	viewer := &capturingViewer{}
	return responses.NewPages(viewer, testLogger()), viewer
}

// request builds a form request carrying a session, an optional principal
// and an optional {id} route parameter.
func request(method, target, body string, user *models.User, id string) (*http.Request, *session.Session) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	sess := session.New()
	ctx := session.WithSession(req.Context(), sess)
	if user != nil {
		ctx = middleware.WithPrincipal(ctx, user)
	}
	if id != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx), sess
}

func singleFlash(sess *session.Session) (session.Flash, bool) {
	flashes := sess.State.TakeFlashes()
	if len(flashes) != 1 {
		return session.Flash{}, false
	}
	return flashes[0], true
}
