package responses

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ecobridge/ecobridge-server/pkg/auth/session"
	pkgerrors "github.com/ecobridge/ecobridge-server/pkg/errors"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
	"github.com/ecobridge/ecobridge-server/pkg/render"
)

type recordingViewer struct {
	view   string
	status int
	page   render.Page
	err    error
}

func (v *recordingViewer) Render(w http.ResponseWriter, status int, view string, page render.Page) error {
	if v.err != nil {
		return v.err
	}
	v.view, v.status, v.page = view, status, page
	w.WriteHeader(status)
	return nil
}

func newPages(v Viewer) *Pages {
	return NewPages(v, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
}

func requestWithSession() (*http.Request, *session.Session) {
	sess := session.New()
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	return req.WithContext(session.WithSession(req.Context(), sess)), sess
}

func TestRenderConsumesFlashes(t *testing.T) {
	viewer := &recordingViewer{}
	req, sess := requestWithSession()
	sess.State.Flash(session.FlashSuccess, "Upload Accepted!")

	w := httptest.NewRecorder()
	newPages(viewer).Render(w, req, http.StatusOK, render.ViewProfile, nil)

	if viewer.view != render.ViewProfile || w.Code != http.StatusOK {
		t.Fatalf("unexpected render %s/%d", viewer.view, w.Code)
	}
	if len(viewer.page.Flashes) != 1 || viewer.page.Flashes[0].Message != "Upload Accepted!" {
		t.Fatalf("expected flash on page, got %+v", viewer.page.Flashes)
	}
	if len(sess.State.Flashes) != 0 {
		t.Fatal("flashes should be consumed by render")
	}
}

func TestRenderFallsBackOnTemplateFailure(t *testing.T) {
	req, _ := requestWithSession()
	w := httptest.NewRecorder()
	newPages(&recordingViewer{err: errors.New("boom")}).Render(w, req, http.StatusOK, render.ViewHome, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestErrorRendersForbiddenMessage(t *testing.T) {
	viewer := &recordingViewer{}
	req, _ := requestWithSession()
	w := httptest.NewRecorder()

	newPages(viewer).Error(w, req, pkgerrors.New(pkgerrors.CodeForbidden, "Access denied: Admins only"))

	if viewer.view != render.ViewError || viewer.status != http.StatusForbidden {
		t.Fatalf("expected 403 error page, got %s/%d", viewer.view, viewer.status)
	}
	if got := viewer.page.Data["Message"]; got != "Access denied: Admins only" {
		t.Fatalf("unexpected message %v", got)
	}
}

func TestErrorHidesInternalDetails(t *testing.T) {
	viewer := &recordingViewer{}
	req, _ := requestWithSession()
	w := httptest.NewRecorder()

	newPages(viewer).Error(w, req, errors.New("pq: connection refused"))

	if viewer.status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", viewer.status)
	}
	if got := viewer.page.Data["Message"]; got != "Something went wrong" {
		t.Fatalf("unexpected message %v", got)
	}
}

func TestFailRedirectsValidationErrors(t *testing.T) {
	viewer := &recordingViewer{}
	req, sess := requestWithSession()
	w := httptest.NewRecorder()

	newPages(viewer).Fail(w, req, pkgerrors.New(pkgerrors.CodeNotFound, "Need doesn't exist!"), "/profile")

	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/profile" {
		t.Fatalf("expected redirect to /profile, got %d %s", w.Code, w.Header().Get("Location"))
	}
	if viewer.view != "" {
		t.Fatal("nothing should be rendered")
	}
	if len(sess.State.Flashes) != 1 || sess.State.Flashes[0].Kind != session.FlashError {
		t.Fatalf("expected error flash, got %+v", sess.State.Flashes)
	}
}

func TestWriteJSONErrorMapsTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSONError(httptest.NewRequest(http.MethodGet, "/", nil).Context(), nil, w,
		pkgerrors.New(pkgerrors.CodeDependency, "redis down"))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var body errorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeDependency) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Details != nil {
		t.Fatalf("dependency errors must not expose details, got %v", body.Error.Details)
	}
}

func TestWriteJSONErrorIncludesValidationDetails(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSONError(httptest.NewRequest(http.MethodGet, "/", nil).Context(), nil, w,
		pkgerrors.New(pkgerrors.CodeValidation, "Category is required").WithDetails(map[string]string{"Category": "is required"}))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var body struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Details["Category"] != "is required" {
		t.Fatalf("expected validation details, got %+v", body.Error.Details)
	}
}
