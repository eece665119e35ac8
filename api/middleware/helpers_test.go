package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/ecobridge/ecobridge-server/api/responses"
	"github.com/ecobridge/ecobridge-server/pkg/auth/session"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
	"github.com/ecobridge/ecobridge-server/pkg/render"
)

type stubViewer struct {
	mu    sync.Mutex
	views []string
	pages []render.Page
}

func (v *stubViewer) Render(w http.ResponseWriter, status int, view string, page render.Page) error {
	v.mu.Lock()
	v.views = append(v.views, view)
	v.pages = append(v.pages, page)
	v.mu.Unlock()
	w.WriteHeader(status)
	_, _ = io.WriteString(w, view)
	return nil
}

func (v *stubViewer) last() (string, render.Page) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.views) == 0 {
		return "", render.Page{}
	}
	return v.views[len(v.views)-1], v.pages[len(v.pages)-1]
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func testPages() (*responses.Pages, *stubViewer) {
	viewer := &stubViewer{}
	return responses.NewPages(viewer, testLogger()), viewer
}

func withSession(r *http.Request) (*http.Request, *session.Session) {
	sess := session.New()
	return r.WithContext(session.WithSession(r.Context(), sess)), sess
}

func formRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}
