package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ecobridge/ecobridge-server/pkg/auth/session"
	"github.com/ecobridge/ecobridge-server/pkg/render"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRateLimit_AllowsUnderLimit(t *testing.T) {
	store := newFakeRateStore()
	pages, _ := testPages()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 2, 2, "/login")
	handler := AuthRateLimit(policy, store, pages, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.PostFormValue("username"); got != "asha" {
			t.Fatalf("form not readable downstream, got %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := formRequest(http.MethodPost, "/login", "username=asha&password=secret")
	req.RemoteAddr = "1.2.3.4:5678"
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthRateLimit_UsernameLimitRedirectsWithFlash(t *testing.T) {
	store := newFakeRateStore()
	pages, _ := testPages()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 0, 2, "/login")
	handler := AuthRateLimit(policy, store, pages, nil)(okHandler())

	for i := 0; i < 3; i++ {
		// case and whitespace variants count against the same username
		body := "username=" + []string{"Asha", "asha", "%20ASHA"}[i] + "&password=secret"
		req, sess := withSession(formRequest(http.MethodPost, "/login", body))
		req.RemoteAddr = "1.2.3.4:5678"
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		switch {
		case i < 2 && rec.Code != http.StatusOK:
			t.Fatalf("expected success before limit, got %d", rec.Code)
		case i >= 2:
			if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
				t.Fatalf("expected redirect to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
			}
			flashes := sess.State.TakeFlashes()
			if len(flashes) != 1 || flashes[0].Kind != session.FlashError {
				t.Fatalf("expected one error flash, got %+v", flashes)
			}
		}
	}

	for scope := range store.counts {
		if strings.Contains(scope, "asha") {
			t.Fatalf("username should be hashed in scope %q", scope)
		}
	}
}

func TestAuthRateLimit_IPLimitTriggers(t *testing.T) {
	store := newFakeRateStore()
	pages, _ := testPages()
	policy := NewAuthRateLimitPolicy("signup", time.Minute, 1, 0, "/signup")
	handler := AuthRateLimit(policy, store, pages, nil)(okHandler())

	for i := 0; i < 2; i++ {
		req := formRequest(http.MethodPost, "/signup", "username=user"+string(rune('a'+i)))
		req.Header.Set("X-Forwarded-For", "5.6.7.8, 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if i == 0 && rec.Code != http.StatusOK {
			t.Fatalf("expected success, got %d", rec.Code)
		}
		if i == 1 && rec.Header().Get("Location") != "/signup" {
			t.Fatalf("expected redirect to /signup, got %d %q", rec.Code, rec.Header().Get("Location"))
		}
	}
	if _, ok := store.counts["signup:ip:5.6.7.8"]; !ok {
		t.Fatalf("expected first forwarded ip to be counted, got %v", store.counts)
	}
}

func TestAuthRateLimit_StoreFailureRendersErrorPage(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis down")
	pages, viewer := testPages()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 5, 5, "/login")
	handler := AuthRateLimit(policy, store, pages, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, formRequest(http.MethodPost, "/login", "username=asha"))

	if rec.Code != http.StatusServiceUnavailable && rec.Code != http.StatusBadGateway {
		t.Fatalf("expected dependency status, got %d", rec.Code)
	}
	if view, _ := viewer.last(); view != render.ViewError {
		t.Fatalf("expected error view, got %q", view)
	}
}

func TestAuthRateLimit_DisabledPolicyPassesThrough(t *testing.T) {
	pages, _ := testPages()
	policy := NewAuthRateLimitPolicy("login", 0, 5, 5, "/login")
	handler := AuthRateLimit(policy, newFakeRateStore(), pages, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, formRequest(http.MethodPost, "/login", "username=asha"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", rec.Code)
	}
}
