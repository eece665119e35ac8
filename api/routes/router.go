package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ecobridge/ecobridge-server/api/controllers"
	"github.com/ecobridge/ecobridge-server/api/middleware"
	"github.com/ecobridge/ecobridge-server/api/responses"
	"github.com/ecobridge/ecobridge-server/internal/admin"
	"github.com/ecobridge/ecobridge-server/internal/auth"
	"github.com/ecobridge/ecobridge-server/internal/needs"
	"github.com/ecobridge/ecobridge-server/internal/notifications"
	"github.com/ecobridge/ecobridge-server/internal/profile"
	"github.com/ecobridge/ecobridge-server/internal/uploads"
	"github.com/ecobridge/ecobridge-server/pkg/auth/session"
	"github.com/ecobridge/ecobridge-server/pkg/config"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
	"github.com/ecobridge/ecobridge-server/pkg/metrics"
	"github.com/ecobridge/ecobridge-server/pkg/render"
)

// RateLimiter counts auth form submissions.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	Config      *config.Config
	Logger      *logger.Logger
	Viewer      responses.Viewer
	Sessions    session.Store
	Principals  middleware.PrincipalLoader
	RateLimiter RateLimiter
	Pingers     map[string]controllers.Pinger
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics

	Auth          auth.Service
	Uploads       uploads.Service
	Needs         needs.Service
	Profile       profile.Service
	Notifications notifications.Service
	Admin         admin.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger
	pages := responses.NewPages(deps.Viewer, logg)
	gate := middleware.NewGate(Access, pages, logg)

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(pages, logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.MethodOverride,
	)

	guarded := func(method, pattern string, h http.Handler) {
		r.Method(method, pattern, gate.Guard(method, pattern, h))
	}

	guarded(http.MethodGet, "/health/live", controllers.HealthLive(cfg))
	guarded(http.MethodGet, "/health/ready", controllers.HealthReady(cfg, deps.Pingers, logg))
	if deps.Gatherer != nil {
		guarded(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
		"/login",
	)
	signupPolicy := middleware.NewAuthRateLimitPolicy(
		"signup",
		cfg.AuthRateLimit.SignupWindow,
		cfg.AuthRateLimit.SignupIPLimit,
		cfg.AuthRateLimit.SignupUsernameLimit,
		"/signup",
	)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Sessions(deps.Sessions, deps.Principals, cfg.Session, pages, logg))

		page := func(method, pattern string, h http.Handler) {
			r.Method(method, pattern, gate.Guard(method, pattern, h))
		}

		page(http.MethodGet, "/", http.RedirectHandler("/home", http.StatusSeeOther))
		page(http.MethodGet, "/home", controllers.StaticPage(pages, render.ViewHome))
		page(http.MethodGet, "/privacy", controllers.StaticPage(pages, render.ViewPrivacy))
		page(http.MethodGet, "/terms", controllers.StaticPage(pages, render.ViewTerms))

		page(http.MethodGet, "/signup", controllers.SignupForm(pages))
		page(http.MethodPost, "/signup", middleware.AuthRateLimit(signupPolicy, deps.RateLimiter, pages, logg)(controllers.Signup(deps.Auth, pages, logg)))
		page(http.MethodGet, "/login", controllers.LoginForm(pages))
		page(http.MethodPost, "/login", middleware.AuthRateLimit(loginPolicy, deps.RateLimiter, pages, logg)(controllers.Login(deps.Auth, pages, logg)))
		page(http.MethodGet, "/logout", controllers.Logout())

		page(http.MethodGet, "/contribute", controllers.StaticPage(pages, render.ViewContribute))
		page(http.MethodPost, "/uploads", controllers.CreateUpload(deps.Uploads, cfg.Media, pages, logg))
		page(http.MethodGet, "/uploads", controllers.ListUploads(deps.Uploads, pages))
		page(http.MethodGet, "/uploads/{id}", controllers.ShowUpload(deps.Uploads, pages))
		page(http.MethodDelete, "/uploads/{id}", controllers.DeleteUpload(deps.Uploads, pages, logg))
		page(http.MethodPost, "/uploads/{id}/delete", controllers.DeleteUpload(deps.Uploads, pages, logg))
		page(http.MethodGet, "/accept/{id}", controllers.AcceptUpload(deps.Uploads, pages))

		page(http.MethodGet, "/needs", controllers.StaticPage(pages, render.ViewNeedNew))
		page(http.MethodPost, "/needs", controllers.CreateNeed(deps.Needs, pages))
		page(http.MethodGet, "/needs/{id}/edit", controllers.EditNeed(deps.Needs, pages))
		page(http.MethodPut, "/needs/{id}", controllers.UpdateNeed(deps.Needs, pages))

		page(http.MethodGet, "/profile", controllers.ShowProfile(deps.Profile, pages))
		page(http.MethodPost, "/profile", controllers.UpdateProfilePhoto(deps.Profile, cfg.Media, pages, logg))
		page(http.MethodGet, "/certificate", controllers.Certificate(deps.Profile, pages))

		page(http.MethodGet, "/notifications", controllers.ListNotifications(deps.Notifications, pages))
		page(http.MethodPost, "/notifications/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, pages, logg))

		page(http.MethodGet, "/dashboard", controllers.Dashboard(deps.Admin, pages))
		page(http.MethodPost, "/admin/users/{id}/ban", controllers.BanUser(deps.Admin, pages, logg))
		page(http.MethodPost, "/admin/users/{id}/unban", controllers.UnbanUser(deps.Admin, pages, logg))
		page(http.MethodPost, "/admin/users/{id}/terminate", controllers.TerminateUser(deps.Admin, pages, logg))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		pages.Render(w, r, http.StatusNotFound, render.ViewError, map[string]any{
			"Status":  http.StatusNotFound,
			"Message": "Page not found",
		})
	})

	return r
}
