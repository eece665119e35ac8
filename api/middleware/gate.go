package middleware

import (
	"net/http"

	"github.com/ecobridge/ecobridge-server/api/responses"
	"github.com/ecobridge/ecobridge-server/pkg/auth/session"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
	pkgerrors "github.com/ecobridge/ecobridge-server/pkg/errors"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
)

// Capability is the access level a route requires.
type Capability string

const (
	CapabilityAnonymous     Capability = "anonymous"
	CapabilityAuthenticated Capability = "authenticated"
	CapabilityAdmin         Capability = "admin"
	CapabilityNGOOrAdmin    Capability = "ngo_or_admin"
)

const (
	LoginPath         = "/login"
	loginRequiredText = "Please Login to continue"
	adminsOnlyText    = "Access denied: Admins only"
	ngoOrAdminText    = "Access denied: NGOs and Admins only"
)

// AccessTable maps "METHOD /pattern" to the capability the route requires.
// Routes missing from the table require an authenticated principal.
type AccessTable map[string]Capability

func RouteKey(method, pattern string) string {
	return method + " " + pattern
}

func (t AccessTable) CapabilityFor(method, pattern string) Capability {
	if c, ok := t[RouteKey(method, pattern)]; ok {
		return c
	}
	return CapabilityAuthenticated
}

// Decision is the gate's verdict for one request.
type Decision int

const (
	DecisionProceed Decision = iota
	DecisionLogin
	DecisionForbid
)

// Decide evaluates capability against the principal. Banned principals never
// reach this point; the session loader signs them out.
func Decide(capability Capability, user *models.User) (Decision, string) {
	if capability == CapabilityAnonymous {
		return DecisionProceed, ""
	}
	if user == nil {
		return DecisionLogin, loginRequiredText
	}
	switch capability {
	case CapabilityAdmin:
		if !user.IsAdmin() {
			return DecisionForbid, adminsOnlyText
		}
	case CapabilityNGOOrAdmin:
		if !user.Role.CanAccept() {
			return DecisionForbid, ngoOrAdminText
		}
	}
	return DecisionProceed, ""
}

// Gate applies the access table to individual routes.
type Gate struct {
	table AccessTable
	pages *responses.Pages
	logg  *logger.Logger
}

func NewGate(table AccessTable, pages *responses.Pages, logg *logger.Logger) *Gate {
	return &Gate{table: table, pages: pages, logg: logg}
}

// Guard wraps the handler registered for method and pattern.
func (g *Gate) Guard(method, pattern string, next http.Handler) http.Handler {
	capability := g.table.CapabilityFor(method, pattern)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, reason := Decide(capability, CurrentUser(r.Context()))
		switch decision {
		case DecisionLogin:
			// Any method is remembered; login follows it with a GET, so a
			// POST /uploads visitor lands on the uploads list.
			if sess := session.FromContext(r.Context()); sess != nil {
				sess.State.RememberRedirect(r.URL.RequestURI())
			}
			responses.RedirectWithFlash(w, r, session.FlashError, reason, LoginPath)
		case DecisionForbid:
			if g.logg != nil {
				g.logg.Warn(g.logg.WithFields(r.Context(), map[string]any{
					"capability": string(capability),
					"route":      pattern,
				}), "gate.denied")
			}
			g.pages.Error(w, r, pkgerrors.New(pkgerrors.CodeForbidden, reason))
		default:
			next.ServeHTTP(w, r)
		}
	})
}
