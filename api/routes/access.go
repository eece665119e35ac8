package routes

import (
	"net/http"

	"github.com/ecobridge/ecobridge-server/api/middleware"
)

// Access is the capability table for every page. Anything not listed here
// requires a signed-in user.
var Access = middleware.AccessTable{
	key(http.MethodGet, "/"):                            middleware.CapabilityAnonymous,
	key(http.MethodGet, "/home"):                        middleware.CapabilityAnonymous,
	key(http.MethodGet, "/privacy"):                     middleware.CapabilityAnonymous,
	key(http.MethodGet, "/terms"):                       middleware.CapabilityAnonymous,
	key(http.MethodGet, "/signup"):                      middleware.CapabilityAnonymous,
	key(http.MethodPost, "/signup"):                     middleware.CapabilityAnonymous,
	key(http.MethodGet, "/login"):                       middleware.CapabilityAnonymous,
	key(http.MethodPost, "/login"):                      middleware.CapabilityAnonymous,
	key(http.MethodGet, "/logout"):                      middleware.CapabilityAnonymous,
	key(http.MethodGet, "/health/live"):                 middleware.CapabilityAnonymous,
	key(http.MethodGet, "/health/ready"):                middleware.CapabilityAnonymous,
	key(http.MethodGet, "/metrics"):                     middleware.CapabilityAnonymous,
	key(http.MethodGet, "/contribute"):                  middleware.CapabilityAuthenticated,
	key(http.MethodGet, "/needs"):                       middleware.CapabilityAuthenticated,
	key(http.MethodPost, "/needs"):                      middleware.CapabilityAuthenticated,
	key(http.MethodGet, "/needs/{id}/edit"):             middleware.CapabilityAuthenticated,
	key(http.MethodPut, "/needs/{id}"):                  middleware.CapabilityAuthenticated,
	key(http.MethodPost, "/uploads"):                    middleware.CapabilityAuthenticated,
	key(http.MethodGet, "/uploads"):                     middleware.CapabilityAuthenticated,
	key(http.MethodGet, "/uploads/{id}"):                middleware.CapabilityAuthenticated,
	key(http.MethodDelete, "/uploads/{id}"):             middleware.CapabilityAuthenticated,
	key(http.MethodPost, "/uploads/{id}/delete"):        middleware.CapabilityAuthenticated,
	key(http.MethodGet, "/profile"):                     middleware.CapabilityAuthenticated,
	key(http.MethodPost, "/profile"):                    middleware.CapabilityAuthenticated,
	key(http.MethodGet, "/certificate"):                 middleware.CapabilityAuthenticated,
	key(http.MethodGet, "/notifications"):               middleware.CapabilityAuthenticated,
	key(http.MethodPost, "/notifications/read-all"):     middleware.CapabilityAuthenticated,
	key(http.MethodGet, "/accept/{id}"):                 middleware.CapabilityNGOOrAdmin,
	key(http.MethodGet, "/dashboard"):                   middleware.CapabilityAdmin,
	key(http.MethodPost, "/admin/users/{id}/ban"):       middleware.CapabilityAdmin,
	key(http.MethodPost, "/admin/users/{id}/unban"):     middleware.CapabilityAdmin,
	key(http.MethodPost, "/admin/users/{id}/terminate"): middleware.CapabilityAdmin,
}

func key(method, pattern string) string {
	return middleware.RouteKey(method, pattern)
}
