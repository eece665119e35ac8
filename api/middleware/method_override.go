package middleware

import (
	"net/http"
	"strings"
)

const methodOverrideField = "_method"

// MethodOverride lets url-encoded HTML forms issue PUT and DELETE through a
// hidden _method field. It must run before routing.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
			switch override := strings.ToUpper(strings.TrimSpace(r.PostFormValue(methodOverrideField))); override {
			case http.MethodPut, http.MethodDelete, http.MethodPatch:
				r.Method = override
			}
		}
		next.ServeHTTP(w, r)
	})
}
