package controllers

import (
	"net/http"

	"github.com/ecobridge/ecobridge-server/api/responses"
)

// StaticPage renders a view that needs no data.
func StaticPage(pages *responses.Pages, view string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pages.Render(w, r, http.StatusOK, view, nil)
	}
}
