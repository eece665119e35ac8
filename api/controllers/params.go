package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ecobridge/ecobridge-server/api/middleware"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
	pkgerrors "github.com/ecobridge/ecobridge-server/pkg/errors"
)

// pathID parses the {id} route parameter. Malformed ids read as missing records.
func pathID(r *http.Request, what string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, what+" not found")
	}
	return id, nil
}

// principal returns the signed-in user; the gate guarantees one on
// authenticated routes.
func principal(r *http.Request) (*models.User, error) {
	user := middleware.CurrentUser(r.Context())
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	return user, nil
}
