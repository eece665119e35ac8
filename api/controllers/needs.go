package controllers

import (
	"net/http"

	"github.com/ecobridge/ecobridge-server/api/responses"
	"github.com/ecobridge/ecobridge-server/api/validators"
	"github.com/ecobridge/ecobridge-server/internal/needs"
	"github.com/ecobridge/ecobridge-server/pkg/auth/session"
	"github.com/ecobridge/ecobridge-server/pkg/render"
)

const (
	newNeedPath = "/needs"
	profilePath = "/profile"
)

type needForm struct {
	Category    string `form:"category" validate:"required,max=64"`
	Description string `form:"description" validate:"required,max=2000"`
	Location    string `form:"location" validate:"required,max=256"`
}

type needUpdateForm struct {
	Category    *string `form:"category" validate:"omitempty,max=64"`
	Description *string `form:"description" validate:"omitempty,max=2000"`
	Location    *string `form:"location" validate:"omitempty,max=256"`
}

func CreateNeed(svc needs.Service, pages *responses.Pages) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal(r)
		if err != nil {
			pages.Error(w, r, err)
			return
		}
		var form needForm
		if err := validators.DecodeForm(r, &form); err != nil {
			pages.Fail(w, r, err, newNeedPath)
			return
		}
		if _, err := svc.Create(r.Context(), actor, needs.CreateInput{
			Category:    form.Category,
			Description: form.Description,
			Location:    form.Location,
		}); err != nil {
			pages.Fail(w, r, err, newNeedPath)
			return
		}
		responses.RedirectWithFlash(w, r, session.FlashSuccess, "Requested Item Added!", profilePath)
	}
}

// EditNeed renders the edit form; unknown needs send the visitor back to the profile.
func EditNeed(svc needs.Service, pages *responses.Pages) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "need")
		if err != nil {
			responses.RedirectWithFlash(w, r, session.FlashError, needs.MissingNeedMessage, profilePath)
			return
		}
		need, err := svc.Get(r.Context(), id)
		if err != nil {
			pages.Fail(w, r, err, profilePath)
			return
		}
		pages.Render(w, r, http.StatusOK, render.ViewNeedEdit, map[string]any{"Need": need})
	}
}

// UpdateNeed merges the submitted fields into the need.
func UpdateNeed(svc needs.Service, pages *responses.Pages) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal(r)
		if err != nil {
			pages.Error(w, r, err)
			return
		}
		id, err := pathID(r, "need")
		if err != nil {
			responses.RedirectWithFlash(w, r, session.FlashError, needs.MissingNeedMessage, profilePath)
			return
		}
		var form needUpdateForm
		if err := validators.DecodeForm(r, &form); err != nil {
			pages.Fail(w, r, err, profilePath)
			return
		}
		if _, err := svc.Update(r.Context(), actor, id, needs.UpdateInput{
			Category:    form.Category,
			Description: form.Description,
			Location:    form.Location,
		}); err != nil {
			pages.Fail(w, r, err, profilePath)
			return
		}
		responses.RedirectWithFlash(w, r, session.FlashSuccess, "Requested Item Updated!", profilePath)
	}
}
