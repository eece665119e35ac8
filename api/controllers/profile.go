package controllers

import (
	"net/http"

	"github.com/ecobridge/ecobridge-server/api/responses"
	"github.com/ecobridge/ecobridge-server/api/validators"
	"github.com/ecobridge/ecobridge-server/internal/profile"
	"github.com/ecobridge/ecobridge-server/pkg/auth/session"
	"github.com/ecobridge/ecobridge-server/pkg/config"
	pkgerrors "github.com/ecobridge/ecobridge-server/pkg/errors"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
	"github.com/ecobridge/ecobridge-server/pkg/render"
)

var errMissingPhoto = pkgerrors.New(pkgerrors.CodeValidation, "photo is required")

func ShowProfile(svc profile.Service, pages *responses.Pages) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal(r)
		if err != nil {
			pages.Error(w, r, err)
			return
		}
		view, err := svc.Show(r.Context(), actor.ID)
		if err != nil {
			pages.Error(w, r, err)
			return
		}
		pages.Render(w, r, http.StatusOK, render.ViewProfile, map[string]any{
			"User":     view.User,
			"Need":     view.Need,
			"HasNeed":  view.HasNeed,
			"Activity": view.Activity,
		})
	}
}

// UpdateProfilePhoto replaces the profile picture. Any failure is reported
// with the same generic notice.
func UpdateProfilePhoto(svc profile.Service, media config.MediaConfig, pages *responses.Pages, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal(r)
		if err != nil {
			pages.Error(w, r, err)
			return
		}

		file, header, err := validators.DecodeMultipart(w, r, media.MaxUploadBytes(), "photo", nil)
		if err == nil && file == nil {
			err = errMissingPhoto
		}
		if err == nil {
			defer file.Close()
			_, err = svc.UpdatePhoto(r.Context(), actor, header.Filename, file)
		}
		if err != nil {
			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "profile.photo_update_failed")
			}
			responses.RedirectWithFlash(w, r, session.FlashError, profile.PhotoUpdateFailedNotice, profilePath)
			return
		}
		responses.RedirectWithFlash(w, r, session.FlashSuccess, profile.PhotoUpdatedMessage, profilePath)
	}
}

// Certificate reports whether the visitor has earned the certificate.
func Certificate(svc profile.Service, pages *responses.Pages) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal(r)
		if err != nil {
			pages.Error(w, r, err)
			return
		}
		certified, err := svc.CheckCertificate(r.Context(), actor)
		if err != nil {
			pages.Error(w, r, err)
			return
		}
		if certified {
			responses.RedirectWithFlash(w, r, session.FlashSuccess, profile.CertifiedMessage, profilePath)
			return
		}
		responses.RedirectWithFlash(w, r, session.FlashError, profile.NotEnoughTokensMessage, profilePath)
	}
}
