package controllers

import (
	"net/http"

	"github.com/ecobridge/ecobridge-server/api/responses"
	"github.com/ecobridge/ecobridge-server/api/validators"
	"github.com/ecobridge/ecobridge-server/internal/uploads"
	"github.com/ecobridge/ecobridge-server/pkg/auth/session"
	"github.com/ecobridge/ecobridge-server/pkg/config"
	pkgerrors "github.com/ecobridge/ecobridge-server/pkg/errors"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
	"github.com/ecobridge/ecobridge-server/pkg/render"
)

const (
	contributePath = "/contribute"
	uploadsPath    = "/uploads"
)

type uploadForm struct {
	Category    string `form:"category" validate:"required,max=64"`
	Description string `form:"description" validate:"required,max=2000"`
	Location    string `form:"location" validate:"required,max=256"`
}

// CreateUpload stores the contribution and its photo.
func CreateUpload(svc uploads.Service, media config.MediaConfig, pages *responses.Pages, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal(r)
		if err != nil {
			pages.Error(w, r, err)
			return
		}

		var form uploadForm
		file, header, err := validators.DecodeMultipart(w, r, media.MaxUploadBytes(), "image", &form)
		if err != nil {
			pages.Fail(w, r, err, contributePath)
			return
		}
		input := uploads.CreateInput{
			Category:    form.Category,
			Description: form.Description,
			Location:    form.Location,
		}
		if file != nil {
			defer file.Close()
			input.FileName = header.Filename
			input.Image = file
		}

		upload, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			pages.Fail(w, r, err, contributePath)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "upload_id", upload.ID.String()), "upload.created")
		}
		responses.RedirectWithFlash(w, r, session.FlashSuccess, "New Upload Posted!", uploadsPath)
	}
}

// ListUploads shows the viewer's uploads, or all of them for ngos and admins.
func ListUploads(svc uploads.Service, pages *responses.Pages) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, err := principal(r)
		if err != nil {
			pages.Error(w, r, err)
			return
		}
		list, err := svc.ListForViewer(r.Context(), viewer)
		if err != nil {
			pages.Error(w, r, err)
			return
		}
		pages.Render(w, r, http.StatusOK, render.ViewUploads, map[string]any{"Uploads": list})
	}
}

// ShowUpload renders one upload with the needs of its category.
func ShowUpload(svc uploads.Service, pages *responses.Pages) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, err := principal(r)
		if err != nil {
			pages.Error(w, r, err)
			return
		}
		id, err := pathID(r, "upload")
		if err != nil {
			pages.Fail(w, r, err, uploadsPath)
			return
		}
		detail, err := svc.Show(r.Context(), id)
		if err != nil {
			pages.Fail(w, r, err, uploadsPath)
			return
		}
		pages.Render(w, r, http.StatusOK, render.ViewUploadShow, map[string]any{
			"Upload":    detail.Upload,
			"Needs":     detail.Needs,
			"CanAccept": viewer.Role.CanAccept(),
		})
	}
}

// DeleteUpload removes an upload and penalizes its owner.
func DeleteUpload(svc uploads.Service, pages *responses.Pages, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal(r)
		if err != nil {
			pages.Error(w, r, err)
			return
		}
		id, err := pathID(r, "upload")
		if err != nil {
			pages.Fail(w, r, err, uploadsPath)
			return
		}
		if err := svc.Delete(r.Context(), actor, id); err != nil {
			pages.Fail(w, r, err, uploadsPath)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "upload_id", id.String()), "upload.deleted")
		}
		responses.RedirectWithFlash(w, r, session.FlashSuccess, "Upload Deleted!", homePath)
	}
}

// AcceptUpload marks an upload accepted and rewards its owner.
func AcceptUpload(svc uploads.Service, pages *responses.Pages) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal(r)
		if err != nil {
			pages.Error(w, r, err)
			return
		}
		id, err := pathID(r, "upload")
		if err != nil {
			pages.Fail(w, r, err, uploadsPath)
			return
		}
		if _, err := svc.Accept(r.Context(), actor, id); err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeForbidden) {
				pages.Error(w, r, err)
				return
			}
			pages.Fail(w, r, err, uploadsPath)
			return
		}
		responses.RedirectWithFlash(w, r, session.FlashSuccess, "Upload Accepted!", uploadsPath+"/"+id.String())
	}
}
