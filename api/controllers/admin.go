package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/ecobridge/ecobridge-server/api/responses"
	"github.com/ecobridge/ecobridge-server/internal/admin"
	"github.com/ecobridge/ecobridge-server/pkg/auth/session"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
	"github.com/ecobridge/ecobridge-server/pkg/render"
)

const dashboardPath = "/dashboard"

// Dashboard lists every non-admin account.
func Dashboard(svc admin.Service, pages *responses.Pages) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.Dashboard(r.Context())
		if err != nil {
			pages.Error(w, r, err)
			return
		}
		pages.Render(w, r, http.StatusOK, render.ViewDashboard, map[string]any{"Users": list})
	}
}

type moderationAction func(ctx context.Context, actor *models.User, userID uuid.UUID) (*models.User, error)

func BanUser(svc admin.Service, pages *responses.Pages, logg *logger.Logger) http.HandlerFunc {
	return moderate(svc.Ban, "%s has been banned", pages, logg)
}

func UnbanUser(svc admin.Service, pages *responses.Pages, logg *logger.Logger) http.HandlerFunc {
	return moderate(svc.Unban, "%s has been unbanned", pages, logg)
}

func TerminateUser(svc admin.Service, pages *responses.Pages, logg *logger.Logger) http.HandlerFunc {
	return moderate(svc.Terminate, "%s has been terminated", pages, logg)
}

func moderate(action moderationAction, notice string, pages *responses.Pages, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := principal(r)
		if err != nil {
			pages.Error(w, r, err)
			return
		}
		id, err := pathID(r, "user")
		if err != nil {
			pages.Fail(w, r, err, dashboardPath)
			return
		}
		target, err := action(r.Context(), actor, id)
		if err != nil {
			pages.Fail(w, r, err, dashboardPath)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "target_user_id", target.ID.String()), "admin.moderated")
		}
		responses.RedirectWithFlash(w, r, session.FlashSuccess, fmt.Sprintf(notice, target.Username), dashboardPath)
	}
}
