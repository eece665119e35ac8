package controllers

import (
	"net/http"

	"github.com/ecobridge/ecobridge-server/api/responses"
	"github.com/ecobridge/ecobridge-server/internal/notifications"
	"github.com/ecobridge/ecobridge-server/pkg/auth/session"
	pkgerrors "github.com/ecobridge/ecobridge-server/pkg/errors"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
	"github.com/ecobridge/ecobridge-server/pkg/render"
)

const notificationsPath = "/notifications"

// ListNotifications renders every notification of the visitor, newest first.
func ListNotifications(svc notifications.Service, pages *responses.Pages) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			pages.Error(w, r, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		actor, err := principal(r)
		if err != nil {
			pages.Error(w, r, err)
			return
		}
		rows, err := svc.List(r.Context(), actor.ID)
		if err != nil {
			pages.Error(w, r, err)
			return
		}
		pages.Render(w, r, http.StatusOK, render.ViewNotifications, map[string]any{"Notifications": rows})
	}
}

func MarkAllNotificationsRead(svc notifications.Service, pages *responses.Pages, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			pages.Error(w, r, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		actor, err := principal(r)
		if err != nil {
			pages.Error(w, r, err)
			return
		}
		count, err := svc.MarkAllRead(r.Context(), actor.ID)
		if err != nil {
			pages.Error(w, r, err)
			return
		}
		if logg != nil {
			logg.Debug(logg.WithField(r.Context(), "count", count), "notifications.marked_read")
		}
		responses.RedirectWithFlash(w, r, session.FlashSuccess, "All notifications marked as read", notificationsPath)
	}
}
