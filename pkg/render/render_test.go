package render

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ecobridge/ecobridge-server/pkg/auth/session"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
	"github.com/ecobridge/ecobridge-server/pkg/enums"
	"github.com/ecobridge/ecobridge-server/pkg/types"
)

func TestNewParsesEveryView(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	for _, view := range []string{
		ViewHome, ViewPrivacy, ViewTerms, ViewSignup, ViewLogin, ViewContribute,
		ViewNeedNew, ViewNeedEdit, ViewUploads, ViewUploadShow, ViewProfile,
		ViewNotifications, ViewDashboard, ViewError,
	} {
		require.True(t, r.Has(view), view)
	}
}

func TestRenderLayoutWithFlashesAndUser(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = r.Render(rec, http.StatusOK, ViewHome, Page{
		CurrentUser: &models.User{Username: "asha", Role: enums.UserRoleAdmin},
		Flashes: []session.Flash{
			{Kind: session.FlashSuccess, Message: "Upload Accepted!"},
			{Kind: session.FlashError, Message: "Not Enough Ecotokens"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	require.Contains(t, body, "Upload Accepted!")
	require.Contains(t, body, "alert-danger")
	require.Contains(t, body, "/dashboard")
	require.Contains(t, body, "asha")
}

func TestRenderEscapesUserContent(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	owner := &models.User{ID: uuid.New(), Username: "ravi"}
	upload := &models.Upload{
		ID:          uuid.New(),
		Owner:       owner,
		Category:    "books",
		Description: "<script>alert(1)</script>",
		Location:    "Pune",
		Geometry:    types.NewGeoPoint(18.52, 73.85),
		Status:      enums.UploadStatusPending,
	}
	rec := httptest.NewRecorder()
	err = r.Render(rec, http.StatusOK, ViewUploadShow, Page{
		CurrentUser: owner,
		Data: map[string]any{
			"Upload":    upload,
			"Needs":     []models.Need{{Description: "school books", Location: "Mumbai", Owner: owner}},
			"CanAccept": true,
		},
	})
	require.NoError(t, err)
	body := rec.Body.String()
	require.NotContains(t, body, "<script>alert(1)</script>")
	require.Contains(t, body, "school books")
	require.Contains(t, body, "/accept/"+upload.ID.String())
	require.Contains(t, body, "18.5200")
}

func TestRenderNotificationsAndErrorPage(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, r.Render(rec, http.StatusOK, ViewNotifications, Page{
		CurrentUser: &models.User{Username: "asha"},
		Data: map[string]any{
			"Notifications": []models.Notification{{Message: "ravi has posted an upload", CreatedAt: time.Now()}},
		},
	}))
	require.Contains(t, rec.Body.String(), "ravi has posted an upload")

	rec = httptest.NewRecorder()
	require.NoError(t, r.Render(rec, http.StatusForbidden, ViewError, Page{
		Data: map[string]any{"Status": http.StatusForbidden, "Message": "Access denied: Admins only"},
	}))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "Access denied: Admins only")
}

func TestRenderProfileActivity(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	user := &models.User{ID: uuid.New(), Username: "asha", Ecotokens: 5}
	activity := []models.LedgerEvent{
		{Type: enums.LedgerEventUploadDeleted, EcotokensDelta: -5, WarningsDelta: 1, CreatedAt: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)},
	}
	rec := httptest.NewRecorder()
	require.NoError(t, r.Render(rec, http.StatusOK, ViewProfile, Page{
		CurrentUser: user,
		Data:        map[string]any{"User": user, "Activity": activity},
	}))
	body := rec.Body.String()
	require.Contains(t, body, "upload_deleted")
	require.Contains(t, body, "-5 ecotokens, 1 warning")
	require.Contains(t, body, "02 Mar 2026")

	rec = httptest.NewRecorder()
	require.NoError(t, r.Render(rec, http.StatusOK, ViewProfile, Page{
		CurrentUser: user,
		Data:        map[string]any{"User": user},
	}))
	require.Contains(t, rec.Body.String(), "No ecotoken activity yet.")
}

func TestRenderUnknownViewWritesNothing(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.Error(t, r.Render(rec, http.StatusOK, "missing", Page{}))
	require.Zero(t, rec.Body.Len())
}
