package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ecobridge/ecobridge-server/pkg/auth/session"
	pkgerrors "github.com/ecobridge/ecobridge-server/pkg/errors"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
	"github.com/ecobridge/ecobridge-server/pkg/render"
)

// Viewer renders a named view.
type Viewer interface {
	Render(w http.ResponseWriter, status int, view string, page render.Page) error
}

// Pages writes HTML responses for the current visitor: the signed-in user
// and any pending flashes are attached to every rendered view.
type Pages struct {
	viewer Viewer
	logg   *logger.Logger
}

func NewPages(viewer Viewer, logg *logger.Logger) *Pages {
	return &Pages{viewer: viewer, logg: logg}
}

// Render writes view with status. A failing template falls back to a plain 500.
func (p *Pages) Render(w http.ResponseWriter, r *http.Request, status int, view string, data map[string]any) {
	ctx := r.Context()
	page := render.Page{
		CurrentUser: session.PrincipalFrom(ctx),
		Data:        data,
	}
	if sess := session.FromContext(ctx); sess != nil {
		page.Flashes = sess.State.TakeFlashes()
	}
	if err := p.viewer.Render(w, status, view, page); err != nil {
		if p.logg != nil {
			p.logg.Error(p.logg.WithField(ctx, "view", view), "render.failed", err)
		}
		http.Error(w, pkgerrors.MetadataFor(pkgerrors.CodeInternal).PublicMessage, http.StatusInternalServerError)
	}
}

// Error renders the error page with the status and public message of err's code.
func (p *Pages) Error(w http.ResponseWriter, r *http.Request, err error) {
	typed := toTyped(err)
	meta := pkgerrors.MetadataFor(typed.Code())
	logError(r.Context(), p.logg, err, typed)

	p.Render(w, r, meta.HTTPStatus, render.ViewError, map[string]any{
		"Status":  meta.HTTPStatus,
		"Message": PublicMessage(typed),
	})
}

// Fail sends user-correctable errors back to target with an error flash and
// renders the error page for everything else.
func (p *Pages) Fail(w http.ResponseWriter, r *http.Request, err error, target string) {
	typed := toTyped(err)
	switch typed.Code() {
	case pkgerrors.CodeValidation, pkgerrors.CodeNotFound, pkgerrors.CodeConflict, pkgerrors.CodeRateLimit:
		if p.logg != nil {
			p.logg.Warn(p.logg.WithField(r.Context(), "error", err.Error()), "request.rejected")
		}
		RedirectWithFlash(w, r, session.FlashError, PublicMessage(typed), target)
	default:
		p.Error(w, r, err)
	}
}

// PublicMessage is the text a visitor may see for err.
func PublicMessage(typed *pkgerrors.Error) string {
	msg := pkgerrors.MetadataFor(typed.Code()).PublicMessage
	switch typed.Code() {
	case pkgerrors.CodeValidation,
		pkgerrors.CodeForbidden,
		pkgerrors.CodeUnauthorized,
		pkgerrors.CodeNotFound,
		pkgerrors.CodeConflict,
		pkgerrors.CodeRateLimit:
		if m := typed.Message(); m != "" {
			msg = m
		}
	}
	return msg
}

// Redirect answers with 303 so form posts are followed by a GET.
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// RedirectWithFlash queues a notice on the visitor's session and redirects.
func RedirectWithFlash(w http.ResponseWriter, r *http.Request, kind, message, target string) {
	if sess := session.FromContext(r.Context()); sess != nil {
		sess.State.Flash(kind, message)
	}
	Redirect(w, r, target)
}

type successEnvelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteSuccess writes a JSON envelope; used by the ops endpoints.
func WriteSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, successEnvelope{Data: data})
}

// WriteJSONError writes a JSON error envelope; used by the ops endpoints.
func WriteJSONError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := toTyped(err)
	logError(ctx, logg, err, typed)
	meta := pkgerrors.MetadataFor(typed.Code())
	payload := errorEnvelope{Error: apiError{
		Code:    string(typed.Code()),
		Message: PublicMessage(typed),
	}}
	if meta.DetailsAllowed {
		payload.Error.Details = typed.Details()
	}
	writeJSON(w, meta.HTTPStatus, payload)
}

func toTyped(err error) *pkgerrors.Error {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	return typed
}

func logError(ctx context.Context, logg *logger.Logger, err error, typed *pkgerrors.Error) {
	if logg == nil || err == nil {
		return
	}
	ctx = logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
	if pkgerrors.MetadataFor(typed.Code()).HTTPStatus >= http.StatusInternalServerError {
		logg.Error(ctx, "request.error", err)
		return
	}
	logg.Warn(ctx, "request.error")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
