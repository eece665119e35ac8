package middleware

import (
	"fmt"
	"net/http"

	"github.com/ecobridge/ecobridge-server/api/responses"
	pkgerrors "github.com/ecobridge/ecobridge-server/pkg/errors"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
)

// Recoverer turns panics into the generic error page.
func Recoverer(pages *responses.Pages, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := fmt.Errorf("panic: %v", rec)
				if logg != nil {
					ctx := logg.WithField(r.Context(), "panic", fmt.Sprint(rec))
					logg.Error(ctx, "panic.recovered", err)
				}
				pages.Error(w, r, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
