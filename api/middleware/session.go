package middleware

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ecobridge/ecobridge-server/api/responses"
	"github.com/ecobridge/ecobridge-server/internal/auth"
	pkgAuth "github.com/ecobridge/ecobridge-server/pkg/auth"
	"github.com/ecobridge/ecobridge-server/pkg/auth/session"
	"github.com/ecobridge/ecobridge-server/pkg/config"
	"github.com/ecobridge/ecobridge-server/pkg/db"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
	pkgerrors "github.com/ecobridge/ecobridge-server/pkg/errors"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
)

// PrincipalLoader resolves the user bound to a session.
type PrincipalLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Sessions loads the visitor's session from the signed cookie, resolves the
// signed-in user and persists state changes before the response is written.
// Banned users with a live session are signed out here.
func Sessions(store session.Store, users PrincipalLoader, cfg config.SessionConfig, pages *responses.Pages, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			sess, err := loadSession(ctx, r, store, cfg)
			if err != nil {
				pages.Error(w, r, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session"))
				return
			}
			ctx = session.WithSession(ctx, sess)

			user, err := resolvePrincipal(ctx, sess, users, logg)
			if err != nil {
				pages.Error(w, r.WithContext(ctx), err)
				return
			}
			if user != nil {
				ctx = WithPrincipal(ctx, user)
				if logg != nil {
					ctx = logg.WithUserID(ctx, user.ID.String())
					ctx = logg.WithActorRole(ctx, user.Role.String())
				}
			}

			sw := &sessionWriter{ResponseWriter: w}
			sw.commit = func() { persistSession(ctx, w, sess, store, cfg, logg) }

			next.ServeHTTP(sw, r.WithContext(ctx))
			sw.flush()
		})
	}
}

func loadSession(ctx context.Context, r *http.Request, store session.Store, cfg config.SessionConfig) (*session.Session, error) {
	cookie, err := r.Cookie(cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return session.New(), nil
	}
	claims, err := pkgAuth.ParseSessionToken(cfg, cookie.Value)
	if err != nil {
		return session.New(), nil
	}
	state, err := store.Load(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return session.New(), nil
		}
		return nil, err
	}
	return session.Existing(claims.ID, state), nil
}

func resolvePrincipal(ctx context.Context, sess *session.Session, users PrincipalLoader, logg *logger.Logger) (*models.User, error) {
	if sess.State.UserID == "" {
		return nil, nil
	}
	id, err := uuid.Parse(sess.State.UserID)
	if err != nil {
		sess.State.SignOut()
		return nil, nil
	}
	user, err := users.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			sess.State.SignOut()
			sess.Renew()
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load session user")
	}
	if user.IsBanned {
		if logg != nil {
			logg.Warn(logg.WithUserID(ctx, user.ID.String()), "session.banned_user_signed_out")
		}
		sess.State.SignOut()
		sess.Renew()
		sess.State.Flash(session.FlashError, auth.BannedMessage)
		return nil, nil
	}
	return user, nil
}

func persistSession(ctx context.Context, w http.ResponseWriter, sess *session.Session, store session.Store, cfg config.SessionConfig, logg *logger.Logger) {
	if old := sess.Retired(); old != "" {
		if err := store.Destroy(ctx, old); err != nil && logg != nil {
			logg.Error(ctx, "session.destroy_failed", err)
		}
	}
	if !sess.State.Dirty() {
		return
	}
	if err := store.Save(ctx, sess.ID, sess.State); err != nil {
		if logg != nil {
			logg.Error(ctx, "session.save_failed", err)
		}
		return
	}
	if sess.NeedsCookie() {
		now := time.Now()
		token, err := pkgAuth.MintSessionToken(cfg, now, sess.ID)
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "session.token_failed", err)
			}
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     cfg.CookieName,
			Value:    token,
			Path:     "/",
			Expires:  now.Add(cfg.TTL()),
			MaxAge:   int(cfg.TTL().Seconds()),
			HttpOnly: true,
			Secure:   cfg.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	sess.MarkSaved()
}

// sessionWriter commits the session right before the first byte of the
// response, while headers can still carry a cookie.
type sessionWriter struct {
	http.ResponseWriter
	once   sync.Once
	commit func()
}

func (s *sessionWriter) flush() {
	s.once.Do(s.commit)
}

func (s *sessionWriter) WriteHeader(code int) {
	s.flush()
	s.ResponseWriter.WriteHeader(code)
}

func (s *sessionWriter) Write(b []byte) (int, error) {
	s.flush()
	return s.ResponseWriter.Write(b)
}

func (s *sessionWriter) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
