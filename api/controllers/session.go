package controllers

import (
	"fmt"
	"net/http"

	"github.com/ecobridge/ecobridge-server/api/responses"
	"github.com/ecobridge/ecobridge-server/api/validators"
	"github.com/ecobridge/ecobridge-server/internal/auth"
	"github.com/ecobridge/ecobridge-server/pkg/auth/session"
	pkgerrors "github.com/ecobridge/ecobridge-server/pkg/errors"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
	"github.com/ecobridge/ecobridge-server/pkg/render"
)

const (
	homePath       = "/home"
	loginPath      = "/login"
	signupPath     = "/signup"
	welcomeMessage = "Welcome to EcoBridge!"
	farewellNotice = "Thank you for visiting us. Have a nice day!"
	maxUsernameLen = 64
)

// LoginForm renders the login page.
func LoginForm(pages *responses.Pages) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pages.Render(w, r, http.StatusOK, render.ViewLogin, nil)
	}
}

// Login authenticates the submitted credentials. A banned account gets the
// login form back with the ban notice; its password is never checked.
func Login(svc auth.Service, pages *responses.Pages, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			pages.Error(w, r, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeForm(r, &body); err != nil {
			pages.Fail(w, r, err, loginPath)
			return
		}

		user, err := svc.Login(r.Context(), body)
		if err != nil {
			typed := pkgerrors.As(err)
			switch {
			case typed != nil && typed.Code() == pkgerrors.CodeForbidden:
				if sess := session.FromContext(r.Context()); sess != nil {
					sess.State.Flash(session.FlashError, responses.PublicMessage(typed))
				}
				pages.Render(w, r, http.StatusOK, render.ViewLogin, map[string]any{
					"Username": validators.SanitizeString(body.Username, maxUsernameLen),
				})
			case typed != nil && typed.Code() == pkgerrors.CodeUnauthorized:
				responses.RedirectWithFlash(w, r, session.FlashError, responses.PublicMessage(typed), loginPath)
			default:
				pages.Fail(w, r, err, loginPath)
			}
			return
		}

		target := signIn(r, user.ID.String(), fmt.Sprintf("Hi %s, now you're all set to explore!", user.Username))
		if logg != nil {
			logg.Info(logg.WithUserID(r.Context(), user.ID.String()), "auth.login")
		}
		responses.Redirect(w, r, target)
	}
}

// SignupForm renders the signup page.
func SignupForm(pages *responses.Pages) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pages.Render(w, r, http.StatusOK, render.ViewSignup, nil)
	}
}

// Signup registers a user or ngo account and signs it in.
func Signup(svc auth.Service, pages *responses.Pages, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			pages.Error(w, r, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.SignupRequest
		if err := validators.DecodeForm(r, &body); err != nil {
			pages.Fail(w, r, err, signupPath)
			return
		}

		user, err := svc.Signup(r.Context(), body)
		if err != nil {
			pages.Fail(w, r, err, signupPath)
			return
		}

		target := signIn(r, user.ID.String(), welcomeMessage)
		if logg != nil {
			logg.Info(logg.WithUserID(r.Context(), user.ID.String()), "auth.signup")
		}
		responses.Redirect(w, r, target)
	}
}

// Logout ends the session and says goodbye.
func Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sess := session.FromContext(r.Context()); sess != nil {
			sess.State.SignOut()
			sess.Renew()
		}
		responses.RedirectWithFlash(w, r, session.FlashSuccess, farewellNotice, homePath)
	}
}

// signIn binds the user to a fresh session id and returns the pending
// redirect target, consuming it.
func signIn(r *http.Request, userID, greeting string) string {
	sess := session.FromContext(r.Context())
	if sess == nil {
		return homePath
	}
	sess.State.SignIn(userID)
	sess.Renew()
	sess.State.Flash(session.FlashSuccess, greeting)
	return sess.State.TakeRedirect(homePath)
}
