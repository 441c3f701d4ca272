package server

import (
	"errors"
	"net/http"

	"bookshelf/internal/auth"
)

type signInPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (a *api) signIn(w http.ResponseWriter, r *http.Request) {
	var p signInPayload
	if !a.decode(w, r, &p) {
		return
	}

	signed, err := a.Auth.SignIn(r.Context(), p.Email, p.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		a.rr.Unauthorized(w, r.Context(), err.Error())
		return
	case errors.Is(err, auth.ErrTooManyAttempts):
		a.rr.RespondClientError(w, r.Context(), http.StatusTooManyRequests, err.Error())
		return
	case err != nil:
		a.rr.RespondAndLogError(w, r.Context(), err)
		return
	}

	a.rr.SendJson(w, r.Context(), signed)
}

func (a *api) session(w http.ResponseWriter, r *http.Request) {
	sess, err := a.Auth.Session(r.Context(), principal(r))
	if err != nil {
		a.rr.RespondAndLogError(w, r.Context(), err)
		return
	}

	a.rr.SendJson(w, r.Context(), sess)
}

func (a *api) signOut(w http.ResponseWriter, r *http.Request) {
	if err := a.Auth.SignOut(r.Context(), principal(r)); err != nil {
		a.rr.RespondAndLogError(w, r.Context(), err)
		return
	}

	a.rr.NoContent(w)
}

func (a *api) me(w http.ResponseWriter, r *http.Request) {
	u, err := a.Auth.CurrentUser(r.Context(), principal(r))
	if err != nil {
		a.rr.RespondAndLogError(w, r.Context(), err)
		return
	}

	a.rr.SendJson(w, r.Context(), u)
}
