package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"bookshelf/internal/storage/refs"
	"bookshelf/internal/types"
)

func (a *api) table(w http.ResponseWriter, r *http.Request, writable bool) (refs.Table, bool) {
	t, err := refs.ParseTable(chi.URLParam(r, "table"))
	if err != nil {
		a.rr.NotFound(w, r.Context(), err.Error())
		return 0, false
	}

	if writable && !t.UserScoped() {
		a.rr.RespondClientError(w, r.Context(), http.StatusForbidden, refs.ErrReadOnly.Error())
		return 0, false
	}

	return t, true
}

func (a *api) refError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, refs.ErrDuplicate), errors.Is(err, refs.ErrInUse):
		a.rr.Conflict(w, r.Context(), err.Error())
	default:
		a.rr.RespondAndLogError(w, r.Context(), err)
	}
}

func (a *api) listRefs(w http.ResponseWriter, r *http.Request) {
	t, ok := a.table(w, r, false)
	if !ok {
		return
	}

	rows, err := a.Refs.List(r.Context(), t, owner(r))
	if err != nil {
		a.rr.RespondAndLogError(w, r.Context(), err)
		return
	}

	if rows == nil {
		rows = make([]types.Reference, 0)
	}

	a.rr.SendJson(w, r.Context(), struct {
		Items []types.Reference `json:"items"`
	}{Items: rows})
}

type refPayload struct {
	Name      string `json:"name" validate:"required,max=500"`
	CountryId *int64 `json:"country_id" validate:"omitempty,gt=0"`
}

func (a *api) createRef(w http.ResponseWriter, r *http.Request) {
	t, ok := a.table(w, r, true)
	if !ok {
		return
	}

	var p refPayload
	if !a.decode(w, r, &p) {
		return
	}

	if strings.TrimSpace(p.Name) == "" {
		a.rr.BadRequest(w, r.Context(), "name cannot be blank")
		return
	}

	if t == refs.Author && !a.checkRefs(r.Context(), w, owner(r), refCheck{refs.Country, p.CountryId}) {
		return
	}

	ref, err := a.Refs.Create(r.Context(), t, refs.NewRef{Name: p.Name, Owner: owner(r), CountryId: p.CountryId})
	if err != nil {
		a.refError(w, r, err)
		return
	}

	a.rr.SendJsonStatus(w, r.Context(), http.StatusCreated, ref)
}

type refPatchPayload struct {
	Name      *string `json:"name" validate:"omitempty,max=500"`
	CountryId *int64  `json:"country_id" validate:"omitempty,gt=0"`
}

func (a *api) updateRef(w http.ResponseWriter, r *http.Request) {
	t, ok := a.table(w, r, true)
	if !ok {
		return
	}

	id, ok := pathId(w, r, a.rr, "id")
	if !ok {
		return
	}

	var p refPatchPayload
	if !a.decode(w, r, &p) {
		return
	}

	patch := refs.Patch{Name: blankToNil(p.Name)}
	if t == refs.Author {
		if !a.checkRefs(r.Context(), w, owner(r), refCheck{refs.Country, p.CountryId}) {
			return
		}
		patch.CountryId = p.CountryId
	}

	if patch.Name == nil && patch.CountryId == nil {
		a.rr.BadRequest(w, r.Context(), "nothing to update")
		return
	}

	updated, err := a.Refs.Update(r.Context(), t, owner(r), id, patch)
	if err != nil {
		a.refError(w, r, err)
		return
	}

	if !updated {
		a.rr.NotFound(w, r.Context(), "no such "+t.String())
		return
	}

	a.rr.NoContent(w)
}

func (a *api) deleteRef(w http.ResponseWriter, r *http.Request) {
	t, ok := a.table(w, r, true)
	if !ok {
		return
	}

	id, ok := pathId(w, r, a.rr, "id")
	if !ok {
		return
	}

	deleted, err := a.Refs.Delete(r.Context(), t, owner(r), id)
	if err != nil {
		a.refError(w, r, err)
		return
	}

	if !deleted {
		a.rr.NotFound(w, r.Context(), "no such "+t.String())
		return
	}

	a.rr.NoContent(w)
}
