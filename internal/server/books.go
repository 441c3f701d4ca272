package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"bookshelf/internal/storage/books"
	"bookshelf/internal/storage/refs"
	"bookshelf/internal/types"
)

const defaultStatus = "Read"

func (a *api) listBooks(w http.ResponseWriter, r *http.Request) {
	rows, err := a.Books.Search(r.Context(), owner(r), books.ParseFilter(r.URL.Query()))
	if err != nil {
		a.rr.RespondAndLogError(w, r.Context(), err)
		return
	}

	if rows == nil {
		rows = make([]types.BookView, 0)
	}

	a.rr.SendJson(w, r.Context(), struct {
		Books []types.BookView `json:"books"`
	}{Books: rows})
}

func (a *api) getBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r, a.rr, "id")
	if !ok {
		return
	}

	book, err := a.Books.GetById(r.Context(), owner(r), id)
	if err != nil {
		a.rr.RespondAndLogError(w, r.Context(), err)
		return
	}

	if book == nil {
		a.rr.NotFound(w, r.Context(), "no such book in your collection")
		return
	}

	a.rr.SendJson(w, r.Context(), book)
}

type newBookPayload struct {
	Title             string  `json:"title" validate:"required,max=1000"`
	Isbn10            *string `json:"isbn10" validate:"omitempty,len=10"`
	Isbn13            *string `json:"isbn13" validate:"omitempty,len=13,numeric"`
	PublisherId       *int64  `json:"publisher_id" validate:"omitempty,gt=0"`
	TypeId            *int64  `json:"type_id" validate:"omitempty,gt=0"`
	LanguageId        *int64  `json:"language_id" validate:"omitempty,gt=0"`
	StatusId          *int64  `json:"status_id" validate:"omitempty,gt=0"`
	LibraryLocationId *int64  `json:"library_location_id" validate:"omitempty,gt=0"`
}

type refCheck struct {
	table refs.Table
	id    *int64
}

// checkRefs responds and returns false when one of the ids is not visible to owner.
func (a *api) checkRefs(ctx context.Context, w http.ResponseWriter, owner uuid.UUID, checks ...refCheck) bool {
	for _, c := range checks {
		if c.id == nil {
			continue
		}

		ok, err := a.Refs.Exists(ctx, c.table, owner, *c.id)
		if err != nil {
			a.rr.RespondAndLogError(w, ctx, err)
			return false
		}

		if !ok {
			a.rr.BadRequest(w, ctx, "unknown "+c.table.String())
			return false
		}
	}

	return true
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}

	v := strings.TrimSpace(*s)
	return &v
}

func (a *api) addBook(w http.ResponseWriter, r *http.Request) {
	var p newBookPayload
	if !a.decode(w, r, &p) {
		return
	}

	ctx := r.Context()
	user := owner(r)

	if !a.checkRefs(ctx, w, user,
		refCheck{refs.Publisher, p.PublisherId},
		refCheck{refs.Type, p.TypeId},
		refCheck{refs.Language, p.LanguageId},
		refCheck{refs.Status, p.StatusId},
		refCheck{refs.LibraryLocation, p.LibraryLocationId},
	) {
		return
	}

	if p.StatusId == nil {
		id, err := a.Refs.FindId(ctx, refs.Status, user, defaultStatus)
		if err != nil {
			a.rr.RespondAndLogError(w, ctx, err)
			return
		}
		if id != 0 {
			p.StatusId = &id
		}
	}

	book := &types.Book{
		UserId:            user,
		Title:             strings.TrimSpace(p.Title),
		Isbn10:            blankToNil(p.Isbn10),
		Isbn13:            blankToNil(p.Isbn13),
		PublisherId:       p.PublisherId,
		TypeId:            p.TypeId,
		LanguageId:        p.LanguageId,
		StatusId:          p.StatusId,
		LibraryLocationId: p.LibraryLocationId,
	}

	id, err := a.Books.Insert(ctx, book)
	if err != nil {
		if errors.Is(err, books.ErrDuplicateIsbn) {
			a.rr.Conflict(w, ctx, err.Error())
			return
		}
		a.rr.RespondAndLogError(w, ctx, err)
		return
	}

	a.rr.SendJsonStatus(w, ctx, http.StatusCreated, struct {
		Id int64 `json:"id"`
	}{Id: id})
}

type editBookPayload struct {
	Title             *string `json:"title" validate:"omitempty,max=1000"`
	Isbn10            *string `json:"isbn10" validate:"omitempty,len=10"`
	Isbn13            *string `json:"isbn13" validate:"omitempty,len=13,numeric"`
	StatusId          *int64  `json:"status_id" validate:"omitempty,gt=0"`
	LibraryLocationId *int64  `json:"library_location_id" validate:"omitempty,gt=0"`
}

// patch keeps only the filled fields.
func (p *editBookPayload) patch() books.Patch {
	patch := books.Patch{}

	if v := blankToNil(p.Title); v != nil {
		patch[books.ColTitle] = *v
	}
	if v := blankToNil(p.Isbn10); v != nil {
		patch[books.ColIsbn10] = *v
	}
	if v := blankToNil(p.Isbn13); v != nil {
		patch[books.ColIsbn13] = *v
	}
	if p.StatusId != nil {
		patch[books.ColStatus] = *p.StatusId
	}
	if p.LibraryLocationId != nil {
		patch[books.ColLibrary] = *p.LibraryLocationId
	}

	return patch
}

func (a *api) editBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r, a.rr, "id")
	if !ok {
		return
	}

	var p editBookPayload
	if !a.decode(w, r, &p) {
		return
	}

	ctx := r.Context()
	user := owner(r)

	patch := p.patch()
	if len(patch) == 0 {
		a.rr.BadRequest(w, ctx, "nothing to update")
		return
	}

	if !a.checkRefs(ctx, w, user,
		refCheck{refs.Status, p.StatusId},
		refCheck{refs.LibraryLocation, p.LibraryLocationId},
	) {
		return
	}

	n, err := a.Books.Patch(ctx, user, id, patch)
	if err != nil {
		if errors.Is(err, books.ErrDuplicateIsbn) {
			a.rr.Conflict(w, ctx, err.Error())
			return
		}
		a.rr.RespondAndLogError(w, ctx, err)
		return
	}

	if n == 0 {
		a.rr.NotFound(w, ctx, "no such book in your collection")
		return
	}

	a.rr.NoContent(w)
}

func (a *api) deleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r, a.rr, "id")
	if !ok {
		return
	}

	deleted, err := a.Books.Delete(r.Context(), owner(r), id)
	if err != nil {
		a.rr.RespondAndLogError(w, r.Context(), err)
		return
	}

	if !deleted {
		a.rr.NotFound(w, r.Context(), "no such book in your collection")
		return
	}

	a.rr.NoContent(w)
}

type linkFunc func(ctx context.Context, owner uuid.UUID, bookId, refId int64) (bool, error)

func (a *api) linker(table refs.Table, attach bool) linkFunc {
	switch {
	case table == refs.Author && attach:
		return a.Books.AttachAuthor
	case table == refs.Author:
		return a.Books.DetachAuthor
	case attach:
		return a.Books.AttachLabel
	}

	return a.Books.DetachLabel
}

func (a *api) link(table refs.Table, attach bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookId, ok := pathId(w, r, a.rr, "id")
		if !ok {
			return
		}

		refId, ok := pathId(w, r, a.rr, "refId")
		if !ok {
			return
		}

		done, err := a.linker(table, attach)(r.Context(), owner(r), bookId, refId)
		if err != nil {
			a.rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		if !done {
			a.rr.NotFound(w, r.Context(), "no such book or "+table.String()+" in your collection")
			return
		}

		a.rr.NoContent(w)
	}
}

func (a *api) attach(table refs.Table) http.HandlerFunc {
	return a.link(table, true)
}

func (a *api) detach(table refs.Table) http.HandlerFunc {
	return a.link(table, false)
}
