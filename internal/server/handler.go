package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"bookshelf/internal/auth"
	"bookshelf/internal/ingest"
	"bookshelf/internal/response"
	"bookshelf/internal/storage/authors"
	"bookshelf/internal/storage/books"
	"bookshelf/internal/storage/countries"
	"bookshelf/internal/storage/publishers"
	"bookshelf/internal/storage/refs"
	"bookshelf/internal/storage/runs"
)

// Deps are the services behind the API. Handlers only touch the ones their routes need.
type Deps struct {
	Auth       *auth.Service
	Books      books.Repository
	Refs       refs.Repository
	Authors    authors.Repository
	Publishers publishers.Repository
	Countries  countries.Repository
	Runs       runs.Repository
	Ingest     *ingest.Service

	MaxUploadBytes int64
}

type api struct {
	Deps
	rr       *response.Responder
	validate *validator.Validate
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

func Handler(deps Deps, rr *response.Responder) http.Handler {
	a := &api{Deps: deps, rr: rr, validate: newValidator()}

	r := chi.NewRouter()

	r.Post("/auth/sign-in", a.signIn)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(deps.Auth, rr))

		r.Get("/auth/session", a.session)
		r.Post("/auth/sign-out", a.signOut)
		r.Get("/auth/me", a.me)

		r.Get("/books", a.listBooks)
		r.Post("/books", a.addBook)
		r.Get("/books/export.csv", a.exportCSV)
		r.Get("/books/export.opds", a.exportOPDS)
		r.Post("/books/import", a.importBooks)
		r.Post("/books/update", a.updateBooks)
		r.Get("/books/{id}", a.getBook)
		r.Patch("/books/{id}", a.editBook)
		r.Delete("/books/{id}", a.deleteBook)
		r.Put("/books/{id}/authors/{refId}", a.attach(refs.Author))
		r.Delete("/books/{id}/authors/{refId}", a.detach(refs.Author))
		r.Put("/books/{id}/labels/{refId}", a.attach(refs.Label))
		r.Delete("/books/{id}/labels/{refId}", a.detach(refs.Label))

		r.Get("/imports", a.listRuns)

		r.Get("/authors", a.listAuthors)
		r.Get("/publishers", a.listPublishers)
		r.Get("/countries", a.listCountries)
		r.Get("/stats/continents", a.continentStats)

		r.Get("/refs/{table}", a.listRefs)
		r.Post("/refs/{table}", a.createRef)
		r.Patch("/refs/{table}/{id}", a.updateRef)
		r.Delete("/refs/{table}/{id}", a.deleteRef)
	})

	return r
}

// owner is only called behind auth.Middleware.
func owner(r *http.Request) uuid.UUID {
	p, _ := auth.FromContext(r.Context())
	return p.UserId
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

// decode reads a JSON body into dst and validates it. It responds itself and returns false on failure.
func (a *api) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		a.rr.BadRequest(w, r.Context(), "malformed request body: "+err.Error())
		return false
	}

	if err := a.validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fmt.Sprintf("%s failed the %q check", fe.Field(), fe.Tag()))
			}
			a.rr.BadRequest(w, r.Context(), strings.Join(msgs, "; "))
			return false
		}

		a.rr.RespondAndLogError(w, r.Context(), err)
		return false
	}

	return true
}

func pathId(w http.ResponseWriter, r *http.Request, rr *response.Responder, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		rr.BadRequest(w, r.Context(), key+" must be a positive integer")
		return 0, false
	}

	return id, true
}

func getIntOrDefault(key string, q url.Values, default_ int) int {
	if ls := q.Get(key); ls != "" {
		limit, err := strconv.Atoi(ls)
		if err == nil {
			return limit
		}
	}

	return default_
}

// getMulti accepts both repeated and comma separated values.
func getMulti(key string, q url.Values) []string {
	raw, ok := q[key]
	if !ok {
		return nil
	}

	vals := make([]string, 0, len(raw))
	for _, val := range raw {
		for _, part := range strings.Split(val, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				vals = append(vals, part)
			}
		}
	}

	return vals
}
