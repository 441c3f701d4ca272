package server

import (
	"net/http"

	"bookshelf/internal/listing"
	"bookshelf/internal/storage/authors"
	"bookshelf/internal/storage/countries"
	"bookshelf/internal/storage/publishers"
	"bookshelf/internal/types"
)

func (a *api) listAuthors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	rows, err := a.Authors.GetFiltered(r.Context(), owner(r), authors.Filter{
		Continent: q.Get("continent"),
		Country:   q.Get("country"),
		Library:   q.Get("library"),
		Types:     getMulti("type", q),
	})
	if err != nil {
		a.rr.RespondAndLogError(w, r.Context(), err)
		return
	}

	// role=author keeps writers, role=translator keeps translators
	switch q.Get("role") {
	case "author":
		rows = keep(rows, func(s types.AuthorStats) bool { return s.IsAuthor })
	case "translator":
		rows = keep(rows, func(s types.AuthorStats) bool { return s.IsTranslator })
	}

	rows = listing.FilterAndSort(rows, listing.Authors, listing.ParseQuery(q, "created_at", true), "name", "country")

	a.rr.SendJson(w, r.Context(), struct {
		Authors []types.AuthorStats `json:"authors"`
	}{Authors: rows})
}

func (a *api) listPublishers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	rows, err := a.Publishers.GetFiltered(r.Context(), owner(r), publishers.Filter{
		Library:   q.Get("library"),
		Country:   q.Get("country"),
		Continent: q.Get("continent"),
	})
	if err != nil {
		a.rr.RespondAndLogError(w, r.Context(), err)
		return
	}

	rows = listing.FilterAndSort(rows, listing.Publishers, listing.ParseQuery(q, "name", false), "name", "country")

	a.rr.SendJson(w, r.Context(), struct {
		Publishers []types.PublisherStats `json:"publishers"`
	}{Publishers: rows})
}

func countryFilter(r *http.Request) countries.Filter {
	q := r.URL.Query()

	return countries.Filter{
		Continent: q.Get("continent"),
		Library:   q.Get("library"),
		Status:    q.Get("status"),
		Types:     getMulti("type", q),
	}
}

func (a *api) listCountries(w http.ResponseWriter, r *http.Request) {
	rows, err := a.Countries.GetFiltered(r.Context(), owner(r), countryFilter(r))
	if err != nil {
		a.rr.RespondAndLogError(w, r.Context(), err)
		return
	}

	rows = listing.FilterAndSort(rows, listing.Countries, listing.ParseQuery(r.URL.Query(), "name", false),
		"name", "alt_group")

	a.rr.SendJson(w, r.Context(), struct {
		Countries []types.CountryStats `json:"countries"`
	}{Countries: rows})
}

func (a *api) continentStats(w http.ResponseWriter, r *http.Request) {
	rows, err := a.Countries.GetStats(r.Context(), owner(r), countryFilter(r))
	if err != nil {
		a.rr.RespondAndLogError(w, r.Context(), err)
		return
	}

	if rows == nil {
		rows = make([]types.ContinentStats, 0)
	}

	a.rr.SendJson(w, r.Context(), struct {
		Continents []types.ContinentStats `json:"continents"`
	}{Continents: rows})
}

func keep[T any](rows []T, pred func(T) bool) []T {
	ret := make([]T, 0, len(rows))
	for _, row := range rows {
		if pred(row) {
			ret = append(ret, row)
		}
	}

	return ret
}
