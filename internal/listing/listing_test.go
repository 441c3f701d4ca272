package listing

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bookshelf/internal/types"
)

func names[T any](items []T, name func(T) string) []string {
	ret := make([]string, 0, len(items))
	for _, it := range items {
		ret = append(ret, name(it))
	}
	return ret
}

func str(s string) *string { return &s }

func TestFilterAndSortAuthors(t *testing.T) {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	authors := []types.AuthorStats{
		{Name: "Stanisław Lem", Country: str("Poland"), Books: 7, CreatedAt: day},
		{Name: "olga Tokarczuk", Country: str("Poland"), Books: 2, CreatedAt: day.Add(time.Hour)},
		{Name: "Ursula K. Le Guin", Books: 4, CreatedAt: day.Add(2 * time.Hour)},
		{Name: "Ted Chiang", Country: str("United States"), Books: 1, IsTranslator: true, CreatedAt: day},
	}
	byName := func(a types.AuthorStats) string { return a.Name }

	got := FilterAndSort(authors, Authors, Query{Search: "POL", Sort: "name"}, "name", "country")
	assert.Equal(t, []string{"olga Tokarczuk", "Stanisław Lem"}, names(got, byName))

	got = FilterAndSort(authors, Authors, Query{Sort: "books", Desc: true})
	assert.Equal(t, []string{"Stanisław Lem", "Ursula K. Le Guin", "olga Tokarczuk", "Ted Chiang"}, names(got, byName))

	// missing countries go last either way
	got = FilterAndSort(authors, Authors, Query{Sort: "country", Desc: true})
	assert.Equal(t, "Ted Chiang", got[0].Name)
	assert.Equal(t, "Ursula K. Le Guin", got[3].Name)

	got = FilterAndSort(authors, Authors, Query{Sort: "created_at", Desc: true})
	assert.Equal(t, "Ursula K. Le Guin", got[0].Name)

	got = FilterAndSort(authors, Authors, Query{Sort: "shoe_size"})
	assert.Equal(t, names(authors, byName), names(got, byName))

	got = FilterAndSort(authors, Authors, Query{Search: "nobody"}, "name")
	assert.Empty(t, got)
}

func TestFilterAndSortCountries(t *testing.T) {
	share := func(f float64) *float64 { return &f }
	countries := []types.CountryStats{
		{Name: "Poland", PopulationShare: share(0.47)},
		{Name: "Nigeria", PopulationShare: share(2.78)},
		{Name: "Atlantis"},
	}

	got := FilterAndSort(countries, Countries, Query{Sort: "population_share", Desc: true})
	assert.Equal(t, []string{"Nigeria", "Poland", "Atlantis"}, names(got, func(c types.CountryStats) string { return c.Name }))
}

func TestParseQuery(t *testing.T) {
	q := ParseQuery(url.Values{"search": {" lem "}, "order": {"ASC"}}, "created_at", true)
	assert.Equal(t, Query{Search: "lem", Sort: "created_at", Desc: false}, q)

	q = ParseQuery(url.Values{"sort": {"books"}}, "created_at", true)
	assert.Equal(t, Query{Sort: "books", Desc: true}, q)
}
