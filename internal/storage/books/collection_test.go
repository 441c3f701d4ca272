package books

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFilter(t *testing.T) {
	q := url.Values{}
	q.Set("country", " Poland ")
	q.Set("status", "Read")
	q.Set("search", "978")
	q.Set("sort", "DATE_ADDED")
	q.Set("order", "desc")

	f := ParseFilter(q)

	assert.Equal(t, Filter{
		Country: "Poland",
		Status:  "Read",
		Search:  "978",
		Sort:    SortDateAdded,
		Desc:    true,
	}, f)
}

func TestParseFilterDefaults(t *testing.T) {
	f := ParseFilter(url.Values{"sort": {"isbn; drop table book"}})

	assert.Equal(t, SortTitle, f.Sort)
	assert.False(t, f.Desc)
	assert.Empty(t, f.Library)
}
