package books

import (
	"net/url"
	"strings"
)

type SortField string

const (
	SortTitle           SortField = "title"
	SortDateAdded       SortField = "date_added"
	SortPublicationYear SortField = "publication_year"
)

// Filter narrows a book listing. Empty fields do not filter.
type Filter struct {
	Country   string // substring
	Library   string
	Author    string // substring of the creators list
	Publisher string
	Language  string
	Type      string
	Status    string
	Label     string // substring of the labels list
	Search    string // substring of title, either ISBN or creators
	Sort      SortField
	Desc      bool
}

// ParseFilter reads a Filter from query parameters. Unknown sort fields fall back to the title.
func ParseFilter(q url.Values) Filter {
	f := Filter{
		Country:   strings.TrimSpace(q.Get("country")),
		Library:   strings.TrimSpace(q.Get("library")),
		Author:    strings.TrimSpace(q.Get("author")),
		Publisher: strings.TrimSpace(q.Get("publisher")),
		Language:  strings.TrimSpace(q.Get("language")),
		Type:      strings.TrimSpace(q.Get("type")),
		Status:    strings.TrimSpace(q.Get("status")),
		Label:     strings.TrimSpace(q.Get("label")),
		Search:    strings.TrimSpace(q.Get("search")),
		Sort:      SortTitle,
		Desc:      strings.EqualFold(q.Get("order"), "desc"),
	}

	switch s := SortField(strings.ToLower(q.Get("sort"))); s {
	case SortDateAdded, SortPublicationYear:
		f.Sort = s
	}

	return f
}
