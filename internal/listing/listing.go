// Package listing searches and sorts aggregated rows in memory.
package listing

import (
	"cmp"
	"net/url"
	"slices"
	"strings"
	"time"

	"bookshelf/internal/types"
)

// Columns maps a column name to the accessor of its value. Values may be strings, integers, floats,
// booleans, times or pointers to any of those; nil pointers sort last in both directions.
type Columns[T any] map[string]func(T) any

type Query struct {
	Search string
	Sort   string
	Desc   bool
}

// ParseQuery reads search, sort and order parameters. An empty sort falls back to def.
func ParseQuery(q url.Values, def string, defDesc bool) Query {
	ret := Query{
		Search: strings.TrimSpace(q.Get("search")),
		Sort:   strings.TrimSpace(q.Get("sort")),
		Desc:   defDesc,
	}

	if ret.Sort == "" {
		ret.Sort = def
	}

	switch strings.ToLower(q.Get("order")) {
	case "asc":
		ret.Desc = false
	case "desc":
		ret.Desc = true
	}

	return ret
}

func deref(v any) (any, bool) {
	switch v := v.(type) {
	case nil:
		return nil, false
	case *string:
		if v == nil {
			return nil, false
		}
		return *v, true
	case *int64:
		if v == nil {
			return nil, false
		}
		return *v, true
	case *float64:
		if v == nil {
			return nil, false
		}
		return *v, true
	}

	return v, true
}

func text(v any) string {
	v, ok := deref(v)
	if !ok {
		return ""
	}

	if s, ok := v.(string); ok {
		return s
	}

	return ""
}

func compare(a, b any) int {
	switch a := a.(type) {
	case string:
		b, _ := b.(string)
		return cmp.Compare(strings.ToLower(a), strings.ToLower(b))
	case int64:
		b, _ := b.(int64)
		return cmp.Compare(a, b)
	case int:
		b, _ := b.(int)
		return cmp.Compare(a, b)
	case float64:
		b, _ := b.(float64)
		return cmp.Compare(a, b)
	case bool:
		b, _ := b.(bool)
		switch {
		case a == b:
			return 0
		case !a:
			return -1
		}
		return 1
	case time.Time:
		b, _ := b.(time.Time)
		return a.Compare(b)
	}

	return 0
}

// FilterAndSort keeps the items whose searchIn columns contain q.Search (case-insensitive) and sorts
// them by q.Sort. Unknown sort columns keep the input order.
func FilterAndSort[T any](items []T, cols Columns[T], q Query, searchIn ...string) []T {
	ret := make([]T, 0, len(items))

	needle := strings.ToLower(q.Search)
	for _, item := range items {
		if needle == "" {
			ret = append(ret, item)
			continue
		}

		for _, col := range searchIn {
			get, ok := cols[col]
			if ok && strings.Contains(strings.ToLower(text(get(item))), needle) {
				ret = append(ret, item)
				break
			}
		}
	}

	get, ok := cols[q.Sort]
	if !ok {
		return ret
	}

	slices.SortStableFunc(ret, func(x, y T) int {
		a, aok := deref(get(x))
		b, bok := deref(get(y))

		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return 1
		case !bok:
			return -1
		}

		c := compare(a, b)
		if q.Desc {
			c = -c
		}
		return c
	})

	return ret
}

var Authors = Columns[types.AuthorStats]{
	"name":          func(a types.AuthorStats) any { return a.Name },
	"country":       func(a types.AuthorStats) any { return a.Country },
	"continent":     func(a types.AuthorStats) any { return a.Continent },
	"books":         func(a types.AuthorStats) any { return a.Books },
	"translations":  func(a types.AuthorStats) any { return a.Translations },
	"is_author":     func(a types.AuthorStats) any { return a.IsAuthor },
	"is_translator": func(a types.AuthorStats) any { return a.IsTranslator },
	"created_at":    func(a types.AuthorStats) any { return a.CreatedAt },
}

var Publishers = Columns[types.PublisherStats]{
	"name":    func(p types.PublisherStats) any { return p.Name },
	"country": func(p types.PublisherStats) any { return p.Country },
	"books":   func(p types.PublisherStats) any { return p.Books },
}

var Countries = Columns[types.CountryStats]{
	"name":             func(c types.CountryStats) any { return c.Name },
	"continent":        func(c types.CountryStats) any { return c.Continent },
	"alt_group":        func(c types.CountryStats) any { return c.AltGroup },
	"status":           func(c types.CountryStats) any { return c.Status },
	"books":            func(c types.CountryStats) any { return c.Books },
	"authors":          func(c types.CountryStats) any { return c.Authors },
	"population_share": func(c types.CountryStats) any { return c.PopulationShare },
}
