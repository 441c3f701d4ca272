package export

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/opds-community/libopds2-go/opds1"

	"bookshelf/internal/types"
)

const (
	linkTypeAcquisition = "application/atom+xml;profile=opds-catalog;kind=acquisition"
	linkTypeBook        = "application/json"
)

type FeedOptions struct {
	// BaseURL prefixes entry links, e.g. "https://example.org/api".
	BaseURL string
	Title   string
}

func split(s *string) []string {
	if s == nil {
		return nil
	}

	var ret []string
	for _, part := range strings.Split(*s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ret = append(ret, part)
		}
	}

	return ret
}

// Feed builds an OPDS 1 acquisition feed with one entry per book.
func Feed(rows []types.BookView, opts FeedOptions) *opds1.Feed {
	base := strings.TrimSuffix(opts.BaseURL, "/")

	feed := &opds1.Feed{
		ID:    "urn:bookshelf:books",
		Title: opts.Title,
		Links: []opds1.Link{{Rel: "self", Href: base + "/books/export.opds", TypeLink: linkTypeAcquisition}},
	}

	for i := range rows {
		b := &rows[i]
		id := strconv.FormatInt(b.Id, 10)

		entry := opds1.Entry{
			ID:       "urn:bookshelf:book:" + id,
			Title:    b.Title,
			Language: text(b.Language),
			Issued:   number(b.PublicationYear),
			Links:    []opds1.Link{{Rel: "alternate", Href: base + "/books/" + id, TypeLink: linkTypeBook}},
		}

		for _, name := range split(b.Creators) {
			entry.Author = append(entry.Author, opds1.Author{Name: name})
		}

		for _, label := range split(b.Labels) {
			entry.Category = append(entry.Category, opds1.Category{Term: label})
		}
		if b.Type != nil {
			entry.Category = append(entry.Category, opds1.Category{Term: *b.Type})
		}

		entry.Content.Content = text(b.Notes)

		feed.Entries = append(feed.Entries, entry)
	}

	return feed
}

func WriteOPDS(w io.Writer, rows []types.BookView, opts FeedOptions) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(Feed(rows, opts)); err != nil {
		return err
	}

	return enc.Flush()
}
