// Package export renders book listings as CSV files and OPDS catalogs.
package export

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"bookshelf/internal/types"
)

const bom = "\ufeff"

type column struct {
	name   string
	ingest string // header understood by the import pipeline, "" when the column cannot be imported
	value  func(b *types.BookView) string
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func number(i *int32) string {
	if i == nil {
		return ""
	}
	return strconv.FormatInt(int64(*i), 10)
}

var columns = []column{
	{"id", "", func(b *types.BookView) string { return strconv.FormatInt(b.Id, 10) }},
	{"title", "title", func(b *types.BookView) string { return b.Title }},
	{"original_title", "originaltitle", func(b *types.BookView) string { return text(b.OriginalTitle) }},
	{"creators", "author", func(b *types.BookView) string { return text(b.Creators) }},
	{"isbn10", "isbn10", func(b *types.BookView) string { return text(b.Isbn10) }},
	{"isbn13", "isbn13", func(b *types.BookView) string { return text(b.Isbn13) }},
	{"publisher", "publisher", func(b *types.BookView) string { return text(b.Publisher) }},
	{"country", "country", func(b *types.BookView) string { return text(b.Country) }},
	{"language", "language", func(b *types.BookView) string { return text(b.Language) }},
	{"original_language", "originallanguage", func(b *types.BookView) string { return text(b.OriginalLanguage) }},
	{"type", "type", func(b *types.BookView) string { return text(b.Type) }},
	{"group", "group", func(b *types.BookView) string { return text(b.Group) }},
	{"translator", "translator", func(b *types.BookView) string { return text(b.Translator) }},
	{"labels", "labels", func(b *types.BookView) string { return text(b.Labels) }},
	{"status", "status", func(b *types.BookView) string { return text(b.Status) }},
	{"library", "library", func(b *types.BookView) string { return text(b.Library) }},
	{"publication_year", "publicationyear", func(b *types.BookView) string { return number(b.PublicationYear) }},
	{"original_publication_year", "originalpublicationyear", func(b *types.BookView) string { return number(b.OriginalPublicationYear) }},
	{"num_pages", "numpages", func(b *types.BookView) string { return number(b.NumPages) }},
	{"notes", "notes", func(b *types.BookView) string { return text(b.Notes) }},
	{"date_added", "", func(b *types.BookView) string { return b.DateAdded.UTC().Format(time.RFC3339) }},
}

// The listing joins authors and their countries with ", ", while import takes a single author.
// Import-compatible files carry the first author, and the country only when it is unambiguous.
var ingestValues = map[string]func(b *types.BookView) string{
	"author": func(b *types.BookView) string {
		first, _, _ := strings.Cut(text(b.Creators), ", ")
		return first
	},
	"country": func(b *types.BookView) string {
		if c := text(b.Country); !strings.Contains(c, ", ") {
			return c
		}
		return ""
	},
}

type CSVOptions struct {
	// IngestHeaders writes only the importable columns, named the way the import pipeline expects them.
	IngestHeaders bool
}

// Filename is the attachment name of an export made at now.
func Filename(now time.Time) string {
	return "books_export_" + now.Format("2006-01-02") + ".csv"
}

// WriteCSV writes a BOM, a header and one line per book. Every field is quoted.
func WriteCSV(w io.Writer, rows []types.BookView, opts CSVOptions) error {
	bw := bufio.NewWriter(w)

	cols := make([]column, 0, len(columns))
	header := make([]string, 0, len(columns))
	for _, c := range columns {
		if !opts.IngestHeaders {
			cols = append(cols, c)
			header = append(header, c.name)
		} else if c.ingest != "" {
			if v, ok := ingestValues[c.ingest]; ok {
				c.value = v
			}
			cols = append(cols, c)
			header = append(header, c.ingest)
		}
	}

	if _, err := bw.WriteString(bom); err != nil {
		return err
	}

	if err := writeLine(bw, header); err != nil {
		return err
	}

	fields := make([]string, len(cols))
	for i := range rows {
		for j, c := range cols {
			fields[j] = c.value(&rows[i])
		}

		if err := writeLine(bw, fields); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func writeLine(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}

		if _, err := w.WriteString(`"` + strings.ReplaceAll(f, `"`, `""`) + `"`); err != nil {
			return err
		}
	}

	_, err := w.WriteString("\r\n")
	return err
}
