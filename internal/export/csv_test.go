package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/internal/ingest"
	"bookshelf/internal/types"
)

func ptr[T any](v T) *T { return &v }

func sample() []types.BookView {
	added := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	return []types.BookView{
		{
			Id:              1,
			Title:           `The "Cyberiad"`,
			Creators:        ptr("Stanisław Lem"),
			Isbn13:          ptr("9780156027595"),
			Country:         ptr("Poland"),
			Language:        ptr("English"),
			Labels:          ptr("fables, robots"),
			Status:          ptr("Read"),
			Library:         ptr("Home"),
			PublicationYear: ptr(int32(1965)),
			NumPages:        ptr(int32(295)),
			Notes:           ptr("line one\nline two"),
			DateAdded:       added,
		},
		{
			Id:        2,
			Title:     "Solaris",
			Language:  ptr("Polish"),
			Status:    ptr("Owned"),
			Library:   ptr("Home"),
			DateAdded: added,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample(), CSVOptions{}))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\ufeff"))

	lines := strings.Split(strings.TrimPrefix(out, "\ufeff"), "\r\n")
	assert.Equal(t, `"id","title","original_title","creators","isbn10","isbn13","publisher","country","language",`+
		`"original_language","type","group","translator","labels","status","library","publication_year",`+
		`"original_publication_year","num_pages","notes","date_added"`, lines[0])
	assert.Equal(t, `"2","Solaris","","","","","","","Polish","","","","","","Owned","Home","","","","","2025-03-14T09:26:53Z"`,
		lines[2])
	assert.Contains(t, out, `"The ""Cyberiad"""`)
	assert.Contains(t, out, "\"line one\nline two\"")
}

func TestWriteCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample(), CSVOptions{IngestHeaders: true}))

	sheet, err := ingest.ReadSheet(&buf)
	require.NoError(t, err)
	require.NoError(t, sheet.Require(ingest.RequiredColumns...))
	assert.NotContains(t, sheet.Header, "id")
	assert.NotContains(t, sheet.Header, "date_added")

	require.Len(t, sheet.Rows, 2)
	row := sheet.Rows[0]
	assert.Equal(t, 1, row.N)
	assert.Equal(t, `The "Cyberiad"`, row.Value("title"))
	assert.Equal(t, "Stanisław Lem", row.Value("author"))
	assert.Equal(t, "1965", row.Value("publicationyear"))
	assert.Equal(t, "fables, robots", row.Value("labels"))
	assert.Equal(t, "line one\nline two", row.Raw("notes"))
	assert.Equal(t, "", sheet.Rows[1].Value("isbn13"))
}

func TestWriteCSVIngestHeadersSingleAuthor(t *testing.T) {
	books := []types.BookView{
		{Id: 1, Title: "Good Omens", Creators: ptr("Neil Gaiman, Terry Pratchett"), Country: ptr("United Kingdom")},
		{Id: 2, Title: "Roadside Picnic", Creators: ptr("Arkady Strugatsky, Boris Strugatsky"),
			Country: ptr("Russia, Soviet Union")},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, books, CSVOptions{IngestHeaders: true}))

	sheet, err := ingest.ReadSheet(&buf)
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "Neil Gaiman", sheet.Rows[0].Value("author"))
	assert.Equal(t, "United Kingdom", sheet.Rows[0].Value("country"))
	assert.Equal(t, "Arkady Strugatsky", sheet.Rows[1].Value("author"))
	assert.Equal(t, "", sheet.Rows[1].Value("country"))

	buf.Reset()
	require.NoError(t, WriteCSV(&buf, books, CSVOptions{}))
	assert.Contains(t, buf.String(), `"Neil Gaiman, Terry Pratchett"`)
	assert.Contains(t, buf.String(), `"Russia, Soviet Union"`)
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil, CSVOptions{IngestHeaders: true}))

	lines := strings.Split(strings.TrimPrefix(buf.String(), "\ufeff"), "\r\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, "", lines[1])
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "books_export_2025-03-14.csv", Filename(time.Date(2025, 3, 14, 23, 0, 0, 0, time.UTC)))
}
