package ingest_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/internal/export"
	"bookshelf/internal/ingest"
	"bookshelf/internal/storage/refs"
	"bookshelf/internal/types"
)

const header = "title,library,language,status,isbn13,author,labels,publisher,country,numpages\n"

func upload(t *testing.T, f *fixture, opts ingest.UploadOptions, csv string) *ingest.Summary {
	t.Helper()

	sum, err := ingest.NewUploader(f.store, opts, discard()).
		Upload(context.Background(), owner, readSheet(t, csv).Rows)
	require.NoError(t, err)

	return sum
}

func TestImportEndToEnd(t *testing.T) {
	f := newFixture()
	f.addBook(owner, "Emma", "9780141439587")
	runs := &runLog{}

	svc := ingest.NewService(f.store, runs, ingest.Options{}, discard())

	report, err := svc.Import(context.Background(), owner, strings.NewReader(header+
		`Dune,Home,English,read,9780441013593,Frank Herbert,"sf, classic",Ace,Poland,412`+"\n"+
		",Home,English,read,,,,,,\n"+
		"Emma,Home,English,owned,9780141439587,,,,,\n"))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Valid)
	assert.Len(t, report.Ignored, 2)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, "Valid rows: 1 | Ignored rows: 2\n"+
		"Upload completed: 1 successful, 0 failed\n"+
		"Ignored rows:\n"+
		"  1. Row 2: Missing title\n"+
		"  2. Row 3: ISBN13 already exists\n", report.String())

	all := f.store.Books()
	require.Len(t, all, 2)
	dune := all[1]
	assert.Equal(t, "Dune", dune.Title)
	assert.Equal(t, owner, dune.UserId)
	assert.Equal(t, f.home, *dune.LibraryLocationId)
	assert.Equal(t, f.english, *dune.LanguageId)
	assert.Equal(t, f.read, *dune.StatusId)
	assert.Equal(t, int32(412), *dune.NumPages)
	assert.Equal(t, "Ace", f.store.RefName(refs.Publisher, *dune.PublisherId))
	assert.Nil(t, dune.TypeId)

	authors := f.store.AuthorsOf(dune.Id)
	require.Len(t, authors, 1)
	assert.Equal(t, "Frank Herbert", f.store.RefName(refs.Author, authors[0]))
	assert.Equal(t, f.poland, *f.store.Refs(refs.Author)[0].CountryId)

	labels := f.store.LabelsOf(dune.Id)
	require.Len(t, labels, 2)
	assert.Equal(t, "sf", f.store.RefName(refs.Label, labels[0]))
	assert.Equal(t, "classic", f.store.RefName(refs.Label, labels[1]))

	require.Len(t, runs.runs, 1)
	assert.Equal(t, "import", runs.runs[0].Kind)
	assert.Equal(t, 1, runs.runs[0].Valid)
	assert.Equal(t, 2, runs.runs[0].Invalid)
	assert.Equal(t, []types.RunMessage{
		{Row: 2, Kind: "ignored", Message: "Row 2: Missing title"},
		{Row: 3, Kind: "ignored", Message: "Row 3: ISBN13 already exists"},
	}, runs.runs[0].Messages)
}

func TestImportRejectsFile(t *testing.T) {
	f := newFixture()
	svc := ingest.NewService(f.store, nil, ingest.Options{}, discard())

	_, err := svc.Import(context.Background(), owner, strings.NewReader("title,status\nDune,read\n"))
	assert.EqualError(t, err, "Missing required columns: library, language")

	var fe *ingest.FileError
	assert.ErrorAs(t, err, &fe)

	_, err = svc.Import(context.Background(), owner, strings.NewReader(header+"\"Dune,Home\n"))
	assert.ErrorAs(t, err, &fe)

	_, err = svc.Import(context.Background(), owner, strings.NewReader(""))
	assert.ErrorIs(t, err, ingest.ErrEmptyFile)

	assert.Empty(t, f.store.Books())
}

func TestImportExportedFile(t *testing.T) {
	f := newFixture()
	added := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, []types.BookView{
		{
			Id:              7,
			Title:           `The "Cyberiad"`,
			Creators:        ptr("Stanisław Lem, Michael Kandel"),
			Isbn13:          ptr("9780156027595"),
			Publisher:       ptr("Harvest"),
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
		{Id: 8, Title: "Solaris", Language: ptr("Polish"), Status: ptr("Owned"), Library: ptr("Home"), DateAdded: added},
	}, export.CSVOptions{IngestHeaders: true}))

	report, err := ingest.NewService(f.store, nil, ingest.Options{Policy: ingest.Strict}, discard()).
		Import(context.Background(), owner, &buf)
	require.NoError(t, err)

	assert.Equal(t, "Valid rows: 2 | Ignored rows: 0\n"+
		"Upload completed: 2 successful, 0 failed\n", report.String())

	all := f.store.Books()
	require.Len(t, all, 2)

	cyberiad := all[0]
	assert.Equal(t, `The "Cyberiad"`, cyberiad.Title)
	assert.Equal(t, "9780156027595", *cyberiad.Isbn13)
	assert.Equal(t, "Harvest", f.store.RefName(refs.Publisher, *cyberiad.PublisherId))
	assert.Equal(t, f.english, *cyberiad.LanguageId)
	assert.Equal(t, f.read, *cyberiad.StatusId)
	assert.Equal(t, int32(1965), *cyberiad.PublicationYear)
	assert.Equal(t, int32(295), *cyberiad.NumPages)
	assert.Equal(t, "line one\nline two", *cyberiad.Notes)

	authors := f.store.AuthorsOf(cyberiad.Id)
	require.Len(t, authors, 1)
	assert.Equal(t, "Stanisław Lem", f.store.RefName(refs.Author, authors[0]))
	assert.Equal(t, f.poland, *f.store.Refs(refs.Author)[0].CountryId)
	assert.Len(t, f.store.LabelsOf(cyberiad.Id), 2)

	assert.Equal(t, f.polish, *all[1].LanguageId)
	assert.Equal(t, f.owned, *all[1].StatusId)
}

func TestImportDuplicateIsbnWithinFile(t *testing.T) {
	f := newFixture()

	report, err := ingest.NewService(f.store, nil, ingest.Options{}, discard()).
		Import(context.Background(), owner, strings.NewReader(header+
			"Dune,Home,English,read,111,,,,,\n"+
			"Dune again,Home,English,owned,111,,,,,\n"))
	require.NoError(t, err)

	// both rows pass validation, the store keeps only the first
	assert.Equal(t, "Valid rows: 2 | Ignored rows: 0\n"+
		"Upload completed: 1 successful, 1 failed\n"+
		"Upload errors:\n"+
		"  1. Row 2: a book with this ISBN already exists in your collection\n", report.String())

	all := f.store.Books()
	require.Len(t, all, 1)
	assert.Equal(t, "Dune", all[0].Title)
}

func TestImportReportsSeparatorOnlyLines(t *testing.T) {
	f := newFixture()

	report, err := ingest.NewService(f.store, nil, ingest.Options{}, discard()).
		Import(context.Background(), owner, strings.NewReader(header+
			",,,,,,,,,\n"+
			"\n"+
			"Dune,Home,English,read,,,,,,\n"))
	require.NoError(t, err)

	assert.Equal(t, "Valid rows: 1 | Ignored rows: 1\n"+
		"Upload completed: 1 successful, 0 failed\n"+
		"Ignored rows:\n"+
		"  1. Row 1: Missing title\n", report.String())
}

func TestImportKeepsFileRowNumbers(t *testing.T) {
	f := newFixture()
	f.store.FailInsert = func(b *types.Book) error {
		if b.Title == "Bad" {
			return &pgconn.PgError{Code: "22001", Message: "value too long for type character varying(10)"}
		}
		return nil
	}

	report, err := ingest.NewService(f.store, nil, ingest.Options{}, discard()).
		Import(context.Background(), owner, strings.NewReader(header+
			",Home,English,read,,,,,,\n"+
			"Bad,Home,English,read,,,,,,\n"+
			"Good,Home,English,read,,,,,,\n"))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "Row 2: value too long for type character varying(10)", report.Errors[0].String())
}

func TestUploadLenientResolution(t *testing.T) {
	f := newFixture()

	sum := upload(t, f, ingest.UploadOptions{}, header+
		"Solaris,Home,English,read,,Stanisław Lem,,,Atlantis,\n")

	assert.Equal(t, 1, sum.Succeeded)
	require.Len(t, sum.Warnings, 1)
	assert.Equal(t, `Row 1: country "Atlantis" does not exist, left empty`, sum.Warnings[0].String())

	authors := f.store.Refs(refs.Author)
	require.Len(t, authors, 1)
	assert.Nil(t, authors[0].CountryId)
}

func TestUploadStrictResolution(t *testing.T) {
	f := newFixture()

	sum := upload(t, f, ingest.UploadOptions{Policy: ingest.Strict}, header+
		"Solaris,Home,English,read,,Stanisław Lem,,,Atlantis,\n"+
		"Eden,Home,English,read,,,,,,\n")

	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, `Row 1: country "Atlantis" does not exist`, sum.Errors[0].String())
	assert.Len(t, f.store.Books(), 1)
}

func TestUploadLinkFailureIsWarning(t *testing.T) {
	f := newFixture()
	f.store.FailLink = func(table refs.Table, _, _ int64) error {
		if table == refs.Label {
			return errors.New("boom")
		}
		return nil
	}

	sum := upload(t, f, ingest.UploadOptions{}, header+
		`Dune,Home,English,read,,Frank Herbert,"sf",,,`+"\n")

	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 0, sum.Failed)
	require.Len(t, sum.Warnings, 1)
	assert.Equal(t, `Row 1: Could not link label "sf": boom`, sum.Warnings[0].String())

	all := f.store.Books()
	require.Len(t, all, 1)
	assert.Len(t, f.store.AuthorsOf(all[0].Id), 1)
}

func TestUploadAtomic(t *testing.T) {
	f := newFixture()
	f.store.FailLink = func(table refs.Table, _, _ int64) error {
		if table == refs.Label {
			return errors.New("boom")
		}
		return nil
	}

	sum := upload(t, f, ingest.UploadOptions{Atomic: true}, header+
		`Dune,Home,English,read,,Frank Herbert,"sf",Ace,,`+"\n"+
		"Eden,Home,English,read,,,,Ace,,\n")

	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, `Row 1: Could not link label "sf": boom`, sum.Errors[0].String())

	all := f.store.Books()
	require.Len(t, all, 1)
	assert.Equal(t, "Eden", all[0].Title)
	assert.Empty(t, f.store.Refs(refs.Author))
	assert.Empty(t, f.store.Refs(refs.Label))

	// Ace from the rolled back row was created again, not taken from the batch memo
	publishers := f.store.Refs(refs.Publisher)
	require.Len(t, publishers, 1)
	assert.Equal(t, publishers[0].Id, *all[0].PublisherId)

	assert.Equal(t, 1, f.store.Rollbacks)
	assert.Equal(t, 1, f.store.Commits)
}

func TestUploadReusesReferencesAcrossRows(t *testing.T) {
	f := newFixture()

	sum := upload(t, f, ingest.UploadOptions{}, header+
		`Dune,Home,English,read,,Frank Herbert,"sf, sf",,,`+"\n"+
		`Children of Dune,Home,English,owned,,frank herbert,SF,,,`+"\n")

	assert.Equal(t, 2, sum.Succeeded)
	assert.Len(t, f.store.Refs(refs.Author), 1)
	assert.Len(t, f.store.Refs(refs.Label), 1)

	all := f.store.Books()
	require.Len(t, all, 2)
	assert.Len(t, f.store.LabelsOf(all[0].Id), 1)
	assert.Equal(t, f.owned, *all[1].StatusId)
}

func TestUploadCancelled(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := ingest.NewUploader(f.store, ingest.UploadOptions{}, discard()).
		Upload(ctx, owner, readSheet(t, header+"Dune,Home,English,read,,,,,,\n").Rows)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sum.Succeeded)
	assert.Empty(t, f.store.Books())
}
