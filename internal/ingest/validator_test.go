package ingest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/internal/ingest"
	"bookshelf/internal/storage/refs"
	"bookshelf/internal/types"
)

func valid(extra map[string]string) map[string]string {
	row := map[string]string{
		"title":    "Solaris",
		"library":  "Home",
		"language": "English",
		"status":   "read",
	}
	for k, v := range extra {
		row[k] = v
	}

	return row
}

func TestValidate(t *testing.T) {
	f := newFixture()
	f.addBook(owner, "Dune", "9780441013593")
	f.addBook(stranger, "Emma", "9780141439587")
	isbn10 := "0306406152"
	f.store.AddBook(func() (b types.Book) {
		b.UserId, b.Title, b.Isbn10, b.StatusId = owner, "Cosmos", &isbn10, &f.read
		return
	}())

	cases := map[string]struct {
		row    map[string]string
		reason string
	}{
		"ok":                       {row: valid(nil)},
		"case-insensitive names":   {row: valid(map[string]string{"library": "HOME", "language": " english "})},
		"status spelled oddly":     {row: valid(map[string]string{"status": "Not Applicable"})},
		"someone else's isbn":      {row: valid(map[string]string{"isbn13": "9780141439587"})},
		"integers":                 {row: valid(map[string]string{"numpages": " 412 ", "publicationyear": "-500"})},
		"missing title":            {row: valid(map[string]string{"title": "  "}), reason: "Missing title"},
		"title checked first":      {row: map[string]string{"status": "lent"}, reason: "Missing title"},
		"missing library":          {row: valid(map[string]string{"library": ""}), reason: "Missing library"},
		"unknown library":          {row: valid(map[string]string{"library": "Office"}), reason: `Library "Office" does not exist in your library locations`},
		"someone else's library":   {row: valid(map[string]string{"library": "Cellar"}), reason: `Library "Cellar" does not exist in your library locations`},
		"missing language":         {row: valid(map[string]string{"language": ""}), reason: "Missing language"},
		"unknown language":         {row: valid(map[string]string{"language": "Klingon"}), reason: `Language "Klingon" does not exist`},
		"missing status":           {row: valid(map[string]string{"status": ""}), reason: "Missing status"},
		"invalid status":           {row: valid(map[string]string{"status": "lent"}), reason: `Invalid status: "lent". Allowed: read, owned, not applicable`},
		"isbn10 taken":             {row: valid(map[string]string{"isbn10": "0306406152"}), reason: "ISBN10 already exists"},
		"isbn13 taken":             {row: valid(map[string]string{"isbn13": " 9780441013593 "}), reason: "ISBN13 already exists"},
		"isbn10 before isbn13":     {row: valid(map[string]string{"isbn10": "0306406152", "isbn13": "9780441013593"}), reason: "ISBN10 already exists"},
		"unknown original":         {row: valid(map[string]string{"originallanguage": "Elvish"}), reason: `Original language "Elvish" does not exist`},
		"pages not a number":       {row: valid(map[string]string{"numpages": "12abc"}), reason: "Number of pages must be a valid number"},
		"year not a number":        {row: valid(map[string]string{"publicationyear": "19.5"}), reason: "Publication year must be a valid number"},
		"original year not number": {row: valid(map[string]string{"originalpublicationyear": "MCM"}), reason: "Original publication year must be a valid number"},
		"language before status":   {row: valid(map[string]string{"language": "Klingon", "status": "lent"}), reason: `Language "Klingon" does not exist`},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			v := ingest.NewValidator(f.store, owner, ingest.ValidatorOptions{})

			verdict := v.Validate(context.Background(), ingest.NewRow(1, tc.row))

			assert.Equal(t, tc.reason == "", verdict.Valid)
			assert.Equal(t, tc.reason, verdict.Reason)
		})
	}

	assert.Zero(t, f.store.Upserts)
	assert.Len(t, f.store.Books(), 3)
}

func TestValidateStoreError(t *testing.T) {
	f := newFixture()
	f.store.FailFind = func(table refs.Table, _ string) error {
		if table == refs.Language {
			return errors.New("connection reset")
		}
		return nil
	}

	verdict := ingest.NewValidator(f.store, owner, ingest.ValidatorOptions{}).
		Validate(context.Background(), ingest.NewRow(1, valid(nil)))

	assert.False(t, verdict.Valid)
	assert.Equal(t, "Could not check language: connection reset", verdict.Reason)
}

func TestValidateAllBatchDuplicates(t *testing.T) {
	sheet := readSheet(t, "title,library,language,status,isbn13\n"+
		"Dune,Home,English,read,9780441013593\n"+
		"Dune again,Home,English,owned,9780441013593\n"+
		",Home,English,owned,9780141439587\n"+
		"Emma,Home,English,owned,9780141439587\n")

	t.Run("accepted by default", func(t *testing.T) {
		f := newFixture()

		res, err := ingest.NewValidator(f.store, owner, ingest.ValidatorOptions{}).
			ValidateAll(context.Background(), sheet.Rows)
		require.NoError(t, err)

		assert.Len(t, res.Valid, 3)
		require.Len(t, res.Invalid, 1)
		assert.Equal(t, 3, res.Invalid[0].Row.N)
	})

	t.Run("rejected on request", func(t *testing.T) {
		f := newFixture()

		res, err := ingest.NewValidator(f.store, owner, ingest.ValidatorOptions{RejectBatchDuplicates: true}).
			ValidateAll(context.Background(), sheet.Rows)
		require.NoError(t, err)

		// an invalid row does not claim its ISBN
		require.Len(t, res.Valid, 2)
		assert.Equal(t, 1, res.Valid[0].N)
		assert.Equal(t, 4, res.Valid[1].N)

		require.Len(t, res.Invalid, 2)
		assert.Equal(t, 2, res.Invalid[0].Row.N)
		assert.Equal(t, "ISBN13 is duplicated within this file", res.Invalid[0].Reason)
		assert.Equal(t, "Missing title", res.Invalid[1].Reason)
	})
}

func TestValidateAllCancelled(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := ingest.NewValidator(f.store, owner, ingest.ValidatorOptions{}).
		ValidateAll(ctx, []ingest.Row{ingest.NewRow(1, valid(nil))})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Valid)
}
