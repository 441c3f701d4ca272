package ingest_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"bookshelf/internal/ingest"
	"bookshelf/internal/ingest/ingesttest"
	"bookshelf/internal/storage/refs"
	"bookshelf/internal/types"
)

var (
	owner    = uuid.MustParse("6a1f3c52-8d0e-4b7a-9c1d-2e3f4a5b6c7d")
	stranger = uuid.MustParse("0b9e8d7c-6f5a-4e3d-8c2b-1a0f9e8d7c6b")
)

type fixture struct {
	store *ingesttest.MemStore

	home, english, polish int64
	read, owned           int64
	poland                int64
}

func newFixture() *fixture {
	st := ingesttest.New()

	f := &fixture{store: st}
	f.home = st.AddRef(refs.LibraryLocation, owner, "Home")
	st.AddRef(refs.LibraryLocation, stranger, "Cellar")
	f.english = st.AddRef(refs.Language, uuid.Nil, "English")
	f.polish = st.AddRef(refs.Language, uuid.Nil, "Polish")
	f.read = st.AddRef(refs.Status, uuid.Nil, "Read")
	f.owned = st.AddRef(refs.Status, uuid.Nil, "Owned")
	st.AddRef(refs.Status, uuid.Nil, "Not Applicable")
	f.poland = st.AddRef(refs.Country, uuid.Nil, "Poland")

	return f
}

func (f *fixture) addBook(user uuid.UUID, title string, isbn13 string) int64 {
	b := types.Book{UserId: user, Title: title, StatusId: &f.owned}
	if isbn13 != "" {
		b.Isbn13 = &isbn13
	}

	return f.store.AddBook(b)
}

func readSheet(t *testing.T, csv string) *ingest.Sheet {
	t.Helper()

	sheet, err := ingest.ReadSheet(strings.NewReader(csv))
	require.NoError(t, err)

	return sheet
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T {
	return &v
}

type runLog struct {
	runs []*types.IngestRun
}

func (r *runLog) Save(_ context.Context, run *types.IngestRun) (int64, error) {
	r.runs = append(r.runs, run)
	return int64(len(r.runs)), nil
}
