package export

import (
	"bytes"
	"encoding/xml"
	"testing"

	"github.com/opds-community/libopds2-go/opds1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed(t *testing.T) {
	feed := Feed(sample(), FeedOptions{BaseURL: "https://shelf.example/api/", Title: "My books"})

	assert.Equal(t, "My books", feed.Title)
	require.Len(t, feed.Entries, 2)

	e := feed.Entries[0]
	assert.Equal(t, "urn:bookshelf:book:1", e.ID)
	assert.Equal(t, "1965", e.Issued)
	assert.Equal(t, "English", e.Language)
	require.Len(t, e.Author, 1)
	assert.Equal(t, "Stanisław Lem", e.Author[0].Name)
	require.Len(t, e.Category, 2)
	assert.Equal(t, "fables", e.Category[0].Term)
	assert.Equal(t, "robots", e.Category[1].Term)
	assert.Equal(t, "https://shelf.example/api/books/1", e.Links[0].Href)

	assert.Empty(t, feed.Entries[1].Author)
	assert.Equal(t, "", feed.Entries[1].Issued)
}

func TestWriteOPDSDecodes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOPDS(&buf, sample(), FeedOptions{Title: "My books"}))

	var feed opds1.Feed
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &feed))
	require.Len(t, feed.Entries, 2)
	assert.Equal(t, "Solaris", feed.Entries[1].Title)
}
