package refs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTable(t *testing.T) {
	cases := map[string]Table{
		"publisher":        Publisher,
		"Publishers":       Publisher,
		"type":             Type,
		"book_type":        Type,
		"groups":           Group,
		"author":           Author,
		"labels":           Label,
		"language":         Language,
		"statuses":         Status,
		"library":          LibraryLocation,
		"library_location": LibraryLocation,
		"libraries":        LibraryLocation,
		" Country ":        Country,
		"countries":        Country,
		"continents":       Continent,
	}

	for in, want := range cases {
		got, err := ParseTable(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseTable("book")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestTableScopes(t *testing.T) {
	for _, table := range []Table{Publisher, Type, Group, Author, Label} {
		assert.True(t, table.UserScoped(), table.String())
		assert.True(t, table.Creatable(), table.String())
	}

	assert.True(t, LibraryLocation.UserScoped())
	assert.False(t, LibraryLocation.Creatable())

	for _, table := range []Table{Language, Status, Country, Continent} {
		assert.False(t, table.UserScoped(), table.String())
		assert.False(t, table.Creatable(), table.String())
	}

	assert.Equal(t, "unknown", Table(0).String())
}
