package refs

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"bookshelf/internal/types"
)

var (
	ErrUnknownTable = errors.New("unknown reference table")
	ErrReadOnly     = errors.New("reference table is read-only")
	ErrDuplicate    = errors.New("a record with this name already exists")
	ErrInUse        = errors.New("record is still referenced by books")
)

type Table uint8

const (
	Publisher Table = iota + 1
	Type
	Group
	Author
	Label
	Language
	Status
	LibraryLocation
	Country
	Continent
)

type tableInfo struct {
	name       string // as used in CSV files, URLs and messages
	sqlName    string
	userScoped bool
	// creatable tables are get-or-create targets of the bulk pipelines
	creatable bool
}

var tables = map[Table]tableInfo{
	Publisher:       {name: "publisher", sqlName: "publisher", userScoped: true, creatable: true},
	Type:            {name: "type", sqlName: "book_type", userScoped: true, creatable: true},
	Group:           {name: "group", sqlName: "book_group", userScoped: true, creatable: true},
	Author:          {name: "author", sqlName: "author", userScoped: true, creatable: true},
	Label:           {name: "label", sqlName: "label", userScoped: true, creatable: true},
	Language:        {name: "language", sqlName: "language"},
	Status:          {name: "status", sqlName: "status"},
	LibraryLocation: {name: "library", sqlName: "library_location", userScoped: true},
	Country:         {name: "country", sqlName: "country"},
	Continent:       {name: "continent", sqlName: "continent"},
}

func (t Table) String() string {
	if info, ok := tables[t]; ok {
		return info.name
	}

	return "unknown"
}

// UserScoped tables hold rows owned by a single user; lookups are filtered by owner.
func (t Table) UserScoped() bool {
	return tables[t].userScoped
}

// Creatable tables are resolved with get-or-create; the rest must already contain the name.
func (t Table) Creatable() bool {
	return tables[t].creatable
}

func (t Table) sql() string {
	return tables[t].sqlName
}

// ParseTable accepts the table names used in URLs and CSV headers.
func ParseTable(s string) (Table, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "library_location", "librarylocation", "libraries":
		return LibraryLocation, nil
	case "statuses":
		return Status, nil
	case "countries":
		return Country, nil
	}

	for t, info := range tables {
		if info.name == s || info.name+"s" == s || info.sqlName == s {
			return t, nil
		}
	}

	return 0, ErrUnknownTable
}

// NewRef describes a row to create.
type NewRef struct {
	Name      string
	Owner     uuid.UUID
	CountryId *int64 // authors only
}

// Patch changes a row; nil fields are left untouched.
type Patch struct {
	Name      *string
	CountryId *int64
}

type Repository interface {
	// FindId returns the id of the row whose name matches case-insensitively, 0 when there is none.
	// owner is ignored for global tables.
	FindId(ctx context.Context, table Table, owner uuid.UUID, name string) (int64, error)

	// Upsert creates the row unless an equal name already exists, returning the id either way.
	Upsert(ctx context.Context, table Table, ref NewRef) (int64, error)

	// Exists reports whether id is a row of table visible to owner.
	Exists(ctx context.Context, table Table, owner uuid.UUID, id int64) (bool, error)

	List(ctx context.Context, table Table, owner uuid.UUID) ([]types.Reference, error)
	Create(ctx context.Context, table Table, ref NewRef) (*types.Reference, error)
	Update(ctx context.Context, table Table, owner uuid.UUID, id int64, patch Patch) (bool, error)
	Delete(ctx context.Context, table Table, owner uuid.UUID, id int64) (bool, error)
}
