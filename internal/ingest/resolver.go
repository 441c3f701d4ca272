package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"bookshelf/internal/storage/refs"
)

var ErrNotFound = errors.New("does not exist")

// ResolutionError reports a name that could not be turned into a reference id.
type ResolutionError struct {
	Table refs.Table
	Name  string
	Err   error
}

func (e *ResolutionError) Error() string {
	if errors.Is(e.Err, ErrNotFound) {
		return fmt.Sprintf("%s %q does not exist", e.Table, e.Name)
	}

	return fmt.Sprintf("could not resolve %s %q: %v", e.Table, e.Name, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Policy decides what a failed resolution does to the row.
type Policy uint8

const (
	// Lenient leaves the foreign key empty and records a warning.
	Lenient Policy = iota
	// Strict fails the row.
	Strict
)

func (p Policy) String() string {
	if p == Strict {
		return "strict"
	}

	return "lenient"
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lenient":
		return Lenient, nil
	case "strict":
		return Strict, nil
	}

	return Lenient, fmt.Errorf("unknown ingest policy %q", s)
}

func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}

	*p = v
	return nil
}

// Extra carries the optional columns written when a reference is created.
type Extra struct {
	CountryId *int64
}

type memoKey struct {
	table refs.Table
	name  string
}

func (k memoKey) String() string {
	return strconv.Itoa(int(k.table)) + "/" + k.name
}

// Resolver turns names into reference ids for one owner, creating rows in creatable tables.
// It remembers every answer for the lifetime of a batch.
type Resolver struct {
	store Store
	owner uuid.UUID

	parent *Resolver
	mu     sync.Mutex
	memo   map[memoKey]int64 // 0 records a known miss
	group  singleflight.Group
}

func NewResolver(store Store, owner uuid.UUID) *Resolver {
	return &Resolver{store: store, owner: owner, memo: make(map[memoKey]int64)}
}

// Child returns a resolver working against store (usually a transaction) that reads this
// resolver's memo but keeps its own answers until Commit.
func (r *Resolver) Child(store Store) *Resolver {
	return &Resolver{store: store, owner: r.owner, parent: r, memo: make(map[memoKey]int64)}
}

// Commit copies the answers of a child into its parent.
func (r *Resolver) Commit() {
	if r.parent == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.parent.mu.Lock()
	defer r.parent.mu.Unlock()

	for k, v := range r.memo {
		r.parent.memo[k] = v
	}
	clear(r.memo)
}

func (r *Resolver) recall(k memoKey) (int64, bool) {
	r.mu.Lock()
	id, ok := r.memo[k]
	r.mu.Unlock()

	if !ok && r.parent != nil {
		return r.parent.recall(k)
	}

	return id, ok
}

func (r *Resolver) remember(k memoKey, id int64) {
	r.mu.Lock()
	r.memo[k] = id
	r.mu.Unlock()
}

// Resolve returns the id of name in table, or nil for a blank name. Creatable tables get a new row when
// the name is unknown; other tables yield a *ResolutionError wrapping ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, table refs.Table, name string, extra Extra) (*int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	key := memoKey{table: table, name: strings.ToLower(name)}

	id, ok := r.recall(key)
	if !ok {
		v, err, _ := r.group.Do(key.String(), func() (any, error) {
			if id, ok := r.recall(key); ok {
				return id, nil
			}

			id, err := r.store.FindRef(ctx, table, r.owner, name)
			if err != nil {
				return int64(0), err
			}

			if id == 0 && table.Creatable() {
				id, err = r.store.UpsertRef(ctx, table, refs.NewRef{
					Name:      name,
					Owner:     r.owner,
					CountryId: extra.CountryId,
				})
				if err != nil {
					return int64(0), err
				}
			}

			r.remember(key, id)
			return id, nil
		})
		if err != nil {
			return nil, &ResolutionError{Table: table, Name: name, Err: err}
		}

		id = v.(int64)
	}

	if id == 0 {
		return nil, &ResolutionError{Table: table, Name: name, Err: ErrNotFound}
	}

	return &id, nil
}
