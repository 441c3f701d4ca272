package conn

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "Main", EscapeLike("Main"))
	assert.Equal(t, "100\\% cotton\\_shelf", EscapeLike("100% cotton_shelf"))
	assert.Equal(t, "a\\\\b", EscapeLike("a\\b"))
}

func TestContains(t *testing.T) {
	assert.Equal(t, "%Tolkien%", Contains("  Tolkien "))
	assert.Equal(t, "%50\\%%", Contains("50%"))
}

func TestErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert book: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation, Message: "duplicate key"})
	fk := &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, Message: "violates foreign key"}

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(fk))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsUniqueViolation(errors.New("boom")))

	assert.Equal(t, "duplicate key", Message(unique))
	assert.Equal(t, "boom", Message(errors.New("boom")))
}

func TestNullable(t *testing.T) {
	assert.Nil(t, Nullable(""))
	assert.Nil(t, Nullable("   "))
	assert.Equal(t, "Europe", Nullable(" Europe"))
}
