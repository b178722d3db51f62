package pkg

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPgErrors(t *testing.T) {
	unique := fmt.Errorf("upsert: %w", &pgconn.PgError{Code: "23505"})
	fk := &pgconn.PgError{Code: "23503"}

	assert.True(t, IsUniqueViolationError(unique))
	assert.False(t, IsForeignKeyViolationError(unique))
	assert.True(t, IsForeignKeyViolationError(fk))
	assert.False(t, IsUniqueViolationError(fk))
	assert.False(t, IsUniqueViolationError(errors.New("boom")))
	assert.False(t, IsUniqueViolationError(nil))
}
