package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClasificacionDeErrores(t *testing.T) {
	dupSale := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: saleUniqueConstraint})
	dupNumber := &pgconn.PgError{Code: "23505", ConstraintName: "fiscal_documents_number_key"}
	serial := &pgconn.PgError{Code: "40001"}

	assert.True(t, isUniqueViolation(dupSale))
	assert.Equal(t, saleUniqueConstraint, constraintName(dupSale))
	assert.True(t, isUniqueViolation(dupNumber))
	assert.False(t, isSerializationFailure(dupNumber))
	assert.True(t, isSerializationFailure(serial))
	assert.True(t, isSerializationFailure(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, isSerializationFailure(errors.New("40001")))
	assert.Empty(t, constraintName(errors.New("x")))
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	assert.Equal(t, "a", *nullIfEmpty("a"))
	assert.Equal(t, "", derefString(nil))
}

func TestMigracionesEmbebidas(t *testing.T) {
	script, err := migrationFS.ReadFile("migrations/001_fiscal.sql")
	assert.NoError(t, err)
	assert.Contains(t, string(script), "fiscal_sequences")
	assert.Contains(t, string(script), saleUniqueConstraint)
}
