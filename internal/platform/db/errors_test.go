package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	_ "github.com/odyssey-erp/backoffice/internal/testing/guard"
)

func TestPgErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert customer: %w", &pgconn.PgError{Code: "23505", ConstraintName: "customers_customer_code_key"})
	require.True(t, IsUniqueViolation(unique))
	require.False(t, IsForeignKeyViolation(unique))
	require.Equal(t, "customers_customer_code_key", ConstraintName(unique))

	fk := &pgconn.PgError{Code: "23503"}
	require.True(t, IsForeignKeyViolation(fk))
	require.False(t, IsUniqueViolation(errors.New("23505")))
	require.Empty(t, ConstraintName(errors.New("plain")))

	require.True(t, IsNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	require.False(t, IsNoRows(nil))
}
