package repository

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMapPgError(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "business_cards_user_name_idx"})
	require.ErrorIs(t, mapPgError(unique), ErrDuplicate)

	fk := &pgconn.PgError{Code: "23503"}
	require.NotErrorIs(t, mapPgError(fk), ErrDuplicate, "foreign key violations pass through")

	require.ErrorIs(t, mapPgError(pgx.ErrNoRows), pgx.ErrNoRows)
	require.NoError(t, mapPgError(nil))
}
