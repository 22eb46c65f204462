package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/cinebook/internal/repository"
	"github.com/stretchr/testify/assert"
)

func TestTranslateDBErr(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", pgx.ErrNoRows, repository.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, repository.ErrConflict},
		{"fk violation", &pgconn.PgError{Code: "23503"}, repository.ErrReferenced},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, repository.ErrTransient},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, repository.ErrTransient},
		{"connection failure", &pgconn.PgError{Code: "08006"}, repository.ErrTransient},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), repository.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translateDBErr(tt.in), tt.want)
		})
	}
}

func TestTranslateDBErr_PassThrough(t *testing.T) {
	plain := errors.New("boom")
	assert.Equal(t, plain, translateDBErr(plain))
	assert.NoError(t, translateDBErr(nil))

	check := &pgconn.PgError{Code: "23514"}
	got := translateDBErr(check)
	assert.False(t, repository.IsTransient(got))
	assert.ErrorIs(t, got, check)
}

func TestWrapDBErr(t *testing.T) {
	err := wrapDBErr("postgres.Store.GetHall", pgx.ErrNoRows)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Contains(t, err.Error(), "postgres.Store.GetHall")

	assert.NoError(t, wrapDBErr("op", nil))
}

func TestWhereClause(t *testing.T) {
	assert.Equal(t, "", whereClause(nil))
	assert.Equal(t, " WHERE a = $1 AND b = $2", whereClause([]string{"a = $1", "b = $2"}))
}
