package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/cinebook/internal/repository"
)

var _ repository.Store = (*Store)(nil)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store implements repository.Store on top of a pgx pool. A copy bound to a
// transaction is obtained with With.
type Store struct {
	pool *pgxpool.Pool
	db   DB
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

func (s *Store) With(db DB) *Store {
	cp := *s
	cp.db = db
	return &cp
}

func (s *Store) handle() DB {
	if s.db != nil {
		return s.db
	}
	return s.pool
}

func (s *Store) Ping(ctx context.Context) error {
	const op = "postgres.Store.Ping"

	if err := s.pool.Ping(ctx); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// RunTx runs fn in a transaction. Read committed is the default: the unique
// index on bookings and explicit row locks carry the invariants, so
// serialization failures would only add retries.
func (s *Store) RunTx(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	const op = "postgres.Store.RunTx"

	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	}

	if opts != nil {
		txOpts.IsoLevel = opts.IsoLevel
		txOpts.AccessMode = opts.AccessMode
		txOpts.DeferrableMode = opts.DeferrableMode
	}

	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return wrapDBErr(op, err)
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapDBErr(op+": commit", err)
	}

	return nil
}
