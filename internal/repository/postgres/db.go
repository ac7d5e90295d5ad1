package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/vastore/internal/repository"
)

// maxTxAttempts bounds how often a transaction is replayed after a
// serialization failure or deadlock.
const maxTxAttempts = 3

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool *pgxpool.Pool
	db   DB
	opts pgx.TxOptions
}

var _ repository.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
		opts: pgx.TxOptions{
			IsoLevel:   pgx.Serializable,
			AccessMode: pgx.ReadWrite,
		},
	}
}

func (s *Store) handle() DB {
	if s.db != nil {
		return s.db
	}
	return s.pool
}

// With returns a copy of the store whose repositories run on db.
func (s *Store) With(db DB) *Store {
	cp := *s
	cp.db = db
	return &cp
}

// RunTx runs fn in a serializable transaction and replays it when Postgres
// reports a serialization failure. Calls on a store that is already bound to
// a transaction join it.
func (s *Store) RunTx(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Store) error,
) error {
	if s.db != nil {
		return fn(ctx, s)
	}

	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runTxOnce(ctx, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
	}

	return err
}

func (s *Store) runTxOnce(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Store) error,
) error {
	tx, err := s.pool.BeginTx(ctx, s.opts)
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, s.With(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func (s *Store) Listings() repository.ListingRepository {
	return &ListingRepo{db: s.handle()}
}

func (s *Store) Carts() repository.CartRepository {
	return &CartRepo{db: s.handle()}
}

func (s *Store) Orders() repository.OrderRepository {
	return &OrderRepo{db: s.handle()}
}

func (s *Store) Discounts() repository.DiscountRepository {
	return &DiscountRepo{db: s.handle()}
}
