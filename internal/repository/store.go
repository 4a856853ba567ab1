package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DAN1X27/messenger-service-sub000/internal/db"
)

var ErrNotFound = pgx.ErrNoRows

type Store struct {
	Pool    *pgxpool.Pool
	Queries *Queries
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool, Queries: New(pool)}
}

// WithTx runs fn inside a single transaction; every transition of the moderation
// layer goes through here so its check-then-write sequences commit or abort as one.
func (s *Store) WithTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	queries := s.Queries.WithTx(tx)
	if err := fn(queries); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// Queries bundles the raw-SQL accessors. It is bound either to the pool or, via
// WithTx, to an open transaction.
type Queries struct {
	db db.Querier
}

func New(q db.Querier) *Queries {
	return &Queries{db: q}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// IsUniqueViolation reports whether err is a Postgres duplicate-key error. The unique
// constraints on relationship pairs are what resolve concurrent check-then-write races.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
