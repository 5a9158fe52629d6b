package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the subset of pgx shared by *pgxpool.Pool and pgx.Tx. Begin on a pgx.Tx
// opens a savepoint.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repositories bundles the per-table repositories bound to one connection or transaction.
type Repositories struct {
	Regions     RegionRepository
	Tickets     TicketRepository
	Assignments TicketAssignmentRepository
	Details     TicketDetailsRepository
}

// Store hands out repositories bound to the pool for reads, and runs units of work
// inside a single transaction.
type Store interface {
	Repositories() Repositories
	// WithinTx commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}

type pgStore struct {
	pool *pgxpool.Pool
}

// NewStore builds a Store over the pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

// NewRepositories binds every repository to db.
func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Regions:     NewRegionRepository(db),
		Tickets:     NewTicketRepository(db),
		Assignments: NewTicketAssignmentRepository(db),
		Details:     NewTicketDetailsRepository(db),
	}
}

func (s *pgStore) Repositories() Repositories {
	return NewRepositories(s.pool)
}

func (s *pgStore) WithinTx(ctx context.Context, fn func(repos Repositories) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storeError("begin transaction", err)
	}
	return runInTx(ctx, tx, fn)
}

func runInTx(ctx context.Context, tx pgx.Tx, fn func(repos Repositories) error) error {
	// Rollback uses a detached context so a cancelled request still releases the connection.
	rollback := func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }
	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err := fn(NewRepositories(tx)); err != nil {
		rollback()
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		rollback()
		return storeError("commit transaction", err)
	}
	return nil
}
