package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"oficina/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write would break a uniqueness rule or
	// remove a row that is still referenced.
	ErrConflict = errors.New("conflict")
	// ErrInvalidReference is returned when a write points at a row that does
	// not exist.
	ErrInvalidReference = errors.New("invalid reference")
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// store carries every query. Repository runs them on the pool and Tx runs
// them inside one database transaction.
type store struct {
	q querier
}

type Repository struct {
	store
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{store: store{q: pool}, pool: pool}
}

// Tx exposes the same queries as Repository bound to one pgx transaction.
// It satisfies the reconcile store interfaces.
type Tx struct {
	store
	tx pgx.Tx
}

// WrapTx binds the queries to a transaction the caller owns.
func WrapTx(tx pgx.Tx) *Tx {
	return &Tx{store: store{q: tx}, tx: tx}
}

// WithTx runs fn in a transaction, committing when fn returns nil.
func (r *Repository) WithTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(WrapTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Savepoint runs fn in a nested transaction. When fn fails only its own
// writes are rolled back and the outer transaction stays usable.
func (t *Tx) Savepoint(ctx context.Context, fn func(*Tx) error) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin savepoint: %w", err)
	}
	if err := fn(WrapTx(sp)); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w (rollback savepoint: %v)", err, rbErr)
		}
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Detail)
		case "23503":
			return fmt.Errorf("%w: %s", ErrInvalidReference, pgErr.Detail)
		}
	}
	return err
}

func parseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(domain.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return parsed, nil
}

func parseOptionalDate(value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	parsed, err := parseDate(*value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// nullableID turns a zero id into NULL so inserts fall back to the sequence.
func nullableID(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}

func likePattern(search string) string {
	search = strings.TrimSpace(search)
	if search == "" {
		return ""
	}
	return "%" + search + "%"
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 200
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
