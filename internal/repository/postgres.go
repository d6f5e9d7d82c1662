package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a lookup targets a row that does not exist.
var ErrNotFound = errors.New("not found")

// querier is the subset of pgx shared by the pool and a transaction, so the
// same query helpers run in both.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the single Postgres access point shared by the three
// processes. All methods are safe for concurrent use; the event processor
// additionally serializes its writes through one transaction per event.
type Repository struct {
	db *pgxpool.Pool
}

// New connects a pool to the database described by dsn.
func New(ctx context.Context, dsn string, connectTimeout time.Duration) (*Repository, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse db url: %w", err)
	}
	if connectTimeout > 0 {
		config.ConnConfig.ConnectTimeout = connectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	pingCtx := ctx
	if connectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, connectTimeout)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return &Repository{db: pool}, nil
}

// Ping checks database reachability, for the status endpoint.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *Repository) Close() {
	r.db.Close()
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
