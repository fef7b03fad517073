package postgres

// Package postgres provides a pgx-backed storage implementation that satisfies
// the repository and writer interfaces used by the transaction service.
//
// Migrations that create the expected schema are embedded under migrations/ and
// applied by Migrate. This file maps between ledger.Transaction and SQL rows.

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tinoosan/spendlog/internal/errs"
	"github.com/tinoosan/spendlog/internal/ledger"
)

// Store holds a pgx connection pool. Every method acquires a connection for
// the duration of one statement, so all methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// Amounts travel as text so numeric precision survives without a codec plugin.
const selectColumns = `id, transaction_date, title, is_income, spending::text`

// CreateTransaction inserts a row and returns it with the identity id.
func (s *Store) CreateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	row := s.pool.QueryRow(ctx, `
        insert into transactions (transaction_date, title, is_income, spending)
        values ($1, $2, $3, $4::numeric)
        returning `+selectColumns,
		ledger.DateOf(t.Date), t.Title, t.IsIncome, t.Spending.String())
	saved, err := scanTransaction(row)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return saved, nil
}

// DeleteTransaction removes a row by id.
func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	ct, err := s.pool.Exec(ctx, `delete from transactions where id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ListTransactions returns all rows ordered by id.
func (s *Store) ListTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	rows, err := s.pool.Query(ctx, `select `+selectColumns+` from transactions order by id asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTransaction fetches a single row by id.
func (s *Store) GetTransaction(ctx context.Context, id int64) (ledger.Transaction, error) {
	t, err := scanTransaction(s.pool.QueryRow(ctx, `select `+selectColumns+` from transactions where id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Transaction{}, err
	}
	return t, nil
}

// SumSpending aggregates in the database; coalesce covers the empty set.
func (s *Store) SumSpending(ctx context.Context, isIncome bool) (decimal.Decimal, error) {
	var raw string
	err := s.pool.QueryRow(ctx, `
        select coalesce(sum(spending), 0)::text
        from transactions
        where is_income = $1
    `, isIncome).Scan(&raw)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

func scanTransaction(row pgx.Row) (ledger.Transaction, error) {
	var t ledger.Transaction
	var spending string
	if err := row.Scan(&t.ID, &t.Date, &t.Title, &t.IsIncome, &spending); err != nil {
		return ledger.Transaction{}, err
	}
	amt, err := decimal.NewFromString(spending)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("parse spending %q: %w", spending, err)
	}
	t.Spending = amt
	t.Date = ledger.DateOf(t.Date)
	return t, nil
}
