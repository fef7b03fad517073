// Package sqlite stores the ledger in a single SQLite file through the pure-Go
// modernc driver. Amounts are kept as decimal text and summed in Go, since
// SQLite's SUM would coerce them to floating point.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/tinoosan/spendlog/internal/errs"
	"github.com/tinoosan/spendlog/internal/ledger"
)

// Store wraps a *sql.DB. SQLite allows one writer at a time, so the pool is
// capped at a single connection and database/sql queues concurrent callers.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dbPath. Run Migrate first.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

func ensureDir(dbPath string) error {
	if strings.HasPrefix(dbPath, "file:") || dbPath == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ready pings the database.
func (s *Store) Ready(ctx context.Context) error { return s.db.PingContext(ctx) }

// CreateTransaction inserts a row; AUTOINCREMENT guarantees ids are never reused.
func (s *Store) CreateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	t.Date = ledger.DateOf(t.Date)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (transaction_date, title, is_income, spending) VALUES (?, ?, ?, ?)`,
		ledger.FormatDate(t.Date), t.Title, t.IsIncome, t.Spending.String())
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("read inserted id: %w", err)
	}
	t.ID = id
	return t, nil
}

// DeleteTransaction removes a row by id.
func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ListTransactions returns all rows ordered by id.
func (s *Store) ListTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, transaction_date, title, is_income, spending FROM transactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
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
	row := s.db.QueryRowContext(ctx,
		`SELECT id, transaction_date, title, is_income, spending FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	return t, err
}

// SumSpending totals the matching amounts with exact decimal arithmetic.
func (s *Store) SumSpending(ctx context.Context, isIncome bool) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT spending FROM transactions WHERE is_income = ?`, isIncome)
	if err != nil {
		return decimal.Zero, fmt.Errorf("query spending: %w", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, err
		}
		amt, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse spending %q: %w", raw, err)
		}
		sum = sum.Add(amt)
	}
	return sum, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (ledger.Transaction, error) {
	var (
		t        ledger.Transaction
		date     string
		spending string
	)
	if err := row.Scan(&t.ID, &date, &t.Title, &t.IsIncome, &spending); err != nil {
		return ledger.Transaction{}, err
	}
	d, err := ledger.ParseDate(date)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("parse transaction_date %q: %w", date, err)
	}
	amt, err := decimal.NewFromString(spending)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("parse spending %q: %w", spending, err)
	}
	t.Date, t.Spending = d, amt
	return t, nil
}
