// Package transaction implements the ledger rules: input validation, record
// creation and deletion, and the income/spending/balance aggregates.
package transaction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/tinoosan/spendlog/internal/errs"
	"github.com/tinoosan/spendlog/internal/events"
	"github.com/tinoosan/spendlog/internal/ledger"
)

// Repo defines read operations needed by the service.
type Repo interface {
	ListTransactions(ctx context.Context) ([]ledger.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (ledger.Transaction, error)
	// SumSpending returns the sum of Spending over records with the given
	// IsIncome flag, or zero when there are none.
	SumSpending(ctx context.Context, isIncome bool) (decimal.Decimal, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	// CreateTransaction persists t and returns it with the store-assigned ID.
	CreateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error)
	// DeleteTransaction removes the record or returns errs.ErrNotFound.
	DeleteTransaction(ctx context.Context, id int64) error
}

// Input is an unsaved transaction as received from a caller.
type Input struct {
	Date     string
	Title    string
	IsIncome bool
	Spending decimal.Decimal
}

// Service exposes the ledger operations.
type Service interface {
	Validate(in Input) error
	Create(ctx context.Context, in Input) (ledger.Transaction, error)
	List(ctx context.Context) ([]ledger.Transaction, error)
	Get(ctx context.Context, id int64) (ledger.Transaction, error)
	Delete(ctx context.Context, id int64) error
	TotalIncome(ctx context.Context) (decimal.Decimal, error)
	TotalSpending(ctx context.Context) (decimal.Decimal, error)
	Balance(ctx context.Context) (decimal.Decimal, error)
	Summary(ctx context.Context) (ledger.Summary, error)
}

type service struct {
	repo   Repo
	writer Writer
	pub    events.Publisher
	log    *slog.Logger

	publishTimeout time.Duration
}

// DefaultPublishTimeout bounds how long a create or delete waits on the broker.
const DefaultPublishTimeout = 2 * time.Second

// Option configures the service.
type Option func(*service)

// WithPublishTimeout overrides DefaultPublishTimeout. Non-positive values are ignored.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *service) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

// New constructs the service. A nil publisher discards events and a nil logger
// falls back to slog.Default.
func New(repo Repo, writer Writer, pub events.Publisher, logger *slog.Logger, opts ...Option) Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &service{repo: repo, writer: writer, pub: pub, log: logger, publishTimeout: DefaultPublishTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FieldError reports a single invalid input field. It matches errs.ErrInvalid.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Reason }
func (e *FieldError) Unwrap() error { return errs.ErrInvalid }

func fieldErr(field, reason string) error { return &FieldError{Field: field, Reason: reason} }

func (s *service) Validate(in Input) error {
	if _, err := ledger.ParseDate(in.Date); err != nil {
		if in.Date == "" {
			return fieldErr("transaction_date", "required")
		}
		return fieldErr("transaction_date", "must be a valid YYYY-MM-DD date")
	}
	if n := utf8.RuneCountInString(in.Title); n < 1 || n > ledger.MaxTitleLen {
		return fieldErr("title", fmt.Sprintf("must be 1-%d characters", ledger.MaxTitleLen))
	}
	if strings.IndexFunc(in.Title, unicode.IsControl) >= 0 {
		return fieldErr("title", "must not contain control characters")
	}
	return validateSpending(in.Spending)
}

// validateSpending checks the exponent and digit count only. Comparing or
// printing a decimal with an extreme exponent expands it to every digit.
func validateSpending(d decimal.Decimal) error {
	if d.IsNegative() {
		return fieldErr("spending", "must be >= 0")
	}
	exp := int(d.Exponent())
	if exp < -ledger.MaxSpendingScale {
		return fieldErr("spending", fmt.Sprintf("must have at most %d decimal places", ledger.MaxSpendingScale))
	}
	// coefficient of n digits times 10^exp is below 10^(n+exp)
	if exp > ledger.MaxSpendingDigits || d.NumDigits()+exp > ledger.MaxSpendingDigits {
		return fieldErr("spending", fmt.Sprintf("must be less than 1e%d", ledger.MaxSpendingDigits))
	}
	return nil
}

func (s *service) Create(ctx context.Context, in Input) (ledger.Transaction, error) {
	if err := s.Validate(in); err != nil {
		return ledger.Transaction{}, err
	}
	date, _ := ledger.ParseDate(in.Date)
	saved, err := s.writer.CreateTransaction(ctx, ledger.Transaction{
		Date:     date,
		Title:    in.Title,
		IsIncome: in.IsIncome,
		Spending: in.Spending,
	})
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.log.InfoContext(ctx, "transaction created", "id", saved.ID, "kind", saved.Kind(), "spending", saved.Spending.String())
	s.publish(ctx, events.Created(saved))
	return saved, nil
}

func (s *service) List(ctx context.Context) ([]ledger.Transaction, error) {
	out, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if out == nil {
		out = []ledger.Transaction{}
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id int64) (ledger.Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := s.writer.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "transaction deleted", "id", id)
	s.publish(ctx, events.Deleted(id))
	return nil
}

// TotalIncome is unrounded; only Balance rounds.
func (s *service) TotalIncome(ctx context.Context) (decimal.Decimal, error) {
	return s.repo.SumSpending(ctx, true)
}

func (s *service) TotalSpending(ctx context.Context) (decimal.Decimal, error) {
	return s.repo.SumSpending(ctx, false)
}

func (s *service) Balance(ctx context.Context) (decimal.Decimal, error) {
	sum, err := s.Summary(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return sum.Balance, nil
}

// Summary reads both totals and derives the balance rounded to 2 places.
// The two sums are separate reads and are not a point-in-time snapshot.
func (s *service) Summary(ctx context.Context) (ledger.Summary, error) {
	income, err := s.TotalIncome(ctx)
	if err != nil {
		return ledger.Summary{}, fmt.Errorf("sum income: %w", err)
	}
	spending, err := s.TotalSpending(ctx)
	if err != nil {
		return ledger.Summary{}, fmt.Errorf("sum spending: %w", err)
	}
	return ledger.Summary{
		TotalIncome:   income,
		TotalSpending: spending,
		Balance:       BalanceOf(income, spending),
	}, nil
}

// BalanceOf returns income - spending rounded to 2 decimal places.
func BalanceOf(income, spending decimal.Decimal) decimal.Decimal {
	return income.Sub(spending).Round(2)
}

// publish is best-effort: the write has already committed, so a broker
// failure is logged and counted but not returned. The attempt is detached from
// request cancellation and bounded by publishTimeout.
func (s *service) publish(ctx context.Context, e events.Event) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	err := s.pub.Publish(pctx, e)
	events.Observe(e, err)
	if err != nil {
		s.log.WarnContext(ctx, "publish ledger event failed", "type", e.Type, "transaction_id", e.TransactionID, "err", err)
	}
}
