package transaction_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tinoosan/spendlog/internal/errs"
	"github.com/tinoosan/spendlog/internal/events"
	"github.com/tinoosan/spendlog/internal/service/transaction"
	"github.com/tinoosan/spendlog/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type recordingPublisher struct {
	mu   sync.Mutex
	got  []events.Event
	fail bool
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, e)
	if p.fail {
		return errors.New("broker down")
	}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func setup(t *testing.T) (transaction.Service, *memory.Store, *recordingPublisher) {
	t.Helper()
	store := memory.New()
	pub := &recordingPublisher{}
	return transaction.New(store, store, pub, testLogger()), store, pub
}

func input(date, title string, income bool, amount string) transaction.Input {
	return transaction.Input{Date: date, Title: title, IsIncome: income, Spending: decimal.RequireFromString(amount)}
}

func TestCreate_AssignsFreshIDs(t *testing.T) {
	svc, _, pub := setup(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, input("2025-01-13", "Grocery shopping", true, "21.37"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := svc.Create(ctx, input("2025-01-14", "Rent", false, "500.00"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == 0 || a.ID == b.ID || b.ID < a.ID {
		t.Fatalf("expected increasing distinct ids, got %d and %d", a.ID, b.ID)
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	matches := 0
	for _, tx := range list {
		if tx.ID == a.ID {
			matches++
			if tx.Title != "Grocery shopping" || !tx.IsIncome || !tx.Spending.Equal(decimal.RequireFromString("21.37")) || tx.Date.Format("2006-01-02") != "2025-01-13" {
				t.Fatalf("stored record does not match input: %+v", tx)
			}
		}
	}
	if matches != 1 {
		t.Fatalf("expected exactly one record with id %d, got %d", a.ID, matches)
	}
	if len(pub.got) != 2 || pub.got[0].Type != events.TransactionCreated || pub.got[0].TransactionID != a.ID {
		t.Fatalf("unexpected events: %+v", pub.got)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, store, pub := setup(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		in    transaction.Input
		field string
	}{
		{"negative spending", input("2025-01-13", "Refund", false, "-0.01"), "spending"},
		{"empty title", input("2025-01-13", "", false, "1"), "title"},
		{"long title", input("2025-01-13", strings.Repeat("x", 201), false, "1"), "title"},
		{"missing date", input("", "Rent", false, "1"), "transaction_date"},
		{"bad date", input("2025-02-30", "Rent", false, "1"), "transaction_date"},
		{"bad date format", input("13/01/2025", "Rent", false, "1"), "transaction_date"},
		{"nul in title", input("2025-01-13", "Rent\x00", false, "1"), "title"},
		{"newline in title", input("2025-01-13", "Rent\nJanuary", false, "1"), "title"},
		{"huge exponent", input("2025-01-13", "Rent", false, "1e2000000000"), "spending"},
		{"tiny exponent", input("2025-01-13", "Rent", false, "1e-2000000000"), "spending"},
		{"zero with huge exponent", input("2025-01-13", "Rent", false, "0e2000000000"), "spending"},
		{"too many places", input("2025-01-13", "Rent", false, "0.0000001"), "spending"},
		{"at upper bound", input("2025-01-13", "Rent", false, "1000000000000000"), "spending"},
		{"long coefficient", input("2025-01-13", "Rent", false, "1"+strings.Repeat("0", 40)), "spending"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.in)
			if !errors.Is(err, errs.ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			var fe *transaction.FieldError
			if !errors.As(err, &fe) || fe.Field != tc.field {
				t.Fatalf("expected field %q, got %v", tc.field, err)
			}
		})
	}
	list, _ := store.ListTransactions(ctx)
	if len(list) != 0 {
		t.Fatalf("invalid input must not persist, found %d records", len(list))
	}
	if len(pub.got) != 0 {
		t.Fatalf("no events expected, got %d", len(pub.got))
	}
}

func TestCreate_TitleBoundaries(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, input("2025-01-13", "x", false, "0")); err != nil {
		t.Fatalf("1 char title: %v", err)
	}
	// 200 multi-byte characters is still within the limit
	if _, err := svc.Create(ctx, input("2025-01-13", strings.Repeat("ż", 200), false, "0")); err != nil {
		t.Fatalf("200 char title: %v", err)
	}
}

func TestCreate_SpendingBounds(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	for _, amount := range []string{"0", "0.000001", "999999999999999.99", "1e3", "500.00"} {
		if _, err := svc.Create(ctx, input("2025-01-13", "Rent", false, amount)); err != nil {
			t.Fatalf("amount %s should be accepted: %v", amount, err)
		}
	}
}

func TestDelete(t *testing.T) {
	svc, _, pub := setup(t)
	ctx := context.Background()
	tx, _ := svc.Create(ctx, input("2025-01-13", "Coffee", false, "3.50"))

	if err := svc.Delete(ctx, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, _ := svc.List(ctx)
	for _, got := range list {
		if got.ID == tx.ID {
			t.Fatalf("deleted id %d still listed", tx.ID)
		}
	}
	if err := svc.Delete(ctx, tx.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if last := pub.got[len(pub.got)-1]; last.Type != events.TransactionDeleted || last.TransactionID != tx.ID {
		t.Fatalf("unexpected last event: %+v", last)
	}
}

func TestAggregates_Scenario(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	_, _ = svc.Create(ctx, input("2025-01-13", "Grocery shopping", true, "21.37"))
	_, _ = svc.Create(ctx, input("2025-01-14", "Rent", false, "500.00"))

	income, _ := svc.TotalIncome(ctx)
	spending, _ := svc.TotalSpending(ctx)
	balance, _ := svc.Balance(ctx)
	if !income.Equal(decimal.RequireFromString("21.37")) {
		t.Fatalf("total income = %s", income)
	}
	if !spending.Equal(decimal.RequireFromString("500.00")) {
		t.Fatalf("total spending = %s", spending)
	}
	if !balance.Equal(decimal.RequireFromString("-478.63")) {
		t.Fatalf("balance = %s", balance)
	}
}

func TestAggregates_EmptyStore(t *testing.T) {
	svc, _, _ := setup(t)
	sum, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !sum.TotalIncome.IsZero() || !sum.TotalSpending.IsZero() || !sum.Balance.IsZero() {
		t.Fatalf("expected zeros, got %+v", sum)
	}
	if sum.Balance.StringFixed(2) != "0.00" {
		t.Fatalf("balance renders as %s", sum.Balance.StringFixed(2))
	}
}

func TestAggregates_OnlyBalanceRounds(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	_, _ = svc.Create(ctx, input("2025-01-13", "Interest", true, "0.006"))
	_, _ = svc.Create(ctx, input("2025-01-13", "Fee", false, "0.001"))

	income, _ := svc.TotalIncome(ctx)
	if income.String() != "0.006" {
		t.Fatalf("total income should stay unrounded, got %s", income)
	}
	balance, _ := svc.Balance(ctx)
	if balance.String() != "0.01" {
		t.Fatalf("balance = %s", balance)
	}
}

func TestBalanceMatchesTotals_AfterAddsAndDeletes(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	amounts := []string{"10.105", "3.333", "0.5", "250", "19.999", "7.01"}
	var ids []int64
	for i, a := range amounts {
		tx, err := svc.Create(ctx, input("2025-03-01", "item", i%2 == 0, a))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, tx.ID)
		check(t, svc)
	}
	for _, id := range ids[:3] {
		if err := svc.Delete(ctx, id); err != nil {
			t.Fatalf("delete: %v", err)
		}
		check(t, svc)
	}
}

func check(t *testing.T, svc transaction.Service) {
	t.Helper()
	ctx := context.Background()
	income, _ := svc.TotalIncome(ctx)
	spending, _ := svc.TotalSpending(ctx)
	balance, _ := svc.Balance(ctx)
	if want := income.Sub(spending).Round(2); !want.Equal(balance) {
		t.Fatalf("balance %s != round(%s - %s) = %s", balance, income, spending, want)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	svc, store, pub := setup(t)
	pub.fail = true
	tx, err := svc.Create(context.Background(), input("2025-01-13", "Salary", true, "100"))
	if err != nil {
		t.Fatalf("create should succeed despite publish failure: %v", err)
	}
	if _, err := store.GetTransaction(context.Background(), tx.ID); err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
}

// blockingPublisher waits for its context, like a writer retrying an unreachable broker.
type blockingPublisher struct{ calls int }

func (p *blockingPublisher) Publish(ctx context.Context, _ events.Event) error {
	p.calls++
	<-ctx.Done()
	return ctx.Err()
}

func (p *blockingPublisher) Close() error { return nil }

func TestSlowPublisherIsBounded(t *testing.T) {
	store := memory.New()
	pub := &blockingPublisher{}
	svc := transaction.New(store, store, pub, testLogger(), transaction.WithPublishTimeout(50*time.Millisecond))
	ctx := context.Background()

	start := time.Now()
	tx, err := svc.Create(ctx, input("2025-01-13", "Salary", true, "100"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("writes waited %v on the publisher", elapsed)
	}
	if pub.calls != 2 {
		t.Fatalf("expected 2 publish attempts, got %d", pub.calls)
	}
}

// cancelCheckingPublisher records whether the request's cancellation reached it.
type cancelCheckingPublisher struct{ sawCanceled bool }

func (p *cancelCheckingPublisher) Publish(ctx context.Context, _ events.Event) error {
	p.sawCanceled = ctx.Err() != nil
	return nil
}

func (p *cancelCheckingPublisher) Close() error { return nil }

func TestPublishOutlivesRequestCancellation(t *testing.T) {
	store := memory.New()
	pub := &cancelCheckingPublisher{}
	svc := transaction.New(store, store, pub, testLogger())
	tx, err := svc.Create(context.Background(), input("2025-01-13", "Salary", true, "100"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// the memory store ignores ctx, so the delete commits and then publishes
	if err := svc.Delete(ctx, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if pub.sawCanceled {
		t.Fatal("publish context should not inherit request cancellation")
	}
}

type failingStore struct{ *memory.Store }

func (failingStore) SumSpending(context.Context, bool) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("disk on fire")
}

func TestSummary_PropagatesStoreError(t *testing.T) {
	fs := failingStore{memory.New()}
	svc := transaction.New(fs, fs, nil, nil)
	if _, err := svc.Balance(context.Background()); err == nil || errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected internal error, got %v", err)
	}
}
