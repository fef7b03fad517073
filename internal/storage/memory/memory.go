package memory

// Package memory provides a simple in-memory implementation used for development and tests.
// It keeps code paths easy to follow while the SQL backends carry real deployments.
import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/tinoosan/spendlog/internal/errs"
	"github.com/tinoosan/spendlog/internal/ledger"
)

// Store is an in-memory implementation of the repository+writer used by the API.
// It is guarded by an RWMutex for concurrent reads/writes.
type Store struct {
	mu     sync.RWMutex
	lastID int64
	txns   map[int64]ledger.Transaction
	// order keeps ids in insertion order; ids only grow so it is also sorted.
	order []int64
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{txns: make(map[int64]ledger.Transaction)}
}

// Reset drops all records. The id counter is kept so ids are never reused.
func (s *Store) Reset() {
	s.mu.Lock()
	s.txns = map[int64]ledger.Transaction{}
	s.order = nil
	s.mu.Unlock()
}

// CreateTransaction assigns the next id and stores a copy of t.
func (s *Store) CreateTransaction(_ context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	t.ID = s.lastID
	t.Date = ledger.DateOf(t.Date)
	s.txns[t.ID] = t
	s.order = append(s.order, t.ID)
	return t, nil
}

// DeleteTransaction removes a record by id.
func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txns[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.txns, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// ListTransactions returns all records in insertion order.
func (s *Store) ListTransactions(_ context.Context) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Transaction, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.txns[id])
	}
	return out, nil
}

// GetTransaction returns a single record.
func (s *Store) GetTransaction(_ context.Context, id int64) (ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txns[id]
	if !ok {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	return t, nil
}

// SumSpending totals Spending over records matching isIncome.
func (s *Store) SumSpending(_ context.Context, isIncome bool) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := decimal.Zero
	for _, t := range s.txns {
		if t.IsIncome == isIncome {
			sum = sum.Add(t.Spending)
		}
	}
	return sum, nil
}
