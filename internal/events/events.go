// Package events describes ledger change notifications and the publishers
// that carry them to a broker.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tinoosan/spendlog/internal/ledger"
)

// Type identifies what happened to a transaction.
type Type string

const (
	TransactionCreated Type = "transaction.created"
	TransactionDeleted Type = "transaction.deleted"
)

// Event is the message published after a committed ledger change.
type Event struct {
	ID            uuid.UUID    `json:"event_id"`
	Type          Type         `json:"type"`
	TransactionID int64        `json:"transaction_id"`
	Transaction   *Transaction `json:"transaction,omitempty"`
	OccurredAt    time.Time    `json:"occurred_at"`
}

// Transaction is the wire snapshot of a ledger record carried by created events.
// Spending is a bare JSON number, as in the HTTP API.
type Transaction struct {
	ID              int64       `json:"id"`
	TransactionDate string      `json:"transaction_date"`
	Title           string      `json:"title"`
	IsIncome        bool        `json:"is_income"`
	Spending        json.Number `json:"spending"`
}

// Created builds a transaction.created event for t.
func Created(t ledger.Transaction) Event {
	return Event{
		ID:            uuid.New(),
		Type:          TransactionCreated,
		TransactionID: t.ID,
		Transaction: &Transaction{
			ID:              t.ID,
			TransactionDate: ledger.FormatDate(t.Date),
			Title:           t.Title,
			IsIncome:        t.IsIncome,
			Spending:        json.Number(t.Spending.String()),
		},
		OccurredAt: time.Now().UTC(),
	}
}

// Deleted builds a transaction.deleted event for id.
func Deleted(id int64) Event {
	return Event{ID: uuid.New(), Type: TransactionDeleted, TransactionID: id, OccurredAt: time.Now().UTC()}
}

// Encode returns the JSON body for e.
func (e Event) Encode() ([]byte, error) { return json.Marshal(e) }

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

var publishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "spendlog",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Ledger events handed to the publisher, by type and result",
	},
	[]string{"type", "result"},
)

// Observe records the outcome of a publish attempt.
func Observe(e Event, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	publishedTotal.WithLabelValues(string(e.Type), result).Inc()
}
