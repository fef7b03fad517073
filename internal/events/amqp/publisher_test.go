package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"

	"github.com/tinoosan/spendlog/internal/events"
)

type published struct {
	exchange, key string
	msg           amqp091.Publishing
	hasDeadline   bool
}

type fakeChannel struct {
	got    []published
	err    error
	closed bool
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	_, ok := ctx.Deadline()
	c.got = append(c.got, published{exchange: exchange, key: key, msg: msg, hasDeadline: ok})
	return c.err
}

func (c *fakeChannel) Close() error { c.closed = true; return nil }

func TestPublish_RoutesByType(t *testing.T) {
	ch := &fakeChannel{}
	p := &Publisher{channel: ch, exchange: "spendlog"}
	e := events.Deleted(5)

	if err := p.Publish(context.Background(), e); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(ch.got) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(ch.got))
	}
	got := ch.got[0]
	if got.exchange != "spendlog" || got.key != "transaction.deleted" {
		t.Fatalf("exchange/key = %q/%q", got.exchange, got.key)
	}
	if !got.hasDeadline {
		t.Fatal("publish should run under a deadline")
	}
	if got.msg.DeliveryMode != amqp091.Persistent || got.msg.ContentType != "application/json" || got.msg.MessageId != e.ID.String() || got.msg.Type != "transaction.deleted" {
		t.Fatalf("unexpected publishing: %+v", got.msg)
	}
	var body map[string]any
	if err := json.Unmarshal(got.msg.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["transaction_id"] != float64(5) {
		t.Fatalf("unexpected body: %s", got.msg.Body)
	}

	if err := p.Close(); err != nil || !ch.closed {
		t.Fatalf("close: %v closed=%v", err, ch.closed)
	}
}

func TestPublish_WrapsChannelError(t *testing.T) {
	cause := errors.New("channel/connection is not open")
	p := &Publisher{channel: &fakeChannel{err: cause}, exchange: "spendlog"}
	if err := p.Publish(context.Background(), events.Deleted(1)); !errors.Is(err, cause) {
		t.Fatalf("expected wrapped channel error, got %v", err)
	}
}
