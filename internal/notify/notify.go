// Package notify announces order outcomes after the fact. Nothing here is on
// the path that decides whether an order commits.
package notify

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	kafkax "github.com/ariefcatur/go-parts-shop/internal/kafka"
	"github.com/ariefcatur/go-parts-shop/internal/orders"
)

const eventVersion = 1

type Publisher interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafkago.Header) error
}

// Kafka publishes order events as JSON envelopes keyed by order id.
type Kafka struct {
	Committed      Publisher
	Reconciliation Publisher
	Service        string
	Log            *log.Entry
	now            func() time.Time
}

var _ orders.Notifier = (*Kafka)(nil)

func (k *Kafka) envelope(eventType, orderID string, payload any) orders.Envelope {
	now := time.Now
	if k.now != nil {
		now = k.now
	}
	return orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  eventVersion,
		OccurredAt:    now().UTC(),
		Producer:      k.Service,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
}

func (k *Kafka) publish(ctx context.Context, p Publisher, env orders.Envelope) {
	err := p.Publish(ctx, orders.PartitionKey(env.CorrelationID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	)
	if err != nil && k.Log != nil {
		k.Log.WithError(err).WithFields(log.Fields{"event_type": env.EventType, "order_id": env.CorrelationID}).
			Error("event not published")
	}
}

func (k *Kafka) OrderCommitted(ctx context.Context, o orders.Order) {
	k.publish(ctx, k.Committed, k.envelope(orders.EventOrderCommitted, o.ID, orders.CommittedPayload(o)))
}

func (k *Kafka) ReconciliationNeeded(ctx context.Context, p orders.ReconciliationNeededPayload) {
	k.publish(ctx, k.Reconciliation, k.envelope(orders.EventReconciliationNeeded, p.OrderID, p))
}

// Log is the notifier used when no broker is configured.
type Log struct{ Log *log.Entry }

var _ orders.Notifier = Log{}

func (l Log) OrderCommitted(_ context.Context, o orders.Order) {
	l.Log.WithFields(log.Fields{"event": orders.EventOrderCommitted, "order_id": o.ID, "total": o.Total.StringFixed(2)}).
		Info("order event")
}

func (l Log) ReconciliationNeeded(_ context.Context, p orders.ReconciliationNeededPayload) {
	l.Log.WithFields(log.Fields{
		"event":          orders.EventReconciliationNeeded,
		"order_id":       p.OrderID,
		"owed":           p.Owed,
		"header_deleted": p.HeaderDeleted,
	}).Warn("order event")
}
