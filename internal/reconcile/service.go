// Package reconcile settles compensations the order service could not finish
// on its own.
package reconcile

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	kafkago "github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	kafkax "github.com/ariefcatur/go-parts-shop/internal/kafka"
	"github.com/ariefcatur/go-parts-shop/internal/orders"
)

type Applier interface {
	Apply(ctx context.Context, eventID string, p orders.ReconciliationNeededPayload) (bool, error)
}

type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

type Service struct {
	Repo  Applier
	Dedup Deduper // optional
	Log   *log.Entry
}

// Handle is installed as the consumer handler for the reconciliation topic.
// Returning an error leaves the offset uncommitted so the event is retried.
func (s *Service) Handle(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// A malformed event will never decode; retrying it would wedge the partition.
		s.Log.WithError(err).WithField("offset", m.Offset).Error("dropping undecodable event")
		return nil
	}
	if env.EventType != orders.EventReconciliationNeeded {
		return nil
	}
	lg := s.Log.WithFields(log.Fields{"event_id": env.EventID, "order_id": env.CorrelationID})

	if s.Dedup != nil {
		seen, err := s.Dedup.Seen(ctx, env.EventID)
		if err != nil {
			lg.WithError(err).Warn("dedup lookup failed")
		}
		if seen {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[orders.ReconciliationNeededPayload](env.Payload)
	if err != nil {
		lg.WithError(err).Error("dropping event with undecodable payload")
		return nil
	}

	applied, err := s.Repo.Apply(ctx, env.EventID, p)
	if err != nil {
		return errors.Wrapf(err, "reconcile order %s", p.OrderID)
	}
	if applied {
		lg.WithFields(log.Fields{"owed": p.Owed, "header_deleted": p.HeaderDeleted}).Info("reconciled")
	} else {
		lg.Debug("already reconciled")
	}

	if s.Dedup != nil {
		if err := s.Dedup.Mark(ctx, env.EventID); err != nil {
			lg.WithError(err).Warn("dedup mark failed")
		}
	}
	return nil
}
