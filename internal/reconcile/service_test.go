package reconcile

import (
	"context"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/ariefcatur/go-parts-shop/internal/kafka"
	"github.com/ariefcatur/go-parts-shop/internal/logging"
	"github.com/ariefcatur/go-parts-shop/internal/orders"
)

type fakeApplier struct {
	applied map[string]bool
	calls   int
	fail    error
}

func (f *fakeApplier) Apply(_ context.Context, eventID string, _ orders.ReconciliationNeededPayload) (bool, error) {
	f.calls++
	if f.fail != nil {
		return false, f.fail
	}
	if f.applied[eventID] {
		return false, nil
	}
	f.applied[eventID] = true
	return true, nil
}

type fakeDedup struct{ seen map[string]bool }

func (f *fakeDedup) Seen(_ context.Context, id string) (bool, error) { return f.seen[id], nil }
func (f *fakeDedup) Mark(_ context.Context, id string) error {
	f.seen[id] = true
	return nil
}

func message(eventType, eventID string) kafkago.Message {
	env := orders.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		EventVersion:  1,
		CorrelationID: "o-1",
		Payload: kafkax.MustMarshal(orders.ReconciliationNeededPayload{
			OrderID: "o-1",
			Owed:    []orders.ItemQty{{ProductID: "p-1", Qty: 2}},
		}),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestHandle_AppliesOnce(t *testing.T) {
	repo := &fakeApplier{applied: map[string]bool{}}
	dedup := &fakeDedup{seen: map[string]bool{}}
	s := &Service{Repo: repo, Dedup: dedup, Log: logging.Discard()}
	ctx := context.Background()

	require.NoError(t, s.Handle(ctx, message(orders.EventReconciliationNeeded, "ev-1")))
	require.NoError(t, s.Handle(ctx, message(orders.EventReconciliationNeeded, "ev-1")))

	assert.Equal(t, 1, repo.calls, "redelivery short-circuits on dedup")
	assert.True(t, repo.applied["ev-1"])
}

func TestHandle_WithoutDedupRepoIsIdempotent(t *testing.T) {
	repo := &fakeApplier{applied: map[string]bool{}}
	s := &Service{Repo: repo, Log: logging.Discard()}
	ctx := context.Background()

	require.NoError(t, s.Handle(ctx, message(orders.EventReconciliationNeeded, "ev-1")))
	require.NoError(t, s.Handle(ctx, message(orders.EventReconciliationNeeded, "ev-1")))
	assert.Equal(t, 2, repo.calls)
	assert.Len(t, repo.applied, 1)
}

func TestHandle_IgnoresOtherEventsAndGarbage(t *testing.T) {
	repo := &fakeApplier{applied: map[string]bool{}}
	s := &Service{Repo: repo, Log: logging.Discard()}
	ctx := context.Background()

	require.NoError(t, s.Handle(ctx, message(orders.EventOrderCommitted, "ev-2")))
	require.NoError(t, s.Handle(ctx, kafkago.Message{Value: []byte("{not json")}))
	assert.Zero(t, repo.calls)
}

func TestHandle_ApplyErrorIsRetried(t *testing.T) {
	repo := &fakeApplier{applied: map[string]bool{}, fail: errors.New("db down")}
	dedup := &fakeDedup{seen: map[string]bool{}}
	s := &Service{Repo: repo, Dedup: dedup, Log: logging.Discard()}

	err := s.Handle(context.Background(), message(orders.EventReconciliationNeeded, "ev-3"))
	require.Error(t, err)
	assert.False(t, dedup.seen["ev-3"], "failed events are not marked")
}
