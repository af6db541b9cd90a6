package orders

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-parts-shop/internal/apperr"
)

type StatusStore interface {
	Get(ctx context.Context, orderID string) (Order, error)
	UpdateStatus(ctx context.Context, orderID string, from, to Status) error
}

// ChangeStatus applies an administrative status transition. The update is
// conditional on the status read, so two admins racing on one order cannot
// both apply a transition from the same state.
func ChangeStatus(ctx context.Context, st StatusStore, orderID string, to Status) (Order, error) {
	if !to.Valid() {
		return Order{}, apperr.Invalid("unknown status " + string(to)).WithReason("invalid_status")
	}
	o, err := st.Get(ctx, orderID)
	if errors.Is(err, ErrOrderNotFound) {
		return Order{}, apperr.NotFound("order not found")
	}
	if err != nil {
		return Order{}, apperr.Internal(err)
	}
	if o.Status == to {
		return o, nil
	}
	if !CanTransition(o.Status, to) {
		return Order{}, apperr.Invalid("cannot move order from " + string(o.Status) + " to " + string(to)).
			WithReason("invalid_transition")
	}
	if err := st.UpdateStatus(ctx, orderID, o.Status, to); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return Order{}, apperr.Conflict("order status changed concurrently")
		}
		return Order{}, apperr.Internal(err)
	}
	o.Status = to
	return o, nil
}
