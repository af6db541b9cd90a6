package orders

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/ariefcatur/go-parts-shop/internal/postgres"
)

type RestorationRepo struct{ DB *pgxpool.Pool }

// Apply settles a reconciliation event in one transaction: the event id is
// recorded first (ON CONFLICT DO NOTHING), so a redelivered event is a no-op,
// then owed stock is given back and any orphan header is removed.
func (r *RestorationRepo) Apply(ctx context.Context, eventID string, p ReconciliationNeededPayload) (applied bool, err error) {
	err = postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
			INSERT INTO stock_restorations(event_id, order_id) VALUES ($1,$2)
			ON CONFLICT (event_id) DO NOTHING`, eventID, p.OrderID)
		if err != nil {
			return errors.Wrap(err, "record restoration")
		}
		if ct.RowsAffected() == 0 {
			return nil
		}
		applied = true

		for _, it := range p.Owed {
			// A product deleted since the order attempt has no stock to restore.
			if _, err := tx.Exec(ctx, `UPDATE products SET quantity = quantity + $2, updated_at = now() WHERE id=$1`,
				it.ProductID, it.Qty); err != nil {
				return errors.Wrapf(err, "restore stock %s", it.ProductID)
			}
		}
		if !p.HeaderDeleted {
			if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, p.OrderID); err != nil {
				return errors.Wrap(err, "delete orphan order")
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}
