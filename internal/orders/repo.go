package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-parts-shop/internal/postgres"
)

// Repo is the Postgres order ledger.
type Repo struct{ DB postgres.DBTX }

var _ Ledger = (*Repo)(nil)

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *Repo) CreateHeader(ctx context.Context, h Header) (Order, error) {
	o := Order{
		ID:              uuid.NewString(),
		UserID:          h.UserID,
		Status:          StatusPending,
		Total:           h.Total,
		ShippingAddress: h.ShippingAddress,
		PaymentMethod:   h.PaymentMethod,
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	_, err := r.DB.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, total_amount, shipping_address, payment_method, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		o.ID, o.UserID, string(o.Status), o.Total, o.ShippingAddress, o.PaymentMethod, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return Order{}, errors.Wrap(err, "insert order header")
	}
	return o, nil
}

// AddLines inserts every line in one round trip.
func (r *Repo) AddLines(ctx context.Context, orderID string, lines []Line) error {
	if len(lines) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, l := range lines {
		b.Queue(`INSERT INTO order_items(order_id, position, product_id, quantity, unit_price)
		         VALUES ($1,$2,$3,$4,$5)`, orderID, l.Position, l.ProductID, l.Quantity, l.UnitPrice)
	}
	br := r.DB.SendBatch(ctx, b)
	for range lines {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return errors.Wrap(err, "insert order lines")
		}
	}
	return errors.Wrap(br.Close(), "close line batch")
}

func (r *Repo) UpdateTotal(ctx context.Context, orderID string, total decimal.Decimal) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET total_amount=$2, updated_at=now() WHERE id=$1`, orderID, total)
	if err != nil {
		return errors.Wrap(err, "update order total")
	}
	if ct.RowsAffected() != 1 {
		return ErrOrderNotFound
	}
	return nil
}

// Delete removes the header; order_items cascade.
func (r *Repo) Delete(ctx context.Context, orderID string) error {
	if !validID(orderID) {
		return ErrOrderNotFound
	}
	ct, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id=$1`, orderID)
	if err != nil {
		return errors.Wrap(err, "delete order")
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *Repo) UpdateStatus(ctx context.Context, orderID string, from, to Status) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$3, updated_at=now() WHERE id=$1 AND status=$2`,
		orderID, string(from), string(to))
	if err != nil {
		return errors.Wrap(err, "update order status")
	}
	if ct.RowsAffected() != 1 {
		return ErrStatusChanged
	}
	return nil
}

const headerColumns = `id, user_id, status, total_amount, shipping_address, payment_method, created_at, updated_at`

func scanHeader(row pgx.Row) (Order, error) {
	var o Order
	var status string
	err := row.Scan(&o.ID, &o.UserID, &status, &o.Total, &o.ShippingAddress, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt)
	o.Status = Status(status)
	return o, err
}

func (r *Repo) Get(ctx context.Context, orderID string) (Order, error) {
	if !validID(orderID) {
		return Order{}, ErrOrderNotFound
	}
	o, err := scanHeader(r.DB.QueryRow(ctx, `SELECT `+headerColumns+` FROM orders WHERE id=$1`, orderID))
	if postgres.IsNoRows(err) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, errors.Wrap(err, "get order")
	}
	byOrder, err := r.linesFor(ctx, []string{o.ID})
	if err != nil {
		return Order{}, err
	}
	o.Lines = byOrder[o.ID]
	return o, nil
}

// List returns headers newest first with their lines, fetched with one
// set-membership query rather than one query per order.
func (r *Repo) List(ctx context.Context, f ListFilter) ([]Order, error) {
	q := `SELECT ` + headerColumns + ` FROM orders`
	var args []any
	if f.UserID != "" {
		q += ` WHERE user_id=$1`
		args = append(args, f.UserID)
	}
	q += ` ORDER BY created_at DESC, id`

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	out := []Order{}
	for rows.Next() {
		o, err := scanHeader(rows)
		if err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scan order")
		}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, len(out))
	for i, o := range out {
		ids[i] = o.ID
	}
	byOrder, err := r.linesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Lines = byOrder[out[i].ID]
	}
	return out, nil
}

func (r *Repo) linesFor(ctx context.Context, orderIDs []string) (map[string][]Line, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, position, product_id, quantity, unit_price
		FROM order_items WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position`, orderIDs)
	if err != nil {
		return nil, errors.Wrap(err, "list order lines")
	}
	defer rows.Close()

	out := make(map[string][]Line, len(orderIDs))
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.OrderID, &l.Position, &l.ProductID, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, errors.Wrap(err, "scan order line")
		}
		out[l.OrderID] = append(out[l.OrderID], l)
	}
	return out, rows.Err()
}
