package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ariefcatur/go-parts-shop/internal/postgres"
)

type Repo struct{ DB postgres.DBTX }

var _ Store = (*Repo)(nil)

// ListForUser returns lines in insertion order; the orchestrator relies on it
// being stable.
func (r *Repo) ListForUser(ctx context.Context, userID string) ([]Line, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT user_id, product_id, quantity, created_at, updated_at
		FROM cart_lines WHERE user_id=$1
		ORDER BY created_at, product_id`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart")
	}
	defer rows.Close()

	out := []Line{}
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.UserID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan cart line")
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repo) Upsert(ctx context.Context, userID, productID string, qty int, mode Mode) (Line, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return Line{}, ErrProductNotFound
	}
	if mode == Absolute && qty <= 0 {
		return Line{UserID: userID, ProductID: productID}, r.RemoveLine(ctx, userID, productID)
	}

	var (
		l   Line
		err error
	)
	switch {
	case mode == Absolute:
		err = r.DB.QueryRow(ctx, `
			INSERT INTO cart_lines(user_id, product_id, quantity) VALUES ($1,$2,$3)
			ON CONFLICT (user_id, product_id)
			DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()
			RETURNING user_id, product_id, quantity, created_at, updated_at`,
			userID, productID, qty).Scan(&l.UserID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt)
	case qty > 0:
		err = r.DB.QueryRow(ctx, `
			INSERT INTO cart_lines(user_id, product_id, quantity) VALUES ($1,$2,$3)
			ON CONFLICT (user_id, product_id)
			DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity, updated_at = now()
			RETURNING user_id, product_id, quantity, created_at, updated_at`,
			userID, productID, qty).Scan(&l.UserID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt)
	default:
		err = r.DB.QueryRow(ctx, `
			UPDATE cart_lines SET quantity = quantity + $3, updated_at = now()
			WHERE user_id=$1 AND product_id=$2 AND quantity + $3 > 0
			RETURNING user_id, product_id, quantity, created_at, updated_at`,
			userID, productID, qty).Scan(&l.UserID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt)
		if postgres.IsNoRows(err) {
			return Line{UserID: userID, ProductID: productID}, r.RemoveLine(ctx, userID, productID)
		}
	}
	if postgres.IsForeignKeyViolation(err) {
		return Line{}, ErrProductNotFound
	}
	if err != nil {
		return Line{}, errors.Wrap(err, "upsert cart line")
	}
	return l, nil
}

// RemoveLine is idempotent: removing an absent line is not an error.
func (r *Repo) RemoveLine(ctx context.Context, userID, productID string) error {
	if _, err := uuid.Parse(productID); err != nil {
		return nil
	}
	_, err := r.DB.Exec(ctx, `DELETE FROM cart_lines WHERE user_id=$1 AND product_id=$2`, userID, productID)
	return errors.Wrap(err, "remove cart line")
}

func (r *Repo) ClearForUser(ctx context.Context, userID string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM cart_lines WHERE user_id=$1`, userID)
	return errors.Wrap(err, "clear cart")
}
