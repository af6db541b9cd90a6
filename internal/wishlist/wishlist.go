package wishlist

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/ariefcatur/go-parts-shop/internal/postgres"
)

var (
	ErrDuplicate       = errors.New("product already in wishlist")
	ErrNotFound        = errors.New("wishlist entry not found")
	ErrProductNotFound = errors.New("product not found")
)

type Item struct {
	UserID    string
	ProductID string
	CreatedAt time.Time
}

type Store interface {
	List(ctx context.Context, userID string) ([]Item, error)
	Add(ctx context.Context, userID, productID string) (Item, error)
	Remove(ctx context.Context, userID, productID string) error
}

type Repo struct{ DB postgres.DBTX }

var _ Store = (*Repo)(nil)

func (r *Repo) List(ctx context.Context, userID string) ([]Item, error) {
	rows, err := r.DB.Query(ctx, `SELECT user_id, product_id, created_at FROM wishlist
		WHERE user_id=$1 ORDER BY created_at, product_id`, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list wishlist")
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.UserID, &it.ProductID, &it.CreatedAt); err != nil {
			return nil, pkgerrors.Wrap(err, "scan wishlist")
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) Add(ctx context.Context, userID, productID string) (Item, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return Item{}, ErrProductNotFound
	}
	it := Item{UserID: userID, ProductID: productID, CreatedAt: time.Now().UTC()}
	_, err := r.DB.Exec(ctx, `INSERT INTO wishlist(user_id, product_id, created_at) VALUES ($1,$2,$3)`,
		it.UserID, it.ProductID, it.CreatedAt)
	switch {
	case postgres.IsUniqueViolation(err):
		return Item{}, ErrDuplicate
	case postgres.IsForeignKeyViolation(err):
		return Item{}, ErrProductNotFound
	case err != nil:
		return Item{}, pkgerrors.Wrap(err, "add wishlist")
	}
	return it, nil
}

func (r *Repo) Remove(ctx context.Context, userID, productID string) error {
	if _, err := uuid.Parse(productID); err != nil {
		return ErrNotFound
	}
	ct, err := r.DB.Exec(ctx, `DELETE FROM wishlist WHERE user_id=$1 AND product_id=$2`, userID, productID)
	if err != nil {
		return pkgerrors.Wrap(err, "remove wishlist")
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
