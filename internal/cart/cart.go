// Package cart stores each user's desired product quantities until they are
// consumed into an order.
package cart

import (
	"context"
	"errors"
	"time"
)

var ErrProductNotFound = errors.New("product not found")

type Line struct {
	UserID    string
	ProductID string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Mode selects how Upsert interprets its quantity.
type Mode int

const (
	// Delta adds the quantity to the current one (negative values subtract).
	Delta Mode = iota
	// Absolute replaces the current quantity.
	Absolute
)

// Store is the cart contract. A line whose quantity would reach zero or less
// is removed rather than stored; Upsert then returns a Line with Quantity 0.
type Store interface {
	ListForUser(ctx context.Context, userID string) ([]Line, error)
	Upsert(ctx context.Context, userID, productID string, qty int, mode Mode) (Line, error)
	RemoveLine(ctx context.Context, userID, productID string) error
	ClearForUser(ctx context.Context, userID string) error
}
