package orders

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrOrderNotFound = errors.New("order not found")

// Order is the header plus its lines. Total always equals the sum of
// Quantity*UnitPrice over Lines once the order is committed.
type Order struct {
	ID              string
	UserID          string
	Status          Status
	Total           decimal.Decimal
	ShippingAddress string
	PaymentMethod   string
	Lines           []Line
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Line carries the unit price captured when the order was placed, not a
// reference to the live product price.
type Line struct {
	OrderID   string
	Position  int
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// SumLines is the authoritative total for a set of lines.
func SumLines(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Header is what CreateHeader persists before any line exists.
type Header struct {
	UserID          string
	ShippingAddress string
	PaymentMethod   string
	Total           decimal.Decimal
}

type ItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type ListFilter struct {
	UserID string // empty lists every user's orders
}
