package catalog

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-parts-shop/internal/apperr"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrCategoryInUse     = errors.New("category still has products")
	ErrDuplicate         = errors.New("duplicate catalog entry")
)

type Product struct {
	ID          string
	CategoryID  string
	SKU         string
	Name        string
	Description string
	ImageURL    string
	Price       decimal.Decimal
	Quantity    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Category struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// PriceStock is the snapshot the order orchestrator prices a line from.
type PriceStock struct {
	Price    decimal.Decimal
	Quantity int
}

type ProductFilter struct {
	CategoryID string
}

// Validate checks the invariants a stored product must hold. Prices carry at
// most two fractional digits (cents).
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Invalid("name is required")
	}
	if strings.TrimSpace(p.SKU) == "" {
		return apperr.Invalid("sku is required")
	}
	if p.Price.IsNegative() {
		return apperr.Invalid("price must be >= 0")
	}
	if !p.Price.Equal(p.Price.Round(2)) {
		return apperr.Invalid("price must have at most two decimal places")
	}
	if p.Quantity < 0 {
		return apperr.Invalid("quantity must be >= 0")
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return apperr.Invalid("name is required")
	}
	return nil
}
