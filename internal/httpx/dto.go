package httpx

import (
	"time"

	"github.com/ariefcatur/go-parts-shop/internal/cart"
	"github.com/ariefcatur/go-parts-shop/internal/catalog"
	"github.com/ariefcatur/go-parts-shop/internal/orders"
	"github.com/ariefcatur/go-parts-shop/internal/users"
	"github.com/ariefcatur/go-parts-shop/internal/wishlist"
)

// Money is rendered as a fixed two-decimal string, never a float.

type orderLineDTO struct {
	Position  int    `json:"position"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type orderDTO struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	Status          string         `json:"status"`
	TotalAmount     string         `json:"total_amount"`
	ShippingAddress string         `json:"shipping_address"`
	PaymentMethod   string         `json:"payment_method"`
	Items           []orderLineDTO `json:"items"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func toOrderDTO(o orders.Order) orderDTO {
	items := make([]orderLineDTO, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, orderLineDTO{
			Position:  l.Position,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(2),
			Subtotal:  l.Subtotal().StringFixed(2),
		})
	}
	return orderDTO{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		TotalAmount:     o.Total.StringFixed(2),
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		Items:           items,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

type productDTO struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"category_id,omitempty"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Price       string    `json:"price"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toProductDTO(p catalog.Product) productDTO {
	return productDTO{
		ID:          p.ID,
		CategoryID:  p.CategoryID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Price:       p.Price.StringFixed(2),
		Quantity:    p.Quantity,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type categoryDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toCategoryDTO(c catalog.Category) categoryDTO {
	return categoryDTO{ID: c.ID, Name: c.Name, Description: c.Description, CreatedAt: c.CreatedAt}
}

type cartLineDTO struct {
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCartLineDTO(l cart.Line) cartLineDTO {
	return cartLineDTO{ProductID: l.ProductID, Quantity: l.Quantity, UpdatedAt: l.UpdatedAt}
}

type wishlistItemDTO struct {
	ProductID string    `json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

func toWishlistDTO(it wishlist.Item) wishlistItemDTO {
	return wishlistItemDTO{ProductID: it.ProductID, CreatedAt: it.CreatedAt}
}

// userDTO never carries the password hash.
type userDTO struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserDTO(u users.User) userDTO {
	return userDTO{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, CreatedAt: u.CreatedAt}
}

func mapSlice[T, D any](in []T, f func(T) D) []D {
	out := make([]D, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
