// Package memstore keeps every shop entity in process memory behind one
// mutex. It has no transactions, so the order service runs against it in
// compensate mode.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-parts-shop/internal/cart"
	"github.com/ariefcatur/go-parts-shop/internal/catalog"
	"github.com/ariefcatur/go-parts-shop/internal/orders"
	"github.com/ariefcatur/go-parts-shop/internal/users"
	"github.com/ariefcatur/go-parts-shop/internal/wishlist"
)

type Store struct {
	mu         sync.Mutex
	seq        int64
	products   map[string]catalog.Product
	categories map[string]catalog.Category
	carts      map[string][]cart.Line
	orders     map[string]orders.Order
	orderSeq   map[string]int64
	wishlists  map[string][]wishlist.Item
	users      map[string]users.User
}

func New() *Store {
	return &Store{
		products:   map[string]catalog.Product{},
		categories: map[string]catalog.Category{},
		carts:      map[string][]cart.Line{},
		orders:     map[string]orders.Order{},
		orderSeq:   map[string]int64{},
		wishlists:  map[string][]wishlist.Item{},
		users:      map[string]users.User{},
	}
}

func (s *Store) Catalog() *Catalog     { return &Catalog{s} }
func (s *Store) Carts() *Carts         { return &Carts{s} }
func (s *Store) Orders() *Orders       { return &Orders{s} }
func (s *Store) Wishlists() *Wishlists { return &Wishlists{s} }
func (s *Store) Users() *Users         { return &Users{s} }

// OrderStores returns the accessors the order service places orders with.
func (s *Store) OrderStores() orders.Stores {
	return orders.Stores{Stock: s.Catalog(), Ledger: s.Orders()}
}

func now() time.Time { return time.Now().UTC() }

// ---- catalog ----

type Catalog struct{ s *Store }

func (c *Catalog) GetPriceAndStock(_ context.Context, productID string) (catalog.PriceStock, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	p, ok := c.s.products[productID]
	if !ok {
		return catalog.PriceStock{}, catalog.ErrProductNotFound
	}
	return catalog.PriceStock{Price: p.Price, Quantity: p.Quantity}, nil
}

// DecrementStock checks and writes under one lock hold.
func (c *Catalog) DecrementStock(_ context.Context, productID string, amount int) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	p, ok := c.s.products[productID]
	if !ok {
		return catalog.ErrProductNotFound
	}
	if amount <= 0 || p.Quantity < amount {
		return catalog.ErrInsufficientStock
	}
	p.Quantity -= amount
	p.UpdatedAt = now()
	c.s.products[productID] = p
	return nil
}

func (c *Catalog) RestoreStock(_ context.Context, productID string, amount int) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	p, ok := c.s.products[productID]
	if !ok {
		return catalog.ErrProductNotFound
	}
	p.Quantity += amount
	p.UpdatedAt = now()
	c.s.products[productID] = p
	return nil
}

func (c *Catalog) ListProducts(_ context.Context, f catalog.ProductFilter) ([]catalog.Product, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	out := []catalog.Product{}
	for _, p := range c.s.products {
		if f.CategoryID != "" && p.CategoryID != f.CategoryID {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c *Catalog) GetProduct(_ context.Context, id string) (catalog.Product, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	p, ok := c.s.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (c *Catalog) skuTaken(sku, exceptID string) bool {
	for id, p := range c.s.products {
		if id != exceptID && strings.EqualFold(p.SKU, sku) {
			return true
		}
	}
	return false
}

func (c *Catalog) CreateProduct(_ context.Context, p catalog.Product) (catalog.Product, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if p.CategoryID != "" {
		if _, ok := c.s.categories[p.CategoryID]; !ok {
			return catalog.Product{}, catalog.ErrCategoryNotFound
		}
	}
	if c.skuTaken(p.SKU, "") {
		return catalog.Product{}, catalog.ErrDuplicate
	}
	p.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = now(), now()
	c.s.products[p.ID] = p
	return p, nil
}

func (c *Catalog) UpdateProduct(_ context.Context, p catalog.Product) (catalog.Product, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	old, ok := c.s.products[p.ID]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	if p.CategoryID != "" {
		if _, ok := c.s.categories[p.CategoryID]; !ok {
			return catalog.Product{}, catalog.ErrCategoryNotFound
		}
	}
	if c.skuTaken(p.SKU, p.ID) {
		return catalog.Product{}, catalog.ErrDuplicate
	}
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = now()
	c.s.products[p.ID] = p
	return p, nil
}

func (c *Catalog) DeleteProduct(_ context.Context, id string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if _, ok := c.s.products[id]; !ok {
		return catalog.ErrProductNotFound
	}
	delete(c.s.products, id)
	for user, lines := range c.s.carts {
		c.s.carts[user] = removeLine(lines, id)
	}
	for user, items := range c.s.wishlists {
		c.s.wishlists[user] = removeWish(items, id)
	}
	return nil
}

func (c *Catalog) ListCategories(_ context.Context) ([]catalog.Category, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	out := make([]catalog.Category, 0, len(c.s.categories))
	for _, cat := range c.s.categories {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *Catalog) CreateCategory(_ context.Context, cat catalog.Category) (catalog.Category, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, existing := range c.s.categories {
		if strings.EqualFold(existing.Name, cat.Name) {
			return catalog.Category{}, catalog.ErrDuplicate
		}
	}
	cat.ID = uuid.NewString()
	cat.CreatedAt = now()
	c.s.categories[cat.ID] = cat
	return cat, nil
}

func (c *Catalog) DeleteCategory(_ context.Context, id string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if _, ok := c.s.categories[id]; !ok {
		return catalog.ErrCategoryNotFound
	}
	for _, p := range c.s.products {
		if p.CategoryID == id {
			return catalog.ErrCategoryInUse
		}
	}
	delete(c.s.categories, id)
	return nil
}

// SetPrice is a test helper for changing a price without a full update.
func (c *Catalog) SetPrice(productID string, price decimal.Decimal) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	p := c.s.products[productID]
	p.Price = price
	c.s.products[productID] = p
}

// ---- cart ----

type Carts struct{ s *Store }

var _ cart.Store = (*Carts)(nil)

func removeLine(lines []cart.Line, productID string) []cart.Line {
	out := lines[:0:0]
	for _, l := range lines {
		if l.ProductID != productID {
			out = append(out, l)
		}
	}
	return out
}

func (c *Carts) ListForUser(_ context.Context, userID string) ([]cart.Line, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return append([]cart.Line{}, c.s.carts[userID]...), nil
}

func (c *Carts) Upsert(_ context.Context, userID, productID string, qty int, mode cart.Mode) (cart.Line, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if _, ok := c.s.products[productID]; !ok {
		return cart.Line{}, cart.ErrProductNotFound
	}
	lines := c.s.carts[userID]
	idx := -1
	for i, l := range lines {
		if l.ProductID == productID {
			idx = i
			break
		}
	}
	next := qty
	if mode == cart.Delta && idx >= 0 {
		next = lines[idx].Quantity + qty
	}
	if next <= 0 {
		c.s.carts[userID] = removeLine(lines, productID)
		return cart.Line{UserID: userID, ProductID: productID}, nil
	}
	if idx >= 0 {
		lines[idx].Quantity = next
		lines[idx].UpdatedAt = now()
		return lines[idx], nil
	}
	l := cart.Line{UserID: userID, ProductID: productID, Quantity: next, CreatedAt: now(), UpdatedAt: now()}
	c.s.carts[userID] = append(lines, l)
	return l, nil
}

func (c *Carts) RemoveLine(_ context.Context, userID, productID string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.carts[userID] = removeLine(c.s.carts[userID], productID)
	return nil
}

func (c *Carts) ClearForUser(_ context.Context, userID string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	delete(c.s.carts, userID)
	return nil
}

// ---- orders ----

type Orders struct{ s *Store }

var _ orders.Ledger = (*Orders)(nil)

func (o *Orders) CreateHeader(_ context.Context, h orders.Header) (orders.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	ord := orders.Order{
		ID:              uuid.NewString(),
		UserID:          h.UserID,
		Status:          orders.StatusPending,
		Total:           h.Total,
		ShippingAddress: h.ShippingAddress,
		PaymentMethod:   h.PaymentMethod,
		CreatedAt:       now(),
	}
	ord.UpdatedAt = ord.CreatedAt
	o.s.seq++
	o.s.orders[ord.ID] = ord
	o.s.orderSeq[ord.ID] = o.s.seq
	return ord, nil
}

func (o *Orders) AddLines(_ context.Context, orderID string, lines []orders.Line) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	ord, ok := o.s.orders[orderID]
	if !ok {
		return orders.ErrOrderNotFound
	}
	ord.Lines = append(append([]orders.Line{}, ord.Lines...), lines...)
	o.s.orders[orderID] = ord
	return nil
}

func (o *Orders) UpdateTotal(_ context.Context, orderID string, total decimal.Decimal) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	ord, ok := o.s.orders[orderID]
	if !ok {
		return orders.ErrOrderNotFound
	}
	ord.Total = total
	ord.UpdatedAt = now()
	o.s.orders[orderID] = ord
	return nil
}

func (o *Orders) Delete(_ context.Context, orderID string) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if _, ok := o.s.orders[orderID]; !ok {
		return orders.ErrOrderNotFound
	}
	delete(o.s.orders, orderID)
	delete(o.s.orderSeq, orderID)
	return nil
}

func (o *Orders) Get(_ context.Context, orderID string) (orders.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	ord, ok := o.s.orders[orderID]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return cloneOrder(ord), nil
}

// List is newest first; creation sequence breaks timestamp ties.
func (o *Orders) List(_ context.Context, f orders.ListFilter) ([]orders.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	out := []orders.Order{}
	for _, ord := range o.s.orders {
		if f.UserID != "" && ord.UserID != f.UserID {
			continue
		}
		out = append(out, cloneOrder(ord))
	}
	sort.Slice(out, func(i, j int) bool {
		return o.s.orderSeq[out[i].ID] > o.s.orderSeq[out[j].ID]
	})
	return out, nil
}

func (o *Orders) UpdateStatus(_ context.Context, orderID string, from, to orders.Status) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	ord, ok := o.s.orders[orderID]
	if !ok || ord.Status != from {
		return orders.ErrStatusChanged
	}
	ord.Status = to
	ord.UpdatedAt = now()
	o.s.orders[orderID] = ord
	return nil
}

func cloneOrder(o orders.Order) orders.Order {
	o.Lines = append([]orders.Line{}, o.Lines...)
	return o
}

// ---- wishlist ----

type Wishlists struct{ s *Store }

var _ wishlist.Store = (*Wishlists)(nil)

func removeWish(items []wishlist.Item, productID string) []wishlist.Item {
	out := items[:0:0]
	for _, it := range items {
		if it.ProductID != productID {
			out = append(out, it)
		}
	}
	return out
}

func (w *Wishlists) List(_ context.Context, userID string) ([]wishlist.Item, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return append([]wishlist.Item{}, w.s.wishlists[userID]...), nil
}

func (w *Wishlists) Add(_ context.Context, userID, productID string) (wishlist.Item, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	if _, ok := w.s.products[productID]; !ok {
		return wishlist.Item{}, wishlist.ErrProductNotFound
	}
	for _, it := range w.s.wishlists[userID] {
		if it.ProductID == productID {
			return wishlist.Item{}, wishlist.ErrDuplicate
		}
	}
	it := wishlist.Item{UserID: userID, ProductID: productID, CreatedAt: now()}
	w.s.wishlists[userID] = append(w.s.wishlists[userID], it)
	return it, nil
}

func (w *Wishlists) Remove(_ context.Context, userID, productID string) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	before := len(w.s.wishlists[userID])
	w.s.wishlists[userID] = removeWish(w.s.wishlists[userID], productID)
	if len(w.s.wishlists[userID]) == before {
		return wishlist.ErrNotFound
	}
	return nil
}

// ---- users ----

type Users struct{ s *Store }

var _ users.Store = (*Users)(nil)

func (u *Users) Create(_ context.Context, usr users.User) (users.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, existing := range u.s.users {
		if existing.Email == usr.Email {
			return users.User{}, users.ErrEmailTaken
		}
	}
	usr.ID = uuid.NewString()
	usr.CreatedAt = now()
	u.s.users[usr.ID] = usr
	return usr, nil
}

func (u *Users) GetByEmail(_ context.Context, email string) (users.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, usr := range u.s.users {
		if usr.Email == email {
			return usr, nil
		}
	}
	return users.User{}, users.ErrNotFound
}

func (u *Users) List(_ context.Context) ([]users.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	out := make([]users.User, 0, len(u.s.users))
	for _, usr := range u.s.users {
		usr.PasswordHash = ""
		out = append(out, usr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}
