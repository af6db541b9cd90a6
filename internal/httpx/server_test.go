package httpx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ariefcatur/go-parts-shop/internal/auth"
	"github.com/ariefcatur/go-parts-shop/internal/httpx"
	"github.com/ariefcatur/go-parts-shop/internal/logging"
	"github.com/ariefcatur/go-parts-shop/internal/memstore"
	"github.com/ariefcatur/go-parts-shop/internal/metrics"
	"github.com/ariefcatur/go-parts-shop/internal/orders"
	"github.com/ariefcatur/go-parts-shop/internal/redisx"
	"github.com/ariefcatur/go-parts-shop/internal/users"
)

type memKV struct {
	mu sync.Mutex
	m  map[string]string
}

func (k *memKV) SetNX(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.m[key]; ok {
		return false, nil
	}
	k.m[key] = value
	return true, nil
}

func (k *memKV) Get(_ context.Context, key string) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.m[key]
	return v, ok, nil
}

func (k *memKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.m[key] = value
	return nil
}

func (k *memKV) Del(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.m, key)
	return nil
}

type env struct {
	t      *testing.T
	h      http.Handler
	tokens *auth.Tokens
	mem    *memstore.Store
	admin  string
	user   string
}

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func newEnv(t *testing.T) *env {
	t.Helper()
	lg := logging.Discard()
	mem := memstore.New()
	tokens := auth.NewTokens("test-secret", time.Hour, lg)
	srv := &httpx.Server{
		Tokens: tokens,
		Orders: &orders.Service{
			Stores: mem.OrderStores(),
			Cart:   mem.Carts(),
			Log:    lg,
		},
		OrderStore: mem.Orders(),
		Catalog:    mem.Catalog(),
		Cart:       mem.Carts(),
		Wishlist:   mem.Wishlists(),
		Accounts:   &users.Service{Store: mem.Users(), Tokens: tokens, Cost: bcrypt.MinCost},
		Idem:       &redisx.Idempotency{KV: &memKV{m: map[string]string{}}},
		Metrics:    metrics.New(),
		Log:        lg,
	}
	e := &env{t: t, h: srv.Routes(), tokens: tokens, mem: mem}
	e.admin = e.token("admin-1", auth.RoleAdmin)
	e.user = e.token("user-1", auth.RoleUser)
	return e
}

func (e *env) token(user, role string) string {
	tok, err := e.tokens.Issue(auth.Identity{UserID: user, Role: role})
	require.NoError(e.t, err)
	return tok
}

func (e *env) do(method, path, token string, body any, headers ...string) (int, response) {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)

	var r response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &r))
	}
	return rec.Code, r
}

func (e *env) createProduct(sku, price string, qty int) string {
	e.t.Helper()
	code, r := e.do(http.MethodPost, "/products", e.admin, map[string]any{
		"sku": sku, "name": sku, "price": price, "quantity": qty,
	})
	require.Equal(e.t, http.StatusCreated, code, r.Message)
	var p struct {
		ID    string `json:"id"`
		Price string `json:"price"`
	}
	require.NoError(e.t, json.Unmarshal(r.Data, &p))
	require.Equal(e.t, price, p.Price)
	return p.ID
}

type orderBody struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Status      string `json:"status"`
	TotalAmount string `json:"total_amount"`
	Items       []struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
		UnitPrice string `json:"unit_price"`
	} `json:"items"`
}

type createBody struct {
	Order      orderBody `json:"order"`
	Idempotent bool      `json:"idempotent"`
}

func TestCORSPreflight(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/orders", nil)
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestAuthGates(t *testing.T) {
	e := newEnv(t)

	code, r := e.do(http.MethodPost, "/orders", "", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, r.Success)
	assert.Equal(t, "unauthenticated", r.Error)

	code, r = e.do(http.MethodGet, "/cart", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "authentication required", r.Message)

	code, r = e.do(http.MethodGet, "/admin/users", e.user, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", r.Error)

	code, _ = e.do(http.MethodPost, "/products", e.user, map[string]any{"sku": "x", "name": "x", "price": "1"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = e.do(http.MethodGet, "/products", "", nil)
	assert.Equal(t, http.StatusOK, code, "listings are public")
}

func TestOrderFromCart(t *testing.T) {
	e := newEnv(t)
	p1 := e.createProduct("P1", "10.00", 5)
	p2 := e.createProduct("P2", "5.00", 5)

	code, _ := e.do(http.MethodPost, "/cart", e.user, map[string]any{"product_id": p1, "quantity": 1})
	require.Equal(t, http.StatusOK, code)
	code, _ = e.do(http.MethodPost, "/cart", e.user, map[string]any{"product_id": p1, "quantity": 1})
	require.Equal(t, http.StatusOK, code)
	code, _ = e.do(http.MethodPut, "/cart", e.user, map[string]any{"product_id": p2, "quantity": 1})
	require.Equal(t, http.StatusOK, code)

	code, r := e.do(http.MethodPost, "/orders", e.user, map[string]any{
		"shipping_address": "1 Main St", "payment_method": "card",
	})
	require.Equal(t, http.StatusCreated, code, r.Message)
	var created createBody
	require.NoError(t, json.Unmarshal(r.Data, &created))
	assert.Equal(t, "25.00", created.Order.TotalAmount)
	assert.Equal(t, "pending", created.Order.Status)
	assert.Len(t, created.Order.Items, 2)
	assert.False(t, created.Idempotent)

	_, r = e.do(http.MethodGet, "/cart", e.user, nil)
	assert.JSONEq(t, `[]`, string(r.Data))

	_, r = e.do(http.MethodGet, "/orders", e.user, nil)
	var list []orderBody
	require.NoError(t, json.Unmarshal(r.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.Order.ID, list[0].ID)

	// Other users cannot see it; admins can.
	code, r = e.do(http.MethodGet, "/orders/"+created.Order.ID, e.token("user-2", auth.RoleUser), nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", r.Error)
	code, _ = e.do(http.MethodGet, "/orders/"+created.Order.ID, e.admin, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestOrderErrors(t *testing.T) {
	e := newEnv(t)
	p := e.createProduct("P1", "3.00", 3)

	code, r := e.do(http.MethodPost, "/orders", e.user, map[string]any{
		"shipping_address": "x", "payment_method": "card",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "empty_cart", r.Error)

	code, r = e.do(http.MethodPost, "/orders", e.user, map[string]any{
		"shipping_address": "x", "payment_method": "card",
		"items": []map[string]any{{"product_id": p, "quantity": 5}},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "insufficient_stock", r.Error)
	assert.JSONEq(t, `{"product_id":"`+p+`"}`, string(r.Data))

	code, r = e.do(http.MethodPost, "/orders", e.user, map[string]any{
		"payment_method": "card",
		"items":          []map[string]any{{"product_id": p, "quantity": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_request", r.Error)

	code, r = e.do(http.MethodPost, "/orders", e.user, map[string]any{
		"shipping_address": "x", "payment_method": "card",
		"items": []map[string]any{{"product_id": "missing", "quantity": 1}},
	})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "product_not_found", r.Error)

	got, err := e.mem.Catalog().GetProduct(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)
}

func TestOrderIdempotencyKey(t *testing.T) {
	e := newEnv(t)
	p := e.createProduct("P1", "2.50", 10)
	body := map[string]any{
		"shipping_address": "x", "payment_method": "card",
		"items": []map[string]any{{"product_id": p, "quantity": 2}},
	}

	code, r := e.do(http.MethodPost, "/orders", e.user, body, "Idempotency-Key", "abc")
	require.Equal(t, http.StatusCreated, code)
	var first createBody
	require.NoError(t, json.Unmarshal(r.Data, &first))

	code, r = e.do(http.MethodPost, "/orders", e.user, body, "Idempotency-Key", "abc")
	require.Equal(t, http.StatusOK, code)
	var replay createBody
	require.NoError(t, json.Unmarshal(r.Data, &replay))
	assert.True(t, replay.Idempotent)
	assert.Equal(t, first.Order.ID, replay.Order.ID)

	got, _ := e.mem.Catalog().GetProduct(context.Background(), p)
	assert.Equal(t, 8, got.Quantity, "replay does not decrement again")

	// A failed attempt frees the key.
	bad := map[string]any{"shipping_address": "x", "payment_method": "card",
		"items": []map[string]any{{"product_id": p, "quantity": 100}}}
	code, _ = e.do(http.MethodPost, "/orders", e.user, bad, "Idempotency-Key", "def")
	require.Equal(t, http.StatusBadRequest, code)
	code, _ = e.do(http.MethodPost, "/orders", e.user, body, "Idempotency-Key", "def")
	assert.Equal(t, http.StatusCreated, code)
}

func TestAdminOrders(t *testing.T) {
	e := newEnv(t)
	p := e.createProduct("P1", "1.00", 10)
	_, r := e.do(http.MethodPost, "/orders", e.user, map[string]any{
		"shipping_address": "x", "payment_method": "card",
		"items": []map[string]any{{"product_id": p, "quantity": 1}},
	})
	var created createBody
	require.NoError(t, json.Unmarshal(r.Data, &created))
	id := created.Order.ID

	code, r := e.do(http.MethodPut, "/admin/orders", e.admin, map[string]any{"id": id, "status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_transition", r.Error)

	code, r = e.do(http.MethodPut, "/admin/orders", e.admin, map[string]any{"id": id, "status": "processing"})
	require.Equal(t, http.StatusOK, code)
	var o orderBody
	require.NoError(t, json.Unmarshal(r.Data, &o))
	assert.Equal(t, "processing", o.Status)

	_, r = e.do(http.MethodGet, "/orders", e.admin, nil)
	var all []orderBody
	require.NoError(t, json.Unmarshal(r.Data, &all))
	assert.Len(t, all, 1)

	code, _ = e.do(http.MethodDelete, "/admin/orders?id="+id, e.admin, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = e.do(http.MethodDelete, "/admin/orders?id="+id, e.admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCatalogAndWishlist(t *testing.T) {
	e := newEnv(t)

	code, r := e.do(http.MethodPost, "/categories", e.admin, map[string]any{"name": "Brakes"})
	require.Equal(t, http.StatusCreated, code)
	var cat struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(r.Data, &cat))

	code, r = e.do(http.MethodPost, "/products", e.admin, map[string]any{
		"sku": "BRK", "name": "pad", "price": "12.345", "category_id": cat.ID,
	})
	assert.Equal(t, http.StatusBadRequest, code, "three decimal places")
	assert.Equal(t, "invalid_request", r.Error)

	code, r = e.do(http.MethodPost, "/products", e.admin, map[string]any{
		"sku": "BRK", "name": "pad", "price": 12.5, "category_id": cat.ID, "quantity": 4,
	})
	require.Equal(t, http.StatusCreated, code)
	var p struct {
		ID    string `json:"id"`
		Price string `json:"price"`
	}
	require.NoError(t, json.Unmarshal(r.Data, &p))
	assert.Equal(t, "12.50", p.Price)

	code, r = e.do(http.MethodDelete, "/categories/"+cat.ID, e.admin, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", r.Error)

	code, _ = e.do(http.MethodGet, "/products?category_id="+cat.ID, "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = e.do(http.MethodPost, "/wishlist", e.user, map[string]any{"product_id": p.ID})
	assert.Equal(t, http.StatusCreated, code)
	code, r = e.do(http.MethodPost, "/wishlist", e.user, map[string]any{"product_id": p.ID})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", r.Error)
	code, _ = e.do(http.MethodDelete, "/wishlist?product_id="+p.ID, e.user, nil)
	assert.Equal(t, http.StatusOK, code)

	code, r = e.do(http.MethodPost, "/cart", e.user, map[string]any{"product_id": "missing", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "product_not_found", r.Error)
}

func TestRegisterLoginFlow(t *testing.T) {
	e := newEnv(t)

	code, _ := e.do(http.MethodPost, "/auth/register", "", map[string]any{
		"email": "ann@example.com", "password": "correct horse", "name": "Ann",
	})
	require.Equal(t, http.StatusCreated, code)

	code, r := e.do(http.MethodPost, "/auth/register", "", map[string]any{
		"email": "ann@example.com", "password": "correct horse",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, r = e.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "ann@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid_credentials", r.Error)

	code, r = e.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "ann@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusOK, code)
	var login struct {
		Token string `json:"token"`
		User  struct {
			Role string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(r.Data, &login))
	assert.Equal(t, "user", login.User.Role)
	assert.NotContains(t, string(r.Data), "password")

	code, _ = e.do(http.MethodGet, "/cart", login.Token, nil)
	assert.Equal(t, http.StatusOK, code)

	code, r = e.do(http.MethodGet, "/admin/users", e.admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(r.Data), "ann@example.com")
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t)

	code, r := e.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, r.Success)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "partshop_http_requests_total")
}
