package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-parts-shop/internal/auth"
	"github.com/ariefcatur/go-parts-shop/internal/cart"
	"github.com/ariefcatur/go-parts-shop/internal/catalog"
	"github.com/ariefcatur/go-parts-shop/internal/logging"
	"github.com/ariefcatur/go-parts-shop/internal/metrics"
	"github.com/ariefcatur/go-parts-shop/internal/orders"
	"github.com/ariefcatur/go-parts-shop/internal/redisx"
	"github.com/ariefcatur/go-parts-shop/internal/users"
	"github.com/ariefcatur/go-parts-shop/internal/wishlist"
)

type OrderCreator interface {
	Create(ctx context.Context, in orders.CreateInput) (orders.CreateResult, error)
}

// OrderStore is the read and admin side of the ledger.
type OrderStore interface {
	Get(ctx context.Context, orderID string) (orders.Order, error)
	List(ctx context.Context, f orders.ListFilter) ([]orders.Order, error)
	UpdateStatus(ctx context.Context, orderID string, from, to orders.Status) error
	Delete(ctx context.Context, orderID string) error
}

type CatalogStore interface {
	ListProducts(ctx context.Context, f catalog.ProductFilter) ([]catalog.Product, error)
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
	CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error)
	UpdateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	CreateCategory(ctx context.Context, c catalog.Category) (catalog.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

type Accounts interface {
	Register(ctx context.Context, email, password, name string) (users.User, error)
	Login(ctx context.Context, email, password string) (string, users.User, error)
	List(ctx context.Context) ([]users.User, error)
}

type IdempotencyGuard interface {
	Begin(ctx context.Context, userID, key string) redisx.Claim
	Complete(ctx context.Context, c redisx.Claim, orderID string)
	Release(ctx context.Context, c redisx.Claim)
}

// Server wires the HTTP surface to the stores. Idem, Metrics and Health are
// optional.
type Server struct {
	Tokens     auth.Verifier
	Orders     OrderCreator
	OrderStore OrderStore
	Catalog    CatalogStore
	Cart       cart.Store
	Wishlist   wishlist.Store
	Accounts   Accounts
	Idem       IdempotencyGuard
	Metrics    *metrics.Metrics
	Health     func(ctx context.Context) error
	Log        *log.Entry
	Timeout    time.Duration
}

func (s *Server) logger() *log.Entry {
	if s.Log == nil {
		return logging.Discard()
	}
	return s.Log
}

// ctx bounds a handler's store work.
func (s *Server) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	t := s.Timeout
	if t <= 0 {
		t = 5 * time.Second
	}
	return context.WithTimeout(r.Context(), t)
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	r.Use(requestLogger(s.logger()))
	r.Use(middleware.Recoverer)
	r.Use(cors)
	if s.Metrics != nil {
		r.Use(s.Metrics.Middleware)
	}
	r.Use(middleware.Timeout(15 * time.Second))

	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}

	r.Get("/healthz", s.healthz)

	r.Get("/products", s.listProducts)
	r.Get("/products/{id}", s.getProduct)
	r.Get("/categories", s.listCategories)
	r.Post("/auth/register", s.register)
	r.Post("/auth/login", s.login)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(s.Tokens, s.fail))

		r.Post("/orders", s.createOrder)
		r.Get("/orders", s.listOrders)
		r.Get("/orders/{id}", s.getOrder)

		r.Get("/cart", s.getCart)
		r.Post("/cart", s.addToCart)
		r.Put("/cart", s.setCartLine)
		r.Delete("/cart", s.deleteCart)

		r.Get("/wishlist", s.getWishlist)
		r.Post("/wishlist", s.addToWishlist)
		r.Delete("/wishlist", s.removeFromWishlist)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin(s.fail))

			r.Put("/admin/orders", s.updateOrderStatus)
			r.Delete("/admin/orders", s.deleteOrder)
			r.Get("/admin/users", s.listUsers)

			r.Post("/products", s.createProduct)
			r.Put("/products/{id}", s.updateProduct)
			r.Delete("/products/{id}", s.deleteProduct)
			r.Post("/categories", s.createCategory)
			r.Delete("/categories/{id}", s.deleteCategory)
		})
	})
	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.Health(ctx); err != nil {
			s.logger().WithError(err).Warn("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, envelope{Success: false, Error: "unavailable", Message: "dependency unavailable"})
			return
		}
	}
	ok(w, http.StatusOK, "ok", nil)
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
