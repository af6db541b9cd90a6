package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-parts-shop/internal/apperr"
	"github.com/ariefcatur/go-parts-shop/internal/cart"
)

type CartLineReq struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	lines, err := s.Cart.ListForUser(ctx, identity(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", mapSlice(lines, toCartLineDTO))
}

// POST adds to the current quantity.
func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	s.upsertCart(w, r, cart.Delta)
}

// PUT replaces the current quantity.
func (s *Server) setCartLine(w http.ResponseWriter, r *http.Request) {
	s.upsertCart(w, r, cart.Absolute)
}

func (s *Server) upsertCart(w http.ResponseWriter, r *http.Request, mode cart.Mode) {
	var req CartLineReq
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	productID := strings.TrimSpace(req.ProductID)
	if productID == "" || req.Quantity == nil {
		s.fail(w, r, apperr.Invalid("product_id and quantity are required"))
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	l, err := s.Cart.Upsert(ctx, identity(r).UserID, productID, *req.Quantity, mode)
	if errors.Is(err, cart.ErrProductNotFound) {
		s.fail(w, r, apperr.ProductNotFound(productID))
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if l.Quantity == 0 {
		ok(w, http.StatusOK, "cart line removed", nil)
		return
	}
	ok(w, http.StatusOK, "cart updated", toCartLineDTO(l))
}

// deleteCart removes one line with ?product_id=, otherwise the whole cart.
func (s *Server) deleteCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	userID := identity(r).UserID
	if productID := r.URL.Query().Get("product_id"); productID != "" {
		if err := s.Cart.RemoveLine(ctx, userID, productID); err != nil {
			s.fail(w, r, err)
			return
		}
		ok(w, http.StatusOK, "cart line removed", nil)
		return
	}
	if err := s.Cart.ClearForUser(ctx, userID); err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "cart cleared", nil)
}
