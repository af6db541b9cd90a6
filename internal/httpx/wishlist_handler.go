package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-parts-shop/internal/apperr"
	"github.com/ariefcatur/go-parts-shop/internal/wishlist"
)

type WishlistReq struct {
	ProductID string `json:"product_id"`
}

func (s *Server) getWishlist(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	items, err := s.Wishlist.List(ctx, identity(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", mapSlice(items, toWishlistDTO))
}

func (s *Server) addToWishlist(w http.ResponseWriter, r *http.Request) {
	var req WishlistReq
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		s.fail(w, r, apperr.Invalid("product_id is required"))
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	it, err := s.Wishlist.Add(ctx, identity(r).UserID, productID)
	switch {
	case errors.Is(err, wishlist.ErrDuplicate):
		s.fail(w, r, apperr.Conflict("product already in wishlist"))
		return
	case errors.Is(err, wishlist.ErrProductNotFound):
		s.fail(w, r, apperr.ProductNotFound(productID))
		return
	case err != nil:
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "added to wishlist", toWishlistDTO(it))
}

func (s *Server) removeFromWishlist(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("product_id")
	if productID == "" {
		s.fail(w, r, apperr.Invalid("product_id is required"))
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	err := s.Wishlist.Remove(ctx, identity(r).UserID, productID)
	if errors.Is(err, wishlist.ErrNotFound) {
		s.fail(w, r, apperr.NotFound("wishlist entry not found"))
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "removed from wishlist", nil)
}
