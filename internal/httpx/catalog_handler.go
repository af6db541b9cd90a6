package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-parts-shop/internal/apperr"
	"github.com/ariefcatur/go-parts-shop/internal/catalog"
)

type ProductReq struct {
	CategoryID  string          `json:"category_id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

func (p ProductReq) product(id string) catalog.Product {
	return catalog.Product{
		ID:          id,
		CategoryID:  strings.TrimSpace(p.CategoryID),
		SKU:         strings.TrimSpace(p.SKU),
		Name:        strings.TrimSpace(p.Name),
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Price:       p.Price,
		Quantity:    p.Quantity,
	}
}

type CategoryReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func catalogErr(err error) error {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return apperr.NotFound("product not found")
	case errors.Is(err, catalog.ErrCategoryNotFound):
		return apperr.NotFound("category not found")
	case errors.Is(err, catalog.ErrCategoryInUse):
		return apperr.Conflict("category still has products")
	case errors.Is(err, catalog.ErrDuplicate):
		return apperr.Conflict("already exists")
	}
	return err
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	ps, err := s.Catalog.ListProducts(ctx, catalog.ProductFilter{CategoryID: r.URL.Query().Get("category_id")})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", mapSlice(ps, toProductDTO))
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	p, err := s.Catalog.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, catalogErr(err))
		return
	}
	ok(w, http.StatusOK, "", toProductDTO(p))
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductReq
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	p := req.product("")
	if err := p.Validate(); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	p, err := s.Catalog.CreateProduct(ctx, p)
	if err != nil {
		s.fail(w, r, catalogErr(err))
		return
	}
	ok(w, http.StatusCreated, "product created", toProductDTO(p))
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductReq
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	p := req.product(chi.URLParam(r, "id"))
	if err := p.Validate(); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	p, err := s.Catalog.UpdateProduct(ctx, p)
	if err != nil {
		s.fail(w, r, catalogErr(err))
		return
	}
	ok(w, http.StatusOK, "product updated", toProductDTO(p))
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	if err := s.Catalog.DeleteProduct(ctx, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, catalogErr(err))
		return
	}
	ok(w, http.StatusOK, "product deleted", nil)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	cs, err := s.Catalog.ListCategories(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", mapSlice(cs, toCategoryDTO))
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryReq
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	c := catalog.Category{Name: strings.TrimSpace(req.Name), Description: req.Description}
	if err := c.Validate(); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	c, err := s.Catalog.CreateCategory(ctx, c)
	if err != nil {
		s.fail(w, r, catalogErr(err))
		return
	}
	ok(w, http.StatusCreated, "category created", toCategoryDTO(c))
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	if err := s.Catalog.DeleteCategory(ctx, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, catalogErr(err))
		return
	}
	ok(w, http.StatusOK, "category deleted", nil)
}
