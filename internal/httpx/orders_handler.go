package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-parts-shop/internal/apperr"
	"github.com/ariefcatur/go-parts-shop/internal/orders"
	"github.com/ariefcatur/go-parts-shop/internal/redisx"
)

type CreateOrderReq struct {
	ShippingAddress string             `json:"shipping_address"`
	PaymentMethod   string             `json:"payment_method"`
	FromCart        bool               `json:"from_cart"`
	Items           []orders.ItemInput `json:"items"`
}

type CreateOrderResp struct {
	Order      orderDTO `json:"order"`
	Idempotent bool     `json:"idempotent"`
	Warnings   []string `json:"warnings,omitempty"`
}

type UpdateStatusReq struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	id := identity(r)

	ctx, cancel := s.ctx(r)
	defer cancel()

	var claim *redisx.Claim
	if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" && s.Idem != nil {
		c := s.Idem.Begin(ctx, id.UserID, key)
		claim = &c
		switch claim.Outcome {
		case redisx.InFlight:
			s.fail(w, r, apperr.Conflict("a request with this idempotency key is in progress").
				WithReason("request_in_progress"))
			return
		case redisx.Replay:
			o, err := s.OrderStore.Get(ctx, claim.OrderID)
			if err != nil {
				s.fail(w, r, orderErr(err))
				return
			}
			ok(w, http.StatusOK, "order already created", CreateOrderResp{Order: toOrderDTO(o), Idempotent: true})
			return
		}
	}

	res, err := s.Orders.Create(ctx, orders.CreateInput{
		UserID:          id.UserID,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		// A request without items orders the cart.
		FromCart: req.FromCart || len(req.Items) == 0,
		Items:    req.Items,
	})
	if err != nil {
		if claim != nil {
			s.Idem.Release(context.WithoutCancel(ctx), *claim)
		}
		s.fail(w, r, err)
		return
	}
	if claim != nil {
		s.Idem.Complete(context.WithoutCancel(ctx), *claim, res.Order.ID)
	}
	ok(w, http.StatusCreated, "order created", CreateOrderResp{Order: toOrderDTO(res.Order), Warnings: res.Warnings})
}

func orderErr(err error) error {
	if errors.Is(err, orders.ErrOrderNotFound) {
		return apperr.NotFound("order not found")
	}
	return err
}

// listOrders shows a user their own orders; an admin sees everyone's unless
// narrowed with ?user_id=.
func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	f := orders.ListFilter{UserID: id.UserID}
	if id.IsAdmin() {
		f.UserID = r.URL.Query().Get("user_id")
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	list, err := s.OrderStore.List(ctx, f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", mapSlice(list, toOrderDTO))
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	o, err := s.OrderStore.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, orderErr(err))
		return
	}
	// Other users' orders are indistinguishable from missing ones.
	if id := identity(r); !id.IsAdmin() && o.UserID != id.UserID {
		s.fail(w, r, apperr.NotFound("order not found"))
		return
	}
	ok(w, http.StatusOK, "", toOrderDTO(o))
}

func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusReq
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.ID == "" || req.Status == "" {
		s.fail(w, r, apperr.Invalid("id and status are required"))
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	o, err := orders.ChangeStatus(ctx, s.OrderStore, req.ID, orders.Status(strings.ToLower(req.Status)))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger().WithField("order_id", o.ID).WithField("status", o.Status).Info("order status changed")
	ok(w, http.StatusOK, "order status updated", toOrderDTO(o))
}

// deleteOrder removes an order and its lines without touching stock.
func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("id")
	if orderID == "" {
		s.fail(w, r, apperr.Invalid("id is required"))
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	if err := s.OrderStore.Delete(ctx, orderID); err != nil {
		s.fail(w, r, orderErr(err))
		return
	}
	ok(w, http.StatusOK, "order deleted", nil)
}
