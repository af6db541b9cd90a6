package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-parts-shop/internal/apperr"
	"github.com/ariefcatur/go-parts-shop/internal/cart"
	"github.com/ariefcatur/go-parts-shop/internal/catalog"
	"github.com/ariefcatur/go-parts-shop/internal/logging"
)

var ErrStatusChanged = errors.New("order status changed concurrently")

// StockAccessor reads and mutates product stock. DecrementStock must be a
// single conditional operation returning catalog.ErrInsufficientStock when
// the guard fails.
type StockAccessor interface {
	GetPriceAndStock(ctx context.Context, productID string) (catalog.PriceStock, error)
	DecrementStock(ctx context.Context, productID string, amount int) error
	RestoreStock(ctx context.Context, productID string, amount int) error
}

type Ledger interface {
	CreateHeader(ctx context.Context, h Header) (Order, error)
	AddLines(ctx context.Context, orderID string, lines []Line) error
	UpdateTotal(ctx context.Context, orderID string, total decimal.Decimal) error
	Delete(ctx context.Context, orderID string) error
}

type CartStore interface {
	ListForUser(ctx context.Context, userID string) ([]cart.Line, error)
	ClearForUser(ctx context.Context, userID string) error
}

// Stores is the set of accessors one placement runs against.
type Stores struct {
	Stock  StockAccessor
	Ledger Ledger
}

// Transactor runs fn atomically: if fn returns an error nothing it wrote is
// kept.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

type Notifier interface {
	OrderCommitted(ctx context.Context, o Order)
	ReconciliationNeeded(ctx context.Context, p ReconciliationNeededPayload)
}

type Metrics interface {
	OrderCreated()
	OrderAborted(reason string)
	ReconciliationNeeded()
}

// State of one creation attempt.
type State string

const (
	StateValidating     State = "validating"
	StateHeaderCreated  State = "header_created"
	StateLinesReserving State = "lines_reserving"
	StateCommitted      State = "committed"
	StateRolledBack     State = "rolled_back"
)

type CreateInput struct {
	UserID          string
	ShippingAddress string
	PaymentMethod   string
	// FromCart consumes the user's cart; otherwise Items is ordered as given.
	FromCart bool
	Items    []ItemInput
}

type CreateResult struct {
	Order    Order
	Warnings []string
}

const WarningCartNotCleared = "cart_not_cleared"

// Service turns a cart or an explicit item list into a committed order.
//
// With Tx set, header, lines, stock decrements and the total update run in one
// transaction. Without it the same steps run directly against Stores and any
// failure is undone by compensating calls; a compensation that cannot finish
// is reported through Notifier.ReconciliationNeeded.
type Service struct {
	Stores  Stores
	Tx      Transactor
	Cart    CartStore
	Notify  Notifier
	Metrics Metrics
	Log     *log.Entry
	Timeout time.Duration
}

func (s *Service) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return 5 * time.Second
}

func (s *Service) logger() *log.Entry {
	if s.Log == nil {
		return logging.Discard()
	}
	return s.Log
}

func (in CreateInput) validate() error {
	if in.UserID == "" {
		return apperr.Unauthenticated()
	}
	if strings.TrimSpace(in.ShippingAddress) == "" {
		return apperr.Invalid("shipping_address is required")
	}
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return apperr.Invalid("payment_method is required")
	}
	if in.FromCart && len(in.Items) > 0 {
		return apperr.Invalid("items cannot be combined with from_cart")
	}
	if !in.FromCart && len(in.Items) == 0 {
		return apperr.Invalid("items are required")
	}
	return nil
}

func validateItems(items []ItemInput) error {
	for _, it := range items {
		if strings.TrimSpace(it.ProductID) == "" {
			return apperr.Invalid("each item needs a product_id")
		}
		if it.Quantity <= 0 {
			e := apperr.Invalid("quantity must be a positive integer for product " + it.ProductID)
			e.ProductID = it.ProductID
			return e
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	lg := s.logger().WithFields(log.Fields{"user_id": in.UserID, "from_cart": in.FromCart})

	if err := in.validate(); err != nil {
		s.aborted(lg, "", StateValidating, err)
		return CreateResult{}, err
	}
	items, err := s.items(ctx, in)
	if err != nil {
		s.aborted(lg, "", StateValidating, err)
		return CreateResult{}, err
	}

	var order Order
	if s.Tx != nil {
		err = s.Tx.InTx(ctx, func(ctx context.Context, st Stores) error {
			var perr error
			order, perr = s.place(ctx, lg, st, in, items, false)
			return perr
		})
	} else {
		order, err = s.place(ctx, lg, s.Stores, in, items, true)
	}
	if err != nil {
		err = apperr.As(err)
		s.aborted(lg, order.ID, StateRolledBack, err)
		return CreateResult{}, err
	}

	lg = lg.WithField("order_id", order.ID)
	lg.WithFields(log.Fields{"state": StateCommitted, "total": order.Total.StringFixed(2), "lines": len(order.Lines)}).
		Info("order committed")
	if s.Metrics != nil {
		s.Metrics.OrderCreated()
	}
	if s.Notify != nil {
		s.Notify.OrderCommitted(ctx, order)
	}

	res := CreateResult{Order: order}
	if in.FromCart {
		// The order is the source of truth now; a leftover cart is only a warning.
		if err := s.Cart.ClearForUser(ctx, in.UserID); err != nil {
			lg.WithError(err).Warn("cart not cleared after order commit")
			res.Warnings = append(res.Warnings, WarningCartNotCleared)
		}
	}
	return res, nil
}

func (s *Service) items(ctx context.Context, in CreateInput) ([]ItemInput, error) {
	if !in.FromCart {
		if err := validateItems(in.Items); err != nil {
			return nil, err
		}
		return in.Items, nil
	}
	lines, err := s.Cart.ListForUser(ctx, in.UserID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(lines) == 0 {
		return nil, apperr.EmptyCart()
	}
	items := make([]ItemInput, 0, len(lines))
	for _, l := range lines {
		items = append(items, ItemInput{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) aborted(lg *log.Entry, orderID string, state State, err error) {
	e := apperr.As(err)
	fields := log.Fields{"state": state, "reason": e.Reason}
	if orderID != "" {
		fields["order_id"] = orderID
	}
	if e.ProductID != "" {
		fields["product_id"] = e.ProductID
	}
	entry := lg.WithFields(fields)
	if e.Kind == apperr.KindInternal {
		entry.WithError(err).Error("order creation failed")
	} else {
		entry.Info("order rejected")
	}
	if s.Metrics != nil {
		s.Metrics.OrderAborted(e.Reason)
	}
}

// placement tracks what one attempt has written so it can be undone.
type placement struct {
	svc         *Service
	lg          *log.Entry
	st          Stores
	compensate  bool
	order       Order
	state       State
	decremented []ItemInput
}

func (s *Service) place(ctx context.Context, lg *log.Entry, st Stores, in CreateInput, items []ItemInput, compensate bool) (Order, error) {
	p := &placement{svc: s, lg: lg, st: st, compensate: compensate, state: StateValidating}

	order, err := st.Ledger.CreateHeader(ctx, Header{
		UserID:          in.UserID,
		ShippingAddress: strings.TrimSpace(in.ShippingAddress),
		PaymentMethod:   strings.TrimSpace(in.PaymentMethod),
		Total:           decimal.Zero,
	})
	if err != nil {
		return Order{}, apperr.Internal(err)
	}
	p.order = order
	p.transition(StateHeaderCreated)

	p.transition(StateLinesReserving)
	lines := make([]Line, 0, len(items))
	total := decimal.Zero
	for i, it := range items {
		ps, err := st.Stock.GetPriceAndStock(ctx, it.ProductID)
		if errors.Is(err, catalog.ErrProductNotFound) {
			return p.abort(ctx, apperr.ProductNotFound(it.ProductID))
		}
		if err != nil {
			return p.abort(ctx, apperr.Internal(err))
		}
		if ps.Quantity < it.Quantity {
			return p.abort(ctx, apperr.InsufficientStock(it.ProductID))
		}

		l := Line{OrderID: order.ID, Position: i + 1, ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: ps.Price}
		lines = append(lines, l)
		total = total.Add(l.Subtotal())

		// A concurrent order may have taken the stock since the read above.
		if err := st.Stock.DecrementStock(ctx, it.ProductID, it.Quantity); err != nil {
			switch {
			case errors.Is(err, catalog.ErrInsufficientStock):
				return p.abort(ctx, apperr.InsufficientStock(it.ProductID))
			case errors.Is(err, catalog.ErrProductNotFound):
				return p.abort(ctx, apperr.ProductNotFound(it.ProductID))
			default:
				return p.abort(ctx, apperr.Internal(err))
			}
		}
		p.decremented = append(p.decremented, it)
	}

	if err := st.Ledger.AddLines(ctx, order.ID, lines); err != nil {
		return p.abort(ctx, apperr.Internal(err))
	}
	if err := st.Ledger.UpdateTotal(ctx, order.ID, total); err != nil {
		return p.abort(ctx, apperr.Internal(err))
	}

	order.Lines = lines
	order.Total = total
	p.transition(StateCommitted)
	return order, nil
}

func (p *placement) transition(to State) {
	p.lg.WithFields(log.Fields{"order_id": p.order.ID, "from": p.state, "to": to}).Debug("order state")
	p.state = to
}

// abort returns cause after undoing this attempt's writes. Inside a
// transaction the rollback does the undoing; the returned Order still carries
// the header id for logging.
func (p *placement) abort(ctx context.Context, cause *apperr.Error) (Order, error) {
	failedAt := p.state
	p.transition(StateRolledBack)
	if !p.compensate {
		return Order{ID: p.order.ID}, cause
	}

	// The request context may be the very thing that failed.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.svc.timeout())
	defer cancel()

	var owed []ItemQty
	for i := len(p.decremented) - 1; i >= 0; i-- {
		it := p.decremented[i]
		if err := p.st.Stock.RestoreStock(cctx, it.ProductID, it.Quantity); err != nil {
			p.lg.WithError(err).WithFields(log.Fields{"order_id": p.order.ID, "product_id": it.ProductID, "qty": it.Quantity}).
				Error("stock restore failed")
			owed = append(owed, ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
		}
	}

	headerDeleted := true
	if err := p.st.Ledger.Delete(cctx, p.order.ID); err != nil && !errors.Is(err, ErrOrderNotFound) {
		p.lg.WithError(err).WithField("order_id", p.order.ID).Error("order header delete failed")
		headerDeleted = false
	}

	if len(owed) > 0 || !headerDeleted {
		payload := ReconciliationNeededPayload{
			OrderID:       p.order.ID,
			UserID:        p.order.UserID,
			Reason:        cause.Reason,
			Owed:          owed,
			HeaderDeleted: headerDeleted,
		}
		p.lg.WithFields(log.Fields{
			"event":          "reconciliation_needed",
			"order_id":       p.order.ID,
			"failed_at":      failedAt,
			"owed":           owed,
			"header_deleted": headerDeleted,
		}).Error("compensation incomplete")
		if p.svc.Metrics != nil {
			p.svc.Metrics.ReconciliationNeeded()
		}
		if p.svc.Notify != nil {
			p.svc.Notify.ReconciliationNeeded(cctx, payload)
		}
	}
	return Order{ID: p.order.ID}, cause
}
