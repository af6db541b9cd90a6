package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCommitted       = "OrderCommitted"
	EventReconciliationNeeded = "ReconciliationNeeded"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type ItemPrice struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	UnitPrice string `json:"unit_price"`
}

type OrderCommittedPayload struct {
	OrderID string      `json:"order_id"`
	UserID  string      `json:"user_id"`
	Items   []ItemPrice `json:"items"`
	Total   string      `json:"total"`
}

// ReconciliationNeededPayload lists what a failed compensation still owes:
// stock to give back and, if HeaderDeleted is false, an orphan header.
type ReconciliationNeededPayload struct {
	OrderID       string    `json:"order_id"`
	UserID        string    `json:"user_id"`
	Reason        string    `json:"reason"`
	Owed          []ItemQty `json:"owed,omitempty"`
	HeaderDeleted bool      `json:"header_deleted"`
}

func CommittedPayload(o Order) OrderCommittedPayload {
	items := make([]ItemPrice, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, ItemPrice{ProductID: l.ProductID, Qty: l.Quantity, UnitPrice: l.UnitPrice.StringFixed(2)})
	}
	return OrderCommittedPayload{OrderID: o.ID, UserID: o.UserID, Items: items, Total: o.Total.StringFixed(2)}
}
