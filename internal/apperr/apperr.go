// Package apperr is the error taxonomy shared by the stores, the order
// orchestrator and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindInvalidRequest
	KindNotFound
	KindConflict
	KindInsufficientStock
	KindEmptyCart
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindInvalidRequest:
		return "invalid_request"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindEmptyCart:
		return "empty_cart"
	default:
		return "internal"
	}
}

// Error is what handlers render. Reason is the stable machine-readable code,
// Message is safe to show to any caller.
type Error struct {
	Kind      Kind
	Reason    string
	Message   string
	ProductID string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(k Kind, msg string) *Error {
	return &Error{Kind: k, Reason: k.String(), Message: msg}
}

func Unauthenticated() *Error { return newErr(KindUnauthenticated, "authentication required") }

func Forbidden() *Error { return newErr(KindForbidden, "insufficient permissions") }

func Invalid(msg string) *Error { return newErr(KindInvalidRequest, msg) }

func NotFound(msg string) *Error { return newErr(KindNotFound, msg) }

func Conflict(msg string) *Error { return newErr(KindConflict, msg) }

func EmptyCart() *Error { return newErr(KindEmptyCart, "cart is empty") }

func ProductNotFound(productID string) *Error {
	e := newErr(KindNotFound, "product not found: "+productID)
	e.Reason = "product_not_found"
	e.ProductID = productID
	return e
}

func InsufficientStock(productID string) *Error {
	e := newErr(KindInsufficientStock, "insufficient stock for product "+productID)
	e.ProductID = productID
	return e
}

// Internal hides cause from the client; it is still reachable through Unwrap
// for logging.
func Internal(cause error) *Error {
	e := newErr(KindInternal, "internal error")
	e.Err = cause
	return e
}

// WithReason overrides the reason code, keeping the kind.
func (e *Error) WithReason(reason string) *Error {
	e.Reason = reason
	return e
}

// As returns the *Error in err's chain, or an Internal wrapping err.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	return As(err).Kind
}

func Status(err error) int {
	switch KindOf(err) {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidRequest, KindInsufficientStock, KindEmptyCart:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
