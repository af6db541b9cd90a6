package redisx

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

const pendingMarker = "pending"

// Outcome of claiming an idempotency key.
type Outcome int

const (
	// Proceed means the caller owns the key and must Complete or Release it.
	Proceed Outcome = iota
	// Replay means a previous request with the key produced OrderID.
	Replay
	// InFlight means another request holds the key right now.
	InFlight
	// Unguarded means Redis failed; the caller runs without protection.
	Unguarded
)

type Claim struct {
	Outcome Outcome
	OrderID string
	key     string
}

// Idempotency guards order creation against client retries. A key moves from
// "pending" to the created order id; a failed attempt deletes it so the client
// may retry with the same key.
type Idempotency struct {
	KV       KV
	TTL      time.Duration
	InFlight time.Duration
	Log      *log.Entry
}

func (g *Idempotency) ttl() time.Duration {
	if g.TTL > 0 {
		return g.TTL
	}
	return TTLIdempotency
}

func (g *Idempotency) inFlight() time.Duration {
	if g.InFlight > 0 {
		return g.InFlight
	}
	return TTLInFlight
}

func (g *Idempotency) warn(err error, key, msg string) {
	if g.Log != nil {
		g.Log.WithError(err).WithField("idempotency_key", key).Warn(msg)
	}
}

func (g *Idempotency) Begin(ctx context.Context, userID, idemKey string) Claim {
	key := fmt.Sprintf(KeyIdemOrderCreate, userID, idemKey)
	ok, err := g.KV.SetNX(ctx, key, pendingMarker, g.inFlight())
	if err != nil {
		g.warn(err, key, "idempotency guard unavailable")
		return Claim{Outcome: Unguarded, key: key}
	}
	if ok {
		return Claim{Outcome: Proceed, key: key}
	}
	v, found, err := g.KV.Get(ctx, key)
	switch {
	case err != nil:
		g.warn(err, key, "idempotency guard unavailable")
		return Claim{Outcome: Unguarded, key: key}
	case !found:
		// Expired between the two calls; treat as a fresh claim attempt.
		return g.Begin(ctx, userID, idemKey)
	case v == pendingMarker:
		return Claim{Outcome: InFlight, key: key}
	default:
		return Claim{Outcome: Replay, OrderID: v, key: key}
	}
}

// Complete records the order a claimed key produced.
func (g *Idempotency) Complete(ctx context.Context, c Claim, orderID string) {
	if c.Outcome != Proceed {
		return
	}
	if err := g.KV.Set(ctx, c.key, orderID, g.ttl()); err != nil {
		g.warn(err, c.key, "idempotency key not recorded")
	}
}

// Release frees a claimed key after a failed attempt.
func (g *Idempotency) Release(ctx context.Context, c Claim) {
	if c.Outcome != Proceed {
		return
	}
	if err := g.KV.Del(ctx, c.key); err != nil {
		g.warn(err, c.key, "idempotency key not released")
	}
}
