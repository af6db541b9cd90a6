package redisx

import (
	"context"
	"fmt"
	"time"
)

// Dedup remembers processed event ids per service. It is a fast path only;
// consumers still have to be idempotent on their own.
type Dedup struct {
	KV      KV
	Service string
	TTL     time.Duration
}

func (d *Dedup) key(eventID string) string {
	return fmt.Sprintf(KeyDedup, d.Service, eventID)
}

func (d *Dedup) Seen(ctx context.Context, eventID string) (bool, error) {
	_, ok, err := d.KV.Get(ctx, d.key(eventID))
	return ok, err
}

func (d *Dedup) Mark(ctx context.Context, eventID string) error {
	ttl := d.TTL
	if ttl <= 0 {
		ttl = TTLDedup
	}
	return d.KV.Set(ctx, d.key(eventID), "1", ttl)
}
