package domain

import (
	"context"
	"time"
)

// BookCache caches aggregated book depth per (market, outcome) for cheap
// reads by the API layer.
type BookCache interface {
	SetDepth(ctx context.Context, depth BookDepth) error
	GetDepth(ctx context.Context, marketID string, outcome Outcome) (BookDepth, error)
	Invalidate(ctx context.Context, marketID string) error
}

// MarketCache caches market records with a TTL.
type MarketCache interface {
	Set(ctx context.Context, market Market, ttl time.Duration) error
	Get(ctx context.Context, id string) (Market, error)
	Delete(ctx context.Context, id string) error
}

// BusMessage is one delivery from the signal bus. Channel is the concrete
// channel the payload was published on, even when the subscription used a
// glob pattern, so consumers can route by exact channel.
type BusMessage struct {
	Channel string
	Payload []byte
}

// SignalBus is an ephemeral publish/subscribe fabric for market events
// (fills, depth changes, lifecycle transitions). Delivery is best effort.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns a channel of messages. The subscription ends and
	// the channel closes when ctx is cancelled. Glob-style channel patterns
	// are supported.
	Subscribe(ctx context.Context, channel string) (<-chan BusMessage, error)
}

// LockManager provides a distributed mutual-exclusion primitive. The service
// layer holds a per-market lock for the duration of each mutating invocation
// so at most one process mutates a market's state at a time.
type LockManager interface {
	// Acquire returns an unlock function on success, or ErrLockHeld if the
	// lock is taken. The unlock function is safe to call more than once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
