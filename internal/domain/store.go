package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// MarketStore persists market records.
type MarketStore interface {
	Upsert(ctx context.Context, market Market) error
	GetByID(ctx context.Context, id string) (Market, error)
	ListActive(ctx context.Context, opts ListOpts) ([]Market, error)
	List(ctx context.Context, opts ListOpts) ([]Market, error)
	Count(ctx context.Context) (int64, error)
}

// OrderBookStore persists whole order book records per market.
type OrderBookStore interface {
	Save(ctx context.Context, record OrderBookRecord) error
	Load(ctx context.Context, marketID string) (OrderBookRecord, error)
}

// PositionStore persists per-(user, market) positions.
type PositionStore interface {
	Upsert(ctx context.Context, pos UserPosition) error
	Get(ctx context.Context, user, marketID string) (UserPosition, error)
	ListByUser(ctx context.Context, user string, opts ListOpts) ([]UserPosition, error)
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]UserPosition, error)
}

// FillStore persists executed fills.
type FillStore interface {
	InsertBatch(ctx context.Context, fills []Fill) error
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]Fill, error)
	ListByUser(ctx context.Context, user string, opts ListOpts) ([]Fill, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
