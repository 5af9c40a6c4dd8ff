package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ipredict/engine/internal/domain"
)

// depthTTL bounds staleness if an invalidation is ever missed; the engine
// invalidates on every book mutation so reads normally see fresh depth.
const depthTTL = 30 * time.Second

// BookCache implements domain.BookCache, storing one JSON depth snapshot per
// (market, outcome).
//
// Key schema:
//
//	depth:{marketID}:{outcome} - JSON-encoded domain.BookDepth
type BookCache struct {
	rdb *redis.Client
}

// NewBookCache creates a BookCache backed by the given Client.
func NewBookCache(c *Client) *BookCache {
	return &BookCache{rdb: c.Underlying()}
}

func depthKey(marketID string, outcome domain.Outcome) string {
	return "depth:" + marketID + ":" + string(outcome)
}

// SetDepth stores an aggregated depth snapshot.
func (bc *BookCache) SetDepth(ctx context.Context, depth domain.BookDepth) error {
	data, err := json.Marshal(depth)
	if err != nil {
		return fmt.Errorf("redis: marshal depth %s/%s: %w", depth.MarketID, depth.Outcome, err)
	}
	if err := bc.rdb.Set(ctx, depthKey(depth.MarketID, depth.Outcome), data, depthTTL).Err(); err != nil {
		return fmt.Errorf("redis: set depth %s/%s: %w", depth.MarketID, depth.Outcome, err)
	}
	return nil
}

// GetDepth reads a depth snapshot, returning domain.ErrNotFound on a miss.
func (bc *BookCache) GetDepth(ctx context.Context, marketID string, outcome domain.Outcome) (domain.BookDepth, error) {
	data, err := bc.rdb.Get(ctx, depthKey(marketID, outcome)).Bytes()
	if err == redis.Nil {
		return domain.BookDepth{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.BookDepth{}, fmt.Errorf("redis: get depth %s/%s: %w", marketID, outcome, err)
	}

	var depth domain.BookDepth
	if err := json.Unmarshal(data, &depth); err != nil {
		return domain.BookDepth{}, fmt.Errorf("redis: unmarshal depth %s/%s: %w", marketID, outcome, err)
	}
	return depth, nil
}

// Invalidate drops both outcome snapshots for a market.
func (bc *BookCache) Invalidate(ctx context.Context, marketID string) error {
	keys := []string{
		depthKey(marketID, domain.OutcomeYes),
		depthKey(marketID, domain.OutcomeNo),
	}
	if err := bc.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: invalidate depth %s: %w", marketID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.BookCache = (*BookCache)(nil)
