package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ipredict/engine/internal/domain"
	"github.com/ipredict/engine/internal/engine"
)

// marketCacheTTL bounds how long a cached market record may lag the store.
const marketCacheTTL = 5 * time.Minute

// MarketService handles market lifecycle and deposit operations.
type MarketService struct {
	engine    *engine.Engine
	markets   domain.MarketStore
	books     domain.OrderBookStore
	positions domain.PositionStore
	cache     domain.MarketCache
	lock      domain.LockManager
	bus       domain.SignalBus
	audit     domain.AuditStore
	logger    *slog.Logger
	lockTTL   time.Duration
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(
	eng *engine.Engine,
	markets domain.MarketStore,
	books domain.OrderBookStore,
	positions domain.PositionStore,
	cache domain.MarketCache,
	lock domain.LockManager,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
	lockTTL time.Duration,
) *MarketService {
	return &MarketService{
		engine:    eng,
		markets:   markets,
		books:     books,
		positions: positions,
		cache:     cache,
		lock:      lock,
		bus:       bus,
		audit:     audit,
		logger:    logger.With(slog.String("component", "market_service")),
		lockTTL:   lockTTL,
	}
}

// Restore loads all persisted markets, their books and positions into the
// engine. Called once on startup before the server accepts requests.
func (s *MarketService) Restore(ctx context.Context) error {
	markets, err := s.markets.List(ctx, domain.ListOpts{})
	if err != nil {
		return fmt.Errorf("market_service: restore: %w", err)
	}

	for _, m := range markets {
		rec, err := s.books.Load(ctx, m.ID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("market_service: restore book %s: %w", m.ID, err)
			}
			rec = domain.OrderBookRecord{MarketID: m.ID, NextOrderID: 1}
		}
		positions, err := s.positions.ListByMarket(ctx, m.ID, domain.ListOpts{})
		if err != nil {
			return fmt.Errorf("market_service: restore positions %s: %w", m.ID, err)
		}
		if err := s.engine.RestoreMarket(ctx, m, rec, positions); err != nil {
			return fmt.Errorf("market_service: restore market %s: %w", m.ID, err)
		}
	}

	s.logger.InfoContext(ctx, "markets restored", slog.Int("count", len(markets)))
	return nil
}

// CreateMarket charges the creation fee, registers the market and persists
// the new record with an empty book.
func (s *MarketService) CreateMarket(ctx context.Context, creator string, p engine.CreateMarketParams) (domain.Market, error) {
	market, err := s.engine.CreateMarket(ctx, creator, p)
	if err != nil {
		return domain.Market{}, err
	}

	if err := s.markets.Upsert(ctx, market); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: persist market: %w", err)
	}
	rec, err := s.engine.BookRecord(market.ID)
	if err == nil {
		if err := s.books.Save(ctx, rec); err != nil {
			return domain.Market{}, fmt.Errorf("market_service: persist book: %w", err)
		}
	}

	s.cacheSet(ctx, market)
	s.auditLog(ctx, "market.created", map[string]any{
		"market_id": market.ID,
		"creator":   creator,
		"name":      market.Name,
	})
	publishEvent(ctx, s.bus, s.logger, channelMarketPrefix+market.ID, "market_created", market)

	return market, nil
}

// DepositAndMint moves collateral into the market vault and mints the
// complementary token pair. Returns the tokens minted per side.
func (s *MarketService) DepositAndMint(ctx context.Context, user, marketID string, amount uint64) (uint64, domain.UserPosition, error) {
	unlock, err := s.lock.Acquire(ctx, "market:"+marketID, s.lockTTL)
	if err != nil {
		return 0, domain.UserPosition{}, err
	}
	defer unlock()

	tokens, pos, err := s.engine.DepositAndMint(ctx, user, marketID, amount)
	if err != nil {
		return 0, domain.UserPosition{}, err
	}

	if err := s.persistMarketState(ctx, marketID, &pos); err != nil {
		return 0, domain.UserPosition{}, err
	}

	s.auditLog(ctx, "market.deposit", map[string]any{
		"market_id": marketID,
		"user":      user,
		"amount":    amount,
		"tokens":    tokens,
	})
	return tokens, pos, nil
}

// GetMarket retrieves a market by id, checking the cache first and falling
// back to the engine's authoritative copy.
func (s *MarketService) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	if m, err := s.cache.Get(ctx, id); err == nil {
		return m, nil
	}

	m, err := s.engine.GetMarket(id)
	if err != nil {
		return domain.Market{}, err
	}
	s.cacheSet(ctx, m)
	return m, nil
}

// ListMarkets returns markets from the persistent store, newest first.
func (s *MarketService) ListMarkets(ctx context.Context, activeOnly bool, opts domain.ListOpts) ([]domain.Market, error) {
	var (
		markets []domain.Market
		err     error
	)
	if activeOnly {
		markets, err = s.markets.ListActive(ctx, opts)
	} else {
		markets, err = s.markets.List(ctx, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("market_service: list: %w", err)
	}
	return markets, nil
}

// Platform returns the platform record and aggregates.
func (s *MarketService) Platform() domain.Platform {
	return s.engine.Platform()
}

// persistMarketState writes the market and book back to the store and
// refreshes the cache. An optional position is persisted alongside.
func (s *MarketService) persistMarketState(ctx context.Context, marketID string, pos *domain.UserPosition) error {
	m, err := s.engine.GetMarket(marketID)
	if err != nil {
		return err
	}
	if err := s.markets.Upsert(ctx, m); err != nil {
		return fmt.Errorf("market_service: persist market: %w", err)
	}
	rec, err := s.engine.BookRecord(marketID)
	if err != nil {
		return err
	}
	if err := s.books.Save(ctx, rec); err != nil {
		return fmt.Errorf("market_service: persist book: %w", err)
	}
	if pos != nil {
		if err := s.positions.Upsert(ctx, *pos); err != nil {
			return fmt.Errorf("market_service: persist position: %w", err)
		}
	}
	s.cacheSet(ctx, m)
	return nil
}

// cacheSet refreshes the cached market record; cache write failures are
// logged and otherwise ignored.
func (s *MarketService) cacheSet(ctx context.Context, m domain.Market) {
	if err := s.cache.Set(ctx, m, marketCacheTTL); err != nil {
		s.logger.WarnContext(ctx, "cache set failed",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
}

// auditLog appends an audit entry; failures are logged, not propagated.
func (s *MarketService) auditLog(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
