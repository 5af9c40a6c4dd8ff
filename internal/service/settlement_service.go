package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ipredict/engine/internal/domain"
	"github.com/ipredict/engine/internal/engine"
)

// SettlementService handles market resolution and winnings redemption.
type SettlementService struct {
	engine    *engine.Engine
	markets   domain.MarketStore
	positions domain.PositionStore
	cache     domain.MarketCache
	lock      domain.LockManager
	bus       domain.SignalBus
	audit     domain.AuditStore
	logger    *slog.Logger
	lockTTL   time.Duration
}

// NewSettlementService creates a SettlementService with all required
// dependencies.
func NewSettlementService(
	eng *engine.Engine,
	markets domain.MarketStore,
	positions domain.PositionStore,
	cache domain.MarketCache,
	lock domain.LockManager,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
	lockTTL time.Duration,
) *SettlementService {
	return &SettlementService{
		engine:    eng,
		markets:   markets,
		positions: positions,
		cache:     cache,
		lock:      lock,
		bus:       bus,
		audit:     audit,
		logger:    logger.With(slog.String("component", "settlement_service")),
		lockTTL:   lockTTL,
	}
}

// ResolveMarket sets a market's terminal outcome. Only the platform authority
// may resolve, and only once.
func (s *SettlementService) ResolveMarket(ctx context.Context, authority, marketID string, resolution domain.Resolution) (domain.Market, error) {
	unlock, err := s.lock.Acquire(ctx, "market:"+marketID, s.lockTTL)
	if err != nil {
		return domain.Market{}, err
	}
	defer unlock()

	market, err := s.engine.ResolveMarket(ctx, authority, marketID, resolution)
	if err != nil {
		return domain.Market{}, err
	}

	if err := s.markets.Upsert(ctx, market); err != nil {
		return domain.Market{}, fmt.Errorf("settlement_service: persist market: %w", err)
	}
	if err := s.cache.Delete(ctx, marketID); err != nil {
		s.logger.WarnContext(ctx, "cache delete failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}

	s.auditLog(ctx, "market.resolved", map[string]any{
		"market_id":  marketID,
		"resolution": string(resolution),
	})
	publishEvent(ctx, s.bus, s.logger, channelMarketPrefix+marketID, "market_resolved", market)
	return market, nil
}

// ClaimWinnings redeems a user's outcome tokens for collateral after
// resolution. A position claims at most once.
func (s *SettlementService) ClaimWinnings(ctx context.Context, user, marketID string) (engine.ClaimReport, error) {
	unlock, err := s.lock.Acquire(ctx, "market:"+marketID, s.lockTTL)
	if err != nil {
		return engine.ClaimReport{}, err
	}
	defer unlock()

	report, err := s.engine.ClaimWinnings(ctx, user, marketID)
	if err != nil {
		return engine.ClaimReport{}, err
	}

	if err := s.positions.Upsert(ctx, report.Position); err != nil {
		return engine.ClaimReport{}, fmt.Errorf("settlement_service: persist position: %w", err)
	}

	s.auditLog(ctx, "market.claimed", map[string]any{
		"market_id": marketID,
		"user":      user,
		"payout":    report.Payout,
	})
	return report, nil
}

// GetPosition returns the user's position in a market, preferring the
// engine's authoritative copy and falling back to the store.
func (s *SettlementService) GetPosition(ctx context.Context, user, marketID string) (domain.UserPosition, error) {
	pos, err := s.engine.GetPosition(user, marketID)
	if err == nil {
		return pos, nil
	}
	pos, err = s.positions.Get(ctx, user, marketID)
	if err != nil {
		return domain.UserPosition{}, err
	}
	return pos, nil
}

// ListPositionsByUser returns all of a user's positions from the store.
func (s *SettlementService) ListPositionsByUser(ctx context.Context, user string, opts domain.ListOpts) ([]domain.UserPosition, error) {
	positions, err := s.positions.ListByUser(ctx, user, opts)
	if err != nil {
		return nil, fmt.Errorf("settlement_service: list positions: %w", err)
	}
	return positions, nil
}

func (s *SettlementService) auditLog(ctx context.Context, event string, detail map[string]any) {
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
