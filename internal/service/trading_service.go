package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ipredict/engine/internal/domain"
	"github.com/ipredict/engine/internal/engine"
)

// TradingService drives order placement, cancellation, matching and quick
// buys, persisting engine state and publishing market data after each commit.
type TradingService struct {
	engine    *engine.Engine
	markets   domain.MarketStore
	books     domain.OrderBookStore
	positions domain.PositionStore
	fills     domain.FillStore
	bookCache domain.BookCache
	cache     domain.MarketCache
	lock      domain.LockManager
	bus       domain.SignalBus
	audit     domain.AuditStore
	logger    *slog.Logger

	lockTTL       time.Duration
	maxIterations int
}

// NewTradingService creates a TradingService with all required dependencies.
func NewTradingService(
	eng *engine.Engine,
	markets domain.MarketStore,
	books domain.OrderBookStore,
	positions domain.PositionStore,
	fills domain.FillStore,
	bookCache domain.BookCache,
	cache domain.MarketCache,
	lock domain.LockManager,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
	lockTTL time.Duration,
	maxIterations int,
) *TradingService {
	return &TradingService{
		engine:        eng,
		markets:       markets,
		books:         books,
		positions:     positions,
		fills:         fills,
		bookCache:     bookCache,
		cache:         cache,
		lock:          lock,
		bus:           bus,
		audit:         audit,
		logger:        logger.With(slog.String("component", "trading_service")),
		lockTTL:       lockTTL,
		maxIterations: maxIterations,
	}
}

// PlaceOrder rests a limit order on the market's book.
func (s *TradingService) PlaceOrder(ctx context.Context, user, marketID string, side domain.Side, outcome domain.Outcome, price, quantity uint64) (domain.Order, error) {
	unlock, err := s.lock.Acquire(ctx, "market:"+marketID, s.lockTTL)
	if err != nil {
		return domain.Order{}, err
	}
	defer unlock()

	order, err := s.engine.PlaceOrder(ctx, user, marketID, side, outcome, price, quantity)
	if err != nil {
		return domain.Order{}, err
	}

	if err := s.persistBook(ctx, marketID); err != nil {
		return domain.Order{}, err
	}
	pos, posErr := s.engine.GetPosition(user, marketID)
	if posErr == nil {
		if err := s.positions.Upsert(ctx, pos); err != nil {
			return domain.Order{}, fmt.Errorf("trading_service: persist position: %w", err)
		}
	}

	s.invalidateDepth(ctx, marketID)
	s.publishDepth(ctx, marketID, outcome)
	return order, nil
}

// CancelOrder removes a resting order, releasing sell-side escrow.
func (s *TradingService) CancelOrder(ctx context.Context, user, marketID string, orderID uint64) (domain.Order, error) {
	unlock, err := s.lock.Acquire(ctx, "market:"+marketID, s.lockTTL)
	if err != nil {
		return domain.Order{}, err
	}
	defer unlock()

	order, err := s.engine.CancelOrder(ctx, user, marketID, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	if err := s.persistBook(ctx, marketID); err != nil {
		return domain.Order{}, err
	}

	s.invalidateDepth(ctx, marketID)
	s.publishDepth(ctx, marketID, order.Outcome)
	return order, nil
}

// MatchMarket runs one bounded matching invocation over both outcome books.
// maxIterations <= 0 selects the configured budget, larger requests are
// clamped to it. Callers re-invoke until the report says the book is
// quiescent.
func (s *TradingService) MatchMarket(ctx context.Context, marketID string, maxIterations int) (engine.MatchReport, error) {
	iterations := s.maxIterations
	if maxIterations > 0 && maxIterations < s.maxIterations {
		iterations = maxIterations
	}

	unlock, err := s.lock.Acquire(ctx, "market:"+marketID, s.lockTTL)
	if err != nil {
		return engine.MatchReport{}, err
	}
	defer unlock()

	report, err := s.engine.MatchOrders(ctx, marketID, iterations)
	if err != nil {
		return engine.MatchReport{}, err
	}

	if len(report.Fills) > 0 {
		if err := s.fills.InsertBatch(ctx, report.Fills); err != nil {
			return engine.MatchReport{}, fmt.Errorf("trading_service: persist fills: %w", err)
		}
		if err := s.persistMarketAndBook(ctx, marketID); err != nil {
			return engine.MatchReport{}, err
		}

		s.invalidateDepth(ctx, marketID)
		publishEvent(ctx, s.bus, s.logger, channelFillsPrefix+marketID, "fills", report.Fills)
		s.auditLog(ctx, "market.matched", map[string]any{
			"market_id": marketID,
			"fills":     len(report.Fills),
			"volume":    report.Volume,
			"fees":      report.Fees,
		})
	}

	return report, nil
}

// QuickBuy spends up to budget collateral sweeping the cheapest resting sells
// of one outcome. Fails whole if fewer than minTokensOut tokens are
// acquirable.
func (s *TradingService) QuickBuy(ctx context.Context, user, marketID string, outcome domain.Outcome, budget, minTokensOut uint64) (engine.QuickBuyReport, error) {
	unlock, err := s.lock.Acquire(ctx, "market:"+marketID, s.lockTTL)
	if err != nil {
		return engine.QuickBuyReport{}, err
	}
	defer unlock()

	report, err := s.engine.QuickBuy(ctx, user, marketID, outcome, budget, minTokensOut)
	if err != nil {
		return engine.QuickBuyReport{}, err
	}

	if len(report.Fills) > 0 {
		if err := s.fills.InsertBatch(ctx, report.Fills); err != nil {
			return engine.QuickBuyReport{}, fmt.Errorf("trading_service: persist fills: %w", err)
		}
	}
	if err := s.persistMarketAndBook(ctx, marketID); err != nil {
		return engine.QuickBuyReport{}, err
	}
	pos, posErr := s.engine.GetPosition(user, marketID)
	if posErr == nil {
		if err := s.positions.Upsert(ctx, pos); err != nil {
			return engine.QuickBuyReport{}, fmt.Errorf("trading_service: persist position: %w", err)
		}
	}

	s.invalidateDepth(ctx, marketID)
	if len(report.Fills) > 0 {
		publishEvent(ctx, s.bus, s.logger, channelFillsPrefix+marketID, "fills", report.Fills)
	}
	s.auditLog(ctx, "market.quick_buy", map[string]any{
		"market_id": marketID,
		"user":      user,
		"outcome":   string(outcome),
		"tokens":    report.TokensBought,
		"spent":     report.Spent,
	})
	return report, nil
}

// Depth returns the aggregated book depth for one outcome, serving from the
// cache when possible.
func (s *TradingService) Depth(ctx context.Context, marketID string, outcome domain.Outcome) (domain.BookDepth, error) {
	if depth, err := s.bookCache.GetDepth(ctx, marketID, outcome); err == nil {
		return depth, nil
	}

	depth, err := s.engine.Depth(marketID, outcome)
	if err != nil {
		return domain.BookDepth{}, err
	}
	if err := s.bookCache.SetDepth(ctx, depth); err != nil {
		s.logger.WarnContext(ctx, "depth cache set failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
	return depth, nil
}

// BookRecord returns the whole-record form of the market's book.
func (s *TradingService) BookRecord(marketID string) (domain.OrderBookRecord, error) {
	return s.engine.BookRecord(marketID)
}

// ListFillsByMarket returns executed fills in one market, newest first.
func (s *TradingService) ListFillsByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Fill, error) {
	fills, err := s.fills.ListByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("trading_service: list fills: %w", err)
	}
	return fills, nil
}

// ListFillsByUser returns fills where the user was buyer or seller.
func (s *TradingService) ListFillsByUser(ctx context.Context, user string, opts domain.ListOpts) ([]domain.Fill, error) {
	fills, err := s.fills.ListByUser(ctx, user, opts)
	if err != nil {
		return nil, fmt.Errorf("trading_service: list fills by user: %w", err)
	}
	return fills, nil
}

func (s *TradingService) persistBook(ctx context.Context, marketID string) error {
	rec, err := s.engine.BookRecord(marketID)
	if err != nil {
		return err
	}
	if err := s.books.Save(ctx, rec); err != nil {
		return fmt.Errorf("trading_service: persist book: %w", err)
	}
	return nil
}

func (s *TradingService) persistMarketAndBook(ctx context.Context, marketID string) error {
	m, err := s.engine.GetMarket(marketID)
	if err != nil {
		return err
	}
	if err := s.markets.Upsert(ctx, m); err != nil {
		return fmt.Errorf("trading_service: persist market: %w", err)
	}
	if err := s.persistBook(ctx, marketID); err != nil {
		return err
	}
	if err := s.cache.Set(ctx, m, marketCacheTTL); err != nil {
		s.logger.WarnContext(ctx, "cache set failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// invalidateDepth drops cached depth snapshots; failures are non-fatal since
// entries expire on their own.
func (s *TradingService) invalidateDepth(ctx context.Context, marketID string) {
	if err := s.bookCache.Invalidate(ctx, marketID); err != nil {
		s.logger.WarnContext(ctx, "depth cache invalidate failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
}

// publishDepth broadcasts a fresh depth snapshot for one outcome.
func (s *TradingService) publishDepth(ctx context.Context, marketID string, outcome domain.Outcome) {
	depth, err := s.engine.Depth(marketID, outcome)
	if err != nil {
		return
	}
	publishEvent(ctx, s.bus, s.logger, channelDepthPrefix+marketID, "depth", depth)
}

func (s *TradingService) auditLog(ctx context.Context, event string, detail map[string]any) {
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
