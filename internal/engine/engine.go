// Package engine implements the order book, matching, market-order and
// resolution-settlement core for binary-outcome prediction markets. Every
// mutating operation executes with exclusive access to one market's state and
// commits all-or-nothing: validation failures, overflow, or custody errors
// abort the invocation with no partial effect.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ipredict/engine/internal/domain"
)

// marketState bundles everything one invocation may touch for a market. The
// mutex models invocation exclusivity; there is no finer-grained locking.
type marketState struct {
	mu        sync.Mutex
	market    domain.Market
	book      *OrderBook
	positions map[string]domain.UserPosition
}

// Engine owns the in-memory authoritative state of all markets plus the
// platform aggregates, and drives every trading and settlement operation
// through the custody ledger.
type Engine struct {
	mu       sync.RWMutex
	platform *domain.Platform
	markets  map[string]*marketState

	ledger domain.Ledger
	clock  domain.Clock
	logger *slog.Logger
}

// New creates an Engine around the given platform configuration, custody
// ledger and clock.
func New(platform *domain.Platform, ledger domain.Ledger, clock domain.Clock, logger *slog.Logger) *Engine {
	return &Engine{
		platform: platform,
		markets:  make(map[string]*marketState),
		ledger:   ledger,
		clock:    clock,
		logger:   logger.With(slog.String("component", "engine")),
	}
}

// CreateMarketParams are the caller-supplied fields of a new market.
type CreateMarketParams struct {
	Name           string
	Description    string
	OpeningTime    int64
	ClosingTime    int64
	ResolutionTime int64
}

// CreateMarket validates the parameters, charges the creation fee to the
// creator, and registers a new market with an empty book.
func (e *Engine) CreateMarket(ctx context.Context, creator string, p CreateMarketParams) (domain.Market, error) {
	if len(p.Name) > domain.MaxNameLength {
		return domain.Market{}, domain.ErrNameTooLong
	}
	if len(p.Description) > domain.MaxDescriptionLength {
		return domain.Market{}, domain.ErrDescriptionTooLong
	}

	now := e.clock.Now()
	ts := now.Unix()
	if p.OpeningTime < ts || p.ClosingTime <= p.OpeningTime || p.ResolutionTime < p.ClosingTime {
		return domain.Market{}, domain.ErrInvalidTimeParams
	}

	if err := e.ledger.TransferCollateral(ctx, creator, e.platform.FeeRecipient, e.platform.MarketCreationFee); err != nil {
		return domain.Market{}, fmt.Errorf("engine: creation fee: %w", err)
	}

	id := uuid.NewString()
	market := domain.Market{
		ID:             id,
		Creator:        creator,
		Name:           p.Name,
		Description:    p.Description,
		YesTokenID:     "token:yes:" + id,
		NoTokenID:      "token:no:" + id,
		VaultID:        "vault:" + id,
		YesEscrowID:    "escrow:yes:" + id,
		NoEscrowID:     "escrow:no:" + id,
		OpeningTime:    p.OpeningTime,
		ClosingTime:    p.ClosingTime,
		ResolutionTime: p.ResolutionTime,
		Status:         domain.MarketStatusCreated,
		Resolution:     domain.ResolutionPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if ts >= p.OpeningTime {
		market.Status = domain.MarketStatusActive
	}

	e.mu.Lock()
	e.markets[id] = &marketState{
		market:    market,
		book:      NewOrderBook(id),
		positions: make(map[string]domain.UserPosition),
	}
	e.platform.TotalMarkets++
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "market created",
		slog.String("market_id", id),
		slog.String("creator", creator),
	)
	return market, nil
}

// RestoreMarket loads a persisted market, book record and positions into the
// engine, used on startup. It replaces any existing in-memory state for the
// market and reconciles the engine-owned custody accounts: escrow token
// balances are topped up to cover every resting sell order's remainder, and
// the vault is topped up to the unclaimed share of deposits. Reconciliation
// only ever credits, so restoring against custody that already holds the
// balances is a no-op.
func (e *Engine) RestoreMarket(ctx context.Context, market domain.Market, rec domain.OrderBookRecord, positions []domain.UserPosition) error {
	book := NewOrderBookFromRecord(rec)
	ms := &marketState{
		market:    market,
		book:      book,
		positions: make(map[string]domain.UserPosition, len(positions)),
	}
	var withdrawn uint64
	var err error
	for _, p := range positions {
		ms.positions[p.User] = p
		if withdrawn, err = addU64(withdrawn, p.TotalWithdrawn); err != nil {
			return err
		}
	}

	for _, outcome := range []domain.Outcome{domain.OutcomeYes, domain.OutcomeNo} {
		var resting uint64
		for _, o := range *book.queue(domain.SideSell, outcome) {
			if resting, err = addU64(resting, o.Remaining()); err != nil {
				return err
			}
		}
		if resting == 0 {
			continue
		}
		tokenID := market.TokenID(outcome)
		escrowID := market.EscrowID(outcome)
		held, err := e.ledger.OutcomeBalance(ctx, tokenID, escrowID)
		if err != nil {
			return fmt.Errorf("engine: restore escrow %s: %w", escrowID, err)
		}
		if held < resting {
			if err := e.ledger.MintOutcome(ctx, tokenID, escrowID, resting-held); err != nil {
				return fmt.Errorf("engine: restore escrow %s: %w", escrowID, err)
			}
		}
	}

	unclaimed, err := subU64(market.TotalDeposited, withdrawn)
	if err != nil {
		return fmt.Errorf("engine: restore vault %s: %w", market.VaultID, err)
	}
	if unclaimed > 0 {
		held, err := e.ledger.CollateralBalance(ctx, market.VaultID)
		if err != nil {
			return fmt.Errorf("engine: restore vault %s: %w", market.VaultID, err)
		}
		if held < unclaimed {
			if err := e.ledger.CreditCollateral(ctx, market.VaultID, unclaimed-held); err != nil {
				return fmt.Errorf("engine: restore vault %s: %w", market.VaultID, err)
			}
		}
	}

	e.mu.Lock()
	e.markets[market.ID] = ms
	e.mu.Unlock()
	return nil
}

func (e *Engine) state(marketID string) (*marketState, error) {
	e.mu.RLock()
	ms, ok := e.markets[marketID]
	e.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return ms, nil
}

// activate flips Created to Active once the opening time has passed. Must be
// called with ms.mu held.
func (ms *marketState) activate(now int64) {
	if ms.market.Status == domain.MarketStatusCreated && now >= ms.market.OpeningTime {
		ms.market.Status = domain.MarketStatusActive
	}
}

// position returns a copy of the user's position, creating a zero value on
// first interaction. Must be called with ms.mu held.
func (ms *marketState) position(user string) domain.UserPosition {
	if p, ok := ms.positions[user]; ok {
		return p
	}
	return domain.UserPosition{User: user, MarketID: ms.market.ID}
}

// DepositAndMint moves collateral from the user into the market vault and
// mints the corresponding complementary pair of YES and NO tokens. It returns
// the number of whole tokens minted per side.
func (e *Engine) DepositAndMint(ctx context.Context, user, marketID string, amount uint64) (uint64, domain.UserPosition, error) {
	ms, err := e.state(marketID)
	if err != nil {
		return 0, domain.UserPosition{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := e.clock.Now()
	ms.activate(now.Unix())
	if !ms.market.IsOpen(now.Unix()) {
		return 0, domain.UserPosition{}, domain.ErrMarketNotOpen
	}

	scaled, err := mulU64(amount, domain.TokensPerCollateralUnit)
	if err != nil {
		return 0, domain.UserPosition{}, err
	}
	tokens, err := divU64(scaled, domain.CollateralUnit)
	if err != nil {
		return 0, domain.UserPosition{}, err
	}

	market := ms.market
	if market.TotalYesTokens, err = addU64(market.TotalYesTokens, tokens); err != nil {
		return 0, domain.UserPosition{}, err
	}
	if market.TotalNoTokens, err = addU64(market.TotalNoTokens, tokens); err != nil {
		return 0, domain.UserPosition{}, err
	}
	if market.TotalDeposited, err = addU64(market.TotalDeposited, amount); err != nil {
		return 0, domain.UserPosition{}, err
	}

	pos := ms.position(user)
	if pos.TotalDeposited, err = addU64(pos.TotalDeposited, amount); err != nil {
		return 0, domain.UserPosition{}, err
	}

	plan := newTransferPlan()
	plan.moveCollateral(user, market.VaultID, amount)
	plan.mint(market.YesTokenID, user, tokens)
	plan.mint(market.NoTokenID, user, tokens)
	if err := plan.apply(ctx, e.ledger); err != nil {
		return 0, domain.UserPosition{}, fmt.Errorf("engine: deposit: %w", err)
	}

	if pos.CreatedAt.IsZero() {
		pos.CreatedAt = now
	}
	pos.UpdatedAt = now
	market.UpdatedAt = now
	ms.market = market
	ms.positions[user] = pos

	e.logger.InfoContext(ctx, "deposit and mint",
		slog.String("market_id", marketID),
		slog.String("user", user),
		slog.Uint64("amount", amount),
		slog.Uint64("tokens", tokens),
	)
	return tokens, pos, nil
}

// PlaceOrder validates and rests a limit order on the book. Sell orders
// escrow the offered tokens; buy orders are validated against the owner's
// live collateral balance (collateral is charged at execution, not at
// placement).
func (e *Engine) PlaceOrder(ctx context.Context, user, marketID string, side domain.Side, outcome domain.Outcome, price, quantity uint64) (domain.Order, error) {
	if !outcome.Valid() {
		return domain.Order{}, domain.ErrInvalidOutcome
	}
	if price == 0 || price > domain.PriceCeiling {
		return domain.Order{}, domain.ErrInvalidOrderPrice
	}
	if quantity == 0 {
		return domain.Order{}, domain.ErrInvalidOrderQuantity
	}

	ms, err := e.state(marketID)
	if err != nil {
		return domain.Order{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := e.clock.Now()
	ms.activate(now.Unix())
	if !ms.market.IsOpen(now.Unix()) {
		return domain.Order{}, domain.ErrMarketNotOpen
	}

	tokenID := ms.market.TokenID(outcome)
	if side == domain.SideSell {
		bal, err := e.ledger.OutcomeBalance(ctx, tokenID, user)
		if err != nil {
			return domain.Order{}, fmt.Errorf("engine: place order: %w", err)
		}
		if bal < quantity {
			return domain.Order{}, domain.ErrInsufficientBalance
		}
	} else {
		required, err := mulU64(quantity, price)
		if err != nil {
			return domain.Order{}, err
		}
		bal, err := e.ledger.CollateralBalance(ctx, user)
		if err != nil {
			return domain.Order{}, fmt.Errorf("engine: place order: %w", err)
		}
		if bal < required {
			return domain.Order{}, domain.ErrInsufficientBalance
		}
	}

	order := domain.Order{
		ID:        ms.book.NextOrderID(),
		Owner:     user,
		Side:      side,
		Outcome:   outcome,
		Price:     price,
		Quantity:  quantity,
		Timestamp: now.Unix(),
	}

	book := ms.book.Clone()
	if err := book.AddOrder(order); err != nil {
		return domain.Order{}, err
	}
	if book.nextOrderID, err = addU64(book.nextOrderID, 1); err != nil {
		return domain.Order{}, err
	}

	pos := ms.position(user)
	switch {
	case side == domain.SideBuy && outcome == domain.OutcomeYes:
		pos.YesTokensBought, err = addU64(pos.YesTokensBought, quantity)
	case side == domain.SideBuy && outcome == domain.OutcomeNo:
		pos.NoTokensBought, err = addU64(pos.NoTokensBought, quantity)
	case side == domain.SideSell && outcome == domain.OutcomeYes:
		pos.YesTokensSold, err = addU64(pos.YesTokensSold, quantity)
	default:
		pos.NoTokensSold, err = addU64(pos.NoTokensSold, quantity)
	}
	if err != nil {
		return domain.Order{}, err
	}

	if side == domain.SideSell {
		plan := newTransferPlan()
		plan.moveOutcome(tokenID, user, ms.market.EscrowID(outcome), quantity)
		if err := plan.apply(ctx, e.ledger); err != nil {
			return domain.Order{}, fmt.Errorf("engine: escrow: %w", err)
		}
	}

	if pos.CreatedAt.IsZero() {
		pos.CreatedAt = now
	}
	pos.UpdatedAt = now
	ms.book = book
	ms.positions[user] = pos

	e.logger.InfoContext(ctx, "order placed",
		slog.String("market_id", marketID),
		slog.Uint64("order_id", order.ID),
		slog.String("side", string(side)),
		slog.String("outcome", string(outcome)),
		slog.Uint64("price", price),
		slog.Uint64("quantity", quantity),
	)
	return order, nil
}

// CancelOrder removes a resting order. Only the owner may cancel; cancelling
// a sell order releases its remaining escrowed tokens back to the owner.
func (e *Engine) CancelOrder(ctx context.Context, user, marketID string, orderID uint64) (domain.Order, error) {
	ms, err := e.state(marketID)
	if err != nil {
		return domain.Order{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	order, ok := ms.book.FindOrder(orderID)
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if order.Owner != user {
		return domain.Order{}, domain.ErrUnauthorized
	}

	book := ms.book.Clone()
	removed, err := book.RemoveOrder(orderID, order.Side, order.Outcome)
	if err != nil {
		return domain.Order{}, err
	}

	if removed.Side == domain.SideSell {
		if rem := removed.Remaining(); rem > 0 {
			plan := newTransferPlan()
			plan.moveOutcome(ms.market.TokenID(removed.Outcome), ms.market.EscrowID(removed.Outcome), user, rem)
			if err := plan.apply(ctx, e.ledger); err != nil {
				return domain.Order{}, fmt.Errorf("engine: release escrow: %w", err)
			}
		}
	}

	ms.book = book

	e.logger.InfoContext(ctx, "order cancelled",
		slog.String("market_id", marketID),
		slog.Uint64("order_id", orderID),
	)
	return removed, nil
}

// Platform returns a copy of the platform record and aggregates.
func (e *Engine) Platform() domain.Platform {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return *e.platform
}

// GetMarket returns a copy of the market record.
func (e *Engine) GetMarket(marketID string) (domain.Market, error) {
	ms, err := e.state(marketID)
	if err != nil {
		return domain.Market{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.market, nil
}

// GetPosition returns a copy of the user's position in the market.
func (e *Engine) GetPosition(user, marketID string) (domain.UserPosition, error) {
	ms, err := e.state(marketID)
	if err != nil {
		return domain.UserPosition{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	p, ok := ms.positions[user]
	if !ok {
		return domain.UserPosition{}, domain.ErrNotFound
	}
	return p, nil
}

// BookRecord returns the whole-record form of the market's book.
func (e *Engine) BookRecord(marketID string) (domain.OrderBookRecord, error) {
	ms, err := e.state(marketID)
	if err != nil {
		return domain.OrderBookRecord{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.book.Record(), nil
}

// Depth returns the aggregated book depth for one outcome.
func (e *Engine) Depth(marketID string, outcome domain.Outcome) (domain.BookDepth, error) {
	if !outcome.Valid() {
		return domain.BookDepth{}, domain.ErrInvalidOutcome
	}
	ms, err := e.state(marketID)
	if err != nil {
		return domain.BookDepth{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	bids, asks := ms.book.Depth(outcome)
	return domain.BookDepth{
		MarketID: marketID,
		Outcome:  outcome,
		Bids:     bids,
		Asks:     asks,
		AsOf:     e.clock.Now(),
	}, nil
}
