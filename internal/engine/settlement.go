package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ipredict/engine/internal/domain"
)

// ClaimReport summarizes one redemption.
type ClaimReport struct {
	Payout    uint64
	YesBurned uint64
	NoBurned  uint64
	Position  domain.UserPosition
}

// ResolveMarket sets the market's terminal outcome. Only the platform
// authority may resolve, only once, and only at or after the resolution
// time. The outcome must be concrete, never Pending.
func (e *Engine) ResolveMarket(ctx context.Context, authority, marketID string, resolution domain.Resolution) (domain.Market, error) {
	if authority != e.platform.Authority {
		return domain.Market{}, domain.ErrUnauthorized
	}

	ms, err := e.state(marketID)
	if err != nil {
		return domain.Market{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.market.Status == domain.MarketStatusResolved {
		return domain.Market{}, domain.ErrMarketResolved
	}

	now := e.clock.Now()
	ms.activate(now.Unix())
	if !ms.market.IsResolvable(now.Unix()) {
		return domain.Market{}, domain.ErrMarketNotResolvable
	}
	if resolution == domain.ResolutionPending ||
		(resolution != domain.ResolutionYesWon && resolution != domain.ResolutionNoWon && resolution != domain.ResolutionDraw) {
		return domain.Market{}, domain.ErrInvalidResolution
	}

	ms.market.Resolution = resolution
	ms.market.Status = domain.MarketStatusResolved
	ms.market.UpdatedAt = now

	e.logger.InfoContext(ctx, "market resolved",
		slog.String("market_id", marketID),
		slog.String("resolution", string(resolution)),
	)
	return ms.market, nil
}

// ClaimWinnings redeems the caller's outcome tokens for collateral after the
// market resolved. A position redeems at most once; a vault shortfall fails
// without setting the claimed flag so the claim can be retried after the
// vault is replenished.
func (e *Engine) ClaimWinnings(ctx context.Context, user, marketID string) (ClaimReport, error) {
	ms, err := e.state(marketID)
	if err != nil {
		return ClaimReport{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.market.Status != domain.MarketStatusResolved {
		return ClaimReport{}, domain.ErrMarketNotResolvable
	}
	pos := ms.position(user)
	if pos.Claimed {
		return ClaimReport{}, domain.ErrAlreadyClaimed
	}

	market := ms.market
	yesBalance, err := e.ledger.OutcomeBalance(ctx, market.YesTokenID, user)
	if err != nil {
		return ClaimReport{}, fmt.Errorf("engine: claim: %w", err)
	}
	noBalance, err := e.ledger.OutcomeBalance(ctx, market.NoTokenID, user)
	if err != nil {
		return ClaimReport{}, fmt.Errorf("engine: claim: %w", err)
	}

	var report ClaimReport
	switch market.Resolution {
	case domain.ResolutionYesWon:
		if report.Payout, err = mulU64(yesBalance, domain.PayoutRate); err != nil {
			return ClaimReport{}, err
		}
		report.YesBurned = yesBalance
	case domain.ResolutionNoWon:
		if report.Payout, err = mulU64(noBalance, domain.PayoutRate); err != nil {
			return ClaimReport{}, err
		}
		report.NoBurned = noBalance
	case domain.ResolutionDraw:
		total, err := addU64(yesBalance, noBalance)
		if err != nil {
			return ClaimReport{}, err
		}
		scaled, err := mulU64(total, domain.PayoutRate)
		if err != nil {
			return ClaimReport{}, err
		}
		report.Payout = scaled / 2
		report.YesBurned = yesBalance
		report.NoBurned = noBalance
	default:
		return ClaimReport{}, domain.ErrInvalidResolution
	}

	if report.Payout > 0 {
		vaultBalance, err := e.ledger.CollateralBalance(ctx, market.VaultID)
		if err != nil {
			return ClaimReport{}, fmt.Errorf("engine: claim: %w", err)
		}
		if vaultBalance < report.Payout {
			return ClaimReport{}, domain.ErrInsufficientFunds
		}
	}

	if pos.TotalWithdrawn, err = addU64(pos.TotalWithdrawn, report.Payout); err != nil {
		return ClaimReport{}, err
	}

	plan := newTransferPlan()
	plan.burn(market.YesTokenID, user, report.YesBurned)
	plan.burn(market.NoTokenID, user, report.NoBurned)
	plan.moveCollateral(market.VaultID, user, report.Payout)
	if err := plan.apply(ctx, e.ledger); err != nil {
		return ClaimReport{}, fmt.Errorf("engine: claim payout: %w", err)
	}

	now := e.clock.Now()
	pos.Claimed = true
	if pos.CreatedAt.IsZero() {
		pos.CreatedAt = now
	}
	pos.UpdatedAt = now
	ms.positions[user] = pos
	report.Position = pos

	e.logger.InfoContext(ctx, "winnings claimed",
		slog.String("market_id", marketID),
		slog.String("user", user),
		slog.Uint64("payout", report.Payout),
	)
	return report, nil
}
