package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ipredict/engine/internal/domain"
)

// QuickBuyReport summarizes one market-buy sweep.
type QuickBuyReport struct {
	Fills        []domain.Fill
	TokensBought uint64
	Spent        uint64
	Refunded     uint64
	Fees         uint64
}

// QuickBuy sweeps the sell queue of one outcome cheapest-first, spending up
// to budget collateral units. The sweep is all-or-nothing: if fewer than
// minTokensOut tokens are acquirable the whole operation fails and neither
// the book nor any balance changes. Unspent budget is never charged.
func (e *Engine) QuickBuy(ctx context.Context, user, marketID string, outcome domain.Outcome, budget, minTokensOut uint64) (QuickBuyReport, error) {
	if !outcome.Valid() {
		return QuickBuyReport{}, domain.ErrInvalidOutcome
	}
	ms, err := e.state(marketID)
	if err != nil {
		return QuickBuyReport{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := e.clock.Now()
	ms.activate(now.Unix())
	if !ms.market.IsOpen(now.Unix()) {
		return QuickBuyReport{}, domain.ErrMarketNotOpen
	}

	book := ms.book.Clone()
	market := ms.market
	sells := book.queue(domain.SideSell, outcome)

	var (
		report    QuickBuyReport
		remaining = budget
		filled    []int
	)

	// The sell queue is already ordered ascending by price, so a forward
	// walk consumes the cheapest liquidity first.
	for i := range *sells {
		if remaining == 0 {
			break
		}
		order := &(*sells)[i]
		available := order.Remaining()
		if available == 0 {
			continue
		}

		affordable := remaining / order.Price
		fill := minU64(available, affordable)
		if fill == 0 {
			continue
		}

		cost, err := mulU64(fill, order.Price)
		if err != nil {
			return QuickBuyReport{}, err
		}
		fee, platformFee, creatorFee, err := computeFees(cost)
		if err != nil {
			return QuickBuyReport{}, err
		}

		if order.FilledQuantity, err = addU64(order.FilledQuantity, fill); err != nil {
			return QuickBuyReport{}, err
		}
		if order.Filled() {
			filled = append(filled, i)
		}

		if report.TokensBought, err = addU64(report.TokensBought, fill); err != nil {
			return QuickBuyReport{}, err
		}
		if remaining, err = subU64(remaining, cost); err != nil {
			return QuickBuyReport{}, err
		}
		if report.Fees, err = addU64(report.Fees, fee); err != nil {
			return QuickBuyReport{}, err
		}

		report.Fills = append(report.Fills, domain.Fill{
			ID:          uuid.NewString(),
			MarketID:    marketID,
			Outcome:     outcome,
			SellOrderID: order.ID,
			Buyer:       user,
			Seller:      order.Owner,
			Price:       order.Price,
			Quantity:    fill,
			Notional:    cost,
			Fee:         fee,
			PlatformFee: platformFee,
			CreatorFee:  creatorFee,
			ExecutedAt:  now,
		})
	}

	// Slippage guard comes before any commit or transfer, so a failed sweep
	// leaves the book and all balances untouched.
	if report.TokensBought < minTokensOut {
		return QuickBuyReport{}, domain.ErrSlippageExceeded
	}

	for i := len(filled) - 1; i >= 0; i-- {
		idx := filled[i]
		*sells = append((*sells)[:idx], (*sells)[idx+1:]...)
	}

	report.Spent = budget - remaining
	report.Refunded = remaining

	if market.TotalVolume, err = addU64(market.TotalVolume, report.Spent); err != nil {
		return QuickBuyReport{}, err
	}
	if market.TotalFees, err = addU64(market.TotalFees, report.Fees); err != nil {
		return QuickBuyReport{}, err
	}

	pos := ms.position(user)
	if outcome == domain.OutcomeYes {
		pos.YesTokensBought, err = addU64(pos.YesTokensBought, report.TokensBought)
	} else {
		pos.NoTokensBought, err = addU64(pos.NoTokensBought, report.TokensBought)
	}
	if err != nil {
		return QuickBuyReport{}, err
	}

	plan := newTransferPlan()
	for _, f := range report.Fills {
		sellerProceeds, err := subU64(f.Notional, f.Fee)
		if err != nil {
			return QuickBuyReport{}, err
		}
		plan.moveCollateral(user, f.Seller, sellerProceeds)
		plan.moveCollateral(user, e.platform.FeeRecipient, f.PlatformFee)
		plan.moveCollateral(user, market.Creator, f.CreatorFee)
	}
	plan.moveOutcome(market.TokenID(outcome), market.EscrowID(outcome), user, report.TokensBought)
	if err := plan.apply(ctx, e.ledger); err != nil {
		return QuickBuyReport{}, fmt.Errorf("engine: quick buy settlement: %w", err)
	}

	if pos.CreatedAt.IsZero() {
		pos.CreatedAt = now
	}
	pos.UpdatedAt = now
	market.UpdatedAt = now
	ms.market = market
	ms.book = book
	ms.positions[user] = pos

	e.mu.Lock()
	e.platform.TotalVolume += report.Spent
	e.platform.TotalFees += report.Fees
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "quick buy",
		slog.String("market_id", marketID),
		slog.String("user", user),
		slog.String("outcome", string(outcome)),
		slog.Uint64("tokens", report.TokensBought),
		slog.Uint64("spent", report.Spent),
		slog.Uint64("refunded", report.Refunded),
	)
	return report, nil
}
