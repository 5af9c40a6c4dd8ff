package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ipredict/engine/internal/domain"
)

// MatchReport summarizes one matching invocation.
type MatchReport struct {
	Fills      []domain.Fill
	Iterations int
	Volume     uint64
	Fees       uint64
	// Quiescent is true when no crossing pair remains on either outcome,
	// so re-invoking matching would make no progress.
	Quiescent bool
}

// computeFees returns the total fee on a trade notional and its split. The
// creator receives the remainder after the platform's share, so no base unit
// of the fee is lost or duplicated.
func computeFees(notional uint64) (fee, platformFee, creatorFee uint64, err error) {
	scaled, err := mulU64(notional, domain.TotalFeeBps)
	if err != nil {
		return 0, 0, 0, err
	}
	fee, err = divU64(scaled, domain.BpsDivisor)
	if err != nil {
		return 0, 0, 0, err
	}
	scaled, err = mulU64(fee, domain.PlatformFeeBps)
	if err != nil {
		return 0, 0, 0, err
	}
	platformFee, err = divU64(scaled, domain.TotalFeeBps)
	if err != nil {
		return 0, 0, 0, err
	}
	creatorFee = fee - platformFee
	return fee, platformFee, creatorFee, nil
}

// MatchOrders crosses the YES queue pair and then the NO queue pair of one
// market, bounded by maxIterations fills across both. It commits the mutated
// book, aggregates and custody transfers only if the whole pass succeeds; a
// caller drains the book by re-invoking until the report is Quiescent.
func (e *Engine) MatchOrders(ctx context.Context, marketID string, maxIterations int) (MatchReport, error) {
	if maxIterations <= 0 {
		return MatchReport{}, domain.ErrInvalidOrderQuantity
	}
	ms, err := e.state(marketID)
	if err != nil {
		return MatchReport{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := e.clock.Now()
	book := ms.book.Clone()
	market := ms.market

	var (
		report     MatchReport
		iterations int
	)

	for _, outcome := range []domain.Outcome{domain.OutcomeYes, domain.OutcomeNo} {
		fills, err := matchQueuePair(
			book.queue(domain.SideBuy, outcome),
			book.queue(domain.SideSell, outcome),
			&iterations, maxIterations,
		)
		if err != nil {
			return MatchReport{}, err
		}
		for i := range fills {
			fills[i].ID = uuid.NewString()
			fills[i].MarketID = marketID
			fills[i].Outcome = outcome
			fills[i].ExecutedAt = now
		}
		report.Fills = append(report.Fills, fills...)
	}
	report.Iterations = iterations

	for _, f := range report.Fills {
		if report.Volume, err = addU64(report.Volume, f.Notional); err != nil {
			return MatchReport{}, err
		}
		if report.Fees, err = addU64(report.Fees, f.Fee); err != nil {
			return MatchReport{}, err
		}
	}

	if market.TotalVolume, err = addU64(market.TotalVolume, report.Volume); err != nil {
		return MatchReport{}, err
	}
	if market.TotalFees, err = addU64(market.TotalFees, report.Fees); err != nil {
		return MatchReport{}, err
	}

	e.mu.Lock()
	if _, err = addU64(e.platform.TotalVolume, report.Volume); err == nil {
		_, err = addU64(e.platform.TotalFees, report.Fees)
	}
	e.mu.Unlock()
	if err != nil {
		return MatchReport{}, err
	}

	plan := newTransferPlan()
	for _, f := range report.Fills {
		sellerProceeds, err := subU64(f.Notional, f.Fee)
		if err != nil {
			return MatchReport{}, err
		}
		plan.moveCollateral(f.Buyer, f.Seller, sellerProceeds)
		plan.moveCollateral(f.Buyer, e.platform.FeeRecipient, f.PlatformFee)
		plan.moveCollateral(f.Buyer, market.Creator, f.CreatorFee)
		plan.moveOutcome(market.TokenID(f.Outcome), market.EscrowID(f.Outcome), f.Buyer, f.Quantity)
	}
	if err := plan.apply(ctx, e.ledger); err != nil {
		return MatchReport{}, fmt.Errorf("engine: match settlement: %w", err)
	}

	market.UpdatedAt = now
	ms.market = market
	ms.book = book

	e.mu.Lock()
	e.platform.TotalVolume += report.Volume
	e.platform.TotalFees += report.Fees
	e.mu.Unlock()

	report.Quiescent = !crosses(book.buyYes, book.sellYes) && !crosses(book.buyNo, book.sellNo)

	if len(report.Fills) > 0 {
		e.logger.InfoContext(ctx, "orders matched",
			slog.String("market_id", marketID),
			slog.Int("fills", len(report.Fills)),
			slog.Uint64("volume", report.Volume),
			slog.Uint64("fees", report.Fees),
		)
	}
	return report, nil
}

// matchQueuePair runs price-time matching over one buy/sell queue pair. Both
// queues are mutated in place (fill state) and completed orders are removed
// afterwards in descending index order. Returned fills carry everything but
// the id, market and timestamp fields.
func matchQueuePair(buys, sells *[]domain.Order, iterations *int, maxIterations int) ([]domain.Fill, error) {
	var (
		fills           []domain.Fill
		buyIdx, sellIdx int
		doneBuys        []int
		doneSells       []int
	)

	for buyIdx < len(*buys) && sellIdx < len(*sells) && *iterations < maxIterations {
		buy := &(*buys)[buyIdx]
		sell := &(*sells)[sellIdx]

		if buy.Price >= sell.Price {
			matchQty := minU64(buy.Remaining(), sell.Remaining())
			if matchQty > 0 {
				sum, err := addU64(buy.Price, sell.Price)
				if err != nil {
					return nil, err
				}
				executionPrice := sum / 2

				notional, err := mulU64(matchQty, executionPrice)
				if err != nil {
					return nil, err
				}
				fee, platformFee, creatorFee, err := computeFees(notional)
				if err != nil {
					return nil, err
				}

				if buy.FilledQuantity, err = addU64(buy.FilledQuantity, matchQty); err != nil {
					return nil, err
				}
				if sell.FilledQuantity, err = addU64(sell.FilledQuantity, matchQty); err != nil {
					return nil, err
				}
				if buy.Filled() {
					doneBuys = append(doneBuys, buyIdx)
				}
				if sell.Filled() {
					doneSells = append(doneSells, sellIdx)
				}

				fills = append(fills, domain.Fill{
					BuyOrderID:  buy.ID,
					SellOrderID: sell.ID,
					Buyer:       buy.Owner,
					Seller:      sell.Owner,
					Price:       executionPrice,
					Quantity:    matchQty,
					Notional:    notional,
					Fee:         fee,
					PlatformFee: platformFee,
					CreatorFee:  creatorFee,
				})
				*iterations++
			}
		}

		// Advance past whichever head filled; if neither did, no further
		// progress is possible on this pair.
		switch {
		case (*buys)[buyIdx].Filled():
			buyIdx++
		case (*sells)[sellIdx].Filled():
			sellIdx++
		default:
			removeIndices(buys, doneBuys, sells, doneSells)
			return fills, nil
		}
	}

	removeIndices(buys, doneBuys, sells, doneSells)
	return fills, nil
}

// removeIndices deletes completed orders, highest index first so earlier
// removals do not invalidate later ones.
func removeIndices(buys *[]domain.Order, doneBuys []int, sells *[]domain.Order, doneSells []int) {
	for i := len(doneBuys) - 1; i >= 0; i-- {
		idx := doneBuys[i]
		*buys = append((*buys)[:idx], (*buys)[idx+1:]...)
	}
	for i := len(doneSells) - 1; i >= 0; i-- {
		idx := doneSells[i]
		*sells = append((*sells)[:idx], (*sells)[idx+1:]...)
	}
}

// crosses reports whether the best resting buy meets or exceeds the best
// resting sell.
func crosses(buys, sells []domain.Order) bool {
	return len(buys) > 0 && len(sells) > 0 && buys[0].Price >= sells[0].Price
}
