package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ipredict/engine/internal/domain"
	"github.com/ipredict/engine/internal/ledger"
)

// seedSellQueue rests two yes asks: 4 tokens at 500 and 10 tokens at 600.
func seedSellQueue(t *testing.T, eng *Engine, led *ledger.Memory, clk *stubClock, m domain.Market) {
	t.Helper()
	mustDeposit(t, eng, led, "sam", m.ID, domain.CollateralUnit)
	mustPlace(t, eng, "sam", m.ID, domain.SideSell, domain.OutcomeYes, 500, 4)
	clk.advance(time.Second)
	mustPlace(t, eng, "sam", m.ID, domain.SideSell, domain.OutcomeYes, 600, 10)
}

func TestQuickBuySweepsCheapestFirst(t *testing.T) {
	eng, led, clk := newTestEngine()
	m := mustCreateMarket(t, eng, led, clk, "carol")
	seedSellQueue(t, eng, led, clk, m)

	led.Fund("bob", 3200)
	report, err := eng.QuickBuy(context.Background(), "bob", m.ID, domain.OutcomeYes, 3200, 6)
	if err != nil {
		t.Fatalf("QuickBuy: %v", err)
	}

	// 4 @ 500 exhausts the cheap ask, the remaining 1200 affords 2 @ 600.
	if report.TokensBought != 6 || report.Spent != 3200 || report.Refunded != 0 {
		t.Errorf("report = bought %d spent %d refunded %d, want 6/3200/0",
			report.TokensBought, report.Spent, report.Refunded)
	}
	if len(report.Fills) != 2 {
		t.Fatalf("fills = %d, want 2", len(report.Fills))
	}
	if report.Fills[0].Price != 500 || report.Fills[0].Quantity != 4 {
		t.Errorf("first fill = %d @ %d, want 4 @ 500", report.Fills[0].Quantity, report.Fills[0].Price)
	}
	if report.Fills[1].Price != 600 || report.Fills[1].Quantity != 2 {
		t.Errorf("second fill = %d @ %d, want 2 @ 600", report.Fills[1].Quantity, report.Fills[1].Price)
	}
	// Fees: 2000 and 1200 notional floor to 10 and 6.
	if report.Fees != 16 {
		t.Errorf("fees = %d, want 16", report.Fees)
	}

	if got := outcomeOf(t, led, m.YesTokenID, "bob"); got != 6 {
		t.Errorf("buyer yes tokens = %d, want 6", got)
	}
	if got := collateralOf(t, led, "bob"); got != 0 {
		t.Errorf("buyer collateral = %d, want 0", got)
	}

	rec, err := eng.BookRecord(m.ID)
	if err != nil {
		t.Fatalf("BookRecord: %v", err)
	}
	if len(rec.SellYes) != 1 || rec.SellYes[0].Price != 600 || rec.SellYes[0].Remaining() != 8 {
		t.Errorf("sell queue = %+v, want one 600 ask with 8 remaining", rec.SellYes)
	}
}

func TestQuickBuyRefundsUnspentBudget(t *testing.T) {
	eng, led, clk := newTestEngine()
	m := mustCreateMarket(t, eng, led, clk, "carol")
	seedSellQueue(t, eng, led, clk, m)

	// 2500 buys the 4 @ 500 but leaves 500, not enough for one 600 token.
	// Only the 2000 actually spent must be debited.
	led.Fund("bob", 2000)
	report, err := eng.QuickBuy(context.Background(), "bob", m.ID, domain.OutcomeYes, 2500, 4)
	if err != nil {
		t.Fatalf("QuickBuy: %v", err)
	}
	if report.TokensBought != 4 || report.Spent != 2000 || report.Refunded != 500 {
		t.Errorf("report = bought %d spent %d refunded %d, want 4/2000/500",
			report.TokensBought, report.Spent, report.Refunded)
	}
	if got := collateralOf(t, led, "bob"); got != 0 {
		t.Errorf("buyer collateral = %d, want 0", got)
	}
}

func TestQuickBuySlippageLeavesStateUntouched(t *testing.T) {
	eng, led, clk := newTestEngine()
	m := mustCreateMarket(t, eng, led, clk, "carol")
	seedSellQueue(t, eng, led, clk, m)

	led.Fund("bob", 2000)
	_, err := eng.QuickBuy(context.Background(), "bob", m.ID, domain.OutcomeYes, 2000, 5)
	if !errors.Is(err, domain.ErrSlippageExceeded) {
		t.Fatalf("QuickBuy = %v, want ErrSlippageExceeded", err)
	}

	rec, recErr := eng.BookRecord(m.ID)
	if recErr != nil {
		t.Fatalf("BookRecord: %v", recErr)
	}
	if len(rec.SellYes) != 2 || rec.SellYes[0].FilledQuantity != 0 || rec.SellYes[1].FilledQuantity != 0 {
		t.Errorf("sell queue mutated: %+v", rec.SellYes)
	}
	if got := collateralOf(t, led, "bob"); got != 2000 {
		t.Errorf("buyer collateral = %d, want 2000", got)
	}
	if got := outcomeOf(t, led, m.YesTokenID, "bob"); got != 0 {
		t.Errorf("buyer yes tokens = %d, want 0", got)
	}

	market, mErr := eng.GetMarket(m.ID)
	if mErr != nil {
		t.Fatalf("GetMarket: %v", mErr)
	}
	if market.TotalVolume != 0 || market.TotalFees != 0 {
		t.Errorf("market totals mutated: %d/%d", market.TotalVolume, market.TotalFees)
	}
}

func TestQuickBuyValidation(t *testing.T) {
	eng, led, clk := newTestEngine()
	m := mustCreateMarket(t, eng, led, clk, "carol")
	ctx := context.Background()

	if _, err := eng.QuickBuy(ctx, "bob", m.ID, "maybe", 1000, 0); !errors.Is(err, domain.ErrInvalidOutcome) {
		t.Errorf("invalid outcome = %v, want ErrInvalidOutcome", err)
	}
	if _, err := eng.QuickBuy(ctx, "bob", "nope", domain.OutcomeYes, 1000, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown market = %v, want ErrNotFound", err)
	}

	clk.advance(3601 * time.Second)
	if _, err := eng.QuickBuy(ctx, "bob", m.ID, domain.OutcomeYes, 1000, 0); !errors.Is(err, domain.ErrMarketNotOpen) {
		t.Errorf("closed market = %v, want ErrMarketNotOpen", err)
	}
}
