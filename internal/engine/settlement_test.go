package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ipredict/engine/internal/domain"
)

func TestResolveMarketAuthorityOnly(t *testing.T) {
	eng, led, clk := newTestEngine()
	m := mustCreateMarket(t, eng, led, clk, "carol")
	clk.advance(7200 * time.Second)

	if _, err := eng.ResolveMarket(context.Background(), "mallory", m.ID, domain.ResolutionYesWon); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("resolve by non-authority = %v, want ErrUnauthorized", err)
	}
}

func TestResolveMarketBeforeResolutionTime(t *testing.T) {
	eng, led, clk := newTestEngine()
	m := mustCreateMarket(t, eng, led, clk, "carol")

	if _, err := eng.ResolveMarket(context.Background(), "authority-1", m.ID, domain.ResolutionYesWon); !errors.Is(err, domain.ErrMarketNotResolvable) {
		t.Errorf("early resolve = %v, want ErrMarketNotResolvable", err)
	}
}

func TestResolveMarketRejectsPending(t *testing.T) {
	eng, led, clk := newTestEngine()
	m := mustCreateMarket(t, eng, led, clk, "carol")
	clk.advance(7200 * time.Second)

	if _, err := eng.ResolveMarket(context.Background(), "authority-1", m.ID, domain.ResolutionPending); !errors.Is(err, domain.ErrInvalidResolution) {
		t.Errorf("pending resolution = %v, want ErrInvalidResolution", err)
	}
}

func TestResolveMarketOnce(t *testing.T) {
	eng, led, clk := newTestEngine()
	m := mustCreateMarket(t, eng, led, clk, "carol")
	clk.advance(7200 * time.Second)
	ctx := context.Background()

	resolved, err := eng.ResolveMarket(ctx, "authority-1", m.ID, domain.ResolutionYesWon)
	if err != nil {
		t.Fatalf("ResolveMarket: %v", err)
	}
	if resolved.Status != domain.MarketStatusResolved || resolved.Resolution != domain.ResolutionYesWon {
		t.Errorf("resolved market = %s/%s, want resolved/yes_won", resolved.Status, resolved.Resolution)
	}

	if _, err := eng.ResolveMarket(ctx, "authority-1", m.ID, domain.ResolutionNoWon); !errors.Is(err, domain.ErrMarketResolved) {
		t.Errorf("second resolve = %v, want ErrMarketResolved", err)
	}
}

func TestClaimWinningsYesWon(t *testing.T) {
	eng, led, clk := newTestEngine()
	m := mustCreateMarket(t, eng, led, clk, "carol")
	ctx := context.Background()

	tokens := mustDeposit(t, eng, led, "uma", m.ID, domain.CollateralUnit)
	clk.advance(7200 * time.Second)
	if _, err := eng.ResolveMarket(ctx, "authority-1", m.ID, domain.ResolutionYesWon); err != nil {
		t.Fatalf("ResolveMarket: %v", err)
	}

	report, err := eng.ClaimWinnings(ctx, "uma", m.ID)
	if err != nil {
		t.Fatalf("ClaimWinnings: %v", err)
	}

	wantPayout := tokens * domain.PayoutRate
	if report.Payout != wantPayout {
		t.Errorf("payout = %d, want %d", report.Payout, wantPayout)
	}
	if report.YesBurned != tokens || report.NoBurned != 0 {
		t.Errorf("burned = %d yes, %d no, want %d/0", report.YesBurned, report.NoBurned, tokens)
	}
	if !report.Position.Claimed {
		t.Error("position not marked claimed")
	}
	if got := collateralOf(t, led, "uma"); got != wantPayout {
		t.Errorf("claimer collateral = %d, want %d", got, wantPayout)
	}
	if got := collateralOf(t, led, m.VaultID); got != 0 {
		t.Errorf("vault balance = %d, want 0", got)
	}
	if got := outcomeOf(t, led, m.YesTokenID, "uma"); got != 0 {
		t.Errorf("yes tokens after burn = %d, want 0", got)
	}
	// Losing-side tokens are worthless but not burned.
	if got := outcomeOf(t, led, m.NoTokenID, "uma"); got != tokens {
		t.Errorf("no tokens = %d, want %d untouched", got, tokens)
	}

	if _, err := eng.ClaimWinnings(ctx, "uma", m.ID); !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Errorf("second claim = %v, want ErrAlreadyClaimed", err)
	}
}

func TestClaimWinningsDraw(t *testing.T) {
	eng, led, clk := newTestEngine()
	m := mustCreateMarket(t, eng, led, clk, "carol")
	ctx := context.Background()

	tokens := mustDeposit(t, eng, led, "uma", m.ID, domain.CollateralUnit)
	clk.advance(7200 * time.Second)
	if _, err := eng.ResolveMarket(ctx, "authority-1", m.ID, domain.ResolutionDraw); err != nil {
		t.Fatalf("ResolveMarket: %v", err)
	}

	report, err := eng.ClaimWinnings(ctx, "uma", m.ID)
	if err != nil {
		t.Fatalf("ClaimWinnings: %v", err)
	}

	// Both sides redeem at half rate; a balanced position recovers exactly
	// the original deposit.
	wantPayout := (tokens + tokens) * domain.PayoutRate / 2
	if report.Payout != wantPayout {
		t.Errorf("payout = %d, want %d", report.Payout, wantPayout)
	}
	if wantPayout != domain.CollateralUnit {
		t.Errorf("draw payout %d does not equal deposit %d", wantPayout, domain.CollateralUnit)
	}
	if report.YesBurned != tokens || report.NoBurned != tokens {
		t.Errorf("burned = %d/%d, want %d/%d", report.YesBurned, report.NoBurned, tokens, tokens)
	}
	if got := outcomeOf(t, led, m.NoTokenID, "uma"); got != 0 {
		t.Errorf("no tokens after burn = %d, want 0", got)
	}
}

func TestClaimWinningsBeforeResolution(t *testing.T) {
	eng, led, clk := newTestEngine()
	m := mustCreateMarket(t, eng, led, clk, "carol")

	mustDeposit(t, eng, led, "uma", m.ID, domain.CollateralUnit)
	if _, err := eng.ClaimWinnings(context.Background(), "uma", m.ID); !errors.Is(err, domain.ErrMarketNotResolvable) {
		t.Errorf("claim before resolution = %v, want ErrMarketNotResolvable", err)
	}
}

func TestClaimWinningsVaultShortfallIsRetryable(t *testing.T) {
	eng, led, _ := newTestEngine()
	ctx := context.Background()

	// A restored market whose vault was not replenished yet.
	m := domain.Market{
		ID:          "m-restored",
		Creator:     "carol",
		Name:        "restored",
		YesTokenID:  "token:yes:m-restored",
		NoTokenID:   "token:no:m-restored",
		VaultID:     "vault:m-restored",
		YesEscrowID: "escrow:yes:m-restored",
		NoEscrowID:  "escrow:no:m-restored",
		Status:      domain.MarketStatusResolved,
		Resolution:  domain.ResolutionYesWon,
	}
	if err := eng.RestoreMarket(ctx, m, domain.OrderBookRecord{MarketID: m.ID, NextOrderID: 1}, nil); err != nil {
		t.Fatalf("RestoreMarket: %v", err)
	}
	if err := led.MintOutcome(ctx, m.YesTokenID, "uma", 10); err != nil {
		t.Fatalf("MintOutcome: %v", err)
	}

	if _, err := eng.ClaimWinnings(ctx, "uma", m.ID); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("claim against empty vault = %v, want ErrInsufficientFunds", err)
	}

	// The failed claim must not consume the position or the tokens.
	if got := outcomeOf(t, led, m.YesTokenID, "uma"); got != 10 {
		t.Fatalf("yes tokens after failed claim = %d, want 10", got)
	}

	led.Fund(m.VaultID, 10*domain.PayoutRate)
	report, err := eng.ClaimWinnings(ctx, "uma", m.ID)
	if err != nil {
		t.Fatalf("retried claim: %v", err)
	}
	if report.Payout != 10*domain.PayoutRate {
		t.Errorf("payout = %d, want %d", report.Payout, 10*domain.PayoutRate)
	}
	if !report.Position.Claimed {
		t.Error("position not marked claimed after retry")
	}
}
