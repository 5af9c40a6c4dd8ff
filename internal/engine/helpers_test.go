package engine

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ipredict/engine/internal/domain"
	"github.com/ipredict/engine/internal/ledger"
)

// stubClock is a manually advanced clock for deterministic tests.
type stubClock struct {
	now time.Time
}

func (c *stubClock) Now() time.Time { return c.now }

func (c *stubClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestEngine() (*Engine, *ledger.Memory, *stubClock) {
	clk := &stubClock{now: time.Unix(1_700_000_000, 0)}
	led := ledger.NewMemory()
	eng := New(domain.NewPlatform("authority-1", "fees-1"), led, clk, slog.New(slog.DiscardHandler))
	return eng, led, clk
}

// mustCreateMarket funds the creator with exactly the creation fee and opens
// a market immediately, closing in one hour and resolvable in two.
func mustCreateMarket(t *testing.T, eng *Engine, led *ledger.Memory, clk *stubClock, creator string) domain.Market {
	t.Helper()
	led.Fund(creator, domain.MarketCreationFee)
	now := clk.Now().Unix()
	m, err := eng.CreateMarket(context.Background(), creator, CreateMarketParams{
		Name:           "will it rain tomorrow",
		Description:    "resolves yes on any measurable precipitation",
		OpeningTime:    now,
		ClosingTime:    now + 3600,
		ResolutionTime: now + 7200,
	})
	if err != nil {
		t.Fatalf("CreateMarket: %v", err)
	}
	return m
}

// mustDeposit funds the user with amount collateral and deposits all of it.
func mustDeposit(t *testing.T, eng *Engine, led *ledger.Memory, user, marketID string, amount uint64) uint64 {
	t.Helper()
	led.Fund(user, amount)
	tokens, _, err := eng.DepositAndMint(context.Background(), user, marketID, amount)
	if err != nil {
		t.Fatalf("DepositAndMint(%s, %d): %v", user, amount, err)
	}
	return tokens
}

func mustPlace(t *testing.T, eng *Engine, user, marketID string, side domain.Side, outcome domain.Outcome, price, quantity uint64) domain.Order {
	t.Helper()
	o, err := eng.PlaceOrder(context.Background(), user, marketID, side, outcome, price, quantity)
	if err != nil {
		t.Fatalf("PlaceOrder(%s %s %s %d@%d): %v", user, side, outcome, quantity, price, err)
	}
	return o
}

func collateralOf(t *testing.T, led *ledger.Memory, account string) uint64 {
	t.Helper()
	bal, err := led.CollateralBalance(context.Background(), account)
	if err != nil {
		t.Fatalf("CollateralBalance(%s): %v", account, err)
	}
	return bal
}

func outcomeOf(t *testing.T, led *ledger.Memory, tokenID, account string) uint64 {
	t.Helper()
	bal, err := led.OutcomeBalance(context.Background(), tokenID, account)
	if err != nil {
		t.Fatalf("OutcomeBalance(%s, %s): %v", tokenID, account, err)
	}
	return bal
}
