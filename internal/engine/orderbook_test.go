package engine

import (
	"errors"
	"testing"

	"github.com/ipredict/engine/internal/domain"
)

func buyOrder(id, price, qty uint64, ts int64) domain.Order {
	return domain.Order{ID: id, Owner: "u", Side: domain.SideBuy, Outcome: domain.OutcomeYes, Price: price, Quantity: qty, Timestamp: ts}
}

func sellOrder(id, price, qty uint64, ts int64) domain.Order {
	return domain.Order{ID: id, Owner: "u", Side: domain.SideSell, Outcome: domain.OutcomeYes, Price: price, Quantity: qty, Timestamp: ts}
}

func TestAddOrderBuyPriceDescending(t *testing.T) {
	ob := NewOrderBook("m1")
	for _, o := range []domain.Order{buyOrder(1, 500, 1, 10), buyOrder(2, 700, 1, 11), buyOrder(3, 600, 1, 12)} {
		if err := ob.AddOrder(o); err != nil {
			t.Fatalf("AddOrder: %v", err)
		}
	}
	got := ob.OpenOrders(domain.SideBuy, domain.OutcomeYes)
	want := []uint64{700, 600, 500}
	for i, price := range want {
		if got[i].Price != price {
			t.Errorf("buy queue[%d].Price = %d, want %d", i, got[i].Price, price)
		}
	}
}

func TestAddOrderSellPriceAscending(t *testing.T) {
	ob := NewOrderBook("m1")
	for _, o := range []domain.Order{sellOrder(1, 700, 1, 10), sellOrder(2, 500, 1, 11), sellOrder(3, 600, 1, 12)} {
		if err := ob.AddOrder(o); err != nil {
			t.Fatalf("AddOrder: %v", err)
		}
	}
	got := ob.OpenOrders(domain.SideSell, domain.OutcomeYes)
	want := []uint64{500, 600, 700}
	for i, price := range want {
		if got[i].Price != price {
			t.Errorf("sell queue[%d].Price = %d, want %d", i, got[i].Price, price)
		}
	}
}

func TestAddOrderTimestampTiebreak(t *testing.T) {
	ob := NewOrderBook("m1")
	// Later timestamp added first; the earlier one must still win priority.
	if err := ob.AddOrder(buyOrder(1, 600, 1, 20)); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}
	if err := ob.AddOrder(buyOrder(2, 600, 1, 10)); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}
	got := ob.OpenOrders(domain.SideBuy, domain.OutcomeYes)
	if got[0].ID != 2 || got[1].ID != 1 {
		t.Errorf("tiebreak order = [%d, %d], want [2, 1]", got[0].ID, got[1].ID)
	}
}

func TestAddOrderCapacity(t *testing.T) {
	ob := NewOrderBook("m1")
	for i := 0; i < domain.MaxOrdersPerBook; i++ {
		if err := ob.AddOrder(buyOrder(uint64(i+1), 500, 1, int64(i))); err != nil {
			t.Fatalf("AddOrder #%d: %v", i+1, err)
		}
	}
	err := ob.AddOrder(buyOrder(uint64(domain.MaxOrdersPerBook+1), 500, 1, 0))
	if !errors.Is(err, domain.ErrOrderBookFull) {
		t.Errorf("AddOrder over capacity = %v, want ErrOrderBookFull", err)
	}
	// The sibling sell queue is unaffected by the full buy queue.
	if err := ob.AddOrder(sellOrder(uint64(domain.MaxOrdersPerBook+2), 500, 1, 0)); err != nil {
		t.Errorf("AddOrder to sell queue: %v", err)
	}
}

func TestRemoveAndFindOrder(t *testing.T) {
	ob := NewOrderBook("m1")
	if err := ob.AddOrder(sellOrder(7, 500, 3, 10)); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}

	if _, ok := ob.FindOrder(7); !ok {
		t.Fatal("FindOrder(7) = not found, want found")
	}

	removed, err := ob.RemoveOrder(7, domain.SideSell, domain.OutcomeYes)
	if err != nil {
		t.Fatalf("RemoveOrder: %v", err)
	}
	if removed.ID != 7 || removed.Quantity != 3 {
		t.Errorf("removed order = %+v, want id 7 qty 3", removed)
	}

	if _, ok := ob.FindOrder(7); ok {
		t.Error("FindOrder(7) after removal = found, want not found")
	}
	if _, err := ob.RemoveOrder(7, domain.SideSell, domain.OutcomeYes); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("RemoveOrder again = %v, want ErrOrderNotFound", err)
	}
}

func TestDepthAggregatesLevels(t *testing.T) {
	ob := NewOrderBook("m1")
	orders := []domain.Order{
		buyOrder(1, 600, 2, 10),
		buyOrder(2, 600, 3, 11),
		buyOrder(3, 500, 1, 12),
	}
	for _, o := range orders {
		if err := ob.AddOrder(o); err != nil {
			t.Fatalf("AddOrder: %v", err)
		}
	}
	filled := buyOrder(4, 400, 5, 13)
	filled.FilledQuantity = 5
	if err := ob.AddOrder(filled); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}

	bids, asks := ob.Depth(domain.OutcomeYes)
	if len(asks) != 0 {
		t.Errorf("asks = %v, want empty", asks)
	}
	want := []domain.BookLevel{{Price: 600, Quantity: 5}, {Price: 500, Quantity: 1}}
	if len(bids) != len(want) {
		t.Fatalf("bids = %v, want %v", bids, want)
	}
	for i := range want {
		if bids[i] != want[i] {
			t.Errorf("bids[%d] = %+v, want %+v", i, bids[i], want[i])
		}
	}
}

func TestNewOrderBookFromRecordResorts(t *testing.T) {
	rec := domain.OrderBookRecord{
		MarketID:    "m1",
		NextOrderID: 4,
		BuyYes:      []domain.Order{buyOrder(1, 500, 1, 10), buyOrder(2, 700, 1, 11)},
		SellYes:     []domain.Order{sellOrder(3, 800, 1, 10), sellOrder(4, 600, 1, 11)},
	}
	ob := NewOrderBookFromRecord(rec)

	if buys := ob.OpenOrders(domain.SideBuy, domain.OutcomeYes); buys[0].Price != 700 {
		t.Errorf("best bid = %d, want 700", buys[0].Price)
	}
	if sells := ob.OpenOrders(domain.SideSell, domain.OutcomeYes); sells[0].Price != 600 {
		t.Errorf("best ask = %d, want 600", sells[0].Price)
	}
	if ob.NextOrderID() != 4 {
		t.Errorf("NextOrderID = %d, want 4", ob.NextOrderID())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	ob := NewOrderBook("m1")
	if err := ob.AddOrder(buyOrder(1, 500, 2, 10)); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}

	clone := ob.Clone()
	if _, err := clone.RemoveOrder(1, domain.SideBuy, domain.OutcomeYes); err != nil {
		t.Fatalf("RemoveOrder on clone: %v", err)
	}

	if _, ok := ob.FindOrder(1); !ok {
		t.Error("original book lost order after clone mutation")
	}
}
