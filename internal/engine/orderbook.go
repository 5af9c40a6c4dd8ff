package engine

import (
	"sort"

	"github.com/ipredict/engine/internal/domain"
)

// OrderBook holds the four price-time ordered queues of one market. Buy
// queues are sorted by descending price, sell queues by ascending price;
// within a price level the earlier timestamp has priority. The ordering
// invariant is re-established after every insertion.
type OrderBook struct {
	marketID    string
	nextOrderID uint64

	buyYes  []domain.Order
	sellYes []domain.Order
	buyNo   []domain.Order
	sellNo  []domain.Order
}

// NewOrderBook creates an empty book for the given market. Order ids start
// at 1 so the zero value never identifies a real order.
func NewOrderBook(marketID string) *OrderBook {
	return &OrderBook{marketID: marketID, nextOrderID: 1}
}

// NewOrderBookFromRecord rebuilds a book from its persisted whole-record
// form. Queues are re-sorted defensively so a hand-edited record cannot
// break the ordering invariant.
func NewOrderBookFromRecord(rec domain.OrderBookRecord) *OrderBook {
	ob := &OrderBook{
		marketID:    rec.MarketID,
		nextOrderID: rec.NextOrderID,
		buyYes:      append([]domain.Order(nil), rec.BuyYes...),
		sellYes:     append([]domain.Order(nil), rec.SellYes...),
		buyNo:       append([]domain.Order(nil), rec.BuyNo...),
		sellNo:      append([]domain.Order(nil), rec.SellNo...),
	}
	sortBuys(ob.buyYes)
	sortBuys(ob.buyNo)
	sortSells(ob.sellYes)
	sortSells(ob.sellNo)
	return ob
}

// Record returns the whole-record persistence form of the book.
func (ob *OrderBook) Record() domain.OrderBookRecord {
	return domain.OrderBookRecord{
		MarketID:    ob.marketID,
		NextOrderID: ob.nextOrderID,
		BuyYes:      append([]domain.Order(nil), ob.buyYes...),
		SellYes:     append([]domain.Order(nil), ob.sellYes...),
		BuyNo:       append([]domain.Order(nil), ob.buyNo...),
		SellNo:      append([]domain.Order(nil), ob.sellNo...),
	}
}

// Clone deep-copies the book. Mutating invocations operate on a clone and
// commit it only on success, so a failed invocation leaves no partial state.
func (ob *OrderBook) Clone() *OrderBook {
	return &OrderBook{
		marketID:    ob.marketID,
		nextOrderID: ob.nextOrderID,
		buyYes:      append([]domain.Order(nil), ob.buyYes...),
		sellYes:     append([]domain.Order(nil), ob.sellYes...),
		buyNo:       append([]domain.Order(nil), ob.buyNo...),
		sellNo:      append([]domain.Order(nil), ob.sellNo...),
	}
}

func (ob *OrderBook) queue(side domain.Side, outcome domain.Outcome) *[]domain.Order {
	switch {
	case side == domain.SideBuy && outcome == domain.OutcomeYes:
		return &ob.buyYes
	case side == domain.SideSell && outcome == domain.OutcomeYes:
		return &ob.sellYes
	case side == domain.SideBuy && outcome == domain.OutcomeNo:
		return &ob.buyNo
	default:
		return &ob.sellNo
	}
}

// NextOrderID returns the id the next accepted order will receive. Ids are
// monotonic and never reused within a market.
func (ob *OrderBook) NextOrderID() uint64 { return ob.nextOrderID }

// AddOrder inserts the order into its queue and re-sorts. It returns
// domain.ErrOrderBookFull when the queue is at capacity.
func (ob *OrderBook) AddOrder(o domain.Order) error {
	q := ob.queue(o.Side, o.Outcome)
	if len(*q) >= domain.MaxOrdersPerBook {
		return domain.ErrOrderBookFull
	}
	*q = append(*q, o)
	if o.Side == domain.SideBuy {
		sortBuys(*q)
	} else {
		sortSells(*q)
	}
	return nil
}

// RemoveOrder removes the order with the given id from the matching queue
// and returns it. The caller is responsible for any escrow release.
func (ob *OrderBook) RemoveOrder(id uint64, side domain.Side, outcome domain.Outcome) (domain.Order, error) {
	q := ob.queue(side, outcome)
	for i, o := range *q {
		if o.ID == id {
			*q = append((*q)[:i], (*q)[i+1:]...)
			return o, nil
		}
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

// FindOrder scans all four queues for the given id.
func (ob *OrderBook) FindOrder(id uint64) (domain.Order, bool) {
	for _, q := range [][]domain.Order{ob.buyYes, ob.sellYes, ob.buyNo, ob.sellNo} {
		for _, o := range q {
			if o.ID == id {
				return o, true
			}
		}
	}
	return domain.Order{}, false
}

// Depth aggregates resting quantity per price level for one outcome.
func (ob *OrderBook) Depth(outcome domain.Outcome) ([]domain.BookLevel, []domain.BookLevel) {
	bids := aggregateLevels(*ob.queue(domain.SideBuy, outcome))
	asks := aggregateLevels(*ob.queue(domain.SideSell, outcome))
	return bids, asks
}

// OpenOrders returns the resting orders of one queue, best price first.
func (ob *OrderBook) OpenOrders(side domain.Side, outcome domain.Outcome) []domain.Order {
	return append([]domain.Order(nil), *ob.queue(side, outcome)...)
}

func aggregateLevels(q []domain.Order) []domain.BookLevel {
	var levels []domain.BookLevel
	for _, o := range q {
		rem := o.Remaining()
		if rem == 0 {
			continue
		}
		if n := len(levels); n > 0 && levels[n-1].Price == o.Price {
			levels[n-1].Quantity += rem
			continue
		}
		levels = append(levels, domain.BookLevel{Price: o.Price, Quantity: rem})
	}
	return levels
}

func sortBuys(q []domain.Order) {
	sort.SliceStable(q, func(i, j int) bool {
		if q[i].Price != q[j].Price {
			return q[i].Price > q[j].Price
		}
		return q[i].Timestamp < q[j].Timestamp
	})
}

func sortSells(q []domain.Order) {
	sort.SliceStable(q, func(i, j int) bool {
		if q[i].Price != q[j].Price {
			return q[i].Price < q[j].Price
		}
		return q[i].Timestamp < q[j].Timestamp
	})
}
