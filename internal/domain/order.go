package domain

// Side indicates whether an order buys or sells outcome tokens.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Outcome identifies one leg of a binary market.
type Outcome string

const (
	OutcomeYes Outcome = "yes"
	OutcomeNo  Outcome = "no"
)

// Valid reports whether the outcome is one of the two tradable legs.
func (o Outcome) Valid() bool {
	return o == OutcomeYes || o == OutcomeNo
}

// Order is a single resting limit order in a market's book. Price is in
// collateral base units per whole token; quantity is in whole tokens.
type Order struct {
	ID             uint64  `json:"id"`
	Owner          string  `json:"owner"`
	Side           Side    `json:"side"`
	Outcome        Outcome `json:"outcome"`
	Price          uint64  `json:"price"`
	Quantity       uint64  `json:"quantity"`
	FilledQuantity uint64  `json:"filled_quantity"`
	Timestamp      int64   `json:"timestamp"` // unix seconds at placement
}

// Remaining returns the unfilled quantity.
func (o Order) Remaining() uint64 {
	if o.FilledQuantity >= o.Quantity {
		return 0
	}
	return o.Quantity - o.FilledQuantity
}

// Filled reports whether the order has been completely executed.
func (o Order) Filled() bool {
	return o.FilledQuantity >= o.Quantity
}

// OrderBookRecord is the whole-record persistence form of a market's book:
// four price-time ordered queues plus the id counter.
type OrderBookRecord struct {
	MarketID    string  `json:"market_id"`
	NextOrderID uint64  `json:"next_order_id"`
	BuyYes      []Order `json:"buy_yes"`
	SellYes     []Order `json:"sell_yes"`
	BuyNo       []Order `json:"buy_no"`
	SellNo      []Order `json:"sell_no"`
}
