package domain

import "time"

// Fill is one executed trade between a buy and a sell order, or between a
// quick-buy taker and a resting sell order (BuyOrderID is zero in that case).
type Fill struct {
	ID          string    `json:"id"`
	MarketID    string    `json:"market_id"`
	Outcome     Outcome   `json:"outcome"`
	BuyOrderID  uint64    `json:"buy_order_id"`
	SellOrderID uint64    `json:"sell_order_id"`
	Buyer       string    `json:"buyer"`
	Seller      string    `json:"seller"`
	Price       uint64    `json:"price"`
	Quantity    uint64    `json:"quantity"`
	Notional    uint64    `json:"notional"`
	Fee         uint64    `json:"fee"`
	PlatformFee uint64    `json:"platform_fee"`
	CreatorFee  uint64    `json:"creator_fee"`
	ExecutedAt  time.Time `json:"executed_at"`
}

// BookLevel is one aggregated price level of a book snapshot.
type BookLevel struct {
	Price    uint64 `json:"price"`
	Quantity uint64 `json:"quantity"`
}

// BookDepth is the aggregated depth of one outcome's queues, used by the
// cache and API layers.
type BookDepth struct {
	MarketID string      `json:"market_id"`
	Outcome  Outcome     `json:"outcome"`
	Bids     []BookLevel `json:"bids"`
	Asks     []BookLevel `json:"asks"`
	AsOf     time.Time   `json:"as_of"`
}
