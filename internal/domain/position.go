package domain

import "time"

// UserPosition tracks one user's running totals for a single market. It is
// created lazily on the user's first interaction and outlives individual
// orders. Claimed transitions false to true exactly once, at redemption.
type UserPosition struct {
	User            string    `json:"user"`
	MarketID        string    `json:"market_id"`
	YesTokensBought uint64    `json:"yes_tokens_bought"`
	YesTokensSold   uint64    `json:"yes_tokens_sold"`
	NoTokensBought  uint64    `json:"no_tokens_bought"`
	NoTokensSold    uint64    `json:"no_tokens_sold"`
	TotalDeposited  uint64    `json:"total_deposited"`
	TotalWithdrawn  uint64    `json:"total_withdrawn"`
	Claimed         bool      `json:"claimed"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
