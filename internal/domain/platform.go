package domain

// Platform holds the one-time platform configuration and running aggregates.
// Authority resolves markets; FeeRecipient receives the platform's share of
// trading fees and the market creation fee.
type Platform struct {
	Authority         string `json:"authority"`
	FeeRecipient      string `json:"fee_recipient"`
	PlatformFeeBps    uint64 `json:"platform_fee_bps"`
	CreatorFeeBps     uint64 `json:"creator_fee_bps"`
	MarketCreationFee uint64 `json:"market_creation_fee"`
	TotalMarkets      uint64 `json:"total_markets"`
	TotalVolume       uint64 `json:"total_volume"`
	TotalFees         uint64 `json:"total_fees"`
}

// NewPlatform returns a Platform with the default fee schedule.
func NewPlatform(authority, feeRecipient string) *Platform {
	return &Platform{
		Authority:         authority,
		FeeRecipient:      feeRecipient,
		PlatformFeeBps:    PlatformFeeBps,
		CreatorFeeBps:     CreatorFeeBps,
		MarketCreationFee: MarketCreationFee,
	}
}
