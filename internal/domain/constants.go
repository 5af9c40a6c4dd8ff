package domain

// Platform-wide economic constants. Prices, notionals, fees, deposits and
// payouts are all expressed in collateral base units.
const (
	// CollateralUnit is the number of base units in one whole unit of
	// collateral (e.g. lamports per SOL in the custody layer).
	CollateralUnit uint64 = 1_000_000_000

	// TokensPerCollateralUnit is how many whole outcome tokens (of each
	// side) one whole collateral unit mints on deposit.
	TokensPerCollateralUnit uint64 = 100

	// CollateralPerToken is the redemption value of one whole winning
	// token, and also the ceiling on limit order prices.
	CollateralPerToken uint64 = 10_000_000

	PriceCeiling = CollateralPerToken
	PayoutRate   = CollateralPerToken

	// Fee rates in basis points of trade notional. The platform and the
	// market creator split TotalFeeBps between them.
	PlatformFeeBps uint64 = 25
	CreatorFeeBps  uint64 = 25
	TotalFeeBps    uint64 = 50
	BpsDivisor     uint64 = 10_000

	MaxNameLength        = 200
	MaxDescriptionLength = 1000
	MaxOrdersPerBook     = 1000

	// MarketCreationFee is charged to the creator and paid to the platform
	// fee recipient when a market is created.
	MarketCreationFee uint64 = 1_000_000_000
)
