package domain

import "time"

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusCreated  MarketStatus = "created"
	MarketStatusActive   MarketStatus = "active"
	MarketStatusResolved MarketStatus = "resolved"
)

// Resolution is the settled outcome of a market.
type Resolution string

const (
	ResolutionPending Resolution = "pending"
	ResolutionYesWon  Resolution = "yes_won"
	ResolutionNoWon   Resolution = "no_won"
	ResolutionDraw    Resolution = "draw"
)

// Market is one binary-outcome prediction market. Token and vault ids refer
// to ledger accounts; all monetary totals are in collateral base units.
type Market struct {
	ID             string       `json:"id"`
	Creator        string       `json:"creator"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	YesTokenID     string       `json:"yes_token_id"`
	NoTokenID      string       `json:"no_token_id"`
	VaultID        string       `json:"vault_id"`
	YesEscrowID    string       `json:"yes_escrow_id"`
	NoEscrowID     string       `json:"no_escrow_id"`
	OpeningTime    int64        `json:"opening_time"`
	ClosingTime    int64        `json:"closing_time"`
	ResolutionTime int64        `json:"resolution_time"`
	Status         MarketStatus `json:"status"`
	Resolution     Resolution   `json:"resolution"`
	TotalYesTokens uint64       `json:"total_yes_tokens"`
	TotalNoTokens  uint64       `json:"total_no_tokens"`
	TotalDeposited uint64       `json:"total_deposited"`
	TotalVolume    uint64       `json:"total_volume"`
	TotalFees      uint64       `json:"total_fees"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// IsOpen reports whether trading is permitted at the given instant.
func (m *Market) IsOpen(now int64) bool {
	return m.Status == MarketStatusActive &&
		now >= m.OpeningTime &&
		now < m.ClosingTime
}

// IsResolvable reports whether the market may be resolved at the given
// instant. Resolution is a one-way transition out of Active.
func (m *Market) IsResolvable(now int64) bool {
	return m.Status == MarketStatusActive && now >= m.ResolutionTime
}

// TokenID returns the ledger token id for the given outcome.
func (m *Market) TokenID(outcome Outcome) string {
	if outcome == OutcomeYes {
		return m.YesTokenID
	}
	return m.NoTokenID
}

// EscrowID returns the ledger escrow account holding resting sell-order
// tokens for the given outcome.
func (m *Market) EscrowID(outcome Outcome) string {
	if outcome == OutcomeYes {
		return m.YesEscrowID
	}
	return m.NoEscrowID
}
