package domain

import (
	"context"
	"time"
)

// Ledger abstracts collateral and outcome-token custody. Implementations must
// be atomic per call and fail loudly on insufficient balance; the engine never
// assumes partial transfers.
type Ledger interface {
	// MintOutcome creates amount outcome tokens of tokenID in account to.
	MintOutcome(ctx context.Context, tokenID, to string, amount uint64) error
	// BurnOutcome destroys amount outcome tokens of tokenID held by from.
	BurnOutcome(ctx context.Context, tokenID, from string, amount uint64) error
	// TransferOutcome moves outcome tokens between accounts.
	TransferOutcome(ctx context.Context, tokenID, from, to string, amount uint64) error
	// TransferCollateral moves collateral base units between accounts.
	TransferCollateral(ctx context.Context, from, to string, amount uint64) error
	// CreditCollateral records a collateral inflow at the custody boundary,
	// used for deposits from outside the system and for reconciling
	// engine-owned accounts on restore.
	CreditCollateral(ctx context.Context, account string, amount uint64) error

	OutcomeBalance(ctx context.Context, tokenID, account string) (uint64, error)
	CollateralBalance(ctx context.Context, account string) (uint64, error)
}

// Clock supplies the timestamp for an invocation. The engine reads it once
// per invocation.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock Clock used outside of tests.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
