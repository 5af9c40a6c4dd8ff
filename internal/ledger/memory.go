// Package ledger provides custody implementations of the domain.Ledger
// interface. The in-memory ledger backs tests and single-process deployments;
// production custody (an external chain or banking core) plugs in behind the
// same interface.
package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/ipredict/engine/internal/domain"
)

// Memory is a process-local ledger. Every call is atomic under one mutex and
// fails loudly on insufficient balance; there are no partial transfers.
type Memory struct {
	mu         sync.Mutex
	collateral map[string]uint64
	outcome    map[string]map[string]uint64 // tokenID -> account -> balance
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		collateral: make(map[string]uint64),
		outcome:    make(map[string]map[string]uint64),
	}
}

// Fund credits collateral to an account, used for seeding deposits from the
// custody boundary.
func (m *Memory) Fund(account string, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collateral[account] += amount
}

// CreditCollateral records a collateral inflow into an account.
func (m *Memory) CreditCollateral(_ context.Context, account string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.collateral[account] > math.MaxUint64-amount {
		return domain.ErrMathOverflow
	}
	m.collateral[account] += amount
	return nil
}

func (m *Memory) tokenAccounts(tokenID string) map[string]uint64 {
	accounts, ok := m.outcome[tokenID]
	if !ok {
		accounts = make(map[string]uint64)
		m.outcome[tokenID] = accounts
	}
	return accounts
}

// MintOutcome creates outcome tokens in the target account.
func (m *Memory) MintOutcome(_ context.Context, tokenID, to string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	accounts := m.tokenAccounts(tokenID)
	if accounts[to] > math.MaxUint64-amount {
		return domain.ErrMathOverflow
	}
	accounts[to] += amount
	return nil
}

// BurnOutcome destroys outcome tokens held by the source account.
func (m *Memory) BurnOutcome(_ context.Context, tokenID, from string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	accounts := m.tokenAccounts(tokenID)
	if accounts[from] < amount {
		return fmt.Errorf("ledger: burn %s from %s: %w", tokenID, from, domain.ErrInsufficientBalance)
	}
	accounts[from] -= amount
	return nil
}

// TransferOutcome moves outcome tokens between accounts.
func (m *Memory) TransferOutcome(_ context.Context, tokenID, from, to string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	accounts := m.tokenAccounts(tokenID)
	if accounts[from] < amount {
		return fmt.Errorf("ledger: transfer %s from %s: %w", tokenID, from, domain.ErrInsufficientBalance)
	}
	if accounts[to] > math.MaxUint64-amount {
		return domain.ErrMathOverflow
	}
	accounts[from] -= amount
	accounts[to] += amount
	return nil
}

// TransferCollateral moves collateral base units between accounts.
func (m *Memory) TransferCollateral(_ context.Context, from, to string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.collateral[from] < amount {
		return fmt.Errorf("ledger: transfer collateral from %s: %w", from, domain.ErrInsufficientBalance)
	}
	if m.collateral[to] > math.MaxUint64-amount {
		return domain.ErrMathOverflow
	}
	m.collateral[from] -= amount
	m.collateral[to] += amount
	return nil
}

// OutcomeBalance returns the token balance of an account.
func (m *Memory) OutcomeBalance(_ context.Context, tokenID, account string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcome[tokenID][account], nil
}

// CollateralBalance returns the collateral balance of an account.
func (m *Memory) CollateralBalance(_ context.Context, account string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collateral[account], nil
}

var _ domain.Ledger = (*Memory)(nil)
