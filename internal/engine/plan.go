package engine

import (
	"context"
	"fmt"

	"github.com/ipredict/engine/internal/domain"
)

// transferPlan accumulates the custody movements of one invocation so they
// can be verified before any of them executes. Debits are prechecked against
// live balances as a whole; only then is the plan handed to the ledger. This
// keeps the "no partial effect" rule intact across multi-transfer operations
// like a matching pass.
type transferPlan struct {
	collateral []collateralMove
	outcome    []outcomeMove
	mints      []outcomeMove
	burns      []outcomeMove
}

type collateralMove struct {
	from, to string
	amount   uint64
}

type outcomeMove struct {
	tokenID  string
	from, to string
	amount   uint64
}

func newTransferPlan() *transferPlan {
	return &transferPlan{}
}

func (p *transferPlan) moveCollateral(from, to string, amount uint64) {
	if amount == 0 {
		return
	}
	p.collateral = append(p.collateral, collateralMove{from: from, to: to, amount: amount})
}

func (p *transferPlan) moveOutcome(tokenID, from, to string, amount uint64) {
	if amount == 0 {
		return
	}
	p.outcome = append(p.outcome, outcomeMove{tokenID: tokenID, from: from, to: to, amount: amount})
}

func (p *transferPlan) mint(tokenID, to string, amount uint64) {
	if amount == 0 {
		return
	}
	p.mints = append(p.mints, outcomeMove{tokenID: tokenID, to: to, amount: amount})
}

func (p *transferPlan) burn(tokenID, from string, amount uint64) {
	if amount == 0 {
		return
	}
	p.burns = append(p.burns, outcomeMove{tokenID: tokenID, from: from, amount: amount})
}

// apply verifies every debiting account covers its total outgoing amount and
// then executes the plan. The precheck is conservative: credits received
// within the same plan do not count toward an account's available balance.
func (p *transferPlan) apply(ctx context.Context, ledger domain.Ledger) error {
	collateralOut := make(map[string]uint64)
	for _, m := range p.collateral {
		total, err := addU64(collateralOut[m.from], m.amount)
		if err != nil {
			return err
		}
		collateralOut[m.from] = total
	}
	for account, required := range collateralOut {
		bal, err := ledger.CollateralBalance(ctx, account)
		if err != nil {
			return fmt.Errorf("plan: balance of %s: %w", account, err)
		}
		if bal < required {
			return domain.ErrInsufficientBalance
		}
	}

	type tokenAccount struct{ tokenID, account string }
	outcomeOut := make(map[tokenAccount]uint64)
	for _, m := range p.outcome {
		key := tokenAccount{m.tokenID, m.from}
		total, err := addU64(outcomeOut[key], m.amount)
		if err != nil {
			return err
		}
		outcomeOut[key] = total
	}
	for _, m := range p.burns {
		key := tokenAccount{m.tokenID, m.from}
		total, err := addU64(outcomeOut[key], m.amount)
		if err != nil {
			return err
		}
		outcomeOut[key] = total
	}
	for key, required := range outcomeOut {
		bal, err := ledger.OutcomeBalance(ctx, key.tokenID, key.account)
		if err != nil {
			return fmt.Errorf("plan: token balance of %s: %w", key.account, err)
		}
		if bal < required {
			return domain.ErrInsufficientBalance
		}
	}

	for _, m := range p.collateral {
		if err := ledger.TransferCollateral(ctx, m.from, m.to, m.amount); err != nil {
			return fmt.Errorf("plan: collateral %s -> %s: %w", m.from, m.to, err)
		}
	}
	for _, m := range p.outcome {
		if err := ledger.TransferOutcome(ctx, m.tokenID, m.from, m.to, m.amount); err != nil {
			return fmt.Errorf("plan: outcome %s -> %s: %w", m.from, m.to, err)
		}
	}
	for _, m := range p.mints {
		if err := ledger.MintOutcome(ctx, m.tokenID, m.to, m.amount); err != nil {
			return fmt.Errorf("plan: mint to %s: %w", m.to, err)
		}
	}
	for _, m := range p.burns {
		if err := ledger.BurnOutcome(ctx, m.tokenID, m.from, m.amount); err != nil {
			return fmt.Errorf("plan: burn from %s: %w", m.from, err)
		}
	}
	return nil
}
