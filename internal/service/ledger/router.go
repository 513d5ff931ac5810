package ledger

import (
	"fmt"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
)

// Router picks the strategy for a transfer. It holds no state besides the
// strategy list, which is also the order tried for IntentAuto.
type Router struct {
	strategies []Strategy
}

func NewRouter(strategies ...Strategy) *Router {
	return &Router{strategies: strategies}
}

// NewDefaultRouter registers salary disbursement, company top-up, general transfer
// and reversal, in that order.
func NewDefaultRouter(now Clock) *Router {
	return NewRouter(
		NewSalaryDisbursementStrategy(now),
		NewCompanyTopUpStrategy(now),
		NewGeneralTransferStrategy(now),
		NewReversalStrategy(now),
	)
}

// Route returns the strategy registered for intent if it supports the accounts.
// IntentAuto returns the first strategy whose full predicate matches.
func (r *Router) Route(intent ledger.TransferIntent, debit, credit *ledger.Account, amount money.Amount) (Strategy, error) {
	if intent == ledger.IntentAuto {
		for _, s := range r.strategies {
			if s.CanHandle(debit, credit, amount) {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ledger.ErrNoApplicableStrategy, describe(debit, credit, amount))
	}

	for _, s := range r.strategies {
		if s.Intent() != intent {
			continue
		}
		if !s.Supports(debit, credit, amount) {
			return nil, fmt.Errorf("%w: %s does not apply to %s", ledger.ErrNoApplicableStrategy, intent, describe(debit, credit, amount))
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: no strategy registered for %s", ledger.ErrNoApplicableStrategy, intent)
}

func describe(debit, credit *ledger.Account, amount money.Amount) string {
	side := func(a *ledger.Account) string {
		if a == nil {
			return "external"
		}
		return fmt.Sprintf("%s/%s", a.OwnerType, a.AccountType)
	}
	return fmt.Sprintf("%s -> %s, amount %s", side(debit), side(credit), amount)
}
