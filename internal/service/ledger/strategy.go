package ledger

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
)

// Strategy is one money-movement rule. Execute mutates the given accounts in memory
// and never touches the store.
type Strategy interface {
	Intent() ledger.TransferIntent
	// Supports checks account shape and amount only.
	Supports(debit, credit *ledger.Account, amount money.Amount) bool
	// CanHandle is the full predicate used when the caller does not name an intent.
	CanHandle(debit, credit *ledger.Account, amount money.Amount) bool
	// Execute returns a SUCCESS transaction, or a FAILED one together with the
	// cause. Balances are only changed on success.
	Execute(debit, credit *ledger.Account, amount money.Amount, referenceID, description string) (ledger.Transaction, error)
}

// Clock returns the current time.
type Clock func() time.Time

type baseStrategy struct {
	now Clock
}

func (b baseStrategy) pending(debit, credit *ledger.Account, amount money.Amount, referenceID, description string,
	txnType ledger.TransactionType, category ledger.TransactionCategory) ledger.Transaction {
	txn := ledger.Transaction{
		CreditAccountID: credit.ID,
		Amount:          amount,
		Type:            txnType,
		Category:        category,
		ReferenceID:     referenceID,
		Description:     description,
		Status:          ledger.TransactionStatusPending,
		RequestedAt:     b.now(),
	}
	if debit != nil {
		id := debit.ID
		txn.DebitAccountID = &id
	}
	return txn
}

func (b baseStrategy) fail(txn ledger.Transaction, cause error) (ledger.Transaction, error) {
	if err := txn.MarkFailed(b.now(), cause); err != nil {
		return txn, err
	}
	return txn, cause
}

// move debits and credits in one step. A nil debit means external funds.
func (b baseStrategy) move(txn ledger.Transaction, debit, credit *ledger.Account, amount money.Amount) (ledger.Transaction, error) {
	if debit != nil {
		if !debit.Covers(amount) {
			return b.fail(txn, fmt.Errorf("%w: account %s holds %s, needs %s",
				ledger.ErrInsufficientFunds, debit.ID, debit.CurrentBalance, amount))
		}
		debit.CurrentBalance -= amount
	}
	credit.CurrentBalance += amount

	if err := txn.MarkSuccess(b.now()); err != nil {
		return txn, err
	}
	return txn, nil
}

func distinct(debit, credit *ledger.Account) bool {
	return debit != nil && credit != nil && debit.ID != credit.ID
}

// ========== SALARY DISBURSEMENT ==========

type salaryDisbursementStrategy struct{ baseStrategy }

func NewSalaryDisbursementStrategy(now Clock) Strategy {
	return &salaryDisbursementStrategy{baseStrategy{now: now}}
}

func (s *salaryDisbursementStrategy) Intent() ledger.TransferIntent {
	return ledger.IntentSalaryDisbursement
}

func (s *salaryDisbursementStrategy) Supports(debit, credit *ledger.Account, amount money.Amount) bool {
	return amount.IsPositive() &&
		debit.Is(ledger.OwnerTypeCompany, ledger.AccountTypeCurrent) &&
		credit.Is(ledger.OwnerTypeEmployee, ledger.AccountTypeSavings, ledger.AccountTypeCurrent)
}

func (s *salaryDisbursementStrategy) CanHandle(debit, credit *ledger.Account, amount money.Amount) bool {
	return s.Supports(debit, credit, amount)
}

func (s *salaryDisbursementStrategy) Execute(debit, credit *ledger.Account, amount money.Amount, referenceID, description string) (ledger.Transaction, error) {
	txn := s.pending(debit, credit, amount, referenceID, description, ledger.TransactionTypeSalary, ledger.CategoryPayroll)
	return s.move(txn, debit, credit, amount)
}

// ========== COMPANY TOP-UP ==========

type companyTopUpStrategy struct{ baseStrategy }

func NewCompanyTopUpStrategy(now Clock) Strategy {
	return &companyTopUpStrategy{baseStrategy{now: now}}
}

func (s *companyTopUpStrategy) Intent() ledger.TransferIntent {
	return ledger.IntentCompanyTopUp
}

func (s *companyTopUpStrategy) Supports(debit, credit *ledger.Account, amount money.Amount) bool {
	return amount.IsPositive() && debit == nil &&
		credit.Is(ledger.OwnerTypeCompany, ledger.AccountTypeCurrent)
}

func (s *companyTopUpStrategy) CanHandle(debit, credit *ledger.Account, amount money.Amount) bool {
	return s.Supports(debit, credit, amount)
}

func (s *companyTopUpStrategy) Execute(debit, credit *ledger.Account, amount money.Amount, referenceID, description string) (ledger.Transaction, error) {
	txn := s.pending(nil, credit, amount, referenceID, description, ledger.TransactionTypeTopUp, ledger.CategoryFunding)
	return s.move(txn, nil, credit, amount)
}

// ========== GENERAL TRANSFER ==========

type generalTransferStrategy struct{ baseStrategy }

func NewGeneralTransferStrategy(now Clock) Strategy {
	return &generalTransferStrategy{baseStrategy{now: now}}
}

func (s *generalTransferStrategy) Intent() ledger.TransferIntent {
	return ledger.IntentGeneralTransfer
}

func (s *generalTransferStrategy) Supports(debit, credit *ledger.Account, amount money.Amount) bool {
	return amount.IsPositive() && distinct(debit, credit)
}

func (s *generalTransferStrategy) CanHandle(debit, credit *ledger.Account, amount money.Amount) bool {
	return s.Supports(debit, credit, amount) && debit.Covers(amount)
}

func (s *generalTransferStrategy) Execute(debit, credit *ledger.Account, amount money.Amount, referenceID, description string) (ledger.Transaction, error) {
	txnType, category := ledger.TransactionTypeTransfer, ledger.CategoryGeneral
	if debit.OwnerType == ledger.OwnerTypeCompany && credit.OwnerType == ledger.OwnerTypeEmployee {
		txnType, category = ledger.TransactionTypeSalary, ledger.CategoryPayroll
	}
	txn := s.pending(debit, credit, amount, referenceID, description, txnType, category)
	return s.move(txn, debit, credit, amount)
}

// ========== REVERSAL ==========

type reversalStrategy struct{ baseStrategy }

func NewReversalStrategy(now Clock) Strategy {
	return &reversalStrategy{baseStrategy{now: now}}
}

func (s *reversalStrategy) Intent() ledger.TransferIntent {
	return ledger.IntentReversal
}

func (s *reversalStrategy) Supports(debit, credit *ledger.Account, amount money.Amount) bool {
	return amount.IsPositive() && distinct(debit, credit)
}

func (s *reversalStrategy) CanHandle(debit, credit *ledger.Account, amount money.Amount) bool {
	return s.Supports(debit, credit, amount) && debit.Covers(amount)
}

func (s *reversalStrategy) Execute(debit, credit *ledger.Account, amount money.Amount, referenceID, description string) (ledger.Transaction, error) {
	txn := s.pending(debit, credit, amount, referenceID, description, ledger.TransactionTypeReversal, ledger.CategoryAdjustment)
	return s.move(txn, debit, credit, amount)
}
