package ledger

import (
	"time"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
)

// OwnerType enum
type OwnerType string

const (
	OwnerTypeCompany  OwnerType = "COMPANY"
	OwnerTypeEmployee OwnerType = "EMPLOYEE"
)

// AccountType enum
type AccountType string

const (
	AccountTypeCurrent AccountType = "CURRENT"
	AccountTypeSavings AccountType = "SAVINGS"
)

// Account - a balance holder owned by a company or an employee
type Account struct {
	ID             string
	AccountNumber  string
	OwnerType      OwnerType
	OwnerID        string
	AccountType    AccountType
	BranchID       *string
	CurrentBalance money.Amount
	OverdraftLimit money.Amount
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Is reports whether the account has the given owner and one of the given account types.
func (a *Account) Is(owner OwnerType, types ...AccountType) bool {
	if a == nil || a.OwnerType != owner {
		return false
	}
	for _, t := range types {
		if a.AccountType == t {
			return true
		}
	}
	return false
}

// Covers checks balance >= amount. The overdraft limit is not part of the check.
func (a *Account) Covers(amount money.Amount) bool {
	return a != nil && a.CurrentBalance >= amount
}

// TransactionType enum
type TransactionType string

const (
	TransactionTypeSalary   TransactionType = "SALARY"
	TransactionTypeTopUp    TransactionType = "TOP_UP"
	TransactionTypeTransfer TransactionType = "TRANSFER"
	TransactionTypeReversal TransactionType = "REVERSAL"
)

// TransactionCategory enum
type TransactionCategory string

const (
	CategoryPayroll    TransactionCategory = "PAYROLL"
	CategoryFunding    TransactionCategory = "FUNDING"
	CategoryGeneral    TransactionCategory = "GENERAL"
	CategoryAdjustment TransactionCategory = "ADJUSTMENT"
)

// TransactionStatus enum
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	return s == TransactionStatusPending &&
		(next == TransactionStatusSuccess || next == TransactionStatusFailed)
}

// Transaction - one append-only ledger entry moving Amount from DebitAccountID to CreditAccountID.
// DebitAccountID is nil for external funding.
type Transaction struct {
	ID              string
	DebitAccountID  *string
	CreditAccountID string
	Amount          money.Amount
	Type            TransactionType
	Category        TransactionCategory
	ReferenceID     string
	Description     string
	Status          TransactionStatus
	FailureReason   *string
	ReversalOf      *string
	RequestedAt     time.Time
	ProcessedAt     *time.Time
}

// MarkSuccess moves a pending transaction to SUCCESS.
func (t *Transaction) MarkSuccess(at time.Time) error {
	if !t.Status.CanTransitionTo(TransactionStatusSuccess) {
		return ErrInvalidTransactionState
	}
	t.Status = TransactionStatusSuccess
	t.ProcessedAt = &at
	return nil
}

// MarkFailed moves a pending transaction to FAILED and keeps the reason.
func (t *Transaction) MarkFailed(at time.Time, reason error) error {
	if !t.Status.CanTransitionTo(TransactionStatusFailed) {
		return ErrInvalidTransactionState
	}
	msg := reason.Error()
	t.Status = TransactionStatusFailed
	t.FailureReason = &msg
	t.ProcessedAt = &at
	return nil
}

// TransferIntent names the money-movement rule a caller asks for.
type TransferIntent string

const (
	// IntentAuto picks the first strategy whose predicate matches.
	IntentAuto               TransferIntent = ""
	IntentSalaryDisbursement TransferIntent = "SALARY_DISBURSEMENT"
	IntentCompanyTopUp       TransferIntent = "COMPANY_TOP_UP"
	IntentGeneralTransfer    TransferIntent = "GENERAL_TRANSFER"
	IntentReversal           TransferIntent = "REVERSAL"
)

func (i TransferIntent) IsValid() bool {
	switch i {
	case IntentAuto, IntentSalaryDisbursement, IntentCompanyTopUp, IntentGeneralTransfer, IntentReversal:
		return true
	}
	return false
}

// ReversalReferencePrefix is prepended to the original reference of a reversal.
const ReversalReferencePrefix = "REV-"

// MaxReferenceLength matches transactions.reference_id. Client references are
// shorter by the reversal prefix so that every transaction stays reversible.
const (
	MaxReferenceLength       = 120
	MaxClientReferenceLength = MaxReferenceLength - len(ReversalReferencePrefix)
)
