package payroll

import (
	"time"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
	"github.com/shopspring/decimal"
)

// SalaryFormula - Company salary distribution rule
type SalaryFormula struct {
	ID                   string
	CompanyID            string
	BaseSalaryGrade      int
	ReferenceBaseSalary  money.Amount
	HRAPercentage        decimal.Decimal
	MedicalPercentage    decimal.Decimal
	GradeIncrementAmount money.Amount
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// SalaryBreakdown - Result of applying a formula to one employee
type SalaryBreakdown struct {
	EmployeeID       string
	EmployeeCode     string
	GradeRank        int
	Basic            money.Amount
	HRA              money.Amount
	MedicalAllowance money.Amount
	Gross            money.Amount
	Net              money.Amount
}

// BatchStatus enum
type BatchStatus string

const (
	BatchStatusPending            BatchStatus = "PENDING"
	BatchStatusProcessing         BatchStatus = "PROCESSING"
	BatchStatusCompleted          BatchStatus = "COMPLETED"
	BatchStatusPartiallyCompleted BatchStatus = "PARTIALLY_COMPLETED"
	BatchStatusFailed             BatchStatus = "FAILED"
	BatchStatusCancelled          BatchStatus = "CANCELLED"
)

var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchStatusPending:    {BatchStatusProcessing, BatchStatusFailed, BatchStatusCancelled},
	BatchStatusProcessing: {BatchStatusCompleted, BatchStatusPartiallyCompleted, BatchStatusFailed},
}

func (s BatchStatus) CanTransitionTo(next BatchStatus) bool {
	for _, allowed := range batchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s BatchStatus) IsTerminal() bool {
	return len(batchTransitions[s]) == 0
}

func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusPending, BatchStatusProcessing, BatchStatusCompleted,
		BatchStatusPartiallyCompleted, BatchStatusFailed, BatchStatusCancelled:
		return true
	}
	return false
}

// FinalBatchStatus derives the outcome of a processing run from item counters.
func FinalBatchStatus(successCount, failCount int) BatchStatus {
	switch {
	case successCount == 0:
		return BatchStatusFailed
	case failCount == 0:
		return BatchStatusCompleted
	default:
		return BatchStatusPartiallyCompleted
	}
}

// PayrollBatch - One payroll run for a company and funding account
type PayrollBatch struct {
	ID               string
	Name             string
	Description      *string
	PayrollMonth     string
	CompanyID        string
	FundingAccountID string
	Status           BatchStatus
	TotalAmount      money.Amount
	ExecutedAmount   money.Amount
	ExecutedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TransitionTo changes the status if the state machine allows it.
func (b *PayrollBatch) TransitionTo(next BatchStatus) error {
	if !b.Status.CanTransitionTo(next) {
		return newBatchStateError(b.Status, next)
	}
	b.Status = next
	return nil
}

// ItemStatus enum
type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "PENDING"
	ItemStatusProcessing ItemStatus = "PROCESSING"
	ItemStatusPaid       ItemStatus = "PAID"
	ItemStatusFailed     ItemStatus = "FAILED"
)

var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemStatusPending:    {ItemStatusProcessing, ItemStatusPaid, ItemStatusFailed},
	ItemStatusProcessing: {ItemStatusPaid, ItemStatusFailed},
	ItemStatusFailed:     {ItemStatusProcessing},
}

func (s ItemStatus) CanTransitionTo(next ItemStatus) bool {
	for _, allowed := range itemTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemStatusPending, ItemStatusProcessing, ItemStatusPaid, ItemStatusFailed:
		return true
	}
	return false
}

// PayrollItem - One employee's salary and payment outcome within a batch
type PayrollItem struct {
	ID               string
	BatchID          string
	EmployeeID       string
	Position         int
	Basic            money.Amount
	HRA              money.Amount
	MedicalAllowance money.Amount
	Gross            money.Amount
	Amount           money.Amount
	Status           ItemStatus
	FailureReason    *string
	TransactionID    *string
	ExecutedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Joined fields
	EmployeeCode *string
	EmployeeName *string
}

// NewPayrollItem builds an unsaved PENDING item from a salary breakdown.
func NewPayrollItem(id, batchID string, position int, b SalaryBreakdown) PayrollItem {
	code := b.EmployeeCode
	return PayrollItem{
		ID:               id,
		BatchID:          batchID,
		EmployeeID:       b.EmployeeID,
		Position:         position,
		Basic:            b.Basic,
		HRA:              b.HRA,
		MedicalAllowance: b.MedicalAllowance,
		Gross:            b.Gross,
		Amount:           b.Net,
		Status:           ItemStatusPending,
		EmployeeCode:     &code,
	}
}

func (i *PayrollItem) MarkProcessing() error {
	if !i.Status.CanTransitionTo(ItemStatusProcessing) {
		return newItemStateError(i.Status, ItemStatusProcessing)
	}
	i.Status = ItemStatusProcessing
	return nil
}

func (i *PayrollItem) MarkPaid(at time.Time, transactionID string) error {
	if !i.Status.CanTransitionTo(ItemStatusPaid) {
		return newItemStateError(i.Status, ItemStatusPaid)
	}
	i.Status = ItemStatusPaid
	i.FailureReason = nil
	i.TransactionID = &transactionID
	i.ExecutedAt = &at
	return nil
}

func (i *PayrollItem) MarkFailed(at time.Time, reason string) error {
	if !i.Status.CanTransitionTo(ItemStatusFailed) {
		return newItemStateError(i.Status, ItemStatusFailed)
	}
	i.Status = ItemStatusFailed
	i.FailureReason = &reason
	i.ExecutedAt = &at
	return nil
}

// ResetForRetry moves a FAILED item back to PROCESSING and clears its outcome.
func (i *PayrollItem) ResetForRetry() error {
	if i.Status != ItemStatusFailed {
		return newItemStateError(i.Status, ItemStatusProcessing)
	}
	i.Status = ItemStatusProcessing
	i.FailureReason = nil
	i.ExecutedAt = nil
	return nil
}

// TotalAmount sums the net amount of items.
func TotalAmount(items []PayrollItem) money.Amount {
	var total money.Amount
	for _, item := range items {
		total += item.Amount
	}
	return total
}
