package ledger

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/validator"
)

// ========== TRANSFER DTOs ==========

type TransferRequest struct {
	Intent          TransferIntent `json:"intent,omitempty"`
	DebitAccountID  *string        `json:"debit_account_id,omitempty"`
	CreditAccountID string         `json:"credit_account_id"`
	Amount          money.Amount   `json:"amount"`
	ReferenceID     string         `json:"reference_id"`
	Description     string         `json:"description"`

	// reversalOf is set only by the reversal path.
	reversalOf *string
}

func (r *TransferRequest) Validate() error {
	var errs validator.ValidationErrors

	if !r.Intent.IsValid() {
		errs = append(errs, validator.ValidationError{Field: "intent", Message: "unknown transfer intent"})
	}
	if r.Intent == IntentReversal && r.reversalOf == nil {
		errs = append(errs, validator.ValidationError{Field: "intent", Message: "reversals must go through the reverse endpoint"})
	}
	if r.DebitAccountID != nil && validator.IsEmpty(*r.DebitAccountID) {
		errs = append(errs, validator.ValidationError{Field: "debit_account_id", Message: "must not be blank when provided"})
	}
	if validator.IsEmpty(r.CreditAccountID) {
		errs = append(errs, validator.ValidationError{Field: "credit_account_id", Message: "is required"})
	}
	if r.DebitAccountID != nil && *r.DebitAccountID == r.CreditAccountID {
		errs = append(errs, validator.ValidationError{Field: "credit_account_id", Message: "must differ from debit_account_id"})
	}
	if !r.Amount.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "amount", Message: "must be greater than zero"})
	}
	if validator.IsEmpty(r.ReferenceID) {
		errs = append(errs, validator.ValidationError{Field: "reference_id", Message: "is required"})
	}
	if limit := r.referenceLimit(); len(r.ReferenceID) > limit {
		errs = append(errs, validator.ValidationError{Field: "reference_id", Message: fmt.Sprintf("must not exceed %d characters", limit)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (r *TransferRequest) referenceLimit() int {
	if r.reversalOf != nil {
		return MaxReferenceLength
	}
	return MaxClientReferenceLength
}

// ReversalOf returns the transaction being reversed, if any.
func (r *TransferRequest) ReversalOf() *string {
	return r.reversalOf
}

// NewReversalRequest swaps the sides of original and prefixes its reference.
func NewReversalRequest(original Transaction, reason string) TransferRequest {
	debit := original.CreditAccountID
	id := original.ID
	return TransferRequest{
		Intent:          IntentReversal,
		DebitAccountID:  &debit,
		CreditAccountID: *original.DebitAccountID,
		Amount:          original.Amount,
		ReferenceID:     ReversalReferencePrefix + original.ReferenceID,
		Description:     reason,
		reversalOf:      &id,
	}
}

type ReverseTransactionRequest struct {
	Reason string `json:"reason"`
}

func (r *ReverseTransactionRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{Field: "reason", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type TransactionResponse struct {
	ID              string       `json:"id"`
	DebitAccountID  *string      `json:"debit_account_id,omitempty"`
	CreditAccountID string       `json:"credit_account_id"`
	Amount          money.Amount `json:"amount"`
	Type            string       `json:"type"`
	Category        string       `json:"category"`
	ReferenceID     string       `json:"reference_id"`
	Description     string       `json:"description"`
	Status          string       `json:"status"`
	FailureReason   *string      `json:"failure_reason,omitempty"`
	ReversalOf      *string      `json:"reversal_of,omitempty"`
	RequestedAt     string       `json:"requested_at"`
	ProcessedAt     *string      `json:"processed_at,omitempty"`
}

func NewTransactionResponse(t Transaction) TransactionResponse {
	var processedAt *string
	if t.ProcessedAt != nil {
		v := t.ProcessedAt.Format(time.RFC3339)
		processedAt = &v
	}

	return TransactionResponse{
		ID:              t.ID,
		DebitAccountID:  t.DebitAccountID,
		CreditAccountID: t.CreditAccountID,
		Amount:          t.Amount,
		Type:            string(t.Type),
		Category:        string(t.Category),
		ReferenceID:     t.ReferenceID,
		Description:     t.Description,
		Status:          string(t.Status),
		FailureReason:   t.FailureReason,
		ReversalOf:      t.ReversalOf,
		RequestedAt:     t.RequestedAt.Format(time.RFC3339),
		ProcessedAt:     processedAt,
	}
}

// ========== BALANCE DTOs ==========

type BalanceResponse struct {
	AccountID string       `json:"account_id"`
	Balance   money.Amount `json:"balance"`
}

type SufficientBalanceResponse struct {
	AccountID  string       `json:"account_id"`
	Amount     money.Amount `json:"amount"`
	Sufficient bool         `json:"sufficient"`
}

// ========== INQUIRY DTOs ==========

type TransactionFilter struct {
	Status *string `json:"status,omitempty"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
}

type ListTransactionResponse struct {
	Data       []TransactionResponse `json:"data"`
	TotalCount int64                 `json:"total_count"`
	Page       int                   `json:"page"`
	Limit      int                   `json:"limit"`
}
