package payroll

import (
	"time"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/validator"
)

// ========== BATCH DTOs ==========

type CreateBatchRequest struct {
	Name             string  `json:"name"`
	PayrollMonth     string  `json:"payroll_month"` // YYYY-MM
	CompanyID        string  `json:"company_id"`
	FundingAccountID string  `json:"funding_account_id"`
	Description      *string `json:"description,omitempty"`
}

func (r *CreateBatchRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Name) {
		errs = append(errs, validator.ValidationError{Field: "name", Message: "is required"})
	}
	if len(r.Name) > 150 {
		errs = append(errs, validator.ValidationError{Field: "name", Message: "must not exceed 150 characters"})
	}
	if !validator.IsValidPayrollMonth(r.PayrollMonth) {
		errs = append(errs, validator.ValidationError{Field: "payroll_month", Message: "must be in YYYY-MM format"})
	}
	if !validator.IsValidUUID(r.CompanyID) {
		errs = append(errs, validator.ValidationError{Field: "company_id", Message: "must be a valid id"})
	}
	if !validator.IsValidUUID(r.FundingAccountID) {
		errs = append(errs, validator.ValidationError{Field: "funding_account_id", Message: "must be a valid id"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type BatchResponse struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Description      *string      `json:"description,omitempty"`
	PayrollMonth     string       `json:"payroll_month"`
	CompanyID        string       `json:"company_id"`
	FundingAccountID string       `json:"funding_account_id"`
	Status           string       `json:"status"`
	TotalAmount      money.Amount `json:"total_amount"`
	ExecutedAmount   money.Amount `json:"executed_amount"`
	ExecutedAt       *string      `json:"executed_at,omitempty"`
	CreatedAt        string       `json:"created_at"`
}

type BatchSummaryResponse struct {
	Batch             BatchResponse `json:"batch"`
	TotalItems        int           `json:"total_items"`
	PendingItems      int           `json:"pending_items"`
	ProcessingItems   int           `json:"processing_items"`
	PaidItems         int           `json:"paid_items"`
	FailedItems       int           `json:"failed_items"`
	PaidAmount        money.Amount  `json:"paid_amount"`
	OutstandingAmount money.Amount  `json:"outstanding_amount"`
}

type BatchFilter struct {
	CompanyID    *string `json:"company_id,omitempty"`
	Status       *string `json:"status,omitempty"`
	PayrollMonth *string `json:"payroll_month,omitempty"`
	Page         int     `json:"page"`
	Limit        int     `json:"limit"`
	SortBy       string  `json:"sort_by"`
	SortOrder    string  `json:"sort_order"`
}

func (f *BatchFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Status != nil && !BatchStatus(*f.Status).IsValid() {
		errs = append(errs, validator.ValidationError{Field: "status", Message: "unknown batch status"})
	}
	if f.PayrollMonth != nil && !validator.IsValidPayrollMonth(*f.PayrollMonth) {
		errs = append(errs, validator.ValidationError{Field: "payroll_month", Message: "must be in YYYY-MM format"})
	}
	if f.CompanyID != nil && !validator.IsValidUUID(*f.CompanyID) {
		errs = append(errs, validator.ValidationError{Field: "company_id", Message: "must be a valid id"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ListBatchResponse struct {
	Data       []BatchResponse `json:"data"`
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
}

// ========== ITEM DTOs ==========

type ItemResponse struct {
	ID               string       `json:"id"`
	BatchID          string       `json:"batch_id"`
	EmployeeID       string       `json:"employee_id"`
	EmployeeCode     string       `json:"employee_code,omitempty"`
	EmployeeName     string       `json:"employee_name,omitempty"`
	Basic            money.Amount `json:"basic"`
	HRA              money.Amount `json:"hra"`
	MedicalAllowance money.Amount `json:"medical_allowance"`
	Gross            money.Amount `json:"gross"`
	Amount           money.Amount `json:"amount"`
	Status           string       `json:"status"`
	FailureReason    *string      `json:"failure_reason,omitempty"`
	TransactionID    *string      `json:"transaction_id,omitempty"`
	ExecutedAt       *string      `json:"executed_at,omitempty"`
}

type ItemFilter struct {
	Status *string `json:"status,omitempty"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
}

func (f *ItemFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Status != nil && !ItemStatus(*f.Status).IsValid() {
		errs = append(errs, validator.ValidationError{Field: "status", Message: "unknown item status"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ListItemResponse struct {
	Data       []ItemResponse `json:"data"`
	TotalCount int64          `json:"total_count"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
}

type SalaryBreakdownResponse struct {
	EmployeeID       string       `json:"employee_id"`
	EmployeeCode     string       `json:"employee_code"`
	GradeRank        int          `json:"grade_rank"`
	Basic            money.Amount `json:"basic"`
	HRA              money.Amount `json:"hra"`
	MedicalAllowance money.Amount `json:"medical_allowance"`
	Gross            money.Amount `json:"gross"`
	Net              money.Amount `json:"net"`
}

// ========== PROCESSING DTOs ==========

type ItemOutcome struct {
	ItemID        string       `json:"item_id"`
	EmployeeID    string       `json:"employee_id"`
	EmployeeCode  string       `json:"employee_code,omitempty"`
	Amount        money.Amount `json:"amount"`
	Status        string       `json:"status"`
	TransactionID *string      `json:"transaction_id,omitempty"`
	FailureReason *string      `json:"failure_reason,omitempty"`
}

type PayrollResult struct {
	Success            bool          `json:"success"`
	BatchID            string        `json:"batch_id"`
	BatchStatus        string        `json:"batch_status"`
	TotalAmount        money.Amount  `json:"total_amount"`
	ProcessedAmount    money.Amount  `json:"processed_amount"`
	FailedAmount       money.Amount  `json:"failed_amount"`
	TotalEmployees     int           `json:"total_employees"`
	SuccessfulPayments int           `json:"successful_payments"`
	FailedPayments     int           `json:"failed_payments"`
	BalanceBefore      money.Amount  `json:"balance_before"`
	BalanceAfter       money.Amount  `json:"balance_after"`
	Items              []ItemOutcome `json:"items"`
	ErrorMessages      []string      `json:"error_messages"`
	Message            string        `json:"message"`
}

// ========== MAPPERS ==========

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(time.RFC3339)
	return &v
}

func NewBatchResponse(b PayrollBatch) BatchResponse {
	return BatchResponse{
		ID:               b.ID,
		Name:             b.Name,
		Description:      b.Description,
		PayrollMonth:     b.PayrollMonth,
		CompanyID:        b.CompanyID,
		FundingAccountID: b.FundingAccountID,
		Status:           string(b.Status),
		TotalAmount:      b.TotalAmount,
		ExecutedAmount:   b.ExecutedAmount,
		ExecutedAt:       formatTime(b.ExecutedAt),
		CreatedAt:        b.CreatedAt.Format(time.RFC3339),
	}
}

func NewItemResponse(i PayrollItem) ItemResponse {
	resp := ItemResponse{
		ID:               i.ID,
		BatchID:          i.BatchID,
		EmployeeID:       i.EmployeeID,
		Basic:            i.Basic,
		HRA:              i.HRA,
		MedicalAllowance: i.MedicalAllowance,
		Gross:            i.Gross,
		Amount:           i.Amount,
		Status:           string(i.Status),
		FailureReason:    i.FailureReason,
		TransactionID:    i.TransactionID,
		ExecutedAt:       formatTime(i.ExecutedAt),
	}
	if i.EmployeeCode != nil {
		resp.EmployeeCode = *i.EmployeeCode
	}
	if i.EmployeeName != nil {
		resp.EmployeeName = *i.EmployeeName
	}
	return resp
}

func NewSalaryBreakdownResponse(b SalaryBreakdown) SalaryBreakdownResponse {
	return SalaryBreakdownResponse{
		EmployeeID:       b.EmployeeID,
		EmployeeCode:     b.EmployeeCode,
		GradeRank:        b.GradeRank,
		Basic:            b.Basic,
		HRA:              b.HRA,
		MedicalAllowance: b.MedicalAllowance,
		Gross:            b.Gross,
		Net:              b.Net,
	}
}
