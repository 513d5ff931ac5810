package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/company"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/master/grade"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Payroll domain errors
	case errors.Is(err, payroll.ErrBatchNotFound):
		NotFound(w, "Payroll batch not found")
	case errors.Is(err, payroll.ErrItemNotFound):
		NotFound(w, "Payroll item not found")
	case errors.Is(err, payroll.ErrFormulaNotFound):
		NotFound(w, "Salary formula not found for company")
	case errors.Is(err, payroll.ErrFundingAccountNotFound):
		NotFound(w, "Funding account not found")
	case errors.Is(err, payroll.ErrInvalidFundingAccount):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, payroll.ErrNoEmployees):
		UnprocessableEntity(w, CodeNoEmployees, err.Error())
	case errors.Is(err, payroll.ErrInvalidInput):
		BadRequest(w, err.Error(), nil)

	// Master data errors
	case errors.Is(err, company.ErrCompanyNotFound):
		NotFound(w, "Company not found")
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, grade.ErrGradeNotFound):
		NotFound(w, "Grade not found")

	// Ledger domain errors
	case errors.Is(err, ledger.ErrAccountNotFound):
		NotFound(w, "Account not found")
	case errors.Is(err, ledger.ErrTransactionNotFound):
		NotFound(w, "Transaction not found")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		UnprocessableEntity(w, CodeInsufficientFunds, err.Error())
	case errors.Is(err, ledger.ErrNoApplicableStrategy):
		UnprocessableEntity(w, CodeNoStrategy, err.Error())
	case errors.Is(err, ledger.ErrInvalidAmount):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, ledger.ErrDuplicateReference):
		Conflict(w, err.Error())
	case errors.Is(err, ledger.ErrConcurrentUpdate):
		Conflict(w, err.Error())
	case errors.Is(err, ledger.ErrInvalidState):
		Conflict(w, err.Error())

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
