package payroll

import (
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/ledger"
)

var (
	ErrBatchNotFound          = errors.New("payroll batch not found")
	ErrItemNotFound           = errors.New("payroll item not found")
	ErrFormulaNotFound        = errors.New("salary distribution formula not found")
	ErrFundingAccountNotFound = errors.New("funding account not found")
	ErrInvalidFundingAccount  = errors.New("funding account must be a current account owned by the company")
	ErrNoEmployees            = errors.New("company has no active employees to pay")
	ErrInvalidInput           = errors.New("invalid salary calculation input")

	// State errors wrap ledger.ErrInvalidState so callers can match a single sentinel.
	ErrInvalidBatchState = fmt.Errorf("%w: payroll batch", ledger.ErrInvalidState)
	ErrInvalidItemState  = fmt.Errorf("%w: payroll item", ledger.ErrInvalidState)
)

func newBatchStateError(from, to BatchStatus) error {
	return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidBatchState, from, to)
}

func newItemStateError(from, to ItemStatus) error {
	return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidItemState, from, to)
}
