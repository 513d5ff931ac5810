package ledger

import (
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/validator"
)

var (
	ErrAccountNotFound         = errors.New("account not found")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrNoApplicableStrategy    = errors.New("no applicable transfer strategy")
	ErrInvalidState            = errors.New("invalid state")
	ErrInvalidTransactionState = fmt.Errorf("%w: transaction is not in the required status", ErrInvalidState)
	ErrAlreadyReversed         = fmt.Errorf("%w: transaction already reversed", ErrInvalidState)
	ErrExternalReversal        = fmt.Errorf("%w: externally funded transaction cannot be reversed", ErrInvalidState)
	ErrDuplicateReference      = errors.New("transaction reference already exists")
	ErrConcurrentUpdate        = errors.New("concurrent update conflict, retry the operation")
	ErrInvalidAmount           = errors.New("amount must be greater than zero")
)

// IsBusinessError reports whether err is a rule violation for a single transfer,
// as opposed to a store or transport failure.
func IsBusinessError(err error) bool {
	switch {
	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrNoApplicableStrategy),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrDuplicateReference),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidState):
		return true
	}
	var validationErrs validator.ValidationErrors
	return errors.As(err, &validationErrs)
}
