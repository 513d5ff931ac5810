package ledger

import (
	"context"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
)

type AccountRepository interface {
	GetByID(ctx context.Context, id string) (Account, error)
	// GetByIDForUpdate reads the account and holds a row lock until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (Account, error)
	UpdateBalance(ctx context.Context, id string, balance money.Amount) error
	// BelongsToCompany reports whether the account is the company's own or the
	// payout account of one of its employees.
	BelongsToCompany(ctx context.Context, accountID, companyID string) (bool, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, txn Transaction) (Transaction, error)
	GetByID(ctx context.Context, id string) (Transaction, error)
	GetByReference(ctx context.Context, referenceID string) (Transaction, error)
	GetReversalOf(ctx context.Context, originalID string) (Transaction, error)
	ListByAccount(ctx context.Context, accountID string, filter TransactionFilter) ([]Transaction, int64, error)
}
