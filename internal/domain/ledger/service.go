package ledger

import (
	"context"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
)

type LedgerService interface {
	Transfer(ctx context.Context, req TransferRequest) (TransactionResponse, error)
	Reverse(ctx context.Context, transactionID string, reason string) (TransactionResponse, error)

	GetBalance(ctx context.Context, accountID string) (money.Amount, error)
	HasSufficientBalance(ctx context.Context, accountID string, amount money.Amount) (bool, error)

	GetTransaction(ctx context.Context, id string) (TransactionResponse, error)
	GetTransactionByReference(ctx context.Context, referenceID string) (TransactionResponse, error)
	ListAccountTransactions(ctx context.Context, accountID string, filter TransactionFilter) (ListTransactionResponse, error)
}
