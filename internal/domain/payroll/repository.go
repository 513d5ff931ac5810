package payroll

import (
	"context"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
)

// PayrollRepository defines data access methods for salary formulas, batches and items.
type PayrollRepository interface {
	// Formula
	GetFormulaByCompanyID(ctx context.Context, companyID string) (SalaryFormula, error)

	// Batches
	CreateBatch(ctx context.Context, batch PayrollBatch) (PayrollBatch, error)
	GetBatchByID(ctx context.Context, id string) (PayrollBatch, error)
	ListBatches(ctx context.Context, filter BatchFilter) ([]PayrollBatch, int64, error)
	// CompareAndSetStatus moves the batch to next only while it is still in expected.
	// Returns ErrInvalidBatchState when another caller changed it first.
	CompareAndSetStatus(ctx context.Context, id string, expected, next BatchStatus) error
	UpdateBatch(ctx context.Context, batch PayrollBatch) error
	AddExecutedAmount(ctx context.Context, id string, amount money.Amount) error

	// Items
	CreateItems(ctx context.Context, items []PayrollItem) error
	GetItemByID(ctx context.Context, id string) (PayrollItem, error)
	ListItemsByBatch(ctx context.Context, batchID string) ([]PayrollItem, error)
	ListItemsByBatchPaged(ctx context.Context, batchID string, filter ItemFilter) ([]PayrollItem, int64, error)
	// UpdateItem writes the item outcome only while the stored status is still expected.
	// Returns ErrInvalidItemState when another caller moved the item first.
	UpdateItem(ctx context.Context, item PayrollItem, expected ItemStatus) error
	CountItemsByStatus(ctx context.Context, batchID string) (map[ItemStatus]int, error)
}
