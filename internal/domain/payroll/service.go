package payroll

import "context"

type PayrollService interface {
	// Batch lifecycle
	CreateBatch(ctx context.Context, req CreateBatchRequest) (BatchResponse, error)
	CalculateSalaries(ctx context.Context, batchID string) ([]SalaryBreakdownResponse, error)
	Process(ctx context.Context, batchID string) (PayrollResult, error)
	CancelBatch(ctx context.Context, batchID string) (BatchResponse, error)

	// Item recovery
	RetryItem(ctx context.Context, itemID string) (ItemResponse, error)
	ReprocessItem(ctx context.Context, itemID string) (ItemResponse, error)

	// Queries
	ListBatches(ctx context.Context, filter BatchFilter) (ListBatchResponse, error)
	GetBatch(ctx context.Context, batchID string) (BatchResponse, error)
	GetBatchItems(ctx context.Context, batchID string, filter ItemFilter) (ListItemResponse, error)
	GetBatchSummary(ctx context.Context, batchID string) (BatchSummaryResponse, error)
}
