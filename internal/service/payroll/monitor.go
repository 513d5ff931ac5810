package payroll

import (
	"context"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/payroll"
)

const monitorPageSize = 100

// StalledBatchMonitor finds batches left in PROCESSING by an aborted run. Such
// batches need an operator: their items may be partly paid.
type StalledBatchMonitor struct {
	payrollRepo payroll.PayrollRepository
	after       time.Duration
	now         func() time.Time
}

func NewStalledBatchMonitor(payrollRepo payroll.PayrollRepository, after time.Duration) *StalledBatchMonitor {
	return &StalledBatchMonitor{
		payrollRepo: payrollRepo,
		after:       after,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Stalled returns PROCESSING batches not updated for longer than the threshold.
func (m *StalledBatchMonitor) Stalled(ctx context.Context) ([]payroll.PayrollBatch, error) {
	status := string(payroll.BatchStatusProcessing)
	cutoff := m.now().Add(-m.after)

	var stalled []payroll.PayrollBatch
	for page := 1; ; page++ {
		batches, total, err := m.payrollRepo.ListBatches(ctx, payroll.BatchFilter{
			Status: &status,
			Page:   page,
			Limit:  monitorPageSize,
		})
		if err != nil {
			return nil, err
		}
		for _, b := range batches {
			if b.UpdatedAt.Before(cutoff) {
				stalled = append(stalled, b)
			}
		}
		if len(batches) == 0 || int64(page*monitorPageSize) >= total {
			return stalled, nil
		}
	}
}

// Run logs one warning per stalled batch. It is meant for the cron scheduler.
func (m *StalledBatchMonitor) Run(ctx context.Context) error {
	stalled, err := m.Stalled(ctx)
	if err != nil {
		return err
	}
	for _, b := range stalled {
		slog.WarnContext(ctx, "payroll batch stuck in processing",
			"batch_id", b.ID,
			"company_id", b.CompanyID,
			"payroll_month", b.PayrollMonth,
			"executed_amount", b.ExecutedAmount.String(),
			"since", b.UpdatedAt,
		)
	}
	if len(stalled) > 0 {
		slog.WarnContext(ctx, "stalled payroll batches found", "count", len(stalled))
	}
	return nil
}
