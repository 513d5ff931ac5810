package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
)

type payrollRepo struct{ s *Store }

func (s *Store) PayrollRepo() payroll.PayrollRepository { return payrollRepo{s} }

func (r payrollRepo) GetFormulaByCompanyID(_ context.Context, companyID string) (payroll.SalaryFormula, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.data.formulas[companyID]
	if !ok {
		return payroll.SalaryFormula{}, payroll.ErrFormulaNotFound
	}
	return f, nil
}

// ========== BATCHES ==========

func (r payrollRepo) CreateBatch(ctx context.Context, batch payroll.PayrollBatch) (payroll.PayrollBatch, error) {
	defer r.s.lockWrite(ctx)()
	if _, exists := r.s.data.batches[batch.ID]; exists {
		return payroll.PayrollBatch{}, fmt.Errorf("batch %s already exists", batch.ID)
	}
	now := r.s.Now()
	batch.CreatedAt, batch.UpdatedAt = now, now
	r.s.data.batches[batch.ID] = batch
	return batch, nil
}

func (r payrollRepo) GetBatchByID(_ context.Context, id string) (payroll.PayrollBatch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.data.batches[id]
	if !ok {
		return payroll.PayrollBatch{}, payroll.ErrBatchNotFound
	}
	return b, nil
}

func (r payrollRepo) ListBatches(_ context.Context, filter payroll.BatchFilter) ([]payroll.PayrollBatch, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []payroll.PayrollBatch
	for _, b := range r.s.data.batches {
		if filter.CompanyID != nil && b.CompanyID != *filter.CompanyID {
			continue
		}
		if filter.Status != nil && string(b.Status) != *filter.Status {
			continue
		}
		if filter.PayrollMonth != nil && b.PayrollMonth != *filter.PayrollMonth {
			continue
		}
		matched = append(matched, b)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return paginate(matched, filter.Page, filter.Limit), int64(len(matched)), nil
}

func (r payrollRepo) CompareAndSetStatus(ctx context.Context, id string, expected, next payroll.BatchStatus) error {
	defer r.s.lockWrite(ctx)()
	b, ok := r.s.data.batches[id]
	if !ok {
		return payroll.ErrBatchNotFound
	}
	if b.Status != expected {
		return fmt.Errorf("%w: expected %s, found %s", payroll.ErrInvalidBatchState, expected, b.Status)
	}
	b.Status = next
	b.UpdatedAt = r.s.Now()
	r.s.data.batches[id] = b
	return nil
}

func (r payrollRepo) UpdateBatch(ctx context.Context, batch payroll.PayrollBatch) error {
	defer r.s.lockWrite(ctx)()
	b, ok := r.s.data.batches[batch.ID]
	if !ok {
		return payroll.ErrBatchNotFound
	}
	b.Status = batch.Status
	b.ExecutedAmount = batch.ExecutedAmount
	b.ExecutedAt = batch.ExecutedAt
	b.UpdatedAt = r.s.Now()
	r.s.data.batches[batch.ID] = b
	return nil
}

func (r payrollRepo) AddExecutedAmount(ctx context.Context, id string, amount money.Amount) error {
	defer r.s.lockWrite(ctx)()
	b, ok := r.s.data.batches[id]
	if !ok {
		return payroll.ErrBatchNotFound
	}
	b.ExecutedAmount += amount
	b.UpdatedAt = r.s.Now()
	r.s.data.batches[id] = b
	return nil
}

// ========== ITEMS ==========

func (r payrollRepo) CreateItems(ctx context.Context, items []payroll.PayrollItem) error {
	defer r.s.lockWrite(ctx)()
	now := r.s.Now()
	for _, item := range items {
		if _, exists := r.s.data.items[item.ID]; exists {
			return fmt.Errorf("item %s already exists", item.ID)
		}
		item.CreatedAt, item.UpdatedAt = now, now
		r.s.data.items[item.ID] = item
	}
	return nil
}

// withEmployee fills the joined employee fields. Caller holds mu.
func (r payrollRepo) withEmployee(item payroll.PayrollItem) payroll.PayrollItem {
	if e, ok := r.s.data.employees[item.EmployeeID]; ok {
		code, name := e.EmployeeCode, e.FullName
		item.EmployeeCode, item.EmployeeName = &code, &name
	}
	return item
}

func (r payrollRepo) GetItemByID(_ context.Context, id string) (payroll.PayrollItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.data.items[id]
	if !ok {
		return payroll.PayrollItem{}, payroll.ErrItemNotFound
	}
	return r.withEmployee(item), nil
}

func (r payrollRepo) ListItemsByBatch(ctx context.Context, batchID string) ([]payroll.PayrollItem, error) {
	items, _, err := r.ListItemsByBatchPaged(ctx, batchID, payroll.ItemFilter{})
	return items, err
}

func (r payrollRepo) ListItemsByBatchPaged(_ context.Context, batchID string, filter payroll.ItemFilter) ([]payroll.PayrollItem, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []payroll.PayrollItem
	for _, item := range r.s.data.items {
		if item.BatchID != batchID {
			continue
		}
		if filter.Status != nil && string(item.Status) != *filter.Status {
			continue
		}
		matched = append(matched, r.withEmployee(item))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Position < matched[j].Position })
	return paginate(matched, filter.Page, filter.Limit), int64(len(matched)), nil
}

func (r payrollRepo) UpdateItem(ctx context.Context, item payroll.PayrollItem, expected payroll.ItemStatus) error {
	if r.s.ItemUpdateHook != nil {
		if err := r.s.ItemUpdateHook(item); err != nil {
			return err
		}
	}
	defer r.s.lockWrite(ctx)()
	stored, ok := r.s.data.items[item.ID]
	if !ok {
		return payroll.ErrItemNotFound
	}
	if stored.Status != expected {
		return fmt.Errorf("%w: expected %s, found %s", payroll.ErrInvalidItemState, expected, stored.Status)
	}
	stored.Status = item.Status
	stored.FailureReason = item.FailureReason
	stored.TransactionID = item.TransactionID
	stored.ExecutedAt = item.ExecutedAt
	stored.UpdatedAt = r.s.Now()
	r.s.data.items[item.ID] = stored
	return nil
}

func (r payrollRepo) CountItemsByStatus(_ context.Context, batchID string) (map[payroll.ItemStatus]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := make(map[payroll.ItemStatus]int)
	for _, item := range r.s.data.items {
		if item.BatchID == batchID {
			counts[item.Status]++
		}
	}
	return counts, nil
}
