package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
	"github.com/jackc/pgx/v5"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

// ========== FORMULA ==========

func (r *payrollRepository) GetFormulaByCompanyID(ctx context.Context, companyID string) (payroll.SalaryFormula, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, base_salary_grade, reference_base_salary, hra_percentage,
			   medical_percentage, grade_increment_amount, created_at, updated_at
		FROM salary_formulas
		WHERE company_id = $1
	`

	var f payroll.SalaryFormula
	err := q.QueryRow(ctx, query, companyID).Scan(
		&f.ID, &f.CompanyID, &f.BaseSalaryGrade, &f.ReferenceBaseSalary, &f.HRAPercentage,
		&f.MedicalPercentage, &f.GradeIncrementAmount, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.SalaryFormula{}, payroll.ErrFormulaNotFound
		}
		return payroll.SalaryFormula{}, fmt.Errorf("failed to get salary formula: %w", err)
	}

	return f, nil
}

// ========== BATCHES ==========

const batchColumns = `id, name, description, payroll_month, company_id, funding_account_id, status,
	total_amount, executed_amount, executed_at, created_at, updated_at`

func scanBatch(row pgx.Row) (payroll.PayrollBatch, error) {
	var b payroll.PayrollBatch
	err := row.Scan(
		&b.ID, &b.Name, &b.Description, &b.PayrollMonth, &b.CompanyID, &b.FundingAccountID, &b.Status,
		&b.TotalAmount, &b.ExecutedAmount, &b.ExecutedAt, &b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

func (r *payrollRepository) CreateBatch(ctx context.Context, batch payroll.PayrollBatch) (payroll.PayrollBatch, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_batches (id, name, description, payroll_month, company_id, funding_account_id,
			status, total_amount, executed_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + batchColumns

	b, err := scanBatch(q.QueryRow(ctx, query,
		batch.ID, batch.Name, batch.Description, batch.PayrollMonth, batch.CompanyID, batch.FundingAccountID,
		batch.Status, int64(batch.TotalAmount), int64(batch.ExecutedAmount),
	))
	if err != nil {
		return payroll.PayrollBatch{}, fmt.Errorf("failed to create payroll batch: %w", err)
	}

	return b, nil
}

func (r *payrollRepository) GetBatchByID(ctx context.Context, id string) (payroll.PayrollBatch, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + batchColumns + ` FROM payroll_batches WHERE id = $1`

	b, err := scanBatch(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollBatch{}, payroll.ErrBatchNotFound
		}
		return payroll.PayrollBatch{}, fmt.Errorf("failed to get payroll batch: %w", err)
	}

	return b, nil
}

func (r *payrollRepository) ListBatches(ctx context.Context, filter payroll.BatchFilter) ([]payroll.PayrollBatch, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseQuery := `
		FROM payroll_batches
		WHERE 1 = 1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.CompanyID != nil {
		baseQuery += fmt.Sprintf(" AND company_id = $%d", argIdx)
		args = append(args, *filter.CompanyID)
		argIdx++
	}
	if filter.Status != nil {
		baseQuery += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.PayrollMonth != nil {
		baseQuery += fmt.Sprintf(" AND payroll_month = $%d", argIdx)
		args = append(args, *filter.PayrollMonth)
		argIdx++
	}

	// Count query
	var totalCount int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll batches: %w", err)
	}

	// Sort
	sortColumn := "created_at"
	if filter.SortBy != "" {
		allowedColumns := map[string]string{
			"created_at":    "created_at",
			"payroll_month": "payroll_month",
			"total_amount":  "total_amount",
			"name":          "name",
		}
		if col, ok := allowedColumns[filter.SortBy]; ok {
			sortColumn = col
		}
	}
	sortOrder := "DESC"
	if filter.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	// Pagination
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.Limit

	selectQuery := fmt.Sprintf(`
		SELECT %s
		%s
		ORDER BY %s %s, id %s
		LIMIT $%d OFFSET $%d
	`, batchColumns, baseQuery, sortColumn, sortOrder, sortOrder, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll batches: %w", err)
	}
	defer rows.Close()

	var batches []payroll.PayrollBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payroll batch: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate payroll batches: %w", err)
	}

	return batches, totalCount, nil
}

func (r *payrollRepository) CompareAndSetStatus(ctx context.Context, id string, expected, next payroll.BatchStatus) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_batches
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING id
	`

	var updatedID string
	err := q.QueryRow(ctx, query, id, expected, next).Scan(&updatedID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to update payroll batch status: %w", err)
	}

	current, err := r.GetBatchByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: expected %s, found %s", payroll.ErrInvalidBatchState, expected, current.Status)
}

func (r *payrollRepository) UpdateBatch(ctx context.Context, batch payroll.PayrollBatch) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_batches
		SET status = $2, executed_amount = $3, executed_at = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`

	var updatedID string
	err := q.QueryRow(ctx, query, batch.ID, batch.Status, int64(batch.ExecutedAmount), batch.ExecutedAt).Scan(&updatedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.ErrBatchNotFound
		}
		return fmt.Errorf("failed to update payroll batch: %w", err)
	}

	return nil
}

func (r *payrollRepository) AddExecutedAmount(ctx context.Context, id string, amount money.Amount) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_batches
		SET executed_amount = executed_amount + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`

	var updatedID string
	err := q.QueryRow(ctx, query, id, int64(amount)).Scan(&updatedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.ErrBatchNotFound
		}
		return fmt.Errorf("failed to add executed amount: %w", err)
	}

	return nil
}

// ========== ITEMS ==========

const itemColumns = `i.id, i.batch_id, i.employee_id, i.position, i.basic, i.hra, i.medical_allowance, i.gross,
	i.amount, i.status, i.failure_reason, i.transaction_id, i.executed_at, i.created_at, i.updated_at,
	e.employee_code, e.full_name`

func scanItem(row pgx.Row) (payroll.PayrollItem, error) {
	var i payroll.PayrollItem
	err := row.Scan(
		&i.ID, &i.BatchID, &i.EmployeeID, &i.Position, &i.Basic, &i.HRA, &i.MedicalAllowance, &i.Gross,
		&i.Amount, &i.Status, &i.FailureReason, &i.TransactionID, &i.ExecutedAt, &i.CreatedAt, &i.UpdatedAt,
		&i.EmployeeCode, &i.EmployeeName,
	)
	return i, err
}

func (r *payrollRepository) CreateItems(ctx context.Context, items []payroll.PayrollItem) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_items (id, batch_id, employee_id, position, basic, hra, medical_allowance,
			gross, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			item.ID, item.BatchID, item.EmployeeID, item.Position, int64(item.Basic), int64(item.HRA),
			int64(item.MedicalAllowance), int64(item.Gross), int64(item.Amount), item.Status,
		)
	}

	results := q.SendBatch(ctx, batch)
	for range items {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to create payroll item: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to create payroll items: %w", err)
	}

	return nil
}

func (r *payrollRepository) GetItemByID(ctx context.Context, id string) (payroll.PayrollItem, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + itemColumns + `
		FROM payroll_items i
		JOIN employees e ON e.id = i.employee_id
		WHERE i.id = $1
	`

	item, err := scanItem(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollItem{}, payroll.ErrItemNotFound
		}
		return payroll.PayrollItem{}, fmt.Errorf("failed to get payroll item: %w", err)
	}

	return item, nil
}

func (r *payrollRepository) ListItemsByBatch(ctx context.Context, batchID string) ([]payroll.PayrollItem, error) {
	items, _, err := r.listItems(ctx, batchID, nil, 0, 0)
	return items, err
}

func (r *payrollRepository) ListItemsByBatchPaged(ctx context.Context, batchID string, filter payroll.ItemFilter) ([]payroll.PayrollItem, int64, error) {
	// Pagination
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	return r.listItems(ctx, batchID, filter.Status, filter.Limit, (filter.Page-1)*filter.Limit)
}

// listItems returns items in Position order. A zero limit returns every row.
func (r *payrollRepository) listItems(ctx context.Context, batchID string, status *string, limit, offset int) ([]payroll.PayrollItem, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseQuery := `
		FROM payroll_items i
		JOIN employees e ON e.id = i.employee_id
		WHERE i.batch_id = $1
	`
	args := []interface{}{batchID}
	argIdx := 2

	if status != nil {
		baseQuery += fmt.Sprintf(" AND i.status = $%d", argIdx)
		args = append(args, *status)
		argIdx++
	}

	var totalCount int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll items: %w", err)
	}

	selectQuery := "SELECT " + itemColumns + baseQuery + " ORDER BY i.position ASC"
	if limit > 0 {
		selectQuery += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		args = append(args, limit, offset)
	}

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll items: %w", err)
	}
	defer rows.Close()

	var items []payroll.PayrollItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payroll item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate payroll items: %w", err)
	}

	return items, totalCount, nil
}

func (r *payrollRepository) UpdateItem(ctx context.Context, item payroll.PayrollItem, expected payroll.ItemStatus) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_items
		SET status = $3, failure_reason = $4, transaction_id = $5, executed_at = $6, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING id
	`

	var updatedID string
	err := q.QueryRow(ctx, query, item.ID, expected, item.Status, item.FailureReason, item.TransactionID, item.ExecutedAt).Scan(&updatedID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to update payroll item: %w", err)
	}

	current, err := r.GetItemByID(ctx, item.ID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: expected %s, found %s", payroll.ErrInvalidItemState, expected, current.Status)
}

func (r *payrollRepository) CountItemsByStatus(ctx context.Context, batchID string) (map[payroll.ItemStatus]int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT status, COUNT(*)
		FROM payroll_items
		WHERE batch_id = $1
		GROUP BY status
	`

	rows, err := q.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to count payroll items by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[payroll.ItemStatus]int)
	for rows.Next() {
		var status payroll.ItemStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan payroll item count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payroll item counts: %w", err)
	}

	return counts, nil
}
