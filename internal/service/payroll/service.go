package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/company"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/master/grade"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/cmlabs-hris/payroll-ledger-go/internal/service/payroll"

type PayrollServiceImpl struct {
	txManager     database.TxManager
	payrollRepo   payroll.PayrollRepository
	companyRepo   company.CompanyRepository
	employeeRepo  employee.EmployeeRepository
	gradeRepo     grade.GradeRepository
	accountRepo   ledger.AccountRepository
	ledgerService ledger.LedgerService
	calculator    *SalaryCalculator
	now           func() time.Time
	tracer        trace.Tracer
}

func NewPayrollService(
	txManager database.TxManager,
	payrollRepo payroll.PayrollRepository,
	companyRepo company.CompanyRepository,
	employeeRepo employee.EmployeeRepository,
	gradeRepo grade.GradeRepository,
	accountRepo ledger.AccountRepository,
	ledgerService ledger.LedgerService,
	calculator *SalaryCalculator,
) payroll.PayrollService {
	return &PayrollServiceImpl{
		txManager:     txManager,
		payrollRepo:   payrollRepo,
		companyRepo:   companyRepo,
		employeeRepo:  employeeRepo,
		gradeRepo:     gradeRepo,
		accountRepo:   accountRepo,
		ledgerService: ledgerService,
		calculator:    calculator,
		now:           func() time.Time { return time.Now().UTC() },
		tracer:        otel.Tracer(tracerName),
	}
}

// loadBatch hides batches of other companies behind ErrBatchNotFound.
func (s *PayrollServiceImpl) loadBatch(ctx context.Context, batchID string) (payroll.PayrollBatch, error) {
	batch, err := s.payrollRepo.GetBatchByID(ctx, batchID)
	if err != nil {
		return payroll.PayrollBatch{}, err
	}
	if companyID, ok := jwt.CompanyIDFromContext(ctx); ok && batch.CompanyID != companyID {
		return payroll.PayrollBatch{}, payroll.ErrBatchNotFound
	}
	return batch, nil
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	return id.String(), nil
}

// ========== CALCULATION ==========

// calculateForCompany computes one breakdown per active employee, ordered by grade rank then code.
func (s *PayrollServiceImpl) calculateForCompany(ctx context.Context, companyID string) ([]payroll.SalaryBreakdown, error) {
	var (
		formula   payroll.SalaryFormula
		employees []employee.Employee
		grades    []grade.Grade
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		formula, err = s.payrollRepo.GetFormulaByCompanyID(gctx, companyID)
		return err
	})
	g.Go(func() error {
		var err error
		employees, err = s.employeeRepo.GetActiveByCompanyIDOrderedByGrade(gctx, companyID)
		return err
	})
	g.Go(func() error {
		var err error
		grades, err = s.gradeRepo.GetByCompanyID(gctx, companyID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lookup := grade.NewLookup(grades)
	breakdowns := make([]payroll.SalaryBreakdown, 0, len(employees))
	for i := range employees {
		emp := employees[i]
		gr, ok := lookup.Get(emp.GradeID)
		if !ok {
			return nil, fmt.Errorf("%w: grade %s of employee %s", grade.ErrGradeNotFound, emp.GradeID, emp.EmployeeCode)
		}
		b, err := s.calculator.Calculate(&emp, &gr, &formula)
		if err != nil {
			return nil, err
		}
		breakdowns = append(breakdowns, b)
	}

	return breakdowns, nil
}

func (s *PayrollServiceImpl) CalculateSalaries(ctx context.Context, batchID string) ([]payroll.SalaryBreakdownResponse, error) {
	batch, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	breakdowns, err := s.calculateForCompany(ctx, batch.CompanyID)
	if err != nil {
		return nil, err
	}

	resp := make([]payroll.SalaryBreakdownResponse, 0, len(breakdowns))
	for _, b := range breakdowns {
		resp = append(resp, payroll.NewSalaryBreakdownResponse(b))
	}
	return resp, nil
}

// ========== BATCH LIFECYCLE ==========

func (s *PayrollServiceImpl) CreateBatch(ctx context.Context, req payroll.CreateBatchRequest) (payroll.BatchResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.BatchResponse{}, err
	}
	if companyID, ok := jwt.CompanyIDFromContext(ctx); ok && req.CompanyID != companyID {
		return payroll.BatchResponse{}, company.ErrCompanyNotFound
	}

	comp, err := s.companyRepo.GetByID(ctx, req.CompanyID)
	if err != nil {
		return payroll.BatchResponse{}, err
	}

	funding, err := s.accountRepo.GetByID(ctx, req.FundingAccountID)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return payroll.BatchResponse{}, payroll.ErrFundingAccountNotFound
		}
		return payroll.BatchResponse{}, err
	}
	if !funding.Is(ledger.OwnerTypeCompany, ledger.AccountTypeCurrent) || funding.OwnerID != comp.ID {
		return payroll.BatchResponse{}, payroll.ErrInvalidFundingAccount
	}

	breakdowns, err := s.calculateForCompany(ctx, comp.ID)
	if err != nil {
		return payroll.BatchResponse{}, err
	}
	if len(breakdowns) == 0 {
		return payroll.BatchResponse{}, payroll.ErrNoEmployees
	}

	batchID, err := newID()
	if err != nil {
		return payroll.BatchResponse{}, err
	}

	items := make([]payroll.PayrollItem, 0, len(breakdowns))
	for i, b := range breakdowns {
		itemID, err := newID()
		if err != nil {
			return payroll.BatchResponse{}, err
		}
		items = append(items, payroll.NewPayrollItem(itemID, batchID, i+1, b))
	}

	batch := payroll.PayrollBatch{
		ID:               batchID,
		Name:             req.Name,
		Description:      req.Description,
		PayrollMonth:     req.PayrollMonth,
		CompanyID:        comp.ID,
		FundingAccountID: funding.ID,
		Status:           payroll.BatchStatusPending,
		TotalAmount:      payroll.TotalAmount(items),
	}

	var created payroll.PayrollBatch
	err = s.txManager.WithinTx(ctx, pgx.TxOptions{}, func(ctx context.Context) error {
		var err error
		created, err = s.payrollRepo.CreateBatch(ctx, batch)
		if err != nil {
			return err
		}
		return s.payrollRepo.CreateItems(ctx, items)
	})
	if err != nil {
		return payroll.BatchResponse{}, err
	}

	slog.InfoContext(ctx, "payroll batch created",
		"batch_id", created.ID,
		"company_id", created.CompanyID,
		"payroll_month", created.PayrollMonth,
		"items", len(items),
		"total_amount", created.TotalAmount.String(),
	)

	return payroll.NewBatchResponse(created), nil
}

// Process pays every item of a PENDING batch from its funding account.
// Business failures are recorded on the item and the loop continues. Store
// failures abort the run and leave the batch PROCESSING.
func (s *PayrollServiceImpl) Process(ctx context.Context, batchID string) (payroll.PayrollResult, error) {
	ctx, span := s.tracer.Start(ctx, "payroll.Process", trace.WithAttributes(
		attribute.String("payroll.batch_id", batchID),
	))
	defer span.End()

	result, err := s.process(ctx, batchID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return payroll.PayrollResult{}, err
	}

	span.SetAttributes(
		attribute.String("payroll.batch_status", result.BatchStatus),
		attribute.Int("payroll.successful_payments", result.SuccessfulPayments),
		attribute.Int("payroll.failed_payments", result.FailedPayments),
	)
	return result, nil
}

func (s *PayrollServiceImpl) process(ctx context.Context, batchID string) (payroll.PayrollResult, error) {
	batch, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return payroll.PayrollResult{}, err
	}
	if batch.Status != payroll.BatchStatusPending {
		return payroll.PayrollResult{}, fmt.Errorf("%w: batch %s is %s", payroll.ErrInvalidBatchState, batch.ID, batch.Status)
	}

	var (
		funding ledger.Account
		items   []payroll.PayrollItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		funding, err = s.accountRepo.GetByID(gctx, batch.FundingAccountID)
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return payroll.ErrFundingAccountNotFound
		}
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.payrollRepo.ListItemsByBatch(gctx, batch.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return payroll.PayrollResult{}, err
	}

	totalAmount := payroll.TotalAmount(items)
	if !funding.Covers(totalAmount) {
		if err := s.payrollRepo.CompareAndSetStatus(ctx, batch.ID, payroll.BatchStatusPending, payroll.BatchStatusFailed); err != nil {
			return payroll.PayrollResult{}, err
		}
		slog.WarnContext(ctx, "payroll batch rejected for insufficient funds",
			"batch_id", batch.ID,
			"balance", funding.CurrentBalance.String(),
			"total_amount", totalAmount.String(),
		)
		return payroll.PayrollResult{}, fmt.Errorf("%w: funding account %s holds %s, batch needs %s",
			ledger.ErrInsufficientFunds, funding.ID, funding.CurrentBalance, totalAmount)
	}

	if err := s.payrollRepo.CompareAndSetStatus(ctx, batch.ID, payroll.BatchStatusPending, payroll.BatchStatusProcessing); err != nil {
		return payroll.PayrollResult{}, err
	}
	batch.Status = payroll.BatchStatusProcessing

	result := payroll.PayrollResult{
		BatchID:        batch.ID,
		TotalAmount:    totalAmount,
		TotalEmployees: len(items),
		BalanceBefore:  funding.CurrentBalance,
		Items:          make([]payroll.ItemOutcome, 0, len(items)),
		ErrorMessages:  []string{},
	}

	for i := range items {
		item := &items[i]
		from := item.Status
		if err := item.MarkProcessing(); err != nil {
			return payroll.PayrollResult{}, err
		}
		if err := s.payrollRepo.UpdateItem(ctx, *item, from); err != nil {
			return payroll.PayrollResult{}, s.abort(ctx, batch, item, err)
		}

		paid, err := s.payItem(ctx, batch, item)
		if err != nil {
			return payroll.PayrollResult{}, s.abort(ctx, batch, item, err)
		}

		if paid {
			result.ProcessedAmount += item.Amount
			result.SuccessfulPayments++
		} else {
			result.FailedAmount += item.Amount
			result.FailedPayments++
			result.ErrorMessages = append(result.ErrorMessages, fmt.Sprintf("%s: %s", employeeLabel(item), *item.FailureReason))
		}
		result.Items = append(result.Items, newItemOutcome(*item))
	}

	finalStatus := payroll.FinalBatchStatus(result.SuccessfulPayments, result.FailedPayments)
	if err := batch.TransitionTo(finalStatus); err != nil {
		return payroll.PayrollResult{}, err
	}
	executedAt := s.now()
	batch.ExecutedAmount = result.ProcessedAmount
	batch.ExecutedAt = &executedAt
	if err := s.payrollRepo.UpdateBatch(ctx, batch); err != nil {
		return payroll.PayrollResult{}, s.abort(ctx, batch, nil, err)
	}

	balanceAfter, err := s.ledgerService.GetBalance(ctx, funding.ID)
	if err != nil {
		return payroll.PayrollResult{}, err
	}

	result.BatchStatus = string(finalStatus)
	result.BalanceAfter = balanceAfter
	result.Success = result.FailedPayments == 0
	result.Message = fmt.Sprintf("payroll %s: %d paid, %d failed", finalStatus, result.SuccessfulPayments, result.FailedPayments)

	slog.InfoContext(ctx, "payroll batch processed",
		"batch_id", batch.ID,
		"status", finalStatus,
		"paid", result.SuccessfulPayments,
		"failed", result.FailedPayments,
		"processed_amount", result.ProcessedAmount.String(),
	)

	return result, nil
}

// payItem runs the transfer for one PROCESSING item and settles the outcome.
// A PAID item and its share of the batch executed amount commit together.
// It returns an error only for failures that are not about this item.
func (s *PayrollServiceImpl) payItem(ctx context.Context, batch payroll.PayrollBatch, item *payroll.PayrollItem) (bool, error) {
	txnID, transferErr := s.transferItem(ctx, batch, item)
	if transferErr != nil && !ledger.IsBusinessError(transferErr) && !errors.Is(transferErr, employee.ErrEmployeeNotFound) {
		return false, transferErr
	}

	now := s.now()
	if transferErr != nil {
		if err := item.MarkFailed(now, transferErr.Error()); err != nil {
			return false, err
		}
	} else if err := item.MarkPaid(now, txnID); err != nil {
		return false, err
	}

	paid := transferErr == nil
	err := s.txManager.WithinTx(ctx, pgx.TxOptions{}, func(ctx context.Context) error {
		if err := s.payrollRepo.UpdateItem(ctx, *item, payroll.ItemStatusProcessing); err != nil {
			return err
		}
		if paid {
			return s.payrollRepo.AddExecutedAmount(ctx, batch.ID, item.Amount)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return paid, nil
}

func paymentReference(batchID, employeeCode string) string {
	return fmt.Sprintf("PAYROLL-%s-%s", batchID, employeeCode)
}

func (s *PayrollServiceImpl) transferItem(ctx context.Context, batch payroll.PayrollBatch, item *payroll.PayrollItem) (string, error) {
	emp, err := s.employeeRepo.GetByID(ctx, item.EmployeeID)
	if err != nil {
		return "", err
	}

	fundingID := batch.FundingAccountID
	reference := paymentReference(batch.ID, emp.EmployeeCode)
	txn, err := s.ledgerService.Transfer(ctx, ledger.TransferRequest{
		Intent:          ledger.IntentSalaryDisbursement,
		DebitAccountID:  &fundingID,
		CreditAccountID: emp.AccountID,
		Amount:          item.Amount,
		ReferenceID:     reference,
		Description:     fmt.Sprintf("Salary %s - %s", batch.PayrollMonth, batch.Name),
	})
	if errors.Is(err, ledger.ErrDuplicateReference) {
		return s.earlierPayment(ctx, reference, fundingID, emp.AccountID, item.Amount, err)
	}
	if err != nil {
		return "", err
	}
	return txn.ID, nil
}

// earlierPayment returns the transaction a previous attempt booked under
// reference, provided it pays amount from fundingID to accountID. Any other
// booking under the reference leaves cause as the item failure.
func (s *PayrollServiceImpl) earlierPayment(ctx context.Context, reference, fundingID, accountID string, amount money.Amount, cause error) (string, error) {
	txn, err := s.ledgerService.GetTransactionByReference(ctx, reference)
	if errors.Is(err, ledger.ErrTransactionNotFound) {
		return "", cause
	}
	if err != nil {
		return "", err
	}

	matches := txn.Status == string(ledger.TransactionStatusSuccess) &&
		txn.DebitAccountID != nil && *txn.DebitAccountID == fundingID &&
		txn.CreditAccountID == accountID &&
		txn.Amount == amount
	if !matches {
		return "", cause
	}

	slog.InfoContext(ctx, "payroll item already paid by an earlier attempt", "reference_id", reference, "transaction_id", txn.ID)
	return txn.ID, nil
}

// abort logs a run that stopped on a store failure. The batch stays PROCESSING.
func (s *PayrollServiceImpl) abort(ctx context.Context, batch payroll.PayrollBatch, item *payroll.PayrollItem, cause error) error {
	attrs := []any{"batch_id", batch.ID, "error", cause}
	if item != nil {
		attrs = append(attrs, "item_id", item.ID)
	}
	slog.ErrorContext(ctx, "payroll batch aborted, manual intervention required", attrs...)
	return fmt.Errorf("payroll batch %s aborted: %w", batch.ID, cause)
}

func employeeLabel(item *payroll.PayrollItem) string {
	if item.EmployeeCode != nil {
		return *item.EmployeeCode
	}
	return item.EmployeeID
}

func newItemOutcome(item payroll.PayrollItem) payroll.ItemOutcome {
	return payroll.ItemOutcome{
		ItemID:        item.ID,
		EmployeeID:    item.EmployeeID,
		EmployeeCode:  employeeLabel(&item),
		Amount:        item.Amount,
		Status:        string(item.Status),
		TransactionID: item.TransactionID,
		FailureReason: item.FailureReason,
	}
}

func (s *PayrollServiceImpl) CancelBatch(ctx context.Context, batchID string) (payroll.BatchResponse, error) {
	batch, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return payroll.BatchResponse{}, err
	}
	if !batch.Status.CanTransitionTo(payroll.BatchStatusCancelled) {
		return payroll.BatchResponse{}, fmt.Errorf("%w: batch %s is %s", payroll.ErrInvalidBatchState, batch.ID, batch.Status)
	}

	if err := s.payrollRepo.CompareAndSetStatus(ctx, batch.ID, batch.Status, payroll.BatchStatusCancelled); err != nil {
		return payroll.BatchResponse{}, err
	}
	batch.Status = payroll.BatchStatusCancelled

	slog.InfoContext(ctx, "payroll batch cancelled", "batch_id", batch.ID)
	return payroll.NewBatchResponse(batch), nil
}

// ========== ITEM RECOVERY ==========

// RetryItem moves a FAILED item back to PROCESSING. No money moves; see ReprocessItem.
func (s *PayrollServiceImpl) RetryItem(ctx context.Context, itemID string) (payroll.ItemResponse, error) {
	item, err := s.payrollRepo.GetItemByID(ctx, itemID)
	if err != nil {
		return payroll.ItemResponse{}, err
	}
	if _, err := s.loadBatch(ctx, item.BatchID); err != nil {
		if errors.Is(err, payroll.ErrBatchNotFound) {
			return payroll.ItemResponse{}, payroll.ErrItemNotFound
		}
		return payroll.ItemResponse{}, err
	}

	if err := item.ResetForRetry(); err != nil {
		return payroll.ItemResponse{}, err
	}
	if err := s.payrollRepo.UpdateItem(ctx, item, payroll.ItemStatusFailed); err != nil {
		return payroll.ItemResponse{}, err
	}

	slog.InfoContext(ctx, "payroll item reset for retry", "item_id", item.ID, "batch_id", item.BatchID)
	return payroll.NewItemResponse(item), nil
}

// ReprocessItem pays an item that RetryItem moved back to PROCESSING. The batch
// must have finished its run. A payment adds to the batch executed amount; the
// batch status itself stays terminal. Of two concurrent calls for one item only
// the first settles it; the other gets ErrInvalidItemState.
func (s *PayrollServiceImpl) ReprocessItem(ctx context.Context, itemID string) (payroll.ItemResponse, error) {
	ctx, span := s.tracer.Start(ctx, "payroll.ReprocessItem", trace.WithAttributes(
		attribute.String("payroll.item_id", itemID),
	))
	defer span.End()

	resp, err := s.reprocessItem(ctx, itemID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return payroll.ItemResponse{}, err
	}

	span.SetAttributes(attribute.String("payroll.item_status", resp.Status))
	return resp, nil
}

func (s *PayrollServiceImpl) reprocessItem(ctx context.Context, itemID string) (payroll.ItemResponse, error) {
	item, err := s.payrollRepo.GetItemByID(ctx, itemID)
	if err != nil {
		return payroll.ItemResponse{}, err
	}
	batch, err := s.loadBatch(ctx, item.BatchID)
	if err != nil {
		if errors.Is(err, payroll.ErrBatchNotFound) {
			return payroll.ItemResponse{}, payroll.ErrItemNotFound
		}
		return payroll.ItemResponse{}, err
	}

	if item.Status != payroll.ItemStatusProcessing {
		return payroll.ItemResponse{}, fmt.Errorf("%w: item %s is %s, retry it first", payroll.ErrInvalidItemState, item.ID, item.Status)
	}
	if batch.Status != payroll.BatchStatusPartiallyCompleted && batch.Status != payroll.BatchStatusFailed {
		return payroll.ItemResponse{}, fmt.Errorf("%w: batch %s is %s", payroll.ErrInvalidBatchState, batch.ID, batch.Status)
	}

	if _, err := s.payItem(ctx, batch, &item); err != nil {
		return payroll.ItemResponse{}, err
	}

	slog.InfoContext(ctx, "payroll item reprocessed", "item_id", item.ID, "batch_id", batch.ID, "status", item.Status)
	return payroll.NewItemResponse(item), nil
}

// ========== QUERIES ==========

func (s *PayrollServiceImpl) ListBatches(ctx context.Context, filter payroll.BatchFilter) (payroll.ListBatchResponse, error) {
	if err := filter.Validate(); err != nil {
		return payroll.ListBatchResponse{}, err
	}
	if companyID, ok := jwt.CompanyIDFromContext(ctx); ok {
		filter.CompanyID = &companyID
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	batches, total, err := s.payrollRepo.ListBatches(ctx, filter)
	if err != nil {
		return payroll.ListBatchResponse{}, err
	}

	data := make([]payroll.BatchResponse, 0, len(batches))
	for _, b := range batches {
		data = append(data, payroll.NewBatchResponse(b))
	}

	return payroll.ListBatchResponse{
		Data:       data,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

func (s *PayrollServiceImpl) GetBatch(ctx context.Context, batchID string) (payroll.BatchResponse, error) {
	batch, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return payroll.BatchResponse{}, err
	}
	return payroll.NewBatchResponse(batch), nil
}

func (s *PayrollServiceImpl) GetBatchItems(ctx context.Context, batchID string, filter payroll.ItemFilter) (payroll.ListItemResponse, error) {
	if err := filter.Validate(); err != nil {
		return payroll.ListItemResponse{}, err
	}
	if _, err := s.loadBatch(ctx, batchID); err != nil {
		return payroll.ListItemResponse{}, err
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	items, total, err := s.payrollRepo.ListItemsByBatchPaged(ctx, batchID, filter)
	if err != nil {
		return payroll.ListItemResponse{}, err
	}

	data := make([]payroll.ItemResponse, 0, len(items))
	for _, item := range items {
		data = append(data, payroll.NewItemResponse(item))
	}

	return payroll.ListItemResponse{
		Data:       data,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

func (s *PayrollServiceImpl) GetBatchSummary(ctx context.Context, batchID string) (payroll.BatchSummaryResponse, error) {
	var (
		batch  payroll.PayrollBatch
		counts map[payroll.ItemStatus]int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		batch, err = s.loadBatch(gctx, batchID)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.payrollRepo.CountItemsByStatus(gctx, batchID)
		return err
	})
	if err := g.Wait(); err != nil {
		return payroll.BatchSummaryResponse{}, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	return payroll.BatchSummaryResponse{
		Batch:             payroll.NewBatchResponse(batch),
		TotalItems:        total,
		PendingItems:      counts[payroll.ItemStatusPending],
		ProcessingItems:   counts[payroll.ItemStatusProcessing],
		PaidItems:         counts[payroll.ItemStatusPaid],
		FailedItems:       counts[payroll.ItemStatusFailed],
		PaidAmount:        batch.ExecutedAmount,
		OutstandingAmount: money.Sum(batch.TotalAmount, -batch.ExecutedAmount),
	}, nil
}
