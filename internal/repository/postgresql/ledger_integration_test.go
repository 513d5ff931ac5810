//go:build integration

package postgresql_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/repository/postgresql"
	ledgersvc "github.com/cmlabs-hris/payroll-ledger-go/internal/service/ledger"
	payrollsvc "github.com/cmlabs-hris/payroll-ledger-go/internal/service/payroll"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type services struct {
	accounts ledger.AccountRepository
	payroll  payroll.PayrollRepository
	ledger   ledger.LedgerService
	payrolls payroll.PayrollService
}

func newServices(db *database.DB) services {
	txManager := postgresql.NewTxManager(db)
	accountRepo := postgresql.NewAccountRepository(db)
	payrollRepo := postgresql.NewPayrollRepository(db)
	ledgerService := ledgersvc.NewLedgerService(txManager, accountRepo, postgresql.NewTransactionRepository(db), 5)

	return services{
		accounts: accountRepo,
		payroll:  payrollRepo,
		ledger:   ledgerService,
		payrolls: payrollsvc.NewPayrollService(
			txManager,
			payrollRepo,
			postgresql.NewCompanyRepository(db),
			postgresql.NewEmployeeRepository(db),
			postgresql.NewGradeRepository(db),
			accountRepo,
			ledgerService,
			payrollsvc.NewSalaryCalculator(money.FromMajor(30000)),
		),
	}
}

func balance(t *testing.T, svc services, accountID string) money.Amount {
	t.Helper()
	acct, err := svc.accounts.GetByID(context.Background(), accountID)
	require.NoError(t, err)
	return acct.CurrentBalance
}

// ===== LEDGER TESTS =====

func TestIntegration_Ledger_TopUpAndSalaryTransfer(t *testing.T) {
	db := newTestDatabase(t)
	svc := newServices(db)
	s := seedCompany(t, db, 0)
	ctx := context.Background()

	// Act
	topUp, err := svc.ledger.Transfer(ctx, ledger.TransferRequest{
		Intent:          ledger.IntentCompanyTopUp,
		CreditAccountID: s.FundingAccountID,
		Amount:          money.FromMajor(1000),
		ReferenceID:     "TOPUP-1",
	})
	require.NoError(t, err)

	funding := s.FundingAccountID
	salary, err := svc.ledger.Transfer(ctx, ledger.TransferRequest{
		DebitAccountID:  &funding,
		CreditAccountID: s.EmployeeAccounts["E001"],
		Amount:          money.FromMajor(400),
		ReferenceID:     "SAL-1",
	})
	require.NoError(t, err)

	// Assert
	assert.Equal(t, "SUCCESS", topUp.Status)
	assert.Nil(t, topUp.DebitAccountID)
	assert.Equal(t, "SALARY", salary.Type)
	assert.Equal(t, money.FromMajor(600), balance(t, svc, s.FundingAccountID))
	assert.Equal(t, money.FromMajor(400), balance(t, svc, s.EmployeeAccounts["E001"]))

	list, err := svc.ledger.ListAccountTransactions(ctx, s.FundingAccountID, ledger.TransactionFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.TotalCount)
}

func TestIntegration_Ledger_DuplicateReferenceLeavesBalancesAlone(t *testing.T) {
	db := newTestDatabase(t)
	svc := newServices(db)
	s := seedCompany(t, db, 100000)
	ctx := context.Background()
	funding := s.FundingAccountID
	req := ledger.TransferRequest{
		Intent:          ledger.IntentSalaryDisbursement,
		DebitAccountID:  &funding,
		CreditAccountID: s.EmployeeAccounts["E002"],
		Amount:          money.FromMajor(100),
		ReferenceID:     "PAYROLL-dup",
	}

	_, err := svc.ledger.Transfer(ctx, req)
	require.NoError(t, err)

	// Act
	_, err = svc.ledger.Transfer(ctx, req)

	// Assert
	assert.ErrorIs(t, err, ledger.ErrDuplicateReference)
	assert.Equal(t, money.FromMajor(900), balance(t, svc, s.FundingAccountID))
	assert.Equal(t, money.FromMajor(100), balance(t, svc, s.EmployeeAccounts["E002"]))
}

func TestIntegration_Ledger_InsufficientFundsPersistsNothing(t *testing.T) {
	db := newTestDatabase(t)
	svc := newServices(db)
	s := seedCompany(t, db, 5000)
	funding := s.FundingAccountID

	_, err := svc.ledger.Transfer(context.Background(), ledger.TransferRequest{
		Intent:          ledger.IntentSalaryDisbursement,
		DebitAccountID:  &funding,
		CreditAccountID: s.EmployeeAccounts["E001"],
		Amount:          money.FromMajor(51),
		ReferenceID:     "SAL-short",
	})

	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Equal(t, money.FromMajor(50), balance(t, svc, s.FundingAccountID))

	var count int
	require.NoError(t, db.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM transactions WHERE reference_id = 'SAL-short'`).Scan(&count))
	assert.Zero(t, count)
}

func TestIntegration_Ledger_ReverseOnlyOnce(t *testing.T) {
	db := newTestDatabase(t)
	svc := newServices(db)
	s := seedCompany(t, db, 100000)
	ctx := context.Background()
	funding := s.FundingAccountID

	original, err := svc.ledger.Transfer(ctx, ledger.TransferRequest{
		Intent:          ledger.IntentSalaryDisbursement,
		DebitAccountID:  &funding,
		CreditAccountID: s.EmployeeAccounts["E003"],
		Amount:          money.FromMajor(250),
		ReferenceID:     "SAL-rev",
	})
	require.NoError(t, err)

	// Act
	reversal, err := svc.ledger.Reverse(ctx, original.ID, "paid twice")
	require.NoError(t, err)
	_, again := svc.ledger.Reverse(ctx, original.ID, "paid twice")

	// Assert
	require.NotNil(t, reversal.ReversalOf)
	assert.Equal(t, original.ID, *reversal.ReversalOf)
	assert.Equal(t, ledger.ReversalReferencePrefix+"SAL-rev", reversal.ReferenceID)
	assert.ErrorIs(t, again, ledger.ErrAlreadyReversed)
	assert.Equal(t, money.FromMajor(1000), balance(t, svc, s.FundingAccountID))
	assert.Equal(t, money.Zero, balance(t, svc, s.EmployeeAccounts["E003"]))
}

func TestIntegration_Ledger_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	db := newTestDatabase(t)
	svc := newServices(db)
	s := seedCompany(t, db, 50000)
	funding := s.FundingAccountID
	const workers = 8

	var (
		wg                             sync.WaitGroup
		mu                             sync.Mutex
		succeeded, rejected, conflicts int
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ledger.Transfer(context.Background(), ledger.TransferRequest{
				Intent:          ledger.IntentSalaryDisbursement,
				DebitAccountID:  &funding,
				CreditAccountID: s.EmployeeAccounts["E001"],
				Amount:          money.FromMajor(100),
				ReferenceID:     fmt.Sprintf("SAL-race-%d", i),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ledger.ErrInsufficientFunds):
				rejected++
			case errors.Is(err, ledger.ErrConcurrentUpdate):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, succeeded+rejected+conflicts)
	assert.LessOrEqual(t, succeeded, 5)
	assert.Equal(t, money.FromMajor(500-100*int64(succeeded)), balance(t, svc, s.FundingAccountID))
	assert.Equal(t, money.FromMajor(100*int64(succeeded)), balance(t, svc, s.EmployeeAccounts["E001"]))
}

// ===== PAYROLL TESTS =====

func TestIntegration_Payroll_CreateAndProcess(t *testing.T) {
	db := newTestDatabase(t)
	svc := newServices(db)
	s := seedCompany(t, db, 100000000)
	ctx := context.Background()

	batch, err := svc.payrolls.CreateBatch(ctx, payroll.CreateBatchRequest{
		Name:             "January payroll",
		PayrollMonth:     "2025-01",
		CompanyID:        s.CompanyID,
		FundingAccountID: s.FundingAccountID,
	})
	require.NoError(t, err)

	// Act
	result, err := svc.payrolls.Process(ctx, batch.ID)

	// Assert
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, string(payroll.BatchStatusCompleted), result.BatchStatus)
	assert.Equal(t, 3, result.SuccessfulPayments)
	assert.Equal(t, batch.TotalAmount, result.ProcessedAmount)

	var paid money.Amount
	for _, code := range []string{"E001", "E002", "E003"} {
		paid += balance(t, svc, s.EmployeeAccounts[code])
	}
	assert.Equal(t, batch.TotalAmount, paid)
	assert.Equal(t, money.FromMajor(1000000)-batch.TotalAmount, balance(t, svc, s.FundingAccountID))

	stored, err := svc.payroll.GetBatchByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.BatchStatusCompleted, stored.Status)
	assert.Equal(t, batch.TotalAmount, stored.ExecutedAmount)
	assert.NotNil(t, stored.ExecutedAt)

	counts, err := svc.payroll.CountItemsByStatus(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, counts[payroll.ItemStatusPaid])

	_, err = svc.payrolls.Process(ctx, batch.ID)
	assert.ErrorIs(t, err, payroll.ErrInvalidBatchState)
}

func TestIntegration_Payroll_CompareAndSetStatus(t *testing.T) {
	db := newTestDatabase(t)
	svc := newServices(db)
	s := seedCompany(t, db, 100000000)
	ctx := context.Background()

	batch, err := svc.payroll.CreateBatch(ctx, payroll.PayrollBatch{
		ID:               uuid.NewString(),
		Name:             "CAS",
		PayrollMonth:     "2025-02",
		CompanyID:        s.CompanyID,
		FundingAccountID: s.FundingAccountID,
		Status:           payroll.BatchStatusPending,
		TotalAmount:      money.FromMajor(10),
	})
	require.NoError(t, err)

	// Act
	first := svc.payroll.CompareAndSetStatus(ctx, batch.ID, payroll.BatchStatusPending, payroll.BatchStatusProcessing)
	second := svc.payroll.CompareAndSetStatus(ctx, batch.ID, payroll.BatchStatusPending, payroll.BatchStatusProcessing)
	missing := svc.payroll.CompareAndSetStatus(ctx, uuid.NewString(), payroll.BatchStatusPending, payroll.BatchStatusProcessing)

	// Assert
	assert.NoError(t, first)
	assert.ErrorIs(t, second, payroll.ErrInvalidBatchState)
	assert.ErrorIs(t, missing, payroll.ErrBatchNotFound)
}

func TestIntegration_Payroll_UpdateItemComparesStatus(t *testing.T) {
	db := newTestDatabase(t)
	svc := newServices(db)
	s := seedCompany(t, db, 100000000)
	ctx := context.Background()

	batch, err := svc.payrolls.CreateBatch(ctx, payroll.CreateBatchRequest{
		Name:             "Item CAS",
		PayrollMonth:     "2025-03",
		CompanyID:        s.CompanyID,
		FundingAccountID: s.FundingAccountID,
	})
	require.NoError(t, err)
	items, err := svc.payroll.ListItemsByBatch(ctx, batch.ID)
	require.NoError(t, err)
	require.NotEmpty(t, items)
	item := items[0]
	item.Status = payroll.ItemStatusProcessing

	// Act
	first := svc.payroll.UpdateItem(ctx, item, payroll.ItemStatusPending)
	second := svc.payroll.UpdateItem(ctx, item, payroll.ItemStatusPending)

	// Assert
	assert.NoError(t, first)
	assert.ErrorIs(t, second, payroll.ErrInvalidItemState)
	stored, err := svc.payroll.GetItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.ItemStatusProcessing, stored.Status)
}

func TestIntegration_Ledger_BelongsToCompany(t *testing.T) {
	db := newTestDatabase(t)
	svc := newServices(db)
	own := seedCompany(t, db, 100000000)
	other := seedCompany(t, db, 100000000)
	ctx := context.Background()

	tests := []struct {
		name      string
		accountID string
		want      bool
	}{
		{"company account", own.FundingAccountID, true},
		{"employee account", own.EmployeeAccounts["E002"], true},
		{"other company account", other.FundingAccountID, false},
		{"other company employee", other.EmployeeAccounts["E002"], false},
		{"unknown account", uuid.NewString(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.accounts.BelongsToCompany(ctx, tt.accountID, own.CompanyID)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntegration_Payroll_ListBatchesFilters(t *testing.T) {
	db := newTestDatabase(t)
	svc := newServices(db)
	s := seedCompany(t, db, 100000000)
	ctx := context.Background()

	for _, month := range []string{"2025-01", "2025-02", "2025-02"} {
		_, err := svc.payrolls.CreateBatch(ctx, payroll.CreateBatchRequest{
			Name:             "Payroll " + month,
			PayrollMonth:     month,
			CompanyID:        s.CompanyID,
			FundingAccountID: s.FundingAccountID,
		})
		require.NoError(t, err)
	}
	month := "2025-02"

	result, err := svc.payrolls.ListBatches(ctx, payroll.BatchFilter{
		CompanyID:    &s.CompanyID,
		PayrollMonth: &month,
		Page:         1,
		Limit:        1,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalCount)
	assert.Len(t, result.Data, 1)
}
