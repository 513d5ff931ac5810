package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/testutil/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	companyAccountID  = "0190a000-0000-7000-8000-000000000001"
	employeeAccountID = "0190a000-0000-7000-8000-000000000002"
	otherEmployeeID   = "0190a000-0000-7000-8000-000000000003"
)

func newTestLedger(t *testing.T) (*memstore.Store, *LedgerServiceImpl) {
	t.Helper()
	store := memstore.New()
	store.PutAccount(*companyCurrent(companyAccountID, money.FromMajor(1000000)))
	store.PutAccount(*employeeSavings(employeeAccountID, 0))
	store.PutAccount(*employeeSavings(otherEmployeeID, money.FromMajor(100)))

	svc := NewLedgerService(store.TxManager(), store.AccountRepo(), store.TransactionRepo(), 2).(*LedgerServiceImpl)
	svc.retryBackoff = 0
	return store, svc
}

func strPtr(s string) *string { return &s }

// ===== TRANSFER TESTS =====

func TestLedgerService_Transfer_ConservesMoney(t *testing.T) {
	ctx := context.Background()
	store, svc := newTestLedger(t)

	// Act
	resp, err := svc.Transfer(ctx, ledger.TransferRequest{
		Intent:          ledger.IntentSalaryDisbursement,
		DebitAccountID:  strPtr(companyAccountID),
		CreditAccountID: employeeAccountID,
		Amount:          money.FromMajor(40500),
		ReferenceID:     "PAYROLL-b1-E001",
		Description:     "January salary",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, string(ledger.TransactionStatusSuccess), resp.Status)
	assert.Equal(t, string(ledger.TransactionTypeSalary), resp.Type)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, money.FromMajor(1000000-40500), store.Account(companyAccountID).CurrentBalance)
	assert.Equal(t, money.FromMajor(40500), store.Account(employeeAccountID).CurrentBalance)
	assert.Len(t, store.AllTransactions(), 1)
}

func TestLedgerService_Transfer_InsufficientFundsPersistsNothing(t *testing.T) {
	ctx := context.Background()
	store, svc := newTestLedger(t)

	_, err := svc.Transfer(ctx, ledger.TransferRequest{
		DebitAccountID:  strPtr(otherEmployeeID),
		CreditAccountID: employeeAccountID,
		Amount:          money.FromMajor(101),
		ReferenceID:     "T-1",
		Intent:          ledger.IntentGeneralTransfer,
	})

	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Equal(t, money.FromMajor(100), store.Account(otherEmployeeID).CurrentBalance)
	assert.Equal(t, money.Zero, store.Account(employeeAccountID).CurrentBalance)
	assert.Empty(t, store.AllTransactions())
}

func TestLedgerService_Transfer_AutoIntentWithoutMatch(t *testing.T) {
	ctx := context.Background()
	_, svc := newTestLedger(t)

	_, err := svc.Transfer(ctx, ledger.TransferRequest{
		DebitAccountID:  strPtr(otherEmployeeID),
		CreditAccountID: employeeAccountID,
		Amount:          money.FromMajor(101),
		ReferenceID:     "T-1",
	})

	assert.ErrorIs(t, err, ledger.ErrNoApplicableStrategy)
}

func TestLedgerService_Transfer_TopUp(t *testing.T) {
	ctx := context.Background()
	store, svc := newTestLedger(t)

	resp, err := svc.Transfer(ctx, ledger.TransferRequest{
		CreditAccountID: companyAccountID,
		Amount:          money.FromMajor(500),
		ReferenceID:     "TOPUP-1",
	})

	require.NoError(t, err)
	assert.Nil(t, resp.DebitAccountID)
	assert.Equal(t, string(ledger.TransactionTypeTopUp), resp.Type)
	assert.Equal(t, money.FromMajor(1000500), store.Account(companyAccountID).CurrentBalance)
}

func TestLedgerService_Transfer_DuplicateReferenceRollsBack(t *testing.T) {
	ctx := context.Background()
	store, svc := newTestLedger(t)
	req := ledger.TransferRequest{
		DebitAccountID:  strPtr(companyAccountID),
		CreditAccountID: employeeAccountID,
		Amount:          money.FromMajor(10),
		ReferenceID:     "PAYROLL-b1-E001",
	}

	_, err := svc.Transfer(ctx, req)
	require.NoError(t, err)
	_, err = svc.Transfer(ctx, req)

	require.ErrorIs(t, err, ledger.ErrDuplicateReference)
	assert.Equal(t, money.FromMajor(10), store.Account(employeeAccountID).CurrentBalance)
	assert.Len(t, store.AllTransactions(), 1)
}

func TestLedgerService_Transfer_AccountNotFound(t *testing.T) {
	ctx := context.Background()
	_, svc := newTestLedger(t)

	_, err := svc.Transfer(ctx, ledger.TransferRequest{
		DebitAccountID:  strPtr(companyAccountID),
		CreditAccountID: "0190a000-0000-7000-8000-0000000000ff",
		Amount:          money.FromMajor(10),
		ReferenceID:     "T-1",
	})

	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestLedgerService_Transfer_ValidationErrors(t *testing.T) {
	ctx := context.Background()
	_, svc := newTestLedger(t)

	tests := []struct {
		name string
		req  ledger.TransferRequest
	}{
		{"zero amount", ledger.TransferRequest{CreditAccountID: companyAccountID, ReferenceID: "T"}},
		{"missing reference", ledger.TransferRequest{CreditAccountID: companyAccountID, Amount: 1}},
		{"same account", ledger.TransferRequest{DebitAccountID: strPtr(companyAccountID), CreditAccountID: companyAccountID, Amount: 1, ReferenceID: "T"}},
		{"public reversal intent", ledger.TransferRequest{Intent: ledger.IntentReversal, DebitAccountID: strPtr(otherEmployeeID), CreditAccountID: employeeAccountID, Amount: 1, ReferenceID: "T"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Transfer(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, ledger.IsBusinessError(err))
		})
	}
}

func TestLedgerService_Transfer_RetriesSerializationFailure(t *testing.T) {
	ctx := context.Background()
	store, svc := newTestLedger(t)
	store.SerializationFailures = 2

	_, err := svc.Transfer(ctx, ledger.TransferRequest{
		CreditAccountID: companyAccountID,
		Amount:          money.FromMajor(1),
		ReferenceID:     "TOPUP-1",
	})

	require.NoError(t, err)
	assert.Equal(t, 3, store.TxCount)
}

func TestLedgerService_Transfer_SerializationRetriesExhausted(t *testing.T) {
	ctx := context.Background()
	store, svc := newTestLedger(t)
	store.SerializationFailures = 3

	_, err := svc.Transfer(ctx, ledger.TransferRequest{
		CreditAccountID: companyAccountID,
		Amount:          money.FromMajor(1),
		ReferenceID:     "TOPUP-1",
	})

	require.ErrorIs(t, err, ledger.ErrConcurrentUpdate)
	assert.False(t, ledger.IsBusinessError(err))
	assert.Equal(t, money.FromMajor(1000000), store.Account(companyAccountID).CurrentBalance)
}

func TestLedgerService_Transfer_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	store, svc := newTestLedger(t)

	var wg sync.WaitGroup
	results := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Transfer(ctx, ledger.TransferRequest{
				Intent:          ledger.IntentGeneralTransfer,
				DebitAccountID:  strPtr(otherEmployeeID),
				CreditAccountID: employeeAccountID,
				Amount:          money.FromMajor(30),
				ReferenceID:     "T-" + string(rune('a'+i)),
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var ok, insufficient int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ledger.ErrInsufficientFunds):
			insufficient++
		}
	}

	assert.Equal(t, 3, ok)
	assert.Equal(t, 2, insufficient)
	assert.Equal(t, money.FromMajor(10), store.Account(otherEmployeeID).CurrentBalance)
	assert.Equal(t, money.FromMajor(90), store.Account(employeeAccountID).CurrentBalance)
}

// ===== REVERSAL TESTS =====

func TestLedgerService_Reverse_RestoresBalances(t *testing.T) {
	ctx := context.Background()
	store, svc := newTestLedger(t)
	original, err := svc.Transfer(ctx, ledger.TransferRequest{
		DebitAccountID:  strPtr(companyAccountID),
		CreditAccountID: employeeAccountID,
		Amount:          money.FromMajor(40500),
		ReferenceID:     "PAYROLL-b1-E001",
	})
	require.NoError(t, err)

	// Act
	reversal, err := svc.Reverse(ctx, original.ID, "paid twice")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "REV-PAYROLL-b1-E001", reversal.ReferenceID)
	assert.Equal(t, original.Amount, reversal.Amount)
	assert.Equal(t, string(ledger.TransactionTypeReversal), reversal.Type)
	require.NotNil(t, reversal.DebitAccountID)
	assert.Equal(t, employeeAccountID, *reversal.DebitAccountID)
	assert.Equal(t, companyAccountID, reversal.CreditAccountID)
	require.NotNil(t, reversal.ReversalOf)
	assert.Equal(t, original.ID, *reversal.ReversalOf)
	assert.Equal(t, money.FromMajor(1000000), store.Account(companyAccountID).CurrentBalance)
	assert.Equal(t, money.Zero, store.Account(employeeAccountID).CurrentBalance)
}

func TestLedgerService_Reverse_Twice(t *testing.T) {
	ctx := context.Background()
	_, svc := newTestLedger(t)
	original, err := svc.Transfer(ctx, ledger.TransferRequest{
		DebitAccountID:  strPtr(companyAccountID),
		CreditAccountID: employeeAccountID,
		Amount:          money.FromMajor(10),
		ReferenceID:     "T-1",
	})
	require.NoError(t, err)
	_, err = svc.Reverse(ctx, original.ID, "mistake")
	require.NoError(t, err)

	_, err = svc.Reverse(ctx, original.ID, "mistake")

	assert.ErrorIs(t, err, ledger.ErrAlreadyReversed)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestLedgerService_Reverse_ExternalFunding(t *testing.T) {
	ctx := context.Background()
	_, svc := newTestLedger(t)
	topUp, err := svc.Transfer(ctx, ledger.TransferRequest{
		CreditAccountID: companyAccountID,
		Amount:          money.FromMajor(10),
		ReferenceID:     "TOPUP-1",
	})
	require.NoError(t, err)

	_, err = svc.Reverse(ctx, topUp.ID, "bounced")

	assert.ErrorIs(t, err, ledger.ErrExternalReversal)
}

func TestLedgerService_Reverse_NotFound(t *testing.T) {
	_, svc := newTestLedger(t)

	_, err := svc.Reverse(context.Background(), "0190a000-0000-7000-8000-0000000000ff", "gone")

	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
}

func TestLedgerService_Reverse_InsufficientFundsOnCreditSide(t *testing.T) {
	ctx := context.Background()
	store, svc := newTestLedger(t)
	original, err := svc.Transfer(ctx, ledger.TransferRequest{
		DebitAccountID:  strPtr(companyAccountID),
		CreditAccountID: employeeAccountID,
		Amount:          money.FromMajor(10),
		ReferenceID:     "T-1",
	})
	require.NoError(t, err)
	_, err = svc.Transfer(ctx, ledger.TransferRequest{
		DebitAccountID:  strPtr(employeeAccountID),
		CreditAccountID: otherEmployeeID,
		Amount:          money.FromMajor(5),
		ReferenceID:     "T-2",
	})
	require.NoError(t, err)

	_, err = svc.Reverse(ctx, original.ID, "mistake")

	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Equal(t, money.FromMajor(5), store.Account(employeeAccountID).CurrentBalance)
}

// ===== BALANCE TESTS =====

func TestLedgerService_HasSufficientBalance_IgnoresOverdraft(t *testing.T) {
	ctx := context.Background()
	store, svc := newTestLedger(t)
	acc := *employeeSavings(otherEmployeeID, money.FromMajor(100))
	acc.OverdraftLimit = money.FromMajor(1000)
	store.PutAccount(acc)

	ok, err := svc.HasSufficientBalance(ctx, otherEmployeeID, money.FromMajor(100))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasSufficientBalance(ctx, otherEmployeeID, money.FromMajor(101))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.HasSufficientBalance(ctx, otherEmployeeID, 0)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestLedgerService_GetBalance(t *testing.T) {
	ctx := context.Background()
	_, svc := newTestLedger(t)

	balance, err := svc.GetBalance(ctx, companyAccountID)
	require.NoError(t, err)
	assert.Equal(t, money.FromMajor(1000000), balance)

	_, err = svc.GetBalance(ctx, "0190a000-0000-7000-8000-0000000000ff")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestLedgerService_ListAccountTransactions(t *testing.T) {
	ctx := context.Background()
	_, svc := newTestLedger(t)
	for _, ref := range []string{"T-1", "T-2", "T-3"} {
		_, err := svc.Transfer(ctx, ledger.TransferRequest{
			DebitAccountID:  strPtr(companyAccountID),
			CreditAccountID: employeeAccountID,
			Amount:          money.FromMajor(1),
			ReferenceID:     ref,
		})
		require.NoError(t, err)
	}

	page, err := svc.ListAccountTransactions(ctx, employeeAccountID, ledger.TransactionFilter{Page: 1, Limit: 2})

	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalCount)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "T-3", page.Data[0].ReferenceID)

	txn, err := svc.GetTransaction(ctx, page.Data[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "T-3", txn.ReferenceID)
}
