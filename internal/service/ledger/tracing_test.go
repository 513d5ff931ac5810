package ledger

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTracerProvider(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	return provider, recorder
}

func spanAttributes(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	return attrs
}

func TestLedgerService_Transfer_RecordsSpan(t *testing.T) {
	// Arrange
	_, svc := newTestLedger(t)
	provider, recorder := newTestTracerProvider(t)
	svc.tracer = provider.Tracer("test")

	// Act
	resp, err := svc.Transfer(context.Background(), ledger.TransferRequest{
		Intent:          ledger.IntentSalaryDisbursement,
		DebitAccountID:  strPtr(companyAccountID),
		CreditAccountID: employeeAccountID,
		Amount:          money.FromMajor(40500),
		ReferenceID:     "PAYROLL-b1-E001",
	})

	// Assert
	require.NoError(t, err)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "ledger.Transfer", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	attrs := spanAttributes(spans[0])
	assert.Equal(t, resp.ID, attrs["ledger.transaction_id"].AsString())
	assert.Equal(t, "PAYROLL-b1-E001", attrs["ledger.reference_id"].AsString())
	assert.Equal(t, int64(money.FromMajor(40500)), attrs["ledger.amount_minor"].AsInt64())
}

func TestLedgerService_Transfer_RecordsErrorStatus(t *testing.T) {
	// Arrange
	_, svc := newTestLedger(t)
	provider, recorder := newTestTracerProvider(t)
	svc.tracer = provider.Tracer("test")

	// Act
	_, err := svc.Transfer(context.Background(), ledger.TransferRequest{
		DebitAccountID:  strPtr(otherEmployeeID),
		CreditAccountID: employeeAccountID,
		Amount:          money.FromMajor(5000),
		ReferenceID:     "T-overdraw",
		Intent:          ledger.IntentGeneralTransfer,
	})

	// Assert
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, err.Error(), spans[0].Status().Description)
	require.NotEmpty(t, spans[0].Events())
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
	assert.NotContains(t, spanAttributes(spans[0]), attribute.Key("ledger.transaction_id"))
}

func TestLedgerService_Reverse_NestsTransferSpan(t *testing.T) {
	// Arrange
	_, svc := newTestLedger(t)
	original, err := svc.Transfer(context.Background(), ledger.TransferRequest{
		DebitAccountID:  strPtr(companyAccountID),
		CreditAccountID: employeeAccountID,
		Amount:          money.FromMajor(100),
		ReferenceID:     "PAYROLL-b1-E002",
	})
	require.NoError(t, err)
	provider, recorder := newTestTracerProvider(t)
	svc.tracer = provider.Tracer("test")

	// Act
	_, err = svc.Reverse(context.Background(), original.ID, "paid twice")

	// Assert
	require.NoError(t, err)
	spans := recorder.Ended()
	require.Len(t, spans, 2)
	transfer, reverse := spans[0], spans[1]
	assert.Equal(t, "ledger.Transfer", transfer.Name())
	assert.Equal(t, "ledger.Reverse", reverse.Name())
	assert.Equal(t, reverse.SpanContext().SpanID(), transfer.Parent().SpanID())
	assert.Equal(t, original.ID, spanAttributes(reverse)["ledger.original_transaction_id"].AsString())
}
