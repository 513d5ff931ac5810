package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/cmlabs-hris/payroll-ledger-go/internal/service/ledger"

const defaultRetryBackoff = 25 * time.Millisecond

type LedgerServiceImpl struct {
	txManager       database.TxManager
	accountRepo     ledger.AccountRepository
	transactionRepo ledger.TransactionRepository
	router          *Router
	maxRetries      int
	retryBackoff    time.Duration
	tracer          trace.Tracer
}

func NewLedgerService(
	txManager database.TxManager,
	accountRepo ledger.AccountRepository,
	transactionRepo ledger.TransactionRepository,
	serializationRetries int,
) ledger.LedgerService {
	if serializationRetries < 0 {
		serializationRetries = 0
	}
	return &LedgerServiceImpl{
		txManager:       txManager,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		router:          NewDefaultRouter(func() time.Time { return time.Now().UTC() }),
		maxRetries:      serializationRetries,
		retryBackoff:    defaultRetryBackoff,
		tracer:          otel.Tracer(tracerName),
	}
}

// ========== COMPANY SCOPE ==========

// authorizeAccounts hides accounts outside the caller's company behind
// ErrAccountNotFound. Calls without a company-bound token are not scoped.
func (s *LedgerServiceImpl) authorizeAccounts(ctx context.Context, accountIDs ...string) error {
	companyID, ok := jwt.CompanyIDFromContext(ctx)
	if !ok {
		return nil
	}
	for _, id := range accountIDs {
		belongs, err := s.accountRepo.BelongsToCompany(ctx, id, companyID)
		if err != nil {
			return err
		}
		if !belongs {
			return fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, id)
		}
	}
	return nil
}

// authorizeTransaction requires every side of txn to be in the caller's company.
func (s *LedgerServiceImpl) authorizeTransaction(ctx context.Context, txn ledger.Transaction) error {
	ids := []string{txn.CreditAccountID}
	if txn.DebitAccountID != nil {
		ids = append(ids, *txn.DebitAccountID)
	}
	if err := s.authorizeAccounts(ctx, ids...); err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return ledger.ErrTransactionNotFound
		}
		return err
	}
	return nil
}

// ========== TRANSFER ==========

// Transfer locks both accounts, routes the request, applies the strategy and
// persists balances plus the transaction in one serializable transaction.
// Failed attempts leave no rows behind.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ledger.TransferRequest) (ledger.TransactionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Transfer", trace.WithAttributes(
		attribute.String("ledger.intent", string(req.Intent)),
		attribute.String("ledger.reference_id", req.ReferenceID),
		attribute.Int64("ledger.amount_minor", int64(req.Amount)),
	))
	defer span.End()

	created, err := s.transferWithRetry(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ledger.TransactionResponse{}, err
	}

	span.SetAttributes(attribute.String("ledger.transaction_id", created.ID))
	return ledger.NewTransactionResponse(created), nil
}

func (s *LedgerServiceImpl) transferWithRetry(ctx context.Context, req ledger.TransferRequest) (ledger.Transaction, error) {
	if err := req.Validate(); err != nil {
		return ledger.Transaction{}, err
	}

	accountIDs := []string{req.CreditAccountID}
	if req.DebitAccountID != nil {
		accountIDs = append(accountIDs, *req.DebitAccountID)
	}
	if err := s.authorizeAccounts(ctx, accountIDs...); err != nil {
		return ledger.Transaction{}, err
	}

	var created ledger.Transaction
	err := s.withSerializableRetry(ctx, func(ctx context.Context) error {
		txn, err := s.transfer(ctx, req)
		if err != nil {
			return err
		}
		created = txn
		return nil
	})
	return created, err
}

func (s *LedgerServiceImpl) transfer(ctx context.Context, req ledger.TransferRequest) (ledger.Transaction, error) {
	debit, credit, err := s.lockAccounts(ctx, req.DebitAccountID, req.CreditAccountID)
	if err != nil {
		return ledger.Transaction{}, err
	}

	strategy, err := s.router.Route(req.Intent, debit, credit, req.Amount)
	if err != nil {
		return ledger.Transaction{}, err
	}

	txn, err := strategy.Execute(debit, credit, req.Amount, req.ReferenceID, req.Description)
	if err != nil {
		return ledger.Transaction{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("failed to generate transaction id: %w", err)
	}
	txn.ID = id.String()
	txn.ReversalOf = req.ReversalOf()

	if debit != nil {
		if err := s.accountRepo.UpdateBalance(ctx, debit.ID, debit.CurrentBalance); err != nil {
			return ledger.Transaction{}, err
		}
	}
	if err := s.accountRepo.UpdateBalance(ctx, credit.ID, credit.CurrentBalance); err != nil {
		return ledger.Transaction{}, err
	}

	return s.transactionRepo.Create(ctx, txn)
}

// lockAccounts takes row locks in ID order so that two transfers over the same
// pair cannot deadlock on each other.
func (s *LedgerServiceImpl) lockAccounts(ctx context.Context, debitID *string, creditID string) (*ledger.Account, *ledger.Account, error) {
	ids := []string{creditID}
	if debitID != nil {
		ids = append(ids, *debitID)
	}
	slices.Sort(ids)

	locked := make(map[string]*ledger.Account, len(ids))
	for _, id := range ids {
		acc, err := s.accountRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		locked[id] = &acc
	}

	var debit *ledger.Account
	if debitID != nil {
		debit = locked[*debitID]
	}
	return debit, locked[creditID], nil
}

func (s *LedgerServiceImpl) withSerializableRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.Serializable}

	for attempt := 0; ; attempt++ {
		err := s.txManager.WithinTx(ctx, opts, fn)
		if err == nil || !errors.Is(err, database.ErrSerializationFailure) {
			return err
		}
		if attempt >= s.maxRetries {
			slog.WarnContext(ctx, "ledger transfer gave up after serialization conflicts", "attempts", attempt+1, "error", err)
			return fmt.Errorf("%w: %v", ledger.ErrConcurrentUpdate, err)
		}

		slog.DebugContext(ctx, "retrying ledger transfer after serialization conflict", "attempt", attempt+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryBackoff * time.Duration(attempt+1)):
		}
	}
}

// ========== REVERSAL ==========

func (s *LedgerServiceImpl) Reverse(ctx context.Context, transactionID string, reason string) (ledger.TransactionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Reverse", trace.WithAttributes(
		attribute.String("ledger.original_transaction_id", transactionID),
	))
	defer span.End()

	resp, err := s.reverse(ctx, transactionID, reason)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ledger.TransactionResponse{}, err
	}
	return resp, nil
}

func (s *LedgerServiceImpl) reverse(ctx context.Context, transactionID string, reason string) (ledger.TransactionResponse, error) {
	req := ledger.ReverseTransactionRequest{Reason: reason}
	if err := req.Validate(); err != nil {
		return ledger.TransactionResponse{}, err
	}

	original, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return ledger.TransactionResponse{}, err
	}
	if err := s.authorizeTransaction(ctx, original); err != nil {
		return ledger.TransactionResponse{}, err
	}
	if original.Status != ledger.TransactionStatusSuccess {
		return ledger.TransactionResponse{}, fmt.Errorf("%w: transaction %s is %s", ledger.ErrInvalidTransactionState, original.ID, original.Status)
	}
	if original.DebitAccountID == nil {
		return ledger.TransactionResponse{}, ledger.ErrExternalReversal
	}

	if _, err := s.transactionRepo.GetReversalOf(ctx, original.ID); err == nil {
		return ledger.TransactionResponse{}, ledger.ErrAlreadyReversed
	} else if !errors.Is(err, ledger.ErrTransactionNotFound) {
		return ledger.TransactionResponse{}, err
	}

	resp, err := s.Transfer(ctx, ledger.NewReversalRequest(original, reason))
	if err != nil {
		return ledger.TransactionResponse{}, err
	}

	slog.InfoContext(ctx, "transaction reversed", "original_id", original.ID, "reversal_id", resp.ID, "amount", original.Amount.String())
	return resp, nil
}

// ========== BALANCE ==========

func (s *LedgerServiceImpl) GetBalance(ctx context.Context, accountID string) (money.Amount, error) {
	if err := s.authorizeAccounts(ctx, accountID); err != nil {
		return 0, err
	}
	acc, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return acc.CurrentBalance, nil
}

// HasSufficientBalance compares against the balance alone. The overdraft limit is ignored.
func (s *LedgerServiceImpl) HasSufficientBalance(ctx context.Context, accountID string, amount money.Amount) (bool, error) {
	if !amount.IsPositive() {
		return false, ledger.ErrInvalidAmount
	}
	if err := s.authorizeAccounts(ctx, accountID); err != nil {
		return false, err
	}
	acc, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return false, err
	}
	return acc.Covers(amount), nil
}

// ========== INQUIRY ==========

func (s *LedgerServiceImpl) GetTransaction(ctx context.Context, id string) (ledger.TransactionResponse, error) {
	txn, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return ledger.TransactionResponse{}, err
	}
	if err := s.authorizeTransaction(ctx, txn); err != nil {
		return ledger.TransactionResponse{}, err
	}
	return ledger.NewTransactionResponse(txn), nil
}

// GetTransactionByReference finds the transaction a client or a payroll run
// created under referenceID.
func (s *LedgerServiceImpl) GetTransactionByReference(ctx context.Context, referenceID string) (ledger.TransactionResponse, error) {
	txn, err := s.transactionRepo.GetByReference(ctx, referenceID)
	if err != nil {
		return ledger.TransactionResponse{}, err
	}
	if err := s.authorizeTransaction(ctx, txn); err != nil {
		return ledger.TransactionResponse{}, err
	}
	return ledger.NewTransactionResponse(txn), nil
}

func (s *LedgerServiceImpl) ListAccountTransactions(ctx context.Context, accountID string, filter ledger.TransactionFilter) (ledger.ListTransactionResponse, error) {
	if err := s.authorizeAccounts(ctx, accountID); err != nil {
		return ledger.ListTransactionResponse{}, err
	}
	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		return ledger.ListTransactionResponse{}, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	txns, total, err := s.transactionRepo.ListByAccount(ctx, accountID, filter)
	if err != nil {
		return ledger.ListTransactionResponse{}, err
	}

	data := make([]ledger.TransactionResponse, 0, len(txns))
	for _, t := range txns {
		data = append(data, ledger.NewTransactionResponse(t))
	}

	return ledger.ListTransactionResponse{
		Data:       data,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}
