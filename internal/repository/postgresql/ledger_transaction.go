package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type transactionRepositoryImpl struct {
	db *database.DB
}

func NewTransactionRepository(db *database.DB) ledger.TransactionRepository {
	return &transactionRepositoryImpl{db: db}
}

const transactionColumns = `id, debit_account_id, credit_account_id, amount, type, category, reference_id,
	description, status, failure_reason, reversal_of, requested_at, processed_at`

func scanTransaction(row pgx.Row) (ledger.Transaction, error) {
	var t ledger.Transaction
	err := row.Scan(
		&t.ID,
		&t.DebitAccountID,
		&t.CreditAccountID,
		&t.Amount,
		&t.Type,
		&t.Category,
		&t.ReferenceID,
		&t.Description,
		&t.Status,
		&t.FailureReason,
		&t.ReversalOf,
		&t.RequestedAt,
		&t.ProcessedAt,
	)
	return t, err
}

// Create implements ledger.TransactionRepository.
func (r *transactionRepositoryImpl) Create(ctx context.Context, txn ledger.Transaction) (ledger.Transaction, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + transactionColumns

	created, err := scanTransaction(q.QueryRow(ctx, query,
		txn.ID, txn.DebitAccountID, txn.CreditAccountID, int64(txn.Amount), txn.Type, txn.Category, txn.ReferenceID,
		txn.Description, txn.Status, txn.FailureReason, txn.ReversalOf, txn.RequestedAt, txn.ProcessedAt,
	))
	if err != nil {
		if pgErrorCode(err) == codeUniqueViolation {
			if txn.ReversalOf != nil {
				return ledger.Transaction{}, ledger.ErrAlreadyReversed
			}
			return ledger.Transaction{}, fmt.Errorf("%w: %s", ledger.ErrDuplicateReference, txn.ReferenceID)
		}
		return ledger.Transaction{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	return created, nil
}

// GetByID implements ledger.TransactionRepository.
func (r *transactionRepositoryImpl) GetByID(ctx context.Context, id string) (ledger.Transaction, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Transaction{}, ledger.ErrTransactionNotFound
		}
		return ledger.Transaction{}, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}

	return t, nil
}

// GetByReference implements ledger.TransactionRepository.
func (r *transactionRepositoryImpl) GetByReference(ctx context.Context, referenceID string) (ledger.Transaction, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference_id = $1`

	t, err := scanTransaction(q.QueryRow(ctx, query, referenceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Transaction{}, ledger.ErrTransactionNotFound
		}
		return ledger.Transaction{}, fmt.Errorf("failed to get transaction by reference %s: %w", referenceID, err)
	}

	return t, nil
}

// GetReversalOf implements ledger.TransactionRepository.
func (r *transactionRepositoryImpl) GetReversalOf(ctx context.Context, originalID string) (ledger.Transaction, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reversal_of = $1`

	t, err := scanTransaction(q.QueryRow(ctx, query, originalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Transaction{}, ledger.ErrTransactionNotFound
		}
		return ledger.Transaction{}, fmt.Errorf("failed to get reversal of transaction %s: %w", originalID, err)
	}

	return t, nil
}

// ListByAccount implements ledger.TransactionRepository.
func (r *transactionRepositoryImpl) ListByAccount(ctx context.Context, accountID string, filter ledger.TransactionFilter) ([]ledger.Transaction, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseQuery := `
		FROM transactions
		WHERE (debit_account_id = $1 OR credit_account_id = $1)
	`
	args := []interface{}{accountID}
	argIdx := 2

	if filter.Status != nil {
		baseQuery += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	// Count query
	var totalCount int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
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
		ORDER BY requested_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, transactionColumns, baseQuery, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []ledger.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return transactions, totalCount, nil
}
