package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
	"github.com/jackc/pgx/v5"
)

type accountRepositoryImpl struct {
	db *database.DB
}

func NewAccountRepository(db *database.DB) ledger.AccountRepository {
	return &accountRepositoryImpl{db: db}
}

const accountSelect = `
	SELECT id, account_number, owner_type, owner_id, account_type, branch_id,
		current_balance, overdraft_limit, created_at, updated_at
	FROM accounts
	WHERE id = $1
`

func (r *accountRepositoryImpl) getByID(ctx context.Context, query, id string) (ledger.Account, error) {
	q := GetQuerier(ctx, r.db)

	var a ledger.Account
	err := q.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.AccountNumber,
		&a.OwnerType,
		&a.OwnerID,
		&a.AccountType,
		&a.BranchID,
		&a.CurrentBalance,
		&a.OverdraftLimit,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Account{}, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, id)
		}
		return ledger.Account{}, fmt.Errorf("failed to get account %s: %w", id, err)
	}

	return a, nil
}

// GetByID implements ledger.AccountRepository.
func (r *accountRepositoryImpl) GetByID(ctx context.Context, id string) (ledger.Account, error) {
	return r.getByID(ctx, accountSelect, id)
}

// GetByIDForUpdate implements ledger.AccountRepository.
func (r *accountRepositoryImpl) GetByIDForUpdate(ctx context.Context, id string) (ledger.Account, error) {
	return r.getByID(ctx, accountSelect+" FOR UPDATE", id)
}

// UpdateBalance implements ledger.AccountRepository.
func (r *accountRepositoryImpl) UpdateBalance(ctx context.Context, id string, balance money.Amount) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE accounts
		SET current_balance = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING id
	`

	var updatedID string
	err := q.QueryRow(ctx, query, int64(balance), id).Scan(&updatedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, id)
		}
		return fmt.Errorf("failed to update balance of account %s: %w", id, err)
	}

	return nil
}

// BelongsToCompany implements ledger.AccountRepository.
func (r *accountRepositoryImpl) BelongsToCompany(ctx context.Context, accountID, companyID string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM accounts
			WHERE id = $1 AND owner_type = 'COMPANY' AND owner_id = $2
			UNION ALL
			SELECT 1 FROM employees
			WHERE account_id = $1 AND company_id = $2
		)
	`

	var belongs bool
	if err := q.QueryRow(ctx, query, accountID, companyID).Scan(&belongs); err != nil {
		return false, fmt.Errorf("failed to check owner of account %s: %w", accountID, err)
	}

	return belongs, nil
}
