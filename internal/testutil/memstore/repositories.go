package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/company"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/master/grade"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
)

// ========== COMPANY ==========

type companyRepo struct{ s *Store }

func (s *Store) CompanyRepo() company.CompanyRepository { return companyRepo{s} }

func (r companyRepo) GetByID(_ context.Context, id string) (company.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.data.companies[id]
	if !ok {
		return company.Company{}, company.ErrCompanyNotFound
	}
	return c, nil
}

// ========== GRADE ==========

type gradeRepo struct{ s *Store }

func (s *Store) GradeRepo() grade.GradeRepository { return gradeRepo{s} }

func (r gradeRepo) GetByID(_ context.Context, id string) (grade.Grade, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.data.grades[id]
	if !ok {
		return grade.Grade{}, grade.ErrGradeNotFound
	}
	return g, nil
}

func (r gradeRepo) GetByCompanyID(_ context.Context, companyID string) ([]grade.Grade, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []grade.Grade
	for _, g := range r.s.data.grades {
		if g.CompanyID == companyID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

// ========== EMPLOYEE ==========

type employeeRepo struct{ s *Store }

func (s *Store) EmployeeRepo() employee.EmployeeRepository { return employeeRepo{s} }

func (r employeeRepo) GetByID(_ context.Context, id string) (employee.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.data.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

func (r employeeRepo) GetActiveByCompanyIDOrderedByGrade(_ context.Context, companyID string) ([]employee.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []employee.Employee
	for _, e := range r.s.data.employees {
		if e.CompanyID == companyID && e.EmploymentStatus == employee.EmploymentStatusActive {
			out = append(out, e)
		}
	}
	rank := func(e employee.Employee) int { return r.s.data.grades[e.GradeID].Rank }
	sort.Slice(out, func(i, j int) bool {
		if rank(out[i]) != rank(out[j]) {
			return rank(out[i]) < rank(out[j])
		}
		return out[i].EmployeeCode < out[j].EmployeeCode
	})
	return out, nil
}

// ========== ACCOUNT ==========

type accountRepo struct{ s *Store }

func (s *Store) AccountRepo() ledger.AccountRepository { return accountRepo{s} }

func (r accountRepo) GetByID(_ context.Context, id string) (ledger.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.data.accounts[id]
	if !ok {
		return ledger.Account{}, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, id)
	}
	return a, nil
}

func (r accountRepo) GetByIDForUpdate(ctx context.Context, id string) (ledger.Account, error) {
	return r.GetByID(ctx, id)
}

func (r accountRepo) UpdateBalance(ctx context.Context, id string, balance money.Amount) error {
	defer r.s.lockWrite(ctx)()
	a, ok := r.s.data.accounts[id]
	if !ok {
		return fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, id)
	}
	a.CurrentBalance = balance
	a.UpdatedAt = r.s.Now()
	r.s.data.accounts[id] = a
	return nil
}

func (r accountRepo) BelongsToCompany(_ context.Context, accountID, companyID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a, ok := r.s.data.accounts[accountID]; ok && a.OwnerType == ledger.OwnerTypeCompany && a.OwnerID == companyID {
		return true, nil
	}
	for _, e := range r.s.data.employees {
		if e.AccountID == accountID && e.CompanyID == companyID {
			return true, nil
		}
	}
	return false, nil
}

// ========== TRANSACTION ==========

type transactionRepo struct{ s *Store }

func (s *Store) TransactionRepo() ledger.TransactionRepository { return transactionRepo{s} }

func (r transactionRepo) Create(ctx context.Context, txn ledger.Transaction) (ledger.Transaction, error) {
	defer r.s.lockWrite(ctx)()
	for _, existing := range r.s.data.transactions {
		if txn.ReversalOf != nil && existing.ReversalOf != nil && *existing.ReversalOf == *txn.ReversalOf {
			return ledger.Transaction{}, ledger.ErrAlreadyReversed
		}
		if existing.ReferenceID == txn.ReferenceID {
			return ledger.Transaction{}, fmt.Errorf("%w: %s", ledger.ErrDuplicateReference, txn.ReferenceID)
		}
	}
	r.s.data.transactions[txn.ID] = txn
	r.s.data.txnOrder = append(r.s.data.txnOrder, txn.ID)
	return txn, nil
}

func (r transactionRepo) GetByID(_ context.Context, id string) (ledger.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.transactions[id]
	if !ok {
		return ledger.Transaction{}, ledger.ErrTransactionNotFound
	}
	return t, nil
}

func (r transactionRepo) GetByReference(_ context.Context, referenceID string) (ledger.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.data.transactions {
		if t.ReferenceID == referenceID {
			return t, nil
		}
	}
	return ledger.Transaction{}, ledger.ErrTransactionNotFound
}

func (r transactionRepo) GetReversalOf(_ context.Context, originalID string) (ledger.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.data.transactions {
		if t.ReversalOf != nil && *t.ReversalOf == originalID {
			return t, nil
		}
	}
	return ledger.Transaction{}, ledger.ErrTransactionNotFound
}

func (r transactionRepo) ListByAccount(_ context.Context, accountID string, filter ledger.TransactionFilter) ([]ledger.Transaction, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []ledger.Transaction
	for i := len(r.s.data.txnOrder) - 1; i >= 0; i-- {
		t := r.s.data.transactions[r.s.data.txnOrder[i]]
		touches := t.CreditAccountID == accountID || (t.DebitAccountID != nil && *t.DebitAccountID == accountID)
		if !touches {
			continue
		}
		if filter.Status != nil && string(t.Status) != *filter.Status {
			continue
		}
		matched = append(matched, t)
	}
	return paginate(matched, filter.Page, filter.Limit), int64(len(matched)), nil
}

func paginate[T any](rows []T, page, limit int) []T {
	if limit <= 0 {
		return rows
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(rows) {
		return nil
	}
	end := min(start+limit, len(rows))
	return rows[start:end]
}
