// Package memstore is an in-memory implementation of the repositories and the
// transaction manager, for service tests. A failed WithinTx restores every table
// to its state at the start of the call. Repository writes made outside a
// transaction wait for the running one to finish, so a rollback never discards
// them. Seeding helpers bypass that ordering and belong in test setup.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/company"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/master/grade"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type txKey struct{}

type tables struct {
	companies    map[string]company.Company
	grades       map[string]grade.Grade
	employees    map[string]employee.Employee
	accounts     map[string]ledger.Account
	transactions map[string]ledger.Transaction
	txnOrder     []string
	formulas     map[string]payroll.SalaryFormula
	batches      map[string]payroll.PayrollBatch
	items        map[string]payroll.PayrollItem
}

func (t tables) clone() tables {
	return tables{
		companies:    maps.Clone(t.companies),
		grades:       maps.Clone(t.grades),
		employees:    maps.Clone(t.employees),
		accounts:     maps.Clone(t.accounts),
		transactions: maps.Clone(t.transactions),
		txnOrder:     append([]string(nil), t.txnOrder...),
		formulas:     maps.Clone(t.formulas),
		batches:      maps.Clone(t.batches),
		items:        maps.Clone(t.items),
	}
}

type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data tables

	// SerializationFailures makes the next n WithinTx calls fail as if the
	// database rejected the commit.
	SerializationFailures int
	// TxCount counts committed and rolled back WithinTx calls.
	TxCount int
	// ItemUpdateHook, when set, runs before every item update and can fail it.
	ItemUpdateHook func(item payroll.PayrollItem) error

	Now func() time.Time
}

func New() *Store {
	return &Store{
		data: tables{
			companies:    map[string]company.Company{},
			grades:       map[string]grade.Grade{},
			employees:    map[string]employee.Employee{},
			accounts:     map[string]ledger.Account{},
			transactions: map[string]ledger.Transaction{},
			formulas:     map[string]payroll.SalaryFormula{},
			batches:      map[string]payroll.PayrollBatch{},
			items:        map[string]payroll.PayrollItem{},
		},
		Now: func() time.Time { return time.Now().UTC() },
	}
}

// ========== TX MANAGER ==========

func (s *Store) TxManager() database.TxManager { return s }

func (s *Store) WithinTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	s.TxCount++
	if s.SerializationFailures > 0 {
		s.SerializationFailures--
		s.mu.Unlock()
		return fmt.Errorf("%w: injected", database.ErrSerializationFailure)
	}
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// lockWrite takes the locks for one repository write. Outside a transaction it
// also takes txMu, which orders the write after any running WithinTx.
func (s *Store) lockWrite(ctx context.Context) (unlock func()) {
	if ctx.Value(txKey{}) != nil {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

// ========== SEEDING ==========

func (s *Store) PutCompany(c company.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.companies[c.ID] = c
}

func (s *Store) PutGrade(g grade.Grade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.grades[g.ID] = g
}

func (s *Store) PutEmployee(e employee.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.employees[e.ID] = e
}

func (s *Store) PutAccount(a ledger.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.accounts[a.ID] = a
}

func (s *Store) PutFormula(f payroll.SalaryFormula) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.formulas[f.CompanyID] = f
}

func (s *Store) DeleteAccount(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.accounts, id)
}

// ========== INSPECTION ==========

func (s *Store) Account(id string) ledger.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.accounts[id]
}

func (s *Store) Batch(id string) payroll.PayrollBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.batches[id]
}

func (s *Store) Item(id string) payroll.PayrollItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.items[id]
}

// AllTransactions returns every persisted transaction in insertion order.
func (s *Store) AllTransactions() []ledger.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Transaction, 0, len(s.data.txnOrder))
	for _, id := range s.data.txnOrder {
		out = append(out, s.data.transactions[id])
	}
	return out
}
