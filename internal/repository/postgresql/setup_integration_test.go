//go:build integration

package postgresql_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-ledger-go/migrations"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestDatabase starts a disposable PostgreSQL container, applies the
// migrations and returns a pool bound to it.
func newTestDatabase(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("payroll_ledger_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.NewPostgreSQLDB(ctx, dsn, database.PoolConfig{MaxConns: 10, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, database.Migrate(db, migrations.FS, "."))
	return db
}

// seed holds the ids of the rows inserted by seedCompany.
type seed struct {
	CompanyID        string
	FundingAccountID string
	// EmployeeAccounts maps employee code to account id.
	EmployeeAccounts map[string]string
	EmployeeIDs      map[string]string
}

// seedCompany inserts a company with a funded current account, a three-grade
// ladder, a salary formula and one active employee per grade.
func seedCompany(t *testing.T, db *database.DB, balance int64) seed {
	t.Helper()
	ctx := context.Background()
	s := seed{
		CompanyID:        uuid.NewString(),
		FundingAccountID: uuid.NewString(),
		EmployeeAccounts: map[string]string{},
		EmployeeIDs:      map[string]string{},
	}

	exec := func(query string, args ...any) {
		t.Helper()
		_, err := db.Exec(ctx, query, args...)
		require.NoError(t, err)
	}

	exec(`INSERT INTO companies (id, name, username) VALUES ($1, $2, $3)`,
		s.CompanyID, "Acme Corp", "acme-"+s.CompanyID[:8])
	exec(`INSERT INTO accounts (id, account_number, owner_type, owner_id, account_type, current_balance)
		VALUES ($1, $2, 'COMPANY', $3, 'CURRENT', $4)`,
		s.FundingAccountID, "CO-"+s.CompanyID[:8], s.CompanyID, balance)

	var parentID *string
	gradeIDs := make(map[int]string)
	for rank := 3; rank >= 1; rank-- {
		id := uuid.NewString()
		exec(`INSERT INTO grades (id, company_id, name, rank, parent_id) VALUES ($1, $2, $3, $4, $5)`,
			id, s.CompanyID, fmt.Sprintf("Grade %d", rank), rank, parentID)
		gradeIDs[rank] = id
		parentID = &id
	}

	exec(`INSERT INTO salary_formulas
		(id, company_id, base_salary_grade, reference_base_salary, hra_percentage, medical_percentage, grade_increment_amount)
		VALUES ($1, $2, 3, 3000000, 0.20, 0.15, 500000)`,
		uuid.NewString(), s.CompanyID)

	for i, code := range []string{"E001", "E002", "E003"} {
		accountID := uuid.NewString()
		employeeID := uuid.NewString()
		exec(`INSERT INTO accounts (id, account_number, owner_type, owner_id, account_type)
			VALUES ($1, $2, 'EMPLOYEE', $3, 'SAVINGS')`,
			accountID, code+"-"+s.CompanyID[:8], employeeID)
		exec(`INSERT INTO employees (id, company_id, grade_id, account_id, employee_code, full_name)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			employeeID, s.CompanyID, gradeIDs[3-i], accountID, code, "Employee "+code)
		s.EmployeeAccounts[code] = accountID
		s.EmployeeIDs[code] = employeeID
	}

	return s
}
