package employee

import "context"

type EmployeeRepository interface {
	GetByID(ctx context.Context, id string) (Employee, error)
	// GetActiveByCompanyIDOrderedByGrade lists active employees ordered by grade rank, then employee code.
	GetActiveByCompanyIDOrderedByGrade(ctx context.Context, companyID string) ([]Employee, error)
}
