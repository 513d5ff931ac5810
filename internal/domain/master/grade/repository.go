package grade

import "context"

type GradeRepository interface {
	GetByID(ctx context.Context, id string) (Grade, error)
	GetByCompanyID(ctx context.Context, companyID string) ([]Grade, error)
}
