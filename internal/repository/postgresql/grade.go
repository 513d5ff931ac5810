package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/master/grade"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type gradeRepositoryImpl struct {
	db *database.DB
}

func NewGradeRepository(db *database.DB) grade.GradeRepository {
	return &gradeRepositoryImpl{db: db}
}

// GetByID implements grade.GradeRepository.
func (r *gradeRepositoryImpl) GetByID(ctx context.Context, id string) (grade.Grade, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, name, rank, parent_id
		FROM grades
		WHERE id = $1
	`

	var result grade.Grade
	err := q.QueryRow(ctx, query, id).Scan(
		&result.ID,
		&result.CompanyID,
		&result.Name,
		&result.Rank,
		&result.ParentID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return grade.Grade{}, grade.ErrGradeNotFound
		}
		return grade.Grade{}, fmt.Errorf("failed to get grade: %w", err)
	}

	return result, nil
}

// GetByCompanyID implements grade.GradeRepository.
func (r *gradeRepositoryImpl) GetByCompanyID(ctx context.Context, companyID string) ([]grade.Grade, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, name, rank, parent_id
		FROM grades
		WHERE company_id = $1
		ORDER BY rank ASC
	`

	rows, err := q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get grades: %w", err)
	}
	defer rows.Close()

	var grades []grade.Grade
	for rows.Next() {
		var g grade.Grade
		if err := rows.Scan(&g.ID, &g.CompanyID, &g.Name, &g.Rank, &g.ParentID); err != nil {
			return nil, fmt.Errorf("failed to scan grade: %w", err)
		}
		grades = append(grades, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate grades: %w", err)
	}

	return grades, nil
}
