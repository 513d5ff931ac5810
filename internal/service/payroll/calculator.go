package payroll

import (
	"fmt"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/master/grade"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
	"github.com/shopspring/decimal"
)

// DefaultReferenceBaseSalary is used when a formula carries no reference base salary.
var DefaultReferenceBaseSalary = money.FromMajor(30000)

// SalaryCalculator applies a company formula to an employee's grade.
//
//	basic   = reference + (formula grade - employee rank) * increment
//	hra     = basic * hra%
//	medical = basic * medical%
//	gross   = net = basic + hra + medical
//
// Every product is rounded half-up to two decimals.
type SalaryCalculator struct {
	referenceBaseSalary money.Amount
}

func NewSalaryCalculator(referenceBaseSalary money.Amount) *SalaryCalculator {
	if !referenceBaseSalary.IsPositive() {
		referenceBaseSalary = DefaultReferenceBaseSalary
	}
	return &SalaryCalculator{referenceBaseSalary: referenceBaseSalary}
}

func (c *SalaryCalculator) Calculate(emp *employee.Employee, g *grade.Grade, f *payroll.SalaryFormula) (payroll.SalaryBreakdown, error) {
	if emp == nil || g == nil || f == nil {
		return payroll.SalaryBreakdown{}, fmt.Errorf("%w: employee, grade and formula are required", payroll.ErrInvalidInput)
	}
	if err := validRate("hra_percentage", f.HRAPercentage); err != nil {
		return payroll.SalaryBreakdown{}, err
	}
	if err := validRate("medical_percentage", f.MedicalPercentage); err != nil {
		return payroll.SalaryBreakdown{}, err
	}
	if f.GradeIncrementAmount.IsNegative() {
		return payroll.SalaryBreakdown{}, fmt.Errorf("%w: grade increment must not be negative", payroll.ErrInvalidInput)
	}

	reference := f.ReferenceBaseSalary
	if !reference.IsPositive() {
		reference = c.referenceBaseSalary
	}

	gradeDifference := int64(f.BaseSalaryGrade - g.Rank)
	basic := reference + f.GradeIncrementAmount.MulInt(gradeDifference)
	hra := basic.MulRate(f.HRAPercentage)
	medical := basic.MulRate(f.MedicalPercentage)
	gross := money.Sum(basic, hra, medical)

	if !gross.IsPositive() {
		return payroll.SalaryBreakdown{}, fmt.Errorf("%w: employee %s at grade rank %d would earn %s",
			payroll.ErrInvalidInput, emp.EmployeeCode, g.Rank, gross)
	}

	return payroll.SalaryBreakdown{
		EmployeeID:       emp.ID,
		EmployeeCode:     emp.EmployeeCode,
		GradeRank:        g.Rank,
		Basic:            basic,
		HRA:              hra,
		MedicalAllowance: medical,
		Gross:            gross,
		Net:              gross,
	}, nil
}

func validRate(field string, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %s must be between 0 and 1, got %s", payroll.ErrInvalidInput, field, rate)
	}
	return nil
}
