package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/campusconnect/backend/internal/ctxutil"
	"github.com/campusconnect/backend/internal/models"
)

func UpsertFeeStructure(ctx context.Context, database *sql.DB, f models.FeeStructure) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	if f.ID == "" {
		f.ID = fmt.Sprintf("%s-%s", f.Grade, f.AcademicYear)
	}
	_, err := database.ExecContext(ctx, `
		INSERT INTO fee_structures (id, grade, academic_year, monthly_amount_cents)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (grade, academic_year)
		DO UPDATE SET monthly_amount_cents = EXCLUDED.monthly_amount_cents
	`, f.ID, f.Grade, f.AcademicYear, f.MonthlyAmountCents)
	return err
}

// GetFeeStructure returns nil, nil when no schedule exists for the
// grade/year pair; the aggregator treats that as zero owed.
func GetFeeStructure(ctx context.Context, database *sql.DB, grade, academicYear string) (*models.FeeStructure, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var f models.FeeStructure
	err := database.QueryRowContext(ctx, `
		SELECT id, grade, academic_year, monthly_amount_cents
		FROM fee_structures
		WHERE grade = $1 AND academic_year = $2
	`, grade, academicYear).Scan(&f.ID, &f.Grade, &f.AcademicYear, &f.MonthlyAmountCents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}
