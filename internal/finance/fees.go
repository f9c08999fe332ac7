// Package finance owns fee aggregation and payment recording. All
// amounts are int64 minor units (cents); nothing in here touches floats.
package finance

import (
	"context"
	"database/sql"

	"github.com/campusconnect/backend/internal/db"
	"github.com/campusconnect/backend/internal/models"
)

type Breakdown struct {
	GradeMonthlyCents    int64 `json:"gradeMonthlyCents"`
	SupportMonthlyCents  int64 `json:"supportMonthlyCents"`
	CombinedMonthlyCents int64 `json:"combinedMonthlyCents"`
}

// CombinedMonthlyDue sums the grade-level schedule amount and the monthly
// fees of enrolled support courses. Missing data degrades to zero: an
// unknown student, the N/A grade sentinel and an absent fee structure all
// mean "nothing owed is known", not an error.
func CombinedMonthlyDue(ctx context.Context, database *sql.DB, studentID, academicYear string) (Breakdown, error) {
	var bd Breakdown

	student, err := db.GetStudent(ctx, database, studentID)
	if err != nil {
		return bd, err
	}
	if student == nil {
		return bd, nil
	}

	if student.HasGradeFee() {
		fs, err := db.GetFeeStructure(ctx, database, student.Grade, academicYear)
		if err != nil {
			return bd, err
		}
		if fs != nil {
			bd.GradeMonthlyCents = fs.MonthlyAmountCents
		}
	}

	courses, err := db.ListEnrolledCourses(ctx, database, studentID)
	if err != nil {
		return bd, err
	}
	for _, c := range courses {
		if c.Type == models.CourseSupport {
			bd.SupportMonthlyCents += c.MonthlyFeeCents
		}
	}

	bd.CombinedMonthlyCents = bd.GradeMonthlyCents + bd.SupportMonthlyCents
	return bd, nil
}
