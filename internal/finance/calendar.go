package finance

import (
	"fmt"
	"time"
)

// The school year rolls over on September 1.
const academicYearStartMonth = time.September

// MonthKey formats a billing month as "2026-01".
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// AcademicYearOf returns the "2025-2026" style year containing t.
func AcademicYearOf(t time.Time) string {
	y := t.Year()
	if t.Month() < academicYearStartMonth {
		return fmt.Sprintf("%d-%d", y-1, y)
	}
	return fmt.Sprintf("%d-%d", y, y+1)
}

// DueForMonth prorates a student's first billed month. Months that end
// before enrollment owe nothing; the enrollment month is charged by days
// remaining (enrollment day inclusive), rounded half up to a cent; later
// months owe the full combined amount.
func DueForMonth(combinedMonthlyCents int64, enrollment time.Time, month time.Time) int64 {
	monthStart := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextStart := monthStart.AddDate(0, 1, 0)
	enrollDay := time.Date(enrollment.Year(), enrollment.Month(), enrollment.Day(), 0, 0, 0, 0, time.UTC)

	if !enrollDay.Before(nextStart) {
		return 0
	}
	if !enrollDay.After(monthStart) {
		return combinedMonthlyCents
	}

	daysInMonth := int64(nextStart.Sub(monthStart).Hours() / 24)
	daysBilled := int64(nextStart.Sub(enrollDay).Hours() / 24)
	// round half up
	return (combinedMonthlyCents*daysBilled + daysInMonth/2) / daysInMonth
}
