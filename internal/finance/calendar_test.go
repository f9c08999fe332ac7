package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonthKey(t *testing.T) {
	require.Equal(t, "2026-01", MonthKey(time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)))
	require.Equal(t, "2025-12", MonthKey(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)))
}

func TestAcademicYearOf(t *testing.T) {
	// year rolls over September 1
	require.Equal(t, "2025-2026", AcademicYearOf(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, "2025-2026", AcademicYearOf(time.Date(2026, 8, 31, 23, 0, 0, 0, time.UTC)))
	require.Equal(t, "2024-2025", AcademicYearOf(time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, "2026-2027", AcademicYearOf(time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)))
}

func TestDueForMonth_BeforeEnrollment(t *testing.T) {
	enroll := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	month := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.EqualValues(t, 0, DueForMonth(20000, enroll, month))
}

func TestDueForMonth_FullMonth(t *testing.T) {
	enroll := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	month := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	require.EqualValues(t, 20000, DueForMonth(20000, enroll, month))
}

func TestDueForMonth_EnrolledOnFirst(t *testing.T) {
	enroll := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	month := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	require.EqualValues(t, 20000, DueForMonth(20000, enroll, month))
}

func TestDueForMonth_Prorated(t *testing.T) {
	// enrolled April 16: 15 of 30 days billed
	enroll := time.Date(2026, 4, 16, 0, 0, 0, 0, time.UTC)
	month := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	require.EqualValues(t, 10000, DueForMonth(20000, enroll, month))
}

func TestDueForMonth_ProrationRoundsHalfUp(t *testing.T) {
	// 10 of 31 days on 10000 cents = 3225.8..., rounds to 3226
	enroll := time.Date(2026, 1, 22, 0, 0, 0, 0, time.UTC)
	month := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.EqualValues(t, 3226, DueForMonth(10000, enroll, month))
}

func TestDueForMonth_ZeroCombined(t *testing.T) {
	enroll := time.Date(2026, 1, 22, 0, 0, 0, 0, time.UTC)
	month := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.EqualValues(t, 0, DueForMonth(0, enroll, month))
}
