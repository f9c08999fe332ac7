package models

import "time"

// GradeNone marks students without a grade-level fee (adult education,
// support-only enrollments).
const GradeNone = "N/A"

type Student struct {
	ID             string
	Name           string
	Grade          string
	EnrollmentDate time.Time
	CreatedAt      time.Time
}

func (s Student) HasGradeFee() bool {
	return s.Grade != "" && s.Grade != GradeNone
}

type CourseType string

const (
	CourseCore    CourseType = "core"
	CourseSupport CourseType = "support"
)

type Course struct {
	ID              string
	Name            string
	Type            CourseType
	MonthlyFeeCents int64 // only meaningful for support courses
}
