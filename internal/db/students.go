package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/campusconnect/backend/internal/ctxutil"
	"github.com/campusconnect/backend/internal/models"
)

func CreateStudent(ctx context.Context, database *sql.DB, s models.Student) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	_, err := database.ExecContext(ctx, `
		INSERT INTO students (id, name, grade, enrollment_date)
		VALUES ($1, $2, $3, $4)
	`, s.ID, s.Name, s.Grade, s.EnrollmentDate)
	return err
}

// GetStudent returns nil, nil when the student does not exist.
func GetStudent(ctx context.Context, database *sql.DB, studentID string) (*models.Student, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var s models.Student
	err := database.QueryRowContext(ctx, `
		SELECT id, name, grade, enrollment_date, created_at
		FROM students
		WHERE id = $1
	`, studentID).Scan(&s.ID, &s.Name, &s.Grade, &s.EnrollmentDate, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func EnrollStudent(ctx context.Context, database *sql.DB, studentID, courseID string) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	_, err := database.ExecContext(ctx, `
		INSERT INTO enrollments (student_id, course_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, studentID, courseID)
	return err
}
