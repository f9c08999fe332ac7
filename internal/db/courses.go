package db

import (
	"context"
	"database/sql"

	"github.com/campusconnect/backend/internal/ctxutil"
	"github.com/campusconnect/backend/internal/models"
)

func CreateCourse(ctx context.Context, database *sql.DB, c models.Course) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	_, err := database.ExecContext(ctx, `
		INSERT INTO courses (id, name, type, monthly_fee_cents)
		VALUES ($1, $2, $3, $4)
	`, c.ID, c.Name, c.Type, c.MonthlyFeeCents)
	return err
}

// ListEnrolledCourses returns every course the student is enrolled in.
func ListEnrolledCourses(ctx context.Context, database *sql.DB, studentID string) ([]models.Course, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, `
		SELECT c.id, c.name, c.type, c.monthly_fee_cents
		FROM courses c
		JOIN enrollments e ON e.course_id = c.id
		WHERE e.student_id = $1
		ORDER BY c.name
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Course
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.MonthlyFeeCents); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
