package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/campusconnect/backend/internal/ctxutil"
	"github.com/campusconnect/backend/internal/models"
)

// InsertPayment creates a payment record. When the record carries an
// external payment id the insert is conditional on the unique index over
// external_payment_id: a concurrent or repeated delivery of the same
// payment intent inserts nothing. Returns false when the insert was
// skipped as a duplicate.
func InsertPayment(ctx context.Context, database *sql.DB, p models.PaymentRecord) (bool, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var extID any
	if p.ExternalPaymentID != "" {
		extID = p.ExternalPaymentID
	}
	res, err := database.ExecContext(ctx, `
		INSERT INTO payments
			(id, student_id, amount_cents, currency, paid_at, month, academic_year, method, external_payment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (external_payment_id) WHERE external_payment_id IS NOT NULL
		DO NOTHING
	`, p.ID, p.StudentID, p.AmountCents, p.Currency, p.PaidAt, p.Month, p.AcademicYear, p.Method, extID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindPaymentByExternalID returns nil, nil when no record matches.
func FindPaymentByExternalID(ctx context.Context, database *sql.DB, externalID string) (*models.PaymentRecord, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var p models.PaymentRecord
	var extID sql.NullString
	err := database.QueryRowContext(ctx, `
		SELECT id, student_id, amount_cents, currency, paid_at, month, academic_year, method, external_payment_id, created_at
		FROM payments
		WHERE external_payment_id = $1
	`, externalID).Scan(
		&p.ID, &p.StudentID, &p.AmountCents, &p.Currency, &p.PaidAt,
		&p.Month, &p.AcademicYear, &p.Method, &extID, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.ExternalPaymentID = extID.String
	return &p, nil
}

func ListPaymentsByStudent(ctx context.Context, database *sql.DB, studentID string) ([]models.PaymentRecord, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, `
		SELECT id, student_id, amount_cents, currency, paid_at, month, academic_year, method, external_payment_id, created_at
		FROM payments
		WHERE student_id = $1
		ORDER BY paid_at DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.PaymentRecord
	for rows.Next() {
		var p models.PaymentRecord
		var extID sql.NullString
		if err := rows.Scan(
			&p.ID, &p.StudentID, &p.AmountCents, &p.Currency, &p.PaidAt,
			&p.Month, &p.AcademicYear, &p.Method, &extID, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		p.ExternalPaymentID = extID.String
		out = append(out, p)
	}
	return out, rows.Err()
}
