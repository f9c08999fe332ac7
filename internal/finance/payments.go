package finance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campusconnect/backend/internal/db"
	"github.com/campusconnect/backend/internal/models"
	"github.com/google/uuid"
)

type ManualPaymentInput struct {
	StudentID   string               `json:"studentId"`
	AmountCents int64                `json:"amountCents"`
	Currency    string               `json:"currency"`
	Method      models.PaymentMethod `json:"method"`
	PaidAt      time.Time            `json:"paidAt"`
}

// RecordManualPayment stores a cash or bank-transfer payment entered by
// finance staff. Card payments only ever arrive through the webhook.
func RecordManualPayment(ctx context.Context, database *sql.DB, in ManualPaymentInput) (*models.PaymentRecord, error) {
	if !in.Method.Valid() || in.Method == models.MethodCard {
		return nil, fmt.Errorf("method %q not allowed for manual entry", in.Method)
	}
	if in.AmountCents <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", in.AmountCents)
	}
	student, err := db.GetStudent(ctx, database, in.StudentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, fmt.Errorf("student %s not found", in.StudentID)
	}

	paidAt := in.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}
	currency := in.Currency
	if currency == "" {
		currency = "usd"
	}

	p := models.PaymentRecord{
		ID:           uuid.NewString(),
		StudentID:    in.StudentID,
		AmountCents:  in.AmountCents,
		Currency:     currency,
		PaidAt:       paidAt,
		Month:        MonthKey(paidAt),
		AcademicYear: AcademicYearOf(paidAt),
		Method:       in.Method,
	}
	if _, err := db.InsertPayment(ctx, database, p); err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	return &p, nil
}
