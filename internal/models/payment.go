package models

import "time"

type PaymentMethod string

const (
	MethodCard         PaymentMethod = "card"
	MethodCash         PaymentMethod = "cash"
	MethodBankTransfer PaymentMethod = "bank-transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCard, MethodCash, MethodBankTransfer:
		return true
	}
	return false
}

type PaymentRecord struct {
	ID           string
	StudentID    string
	AmountCents  int64
	Currency     string
	PaidAt       time.Time
	Month        string // "2026-01"
	AcademicYear string // "2025-2026"
	Method       PaymentMethod
	// ExternalPaymentID is the processor's payment-intent id for card
	// payments; empty for manual ones. Unique in storage, which is what
	// makes webhook retries idempotent.
	ExternalPaymentID string
	CreatedAt         time.Time
}

type FeeStructure struct {
	ID                 string // "<grade>-<academicYear>"
	Grade              string
	AcademicYear       string
	MonthlyAmountCents int64
}
