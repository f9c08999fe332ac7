package app

import (
	"io"
	"net/http"
	"time"

	"github.com/campusconnect/backend/internal/db"
	"github.com/campusconnect/backend/internal/finance"
	"github.com/campusconnect/backend/internal/metrics"
	"github.com/campusconnect/backend/internal/models"
	"github.com/campusconnect/backend/internal/observability"
	"github.com/campusconnect/backend/internal/stripe"
	"github.com/google/uuid"
)

// metadata key set at payment-intent creation time by the portal's
// checkout flow; its presence is what ties a card payment to a student.
const metaStudentID = "studentId"

type webhookAck struct {
	Received bool `json:"received"`
}

// handleStripeWebhook implements the payment confirmation protocol:
// verify the signature over the raw body, record succeeded payment
// intents exactly once, acknowledge everything else. Once the signature
// checks out the processor always gets a 200 unless our own store failed,
// so its retry policy only fires on genuinely retryable errors.
func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if s.cfg.StripeSecretKey == "" || s.cfg.StripeWebhookSecret == "" {
		s.log.Sugar.Errorw("stripe webhook hit without configured secrets")
		writeError(w, http.StatusInternalServerError, "payment processor not configured")
		return
	}

	// Raw bytes, never a decoded-then-re-encoded body: the MAC is
	// computed over the exact byte sequence the processor sent.
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if err := stripe.VerifySignature(payload, sigHeader, s.cfg.StripeWebhookSecret, stripe.DefaultTolerance); err != nil {
		metrics.WebhookEvents.WithLabelValues("bad_signature").Inc()
		s.log.Sugar.Warnw("webhook signature rejected", "err", err)
		http.Error(w, "Webhook Error: "+err.Error(), http.StatusBadRequest)
		return
	}

	ev, err := stripe.ParseEvent(payload)
	if err != nil {
		// Verified but unparseable. Treated like signature failure: the
		// body cannot be trusted to mean anything.
		metrics.WebhookEvents.WithLabelValues("bad_signature").Inc()
		http.Error(w, "Webhook Error: "+err.Error(), http.StatusBadRequest)
		return
	}

	if ev.Type != stripe.EventPaymentIntentSucceeded {
		// unknown/irrelevant event types are acknowledged, not errored
		metrics.WebhookEvents.WithLabelValues("ignored").Inc()
		writeJSON(w, http.StatusOK, webhookAck{Received: true})
		return
	}

	pi, err := ev.PaymentIntent()
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("bad_signature").Inc()
		http.Error(w, "Webhook Error: "+err.Error(), http.StatusBadRequest)
		return
	}

	studentID := pi.Metadata[metaStudentID]
	if studentID == "" {
		// Metadata gap on our side. Failing the webhook would make the
		// processor retry a payment that can never be completed, so log
		// and acknowledge.
		metrics.WebhookEvents.WithLabelValues("no_student").Inc()
		s.log.Sugar.Warnw("payment intent without studentId metadata",
			"event", ev.ID, "intent", pi.ID)
		writeJSON(w, http.StatusOK, webhookAck{Received: true})
		return
	}

	rec := models.PaymentRecord{
		ID:                uuid.NewString(),
		StudentID:         studentID,
		AmountCents:       pi.SettledAmount(),
		Currency:          pi.Currency,
		PaidAt:            time.Now().UTC(),
		Method:            models.MethodCard,
		ExternalPaymentID: pi.ID,
	}
	rec.Month = finance.MonthKey(rec.PaidAt)
	rec.AcademicYear = finance.AcademicYearOf(rec.PaidAt)

	inserted, err := db.InsertPayment(r.Context(), s.db, rec)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		observability.CaptureErr(err)
		s.log.Sugar.Errorw("record card payment", "intent", pi.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !inserted {
		metrics.WebhookEvents.WithLabelValues("duplicate").Inc()
		s.log.Sugar.Infow("duplicate payment intent delivery skipped",
			"event", ev.ID, "intent", pi.ID)
	} else {
		metrics.WebhookEvents.WithLabelValues("recorded").Inc()
		metrics.PaymentsRecorded.WithLabelValues(string(models.MethodCard)).Inc()
		s.log.Sugar.Infow("card payment recorded",
			"intent", pi.ID, "student", studentID, "amount_cents", rec.AmountCents)
	}

	writeJSON(w, http.StatusOK, webhookAck{Received: true})
}
