package app

import (
	"net/http"
	"time"

	"github.com/campusconnect/backend/internal/ctxutil"
	"github.com/campusconnect/backend/internal/db"
	"github.com/campusconnect/backend/internal/export"
	"github.com/campusconnect/backend/internal/finance"
	"github.com/campusconnect/backend/internal/metrics"
	"github.com/campusconnect/backend/internal/parentaccess"
	"github.com/go-chi/chi/v5"
)

// requireParentToken is the sole authorization gate for every parent
// route: resolve the path token to a student id or answer 401. Failed
// lookups are throttled per client IP.
func (s *Server) requireParentToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.limiter.Allow(ip) {
			writeError(w, http.StatusTooManyRequests, "too many attempts")
			return
		}

		token := chi.URLParam(r, "token")
		studentID, err := parentaccess.Validate(r.Context(), s.db, token)
		if err != nil {
			metrics.TokenValidations.WithLabelValues("error").Inc()
			s.log.Sugar.Errorw("token validation", "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if studentID == "" {
			metrics.TokenValidations.WithLabelValues("invalid").Inc()
			s.limiter.Fail(ip)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		metrics.TokenValidations.WithLabelValues("ok").Inc()

		ctx := ctxutil.WithStudentID(r.Context(), studentID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type studentView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Grade          string `json:"grade"`
	EnrollmentDate string `json:"enrollmentDate"`
}

func (s *Server) handleParentStudent(w http.ResponseWriter, r *http.Request) {
	studentID, _ := ctxutil.StudentID(r.Context())
	student, err := db.GetStudent(r.Context(), s.db, studentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if student == nil {
		// token outlived the student record
		writeError(w, http.StatusNotFound, "student not found")
		return
	}
	writeJSON(w, http.StatusOK, studentView{
		ID:             student.ID,
		Name:           student.Name,
		Grade:          student.Grade,
		EnrollmentDate: student.EnrollmentDate.Format("2006-01-02"),
	})
}

func (s *Server) handleParentFees(w http.ResponseWriter, r *http.Request) {
	studentID, _ := ctxutil.StudentID(r.Context())
	year := r.URL.Query().Get("year")
	if year == "" {
		year = finance.AcademicYearOf(time.Now().In(s.cfg.Location))
	}
	bd, err := finance.CombinedMonthlyDue(r.Context(), s.db, studentID, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"academicYear": year,
		"fees":         bd,
	})
}

type paymentView struct {
	ID           string `json:"id"`
	AmountCents  int64  `json:"amountCents"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	PaidAt       string `json:"paidAt"`
	Month        string `json:"month"`
	AcademicYear string `json:"academicYear"`
	Method       string `json:"method"`
}

func (s *Server) handleParentPayments(w http.ResponseWriter, r *http.Request) {
	studentID, _ := ctxutil.StudentID(r.Context())
	payments, err := db.ListPaymentsByStudent(r.Context(), s.db, studentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]paymentView, 0, len(payments))
	for _, p := range payments {
		out = append(out, paymentView{
			ID:           p.ID,
			AmountCents:  p.AmountCents,
			Amount:       export.FormatCents(p.AmountCents),
			Currency:     p.Currency,
			PaidAt:       p.PaidAt.UTC().Format(time.RFC3339),
			Month:        p.Month,
			AcademicYear: p.AcademicYear,
			Method:       string(p.Method),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": out})
}
