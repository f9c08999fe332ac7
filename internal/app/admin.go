package app

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/campusconnect/backend/internal/db"
	"github.com/campusconnect/backend/internal/export"
	"github.com/campusconnect/backend/internal/finance"
	"github.com/campusconnect/backend/internal/metrics"
	"github.com/campusconnect/backend/internal/parentaccess"
	"github.com/go-chi/chi/v5"
)

func (s *Server) requireAdminToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminAPIToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type issueTokenRequest struct {
	ParentID   string `json:"parentId"`
	ParentName string `json:"parentName"`
}

type issueTokenResponse struct {
	Token     string `json:"token"`
	PortalURL string `json:"portalUrl"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")
	var req issueTokenRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad request body")
			return
		}
	}

	token, err := parentaccess.Issue(r.Context(), s.db, studentID, parentaccess.IssueOpts{
		ParentID:   req.ParentID,
		ParentName: req.ParentName,
		TTL:        s.cfg.ParentTokenTTL,
	})
	if err != nil {
		s.log.Sugar.Errorw("issue parent token", "student", studentID, "err", err)
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	resp := issueTokenResponse{Token: token, PortalURL: "/parent/" + token}
	if s.cfg.ParentTokenTTL > 0 {
		resp.ExpiresAt = time.Now().UTC().Add(s.cfg.ParentTokenTTL).Format(time.RFC3339)
	}
	s.log.Sugar.Infow("parent token issued", "student", studentID)
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleRevokeToken(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")
	n, err := db.RevokeTokensForStudent(r.Context(), s.db, studentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"revoked": n})
}

func (s *Server) handleManualPayment(w http.ResponseWriter, r *http.Request) {
	var in finance.ManualPaymentInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	rec, err := finance.RecordManualPayment(r.Context(), s.db, in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.PaymentsRecorded.WithLabelValues(string(rec.Method)).Inc()
	s.log.Sugar.Infow("manual payment recorded",
		"student", rec.StudentID, "method", rec.Method, "amount_cents", rec.AmountCents)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleAdminFees(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")
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
		"studentId":    studentID,
		"academicYear": year,
		"fees":         bd,
	})
}

// handleStatementExport streams an xlsx statement: payments on one sheet,
// the current fee breakdown on another.
func (s *Server) handleStatementExport(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")
	year := r.URL.Query().Get("year")
	if year == "" {
		year = finance.AcademicYearOf(time.Now().In(s.cfg.Location))
	}

	student, err := db.GetStudent(r.Context(), s.db, studentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if student == nil {
		writeError(w, http.StatusNotFound, "student not found")
		return
	}

	payments, err := db.ListPaymentsByStudent(r.Context(), s.db, studentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	bd, err := finance.CombinedMonthlyDue(r.Context(), s.db, studentID, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	payRows := make([][]string, 0, len(payments))
	for _, p := range payments {
		payRows = append(payRows, []string{
			p.PaidAt.UTC().Format("2006-01-02"),
			p.Month,
			p.AcademicYear,
			string(p.Method),
			export.FormatCents(p.AmountCents),
			p.Currency,
			p.ExternalPaymentID,
		})
	}

	wb, err := export.NewStatementWorkbook([]export.SheetSpec{
		{
			Title:  "Payments",
			Header: []string{"Date", "Month", "Academic year", "Method", "Amount", "Currency", "External id"},
			Rows:   payRows,
		},
		{
			Title:  "Monthly fees",
			Header: []string{"Grade fee", "Support fee", "Combined"},
			Rows: [][]string{{
				export.FormatCents(bd.GradeMonthlyCents),
				export.FormatCents(bd.SupportMonthlyCents),
				export.FormatCents(bd.CombinedMonthlyCents),
			}},
		},
	})
	if err != nil {
		s.log.Sugar.Errorw("build statement workbook", "student", studentID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.BuildStatementFilename(student.Name, year)+`"`)
	if err := wb.File.Write(w); err != nil {
		s.log.Sugar.Errorw("write statement workbook", "student", studentID, "err", err)
	}
}
