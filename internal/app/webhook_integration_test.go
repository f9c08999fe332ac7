//go:build testutil
// +build testutil

package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/campusconnect/backend/internal/app"
	"github.com/campusconnect/backend/internal/config"
	"github.com/campusconnect/backend/internal/db"
	"github.com/campusconnect/backend/internal/logging"
	"github.com/campusconnect/backend/internal/models"
	"github.com/campusconnect/backend/internal/stripe"
	"github.com/campusconnect/backend/internal/testutil/testdb"
)

const (
	testWebhookSecret = "whsec_integration"
	testAdminToken    = "admin-secret"
)

type env struct {
	h   *testdb.DBHandle
	srv *httptest.Server
}

func startEnv(t *testing.T) *env {
	t.Helper()
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(h.Close)

	lg, err := logging.Init("error", "dev")
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		HTTPAddr:            ":0",
		Location:            time.UTC,
		StripeSecretKey:     "sk_test_x",
		StripeWebhookSecret: testWebhookSecret,
		AdminAPIToken:       testAdminToken,
		ParentTokenTTL:      time.Hour,
	}
	s := app.New(cfg, h.DB, lg)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return &env{h: h, srv: ts}
}

func (e *env) seedStudent(t *testing.T, id, grade string) {
	t.Helper()
	err := db.CreateStudent(context.Background(), e.h.DB, models.Student{
		ID: id, Name: "Student " + id, Grade: grade,
		EnrollmentDate: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func intentEvent(eventID, intentID, studentID string, amount int64) []byte {
	meta := "{}"
	if studentID != "" {
		meta = fmt.Sprintf(`{"studentId":%q}`, studentID)
	}
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "payment_intent.succeeded",
		"data": {"object": {
			"id": %q,
			"amount": %d,
			"amount_received": %d,
			"currency": "usd",
			"metadata": %s
		}}
	}`, eventID, intentID, amount, amount, meta))
}

func (e *env) deliver(t *testing.T, payload []byte, header string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/api/webhooks/stripe", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	if header != "" {
		req.Header.Set("Stripe-Signature", header)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, string(body)
}

func signedHeader(payload []byte) string {
	return stripe.SignPayload(payload, testWebhookSecret, time.Now())
}

func TestWebhook_RecordsPaymentOnce(t *testing.T) {
	e := startEnv(t)
	e.seedStudent(t, "stu-1", "5")

	payload := intentEvent("evt_1", "pi_1", "stu-1", 15000)

	for i := 0; i < 2; i++ {
		resp, body := e.deliver(t, payload, signedHeader(payload))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("delivery %d: status %d body %s", i, resp.StatusCode, body)
		}
		if !strings.Contains(body, `"received":true`) {
			t.Fatalf("delivery %d: body %s", i, body)
		}
	}

	list, err := db.ListPaymentsByStudent(context.Background(), e.h.DB, "stu-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("want exactly one record, got %d", len(list))
	}
	p := list[0]
	if p.ExternalPaymentID != "pi_1" || p.AmountCents != 15000 || p.Method != models.MethodCard {
		t.Fatalf("unexpected record: %+v", p)
	}
}

func TestWebhook_ConcurrentDuplicateDeliveries(t *testing.T) {
	e := startEnv(t)
	e.seedStudent(t, "stu-2", "5")

	payload := intentEvent("evt_2", "pi_2", "stu-2", 9900)
	header := signedHeader(payload)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, _ := e.deliver(t, payload, header)
			if resp.StatusCode != http.StatusOK {
				t.Errorf("status %d", resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	list, err := db.ListPaymentsByStudent(context.Background(), e.h.DB, "stu-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("race produced %d records, want 1", len(list))
	}
}

func TestWebhook_SignatureGate(t *testing.T) {
	e := startEnv(t)
	e.seedStudent(t, "stu-3", "5")

	payload := intentEvent("evt_3", "pi_3", "stu-3", 5000)

	resp, body := e.deliver(t, payload, stripe.SignPayload(payload, "whsec_wrong", time.Now()))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
	if !strings.Contains(body, "Webhook Error") {
		t.Fatalf("body %q lacks Webhook Error prefix", body)
	}

	// missing header entirely
	resp, body = e.deliver(t, payload, "")
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(body, "Webhook Error") {
		t.Fatalf("status %d body %q", resp.StatusCode, body)
	}

	list, err := db.ListPaymentsByStudent(context.Background(), e.h.DB, "stu-3")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("rejected delivery created %d records", len(list))
	}
}

func TestWebhook_MissingStudentMetadata(t *testing.T) {
	e := startEnv(t)

	payload := intentEvent("evt_4", "pi_4", "", 5000)
	resp, body := e.deliver(t, payload, signedHeader(payload))
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"received":true`) {
		t.Fatalf("status %d body %s", resp.StatusCode, body)
	}

	var n int
	if err := e.h.DB.QueryRow(`SELECT count(*) FROM payments`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("metadata-less event created %d records", n)
	}
}

func TestWebhook_IrrelevantEventType(t *testing.T) {
	e := startEnv(t)

	payload := []byte(`{"id":"evt_5","type":"charge.refunded","data":{"object":{}}}`)
	resp, body := e.deliver(t, payload, signedHeader(payload))
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"received":true`) {
		t.Fatalf("status %d body %s", resp.StatusCode, body)
	}

	var n int
	if err := e.h.DB.QueryRow(`SELECT count(*) FROM payments`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("irrelevant event created %d records", n)
	}
}

func TestWebhook_NotConfigured(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(h.Close)
	lg, err := logging.Init("error", "dev")
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		HTTPAddr:      ":0",
		Location:      time.UTC,
		AdminAPIToken: testAdminToken,
	}
	ts := httptest.NewServer(app.New(cfg, h.DB, lg).Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Post(ts.URL+"/api/webhooks/stripe", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", resp.StatusCode)
	}
}

func TestParentRoutes_TokenGate(t *testing.T) {
	e := startEnv(t)
	e.seedStudent(t, "stu-7", "6")

	// issue via the admin API
	req, _ := http.NewRequest(http.MethodPost, e.srv.URL+"/api/admin/students/stu-7/access-token", nil)
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("issue status %d", resp.StatusCode)
	}
	var issued struct {
		Token     string `json:"token"`
		PortalURL string `json:"portalUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&issued); err != nil {
		t.Fatal(err)
	}

	// valid token serves the student
	r2, err := http.Get(e.srv.URL + "/parent/" + issued.Token + "/student")
	if err != nil {
		t.Fatal(err)
	}
	defer r2.Body.Close()
	if r2.StatusCode != http.StatusOK {
		t.Fatalf("portal status %d", r2.StatusCode)
	}
	var sv struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r2.Body).Decode(&sv); err != nil {
		t.Fatal(err)
	}
	if sv.ID != "stu-7" {
		t.Fatalf("portal resolved %q", sv.ID)
	}

	// bogus token is unauthorized
	r3, err := http.Get(e.srv.URL + "/parent/bogus-token/student")
	if err != nil {
		t.Fatal(err)
	}
	defer r3.Body.Close()
	if r3.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bogus token status %d, want 401", r3.StatusCode)
	}
}

func TestAdminRoutes_RequireBearer(t *testing.T) {
	e := startEnv(t)

	req, _ := http.NewRequest(http.MethodPost, e.srv.URL+"/api/admin/students/x/access-token", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.StatusCode)
	}
}
