package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/covera/internal/config"
	"github.com/example/covera/internal/database"
	"github.com/example/covera/internal/models"
	"github.com/example/covera/internal/session"
)

// stubMailer records sends instead of calling out, letting tests read the
// code that would have been emailed.
type stubMailer struct {
	enabled   bool
	lastCode  string
	lastTo    string
	uploadURL string
	failSend  bool
}

func (m *stubMailer) Enabled() bool { return m.enabled }

func (m *stubMailer) SendVerificationCode(to, customerName, code string) error {
	if m.failSend {
		return fmt.Errorf("send failed")
	}
	m.lastTo = to
	m.lastCode = code
	return nil
}

func (m *stubMailer) SendUploadLink(to, customerName, claimNumber, coverageType, uploadURL string) error {
	if m.failSend {
		return fmt.Errorf("send failed")
	}
	m.lastTo = to
	m.uploadURL = uploadURL
	return nil
}

type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	kv     *session.MemoryKV
	mailer *stubMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	kv := session.NewMemoryKV()
	mailer := &stubMailer{enabled: true}
	cfg := &config.Config{
		SessionTTL:      time.Hour,
		PublicBaseURL:   "https://portal.example.com",
		EscalationPhone: "+13142304536",
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})

	tools := NewToolHandler(db, kv, mailer, cfg)
	app.Post("/api/tools/verify-customer", tools.VerifyCustomer)
	app.Post("/api/tools/alternative-verification", tools.AlternativeVerification)
	app.Post("/api/tools/send-verification-code", tools.SendVerificationCode)
	app.Post("/api/tools/verify-email-code", tools.VerifyEmailCode)
	app.Post("/api/tools/confirm-identity", tools.ConfirmIdentity)
	app.Post("/api/tools/get-claim-status", tools.GetClaimStatus)
	app.Post("/api/tools/search-knowledge-base", tools.SearchKnowledgeBase)
	app.Post("/api/tools/send-upload-link", tools.SendUploadLink)
	app.Post("/api/tools/end-call", tools.EndCall)

	webhooks := NewWebhookHandler(db, session.NewStore(kv, cfg.SessionTTL))
	app.Post("/api/webhook", webhooks.Handle)

	uploads := NewUploadHandler(db, session.NewTokenStore(kv))
	app.Get("/api/upload/:token", uploads.ValidateToken)
	app.Post("/api/upload/:token", uploads.Submit)

	return &testEnv{app: app, db: db, kv: kv, mailer: mailer}
}

func (e *testEnv) post(t *testing.T, path string, body any) (int, map[string]any) {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response from %s: %v", path, err)
	}
	return resp.StatusCode, decoded
}

func (e *testEnv) seedCustomer(t *testing.T) *models.Customer {
	t.Helper()

	dob := time.Date(1985, time.March, 12, 0, 0, 0, 0, time.UTC)
	customer := &models.Customer{
		FirstName:   "Sarah",
		LastName:    "Johnson",
		Phone:       "(555) 123-4567",
		Email:       "sarah.johnson@example.com",
		DateOfBirth: &dob,
	}
	if err := e.db.Create(customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return customer
}

func (e *testEnv) seedClaim(t *testing.T, customer *models.Customer) *models.Claim {
	t.Helper()

	incident := time.Date(2026, time.July, 2, 0, 0, 0, 0, time.UTC)
	claim := &models.Claim{
		CustomerID:   customer.ID,
		Status:       models.ClaimStatusUnderReview,
		CoverageType: "auto",
		IncidentDate: &incident,
		Amount:       4820.50,
		Description:  "Rear-end collision on I-64",
	}
	if err := e.db.Create(claim).Error; err != nil {
		t.Fatalf("seed claim: %v", err)
	}

	note := &models.CaseNote{
		ClaimID: claim.ID,
		Title:   "Adjuster assigned",
		Body:    "Estimate scheduled for next week.",
	}
	if err := e.db.Create(note).Error; err != nil {
		t.Fatalf("seed case note: %v", err)
	}
	return claim
}

// startCall simulates the platform's call-start webhook so a session exists.
func (e *testEnv) startCall(t *testing.T, callID, phone string) {
	t.Helper()

	status, body := e.post(t, "/api/webhook", fiber.Map{
		"message": fiber.Map{
			"type":   "status-update",
			"status": "in-progress",
			"call":   fiber.Map{"id": callID, "customer": fiber.Map{"number": phone}},
		},
	})
	if status != http.StatusOK || body["received"] != true {
		t.Fatalf("call start webhook: status %d body %v", status, body)
	}
}

func TestVerifyCustomerHappyPath(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)
	env.startCall(t, "call-1", "+15551234567")

	status, body := env.post(t, "/api/tools/verify-customer", fiber.Map{
		"phoneNumber": "555-123-4567",
		"callId":      "call-1",
	})
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["success"] != true || body["customerFound"] != true {
		t.Fatalf("body = %v", body)
	}
	if body["customerId"] != customer.ID.String() {
		t.Errorf("customerId = %v, want %s", body["customerId"], customer.ID)
	}
	if body["nextStep"] != "CONFIRM_IDENTITY" {
		t.Errorf("nextStep = %v", body["nextStep"])
	}
}

// Misses are HTTP 200 with an error code; the voice model narrates them.
func TestVerifyCustomerMissesAre200(t *testing.T) {
	env := newTestEnv(t)
	env.seedCustomer(t)

	tests := []struct {
		name    string
		phone   string
		errCode string
	}{
		{"unknown number", "555-999-8888", "NOT_FOUND"},
		{"incomplete", "555-1234", "INCOMPLETE_NUMBER"},
		{"garbage", "no number here", "INVALID_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.post(t, "/api/tools/verify-customer", fiber.Map{
				"phoneNumber": tt.phone,
			})
			if status != http.StatusOK {
				t.Fatalf("status = %d, want 200", status)
			}
			if body["success"] != false || body["error"] != tt.errCode {
				t.Errorf("body = %v, want error %s", body, tt.errCode)
			}
		})
	}
}

func TestVerifyCustomerMissingPhoneIs400(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.post(t, "/api/tools/verify-customer", fiber.Map{})
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}

func TestToolsDenyUnauthenticated(t *testing.T) {
	env := newTestEnv(t)
	env.seedCustomer(t)

	// No call id at all.
	status, body := env.post(t, "/api/tools/get-claim-status", fiber.Map{})
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	if body["error"] != session.DenyAuthRequired {
		t.Errorf("error = %v, want %s", body["error"], session.DenyAuthRequired)
	}

	// Session exists but identity was never confirmed.
	env.startCall(t, "call-2", "+15551234567")
	env.post(t, "/api/tools/verify-customer", fiber.Map{
		"phoneNumber": "+15551234567",
		"callId":      "call-2",
	})

	status, body = env.post(t, "/api/tools/get-claim-status", fiber.Map{"callId": "call-2"})
	if status != http.StatusUnauthorized {
		t.Fatalf("verified-only status = %d, want 401", status)
	}
	if body["error"] != session.DenyAuthRequired {
		t.Errorf("error = %v", body["error"])
	}
}

func TestPhoneFlowEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)
	claim := env.seedClaim(t, customer)
	env.startCall(t, "call-3", "+15551234567")

	// Phone match.
	_, body := env.post(t, "/api/tools/verify-customer", fiber.Map{
		"phoneNumber": "+15551234567",
		"callId":      "call-3",
	})
	if body["success"] != true {
		t.Fatalf("verify: %v", body)
	}

	// Phone trust confirms directly, no code challenge.
	_, body = env.post(t, "/api/tools/confirm-identity", fiber.Map{
		"confirmed": true,
		"callId":    "call-3",
	})
	if body["authenticated"] != true || body["action"] != "PROCEED_TO_SERVICE" {
		t.Fatalf("confirm: %v", body)
	}

	// Data access now works and is scoped to the session's customer.
	status, body := env.post(t, "/api/tools/get-claim-status", fiber.Map{"callId": "call-3"})
	if status != http.StatusOK {
		t.Fatalf("claim status = %d", status)
	}
	if body["success"] != true || body["claimNumber"] != claim.ClaimNumber {
		t.Fatalf("claim body: %v", body)
	}
	if body["status"] != models.ClaimStatusUnderReview {
		t.Errorf("claim status = %v", body["status"])
	}
}

func TestMismatchedCustomerIDIs403(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)
	env.seedClaim(t, customer)
	env.startCall(t, "call-4", "+15551234567")

	env.post(t, "/api/tools/verify-customer", fiber.Map{
		"phoneNumber": "+15551234567", "callId": "call-4",
	})
	env.post(t, "/api/tools/confirm-identity", fiber.Map{
		"confirmed": true, "callId": "call-4",
	})

	status, body := env.post(t, "/api/tools/get-claim-status", fiber.Map{
		"callId":     "call-4",
		"customerId": "00000000-0000-0000-0000-000000000001",
	})
	if status != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", status)
	}
	if body["error"] != session.DenyAuthMismatch {
		t.Errorf("error = %v, want %s", body["error"], session.DenyAuthMismatch)
	}
}

// Fuzzy name+DOB trust cannot confirm directly: the caller must clear the
// emailed code first, then confirmation proceeds.
func TestNameDOBFlowRequiresCode(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)
	env.seedClaim(t, customer)
	env.startCall(t, "call-5", "+15550000000")

	_, body := env.post(t, "/api/tools/alternative-verification", fiber.Map{
		"method":      "name_dob",
		"firstName":   "Sara", // transcription slip
		"lastName":    "Johnson",
		"dateOfBirth": "1985-03-12",
		"callId":      "call-5",
	})
	if body["success"] != true {
		t.Fatalf("name_dob verify: %v", body)
	}
	if body["verificationMethod"] != "NAME_DOB" {
		t.Errorf("method = %v", body["verificationMethod"])
	}

	// Direct confirmation is refused pending the code.
	_, body = env.post(t, "/api/tools/confirm-identity", fiber.Map{
		"confirmed": true, "callId": "call-5",
	})
	if body["success"] != false || body["error"] != "CODE_REQUIRED" {
		t.Fatalf("confirm before code: %v", body)
	}

	// Send the code; the stub captures what would have been emailed.
	_, body = env.post(t, "/api/tools/send-verification-code", fiber.Map{
		"email":        customer.Email,
		"customerId":   customer.ID.String(),
		"customerName": "Sarah Johnson",
		"callId":       "call-5",
	})
	if body["codeSent"] != true {
		t.Fatalf("send code: %v", body)
	}
	if env.mailer.lastCode == "" || env.mailer.lastTo != customer.Email {
		t.Fatalf("mailer captured to=%q code=%q", env.mailer.lastTo, env.mailer.lastCode)
	}

	_, body = env.post(t, "/api/tools/verify-email-code", fiber.Map{
		"code": env.mailer.lastCode, "callId": "call-5",
	})
	if body["verified"] != true {
		t.Fatalf("verify code: %v", body)
	}

	// Code-backed trust confirms.
	_, body = env.post(t, "/api/tools/confirm-identity", fiber.Map{
		"confirmed": true, "callId": "call-5",
	})
	if body["authenticated"] != true {
		t.Fatalf("confirm after code: %v", body)
	}

	status, _ := env.post(t, "/api/tools/get-claim-status", fiber.Map{"callId": "call-5"})
	if status != http.StatusOK {
		t.Errorf("claim status after code flow = %d", status)
	}
}

func TestVerifyEmailCodeWrongThenExhausted(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)
	env.startCall(t, "call-6", "+15550000000")

	env.post(t, "/api/tools/send-verification-code", fiber.Map{
		"email":        customer.Email,
		"customerId":   customer.ID.String(),
		"customerName": "Sarah Johnson",
		"callId":       "call-6",
	})

	for i := 0; i < 2; i++ {
		_, body := env.post(t, "/api/tools/verify-email-code", fiber.Map{
			"code": "WRONG1", "callId": "call-6",
		})
		if body["verified"] != false || body["error"] != session.CodeErrInvalid {
			t.Fatalf("attempt %d: %v", i+1, body)
		}
	}

	_, body := env.post(t, "/api/tools/verify-email-code", fiber.Map{
		"code": "WRONG1", "callId": "call-6",
	})
	if body["error"] != session.CodeErrMaxAttempts || body["escalate"] != true {
		t.Fatalf("exhaustion: %v", body)
	}
}

func TestConfirmIdentityRejection(t *testing.T) {
	env := newTestEnv(t)
	env.seedCustomer(t)
	env.startCall(t, "call-7", "+15551234567")

	env.post(t, "/api/tools/verify-customer", fiber.Map{
		"phoneNumber": "+15551234567", "callId": "call-7",
	})

	_, body := env.post(t, "/api/tools/confirm-identity", fiber.Map{
		"confirmed": false, "callId": "call-7",
	})
	if body["action"] != "ESCALATE_TO_HUMAN" || body["escalate"] != true {
		t.Fatalf("rejection: %v", body)
	}

	// The session keeps partial trust but is not authenticated.
	status, _ := env.post(t, "/api/tools/get-claim-status", fiber.Map{"callId": "call-7"})
	if status != http.StatusUnauthorized {
		t.Errorf("post-rejection access = %d, want 401", status)
	}
}

func TestSearchKnowledgeBase(t *testing.T) {
	env := newTestEnv(t)
	env.seedCustomer(t)
	env.startCall(t, "call-8", "+15551234567")
	env.post(t, "/api/tools/verify-customer", fiber.Map{
		"phoneNumber": "+15551234567", "callId": "call-8",
	})
	env.post(t, "/api/tools/confirm-identity", fiber.Map{
		"confirmed": true, "callId": "call-8",
	})

	articles := []models.KnowledgeArticle{
		{Title: "Filing a new auto claim", Category: "claims", Keywords: "file claim auto accident", Content: "To file a claim, call us or use the mobile app within 30 days of the incident."},
		{Title: "Understanding your deductible", Category: "billing", Keywords: "deductible payment", Content: "Your deductible is the amount you pay before coverage applies."},
	}
	for i := range articles {
		if err := env.db.Create(&articles[i]).Error; err != nil {
			t.Fatalf("seed article: %v", err)
		}
	}

	_, body := env.post(t, "/api/tools/search-knowledge-base", fiber.Map{
		"query":  "how do I file an auto claim",
		"callId": "call-8",
	})
	if body["success"] != true {
		t.Fatalf("search: %v", body)
	}
	if body["articleTitle"] != "Filing a new auto claim" {
		t.Errorf("top article = %v", body["articleTitle"])
	}

	_, body = env.post(t, "/api/tools/search-knowledge-base", fiber.Map{
		"query":  "zebra migration patterns",
		"callId": "call-8",
	})
	if body["success"] != false || body["error"] != "NO_RESULTS" {
		t.Errorf("miss: %v", body)
	}
}

func TestSendUploadLinkAndPortal(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)
	claim := env.seedClaim(t, customer)
	env.startCall(t, "call-9", "+15551234567")
	env.post(t, "/api/tools/verify-customer", fiber.Map{
		"phoneNumber": "+15551234567", "callId": "call-9",
	})
	env.post(t, "/api/tools/confirm-identity", fiber.Map{
		"confirmed": true, "callId": "call-9",
	})

	_, body := env.post(t, "/api/tools/send-upload-link", fiber.Map{
		"claimNumber": claim.ClaimNumber,
		"callId":      "call-9",
	})
	if body["linkSent"] != true {
		t.Fatalf("send link: %v", body)
	}
	if env.mailer.uploadURL == "" {
		t.Fatal("no upload URL captured")
	}

	// The emailed URL ends with the token; exercise the portal with it.
	parts := bytes.Split([]byte(env.mailer.uploadURL), []byte("/"))
	token := string(parts[len(parts)-1])

	req := httptest.NewRequest(http.MethodGet, "/api/upload/"+token, nil)
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("validate status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	status, body := env.post(t, "/api/upload/"+token, fiber.Map{
		"files": []fiber.Map{
			{"filename": "damage-front.jpg", "contentType": "image/jpeg", "sizeBytes": 204800},
			{"filename": "police-report.pdf", "contentType": "application/pdf", "sizeBytes": 81234},
		},
		"note": "Photos from the scene",
	})
	if status != http.StatusOK || body["filesReceived"] != float64(2) {
		t.Fatalf("submit: %d %v", status, body)
	}

	var docs []models.ClaimDocument
	if err := env.db.Where("claim_id = ?", claim.ID).Find(&docs).Error; err != nil {
		t.Fatalf("load documents: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("documents = %d, want 2", len(docs))
	}

	// Single use: the same token is refused afterwards.
	status, _ = env.post(t, "/api/upload/"+token, fiber.Map{
		"files": []fiber.Map{{"filename": "dup.jpg"}},
	})
	if status != http.StatusNotFound {
		t.Errorf("reused token status = %d, want 404", status)
	}
}

func TestUnknownClaimNumber(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)
	env.seedClaim(t, customer)
	env.startCall(t, "call-10", "+15551234567")
	env.post(t, "/api/tools/verify-customer", fiber.Map{
		"phoneNumber": "+15551234567", "callId": "call-10",
	})
	env.post(t, "/api/tools/confirm-identity", fiber.Map{
		"confirmed": true, "callId": "call-10",
	})

	status, body := env.post(t, "/api/tools/get-claim-status", fiber.Map{
		"callId":      "call-10",
		"claimNumber": "CLM-ZZZZ-ZZZZ",
	})
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if body["error"] != "NO_CLAIMS_FOUND" || body["suggestion"] != "escalate" {
		t.Errorf("body = %v", body)
	}
}

func TestEndCallActions(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.post(t, "/api/tools/end-call", fiber.Map{"reason": "completed"})
	if body["action"] != "END_CALL" || body["transferToHuman"] != false {
		t.Errorf("end: %v", body)
	}

	_, body = env.post(t, "/api/tools/end-call", fiber.Map{"reason": "escalate"})
	if body["action"] != "TRANSFER_CALL" || body["transferDestination"] != "+13142304536" {
		t.Errorf("escalate: %v", body)
	}
}

func TestEndOfCallWebhookPersistsConversation(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)
	env.startCall(t, "call-11", "+15551234567")
	env.post(t, "/api/tools/verify-customer", fiber.Map{
		"phoneNumber": "+15551234567", "callId": "call-11",
	})
	env.post(t, "/api/tools/confirm-identity", fiber.Map{
		"confirmed": true, "callId": "call-11",
	})

	started := time.Now().Add(-3 * time.Minute).UTC()
	ended := time.Now().UTC()
	status, _ := env.post(t, "/api/webhook", fiber.Map{
		"message": fiber.Map{
			"type":        "end-of-call-report",
			"endedReason": "customer-ended-call",
			"call":        fiber.Map{"id": "call-11", "customer": fiber.Map{"number": "+15551234567"}},
			"artifact":    fiber.Map{"transcript": "AI: Hello...\nUser: Hi..."},
			"analysis":    fiber.Map{"summary": "Caller checked claim status."},
			"startedAt":   started,
			"endedAt":     ended,
		},
	})
	if status != http.StatusOK {
		t.Fatalf("webhook status = %d", status)
	}

	var conv models.Conversation
	if err := env.db.Where("call_id = ?", "call-11").First(&conv).Error; err != nil {
		t.Fatalf("load conversation: %v", err)
	}
	if !conv.Authenticated {
		t.Error("conversation not marked authenticated")
	}
	if conv.CustomerID == nil || *conv.CustomerID != customer.ID {
		t.Errorf("conversation customer = %v, want %s", conv.CustomerID, customer.ID)
	}
	if conv.DurationSeconds < 179 || conv.DurationSeconds > 181 {
		t.Errorf("duration = %d, want ~180", conv.DurationSeconds)
	}

	// The live session is gone; further tool calls are unauthorized.
	httpStatus, _ := env.post(t, "/api/tools/get-claim-status", fiber.Map{"callId": "call-11"})
	if httpStatus != http.StatusUnauthorized {
		t.Errorf("post-call access = %d, want 401", httpStatus)
	}
}

// Malformed webhook bodies are acknowledged, never errored back.
func TestWebhookToleratesGarbage(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
