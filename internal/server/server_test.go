package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/fakelens/fakelens/internal/config"
	"github.com/fakelens/fakelens/internal/detector"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig returns a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Port:            "0",
		Env:             "development",
		LogLevel:        "error",
		TrainingSamples: 200,
		TrainingSeed:    42,
		ReportSender:    "log",
		RateLimitRPM:    10000,
	}
}

// newTestServer creates a server backed by in-memory storage. The detector
// is shared across tests in this file so the synthetic training pass runs
// once.
var sharedDetector = detector.New(detector.Config{TrainingSamples: 200, Seed: 42})

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(testConfig(), WithDetector(sharedDetector))
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	s.router.ServeHTTP(w, req)
	return w
}

// ---------------------------------------------------------------------------
// Health and info endpoints
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", resp["status"])
	}
	checks, ok := resp["checks"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected checks map, got %T", resp["checks"])
	}
	if _, ok := checks["ledger"]; !ok {
		t.Error("Expected ledger check")
	}
	if _, ok := checks["model"]; !ok {
		t.Error("Expected model check")
	}
}

func TestLivenessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, "GET", "/health/live", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestReadinessGating(t *testing.T) {
	s := newTestServer(t)

	// Not ready until Run marks it so.
	w := doJSON(t, s, "GET", "/health/ready", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 before startup, got %d", w.Code)
	}

	s.ready.Store(true)
	w = doJSON(t, s, "GET", "/health/ready", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 when ready, got %d", w.Code)
	}
}

func TestInfoEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, "GET", "/", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Message   string   `json:"message"`
		Version   string   `json:"version"`
		Endpoints []string `json:"endpoints"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Version != Version {
		t.Errorf("Version = %q, want %q", resp.Version, Version)
	}
	if len(resp.Endpoints) == 0 {
		t.Error("Expected endpoint list")
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, "GET", "/", "")
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := w.Header().Get("X-Request-ID"); got == "" {
		t.Error("Expected X-Request-ID header")
	}
}

// ---------------------------------------------------------------------------
// Analyze endpoint
// ---------------------------------------------------------------------------

func TestAnalyzeEndpointGenuineProfile(t *testing.T) {
	s := newTestServer(t)

	body := `{
		"platform": "instagram",
		"username": "real_person_42",
		"bio": "software engineer, love hiking and photography",
		"profile_picture_present": true,
		"follower_count": 340,
		"following_count": 210,
		"post_count": 87,
		"account_age_days": 900,
		"verified": false,
		"engagement_rate": 0.04,
		"posting_frequency": 2.0
	}`
	w := doJSON(t, s, "POST", "/api/analyze", body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Analysis struct {
			FakeProbability float64            `json:"fake_probability"`
			RiskLevel       string             `json:"risk_level"`
			Confidence      float64            `json:"confidence"`
			Features        map[string]float64 `json:"features"`
			Explanation     []string           `json:"explanation"`
		} `json:"analysis"`
		Blockchain map[string]interface{} `json:"blockchain"`
		Timestamp  string                 `json:"timestamp"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp.Analysis.RiskLevel != "low" {
		t.Errorf("Expected low risk, got %q (p=%v)", resp.Analysis.RiskLevel, resp.Analysis.FakeProbability)
	}
	if resp.Blockchain != nil {
		t.Errorf("Expected no ledger write for low risk, got %v", resp.Blockchain)
	}
	if len(resp.Analysis.Features) != 11 {
		t.Errorf("Expected 11 features, got %d", len(resp.Analysis.Features))
	}
	if resp.Timestamp == "" {
		t.Error("Expected timestamp")
	}
}

func TestAnalyzeEndpointFakeProfileWritesLedger(t *testing.T) {
	s := newTestServer(t)

	body := `{
		"platform": "twitter",
		"username": "follow4follow99",
		"bio": "follow back dm for collab",
		"profile_picture_present": false,
		"follower_count": 10,
		"following_count": 3000,
		"post_count": 2,
		"account_age_days": 10
	}`
	w := doJSON(t, s, "POST", "/api/analyze", body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Analysis struct {
			RiskLevel   string   `json:"risk_level"`
			Explanation []string `json:"explanation"`
		} `json:"analysis"`
		Blockchain map[string]interface{} `json:"blockchain"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp.Analysis.RiskLevel != "high" {
		t.Errorf("Expected high risk, got %q", resp.Analysis.RiskLevel)
	}
	if resp.Blockchain == nil {
		t.Fatal("Expected ledger write for high risk")
	}
	if resp.Blockchain["success"] != true {
		t.Errorf("Expected successful ledger write, got %v", resp.Blockchain)
	}
	txHash, _ := resp.Blockchain["tx_hash"].(string)
	if !strings.HasPrefix(txHash, "0x") || len(txHash) != 66 {
		t.Errorf("Malformed tx hash: %q", txHash)
	}
	if len(resp.Analysis.Explanation) == 0 {
		t.Error("Expected explanation for fake profile")
	}

	// The write must show up on the records endpoint.
	w = doJSON(t, s, "GET", "/api/blockchain/records", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var records struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if records.Total != 1 {
		t.Errorf("Expected 1 ledger record, got %d", records.Total)
	}
}

func TestAnalyzeEndpointValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing platform", `{"username": "someone"}`},
		{"missing username", `{"platform": "twitter"}`},
		{"malformed platform", `{"platform": "not a platform!", "username": "someone"}`},
		{"invalid json", `{not json`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, s, "POST", "/api/analyze", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestAnalyzeEndpointNormalizesPlatform(t *testing.T) {
	s := newTestServer(t)

	body := `{
		"platform": "  Twitter  ",
		"username": "follow4follow99",
		"bio": "follow back dm for collab",
		"profile_picture_present": false,
		"follower_count": 10,
		"following_count": 3000,
		"post_count": 2,
		"account_age_days": 10
	}`
	w := doJSON(t, s, "POST", "/api/analyze", body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, "GET", "/api/blockchain/records", "")
	var records struct {
		Records []struct {
			Platform string `json:"platform"`
		} `json:"records"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(records.Records) == 0 || records.Records[0].Platform != "twitter" {
		t.Errorf("Expected normalized platform, got %+v", records.Records)
	}
}

// ---------------------------------------------------------------------------
// Report endpoint through the full router
// ---------------------------------------------------------------------------

func TestReportEndpointRouted(t *testing.T) {
	s := newTestServer(t)

	body := `{
		"platform": "twitter",
		"username": "follow4follow99",
		"risk_score": 0.92,
		"risk_level": "high",
		"confidence": 0.92,
		"agency": "cybercrime"
	}`
	w := doJSON(t, s, "POST", "/api/report", body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		ReportData struct {
			ReportID  string `json:"report_id"`
			Recipient string `json:"recipient"`
		} `json:"report_data"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("Expected success, got %q", resp.Status)
	}
	if !strings.HasPrefix(resp.ReportData.ReportID, "RPT-") {
		t.Errorf("Malformed report ID: %q", resp.ReportData.ReportID)
	}
	if resp.ReportData.Recipient != "cybercrime@police.gov.in" {
		t.Errorf("Wrong recipient: %q", resp.ReportData.Recipient)
	}
}

// ---------------------------------------------------------------------------
// Stats endpoint through the full router
// ---------------------------------------------------------------------------

func TestStatsEndpointRouted(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, "GET", "/api/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var stats map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if _, ok := stats["blockchain_records"]; !ok {
		t.Error("Expected blockchain_records field")
	}
}
