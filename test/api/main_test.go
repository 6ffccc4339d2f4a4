package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// The suite drives a running server end to end. Point API_TEST_BASE_URL
// at one (default http://localhost:8080/api/v1); without a reachable
// server the suite skips.
var (
	baseURL      = "http://localhost:8080/api/v1"
	serverUp     bool
	staffToken   string
	patientToken string
)

// APIResponse is the wire envelope every endpoint responds with.
type APIResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// TestResponse wraps the API response for assertions.
type TestResponse struct {
	StatusCode int
	Status     string
	Message    string
	Data       map[string]interface{}
	RawData    string
}

func (r TestResponse) IsSuccess() bool {
	return r.Status == "success"
}

func (r TestResponse) GetString(key string) string {
	if r.Data == nil {
		return ""
	}
	if v, ok := r.Data[key].(string); ok {
		return v
	}
	return ""
}

func checkAPIServer() error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(baseURL + "/health/live")
	if err != nil {
		return fmt.Errorf("API server not reachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status %d", resp.StatusCode)
	}
	return nil
}

func TestMain(m *testing.M) {
	if url := os.Getenv("API_TEST_BASE_URL"); url != "" {
		baseURL = url
	}

	if err := checkAPIServer(); err != nil {
		fmt.Printf("Skipping API tests: %v\n", err)
		os.Exit(0)
	}
	serverUp = true

	setupStaffAuth()
	patientToken = os.Getenv("API_TEST_PATIENT_TOKEN")

	os.Exit(m.Run())
}

func setupStaffAuth() {
	card := os.Getenv("API_TEST_STAFF_CARD")
	password := os.Getenv("API_TEST_STAFF_PASSWORD")
	if card == "" || password == "" {
		return
	}

	resp := makeRequest("POST", "/auth/staff/login", map[string]string{
		"card_number": card,
		"password":    password,
	}, "")
	if resp.IsSuccess() {
		staffToken = resp.GetString("access_token")
	}
}

func requireServer(t *testing.T) {
	t.Helper()
	if !serverUp {
		t.Skip("API server not reachable")
	}
}

func requireStaff(t *testing.T) {
	t.Helper()
	requireServer(t)
	if staffToken == "" {
		t.Skip("staff credentials not configured")
	}
}

func requirePatient(t *testing.T) {
	t.Helper()
	requireServer(t)
	if patientToken == "" {
		t.Skip("patient token not configured")
	}
}

func makeRequest(method, path string, body interface{}, token string) TestResponse {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return TestResponse{Message: err.Error()}
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, baseURL+path, reqBody)
	if err != nil {
		return TestResponse{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return TestResponse{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return TestResponse{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	var apiResp APIResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return TestResponse{StatusCode: resp.StatusCode, Message: string(raw)}
	}

	out := TestResponse{
		StatusCode: resp.StatusCode,
		Status:     apiResp.Status,
		Message:    apiResp.Message,
		RawData:    string(apiResp.Data),
	}
	var data map[string]interface{}
	if json.Unmarshal(apiResp.Data, &data) == nil {
		out.Data = data
	}
	return out
}
