package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/facecache"
	"github.com/kozaktomas/face-attendance/internal/logging"
)

// testConfig creates the default recognition config for testing
func testConfig() config.RecognitionConfig {
	return config.Defaults().Recognition
}

// testStores bundles the mock stores behind a real service
type testStores struct {
	employees  *mock.MockEmployeeStore
	attendance *mock.MockAttendanceStore
	attempts   *mock.MockAttemptRecorder
}

// newTestService creates an attendance service over fresh mock stores
func newTestService(t *testing.T, cfg config.RecognitionConfig) (*attendance.Service, *testStores) {
	t.Helper()
	stores := &testStores{
		employees:  mock.NewMockEmployeeStore(),
		attendance: mock.NewMockAttendanceStore(),
		attempts:   mock.NewMockAttemptRecorder(),
	}
	svc := attendance.NewService(attendance.Deps{
		Employees:  stores.employees,
		Attendance: stores.attendance,
		Attempts:   stores.attempts,
		Cache:      facecache.New(stores.employees, cfg.CacheValidity()),
	}, cfg, logging.Discard())
	return svc, stores
}

// b64JSON encodes a value the way the kiosk submits descriptors
func b64JSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

// jsonRequest creates a request with a JSON body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertFailure checks that the response is a failure body with the expected message
func assertFailure(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result failure
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result.Success {
		t.Error("expected success false")
	}
	if result.Message != expectedMessage {
		t.Errorf("expected message '%s', got '%s'", expectedMessage, result.Message)
	}
}
