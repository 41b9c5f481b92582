package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/health"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

type stubChecker struct {
	report      *health.Report
	diagnostics *health.Diagnostics
	calls       int
}

func (s *stubChecker) Check(context.Context) *health.Report {
	s.calls++
	return s.report
}

func (s *stubChecker) Diagnose(context.Context) *health.Diagnostics {
	s.calls++
	return s.diagnostics
}

func TestHealthHandler(t *testing.T) {
	checker := &stubChecker{
		report: &health.Report{Status: health.StatusWarning, Timestamp: time.Now()},
		diagnostics: &health.Diagnostics{
			Issues:          []health.Issue{{Type: health.IssueConfiguration, Severity: health.StatusWarning, Message: "threshold"}},
			Recommendations: []string{"clean the lens"},
		},
	}
	handler := NewHealthHandler(checker, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req = req.WithContext(middleware.SetClaimsInContext(req.Context(), &middleware.Claims{Role: middleware.RoleManager}))

	recorder := httptest.NewRecorder()
	handler.Health(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)
	var report map[string]any
	parseJSONResponse(t, recorder, &report)
	if report["status"] != "warning" {
		t.Errorf("expected status warning, got %v", report["status"])
	}

	recorder = httptest.NewRecorder()
	handler.Diagnostics(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)
	var diag health.Diagnostics
	parseJSONResponse(t, recorder, &diag)
	if len(diag.Issues) != 1 || diag.Issues[0].Type != health.IssueConfiguration {
		t.Errorf("unexpected issues %+v", diag.Issues)
	}

	if checker.calls != 2 {
		t.Errorf("expected 2 checker calls, got %d", checker.calls)
	}
}
