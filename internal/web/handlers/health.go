package handlers

import (
	"context"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/health"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
	"github.com/sirupsen/logrus"
)

// HealthChecker runs the system health check and diagnostics.
type HealthChecker interface {
	Check(ctx context.Context) *health.Report
	Diagnose(ctx context.Context) *health.Diagnostics
}

// HealthHandler handles the manager health endpoints
type HealthHandler struct {
	checker HealthChecker
	log     logrus.FieldLogger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checker HealthChecker, log logrus.FieldLogger) *HealthHandler {
	return &HealthHandler{checker: checker, log: log}
}

func (h *HealthHandler) caller(r *http.Request) string {
	if claims := middleware.GetClaimsFromContext(r.Context()); claims != nil {
		return claims.Subject
	}
	return "unknown"
}

// Health returns the full health report.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	logging.For(h.log).WithField("user", h.caller(r)).Info("health check initiated")
	respondJSON(w, http.StatusOK, h.checker.Check(r.Context()))
}

// Diagnostics returns detected issues and recommendations.
func (h *HealthHandler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	logging.For(h.log).WithField("user", h.caller(r)).Info("diagnostics initiated")
	respondJSON(w, http.StatusOK, h.checker.Diagnose(r.Context()))
}
