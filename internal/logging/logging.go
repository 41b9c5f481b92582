// Package logging builds the structured face recognition logger and the
// helpers used to record attempts, registrations and timing.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/sirupsen/logrus"
)

// Component is attached to every entry produced by New.
const Component = "face_recognition"

// New returns a logger configured from cfg. Unknown levels fall back to info.
func New(cfg config.LogConfig) *logrus.Logger {
	return newWithOutput(cfg, os.Stderr)
}

func newWithOutput(cfg config.LogConfig, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// Discard returns a logger that drops everything. Used by tests and the CLI
// when quiet output is requested.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// For scopes a logger to the face recognition component.
func For(l logrus.FieldLogger) *logrus.Entry {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return l.WithField("component", Component)
}

// RecognitionAttempt logs the outcome of a verification.
func RecognitionAttempt(l logrus.FieldLogger, employeeID int64, confidence float64, success bool, fields logrus.Fields) {
	e := For(l).WithFields(logrus.Fields{
		"event":      "recognition_attempt",
		"confidence": round2(confidence),
		"success":    success,
	}).WithFields(fields)
	if employeeID != 0 {
		e = e.WithField("employee_id", employeeID)
	}
	if success {
		e.Info("face recognition succeeded")
		return
	}
	e.Warn("face recognition failed")
}

// Registration logs a template registration.
func Registration(l logrus.FieldLogger, employeeID int64, templates int, success bool, err error) {
	e := For(l).WithFields(logrus.Fields{
		"event":       "face_registration",
		"employee_id": employeeID,
		"templates":   templates,
		"success":     success,
	})
	if err != nil {
		e = e.WithError(err)
	}
	if success {
		e.Info("face registration succeeded")
		return
	}
	e.Error("face registration failed")
}

// SystemError logs a failure that is hidden from API callers.
func SystemError(l logrus.FieldLogger, kind string, err error, fields logrus.Fields) {
	For(l).WithFields(logrus.Fields{
		"event":      "system_error",
		"error_type": kind,
	}).WithFields(fields).WithError(err).Error("face recognition system error")
}

// RecognitionMetrics logs aggregate numbers, e.g. after a health check.
func RecognitionMetrics(l logrus.FieldLogger, metrics logrus.Fields) {
	For(l).WithField("event", "performance_metrics").WithFields(metrics).Info("face recognition metrics")
}

// Timed logs the duration of an operation and warns when it is slow.
// Usage: defer logging.Timed(log, "verify")().
func Timed(l logrus.FieldLogger, op string) func() {
	start := time.Now()
	For(l).WithField("operation", op).Debug("starting")
	return func() {
		elapsed := time.Since(start)
		e := For(l).WithFields(logrus.Fields{
			"operation":   op,
			"duration_ms": elapsed.Milliseconds(),
		})
		if elapsed > constants.SlowExecutionThreshold {
			e.Warn("SLOW EXECUTION")
			return
		}
		e.Debug("completed")
	}
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
