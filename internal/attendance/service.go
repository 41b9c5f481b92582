package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/events"
	"github.com/kozaktomas/face-attendance/internal/facecache"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/imaging"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/sirupsen/logrus"
)

// Notifier tells other workers that face data changed.
type Notifier interface {
	Publish(ctx context.Context, reason string, employeeID int64) error
}

// EventPublisher receives accepted attendance transitions.
type EventPublisher interface {
	PublishAttendance(ctx context.Context, ev events.AttendanceEvent) error
}

// Deps are the collaborators of a Service. Attempts, Notifier and Events are
// optional.
type Deps struct {
	Employees  database.EmployeeWriter
	Attendance database.AttendanceWriter
	Attempts   database.AttemptRecorder
	Cache      *facecache.Cache
	Notifier   Notifier
	Events     EventPublisher
}

// Service implements face registration and verification on top of the
// template store, the encoding cache and the decision engine.
type Service struct {
	employees database.EmployeeWriter
	templates *database.TemplateStore
	cache     *facecache.Cache
	engine    *Engine
	attempts  database.AttemptRecorder
	notifier  Notifier
	events    EventPublisher
	cfg       config.RecognitionConfig
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewService wires a service. The cache is owned by the caller so each
// worker process can hold exactly one.
func NewService(deps Deps, cfg config.RecognitionConfig, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logging.Discard()
	}
	return &Service{
		employees: deps.Employees,
		templates: database.NewTemplateStore(deps.Employees),
		cache:     deps.Cache,
		engine:    NewEngine(deps.Attendance),
		attempts:  deps.Attempts,
		notifier:  deps.Notifier,
		events:    deps.Events,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Config returns the recognition settings in effect.
func (s *Service) Config() config.RecognitionConfig {
	return s.cfg
}

// RegisterResult is returned by Register.
type RegisterResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	TemplatesCount int    `json:"templates_count"`
}

// Register appends the submitted templates to the employee's collection and
// invalidates the encoding cache. TemplatesCount is the collection size after
// the append.
func (s *Service) Register(ctx context.Context, employeeID int64, encoded string) (*RegisterResult, error) {
	defer logging.Timed(s.log, "register")()

	tpls, err := facematch.ParseTemplateList(encoded)
	if err != nil {
		logging.Registration(s.log, employeeID, 0, false, err)
		return nil, err
	}

	total, err := s.templates.Append(ctx, employeeID, tpls)
	if err != nil {
		logging.Registration(s.log, employeeID, len(tpls), false, err)
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}

	s.invalidate(ctx, "register", employeeID)
	logging.Registration(s.log, employeeID, len(tpls), true, nil)
	return &RegisterResult{
		Success:        true,
		Message:        "Face template registered successfully",
		TemplatesCount: total,
	}, nil
}

// VerifyResult is returned by Verify. Action is empty when rejected.
type VerifyResult struct {
	Success      bool    `json:"success"`
	Action       string  `json:"action,omitempty"`
	EmployeeName string  `json:"employee_name,omitempty"`
	EmployeeID   int64   `json:"employee_id,omitempty"`
	Confidence   float64 `json:"confidence_percentage"`
	Message      string  `json:"message,omitempty"`
	Reason       string  `json:"reason,omitempty"`
}

// Rejection reasons reported to the kiosk.
const (
	ReasonBelowThreshold = "below_threshold"
	ReasonNoCandidates   = "no_candidates"
)

// MessageNoMatch is the rejection message shown on the kiosk.
const MessageNoMatch = "No matching employee found"

// Verify matches the probe against the cached pool and records a check-in or
// check-out for the best match above the threshold. image is the optional
// base64 capture; it is only kept when image storage is enabled.
func (s *Service) Verify(ctx context.Context, encoded string, image string) (*VerifyResult, error) {
	defer logging.Timed(s.log, "verify")()

	probe, err := facematch.ParseTemplate(encoded)
	if err != nil {
		logging.RecognitionAttempt(s.log, 0, 0, false, logrus.Fields{"reason": "invalid_input"})
		return nil, err
	}

	pool, err := s.cache.Get(ctx)
	if err != nil {
		logging.SystemError(s.log, "cache", err, nil)
		return nil, fmt.Errorf("loading encoding cache: %w", err)
	}
	if len(pool) == 0 {
		s.recordAttempt(ctx, nil, 0, constants.OutcomeNoCandidates, probe)
		logging.RecognitionAttempt(s.log, 0, 0, false, logrus.Fields{"reason": ReasonNoCandidates})
		return nil, ErrNoCandidates
	}

	match := facematch.Resolve(pool, probe)
	if match.Failures > 0 {
		logging.For(s.log).WithFields(logrus.Fields{
			"failed":    match.Failures,
			"compared":  match.Compared,
			"probe_len": len(probe),
		}).Warn("some templates could not be compared with the probe")
	}

	decision, err := s.engine.Decide(ctx, match.Candidate, match.Confidence, s.cfg.Threshold, s.captureImage(image))
	if err != nil {
		logging.SystemError(s.log, "attendance", err, logrus.Fields{"confidence": match.Confidence})
		return nil, err
	}

	var matchedID int64
	if decision.Employee != nil {
		matchedID = decision.Employee.EmployeeID
	}

	if !decision.Accepted() {
		s.recordAttempt(ctx, decision.Employee, decision.Confidence, constants.OutcomeRejected, probe)
		logging.RecognitionAttempt(s.log, matchedID, decision.Confidence, false, logrus.Fields{
			"reason":    ReasonBelowThreshold,
			"threshold": s.cfg.Threshold,
		})
		return &VerifyResult{
			Success:    false,
			Message:    MessageNoMatch,
			Confidence: decision.Confidence,
			Reason:     ReasonBelowThreshold,
		}, nil
	}

	s.recordAttempt(ctx, decision.Employee, decision.Confidence, string(decision.Action), probe)
	logging.RecognitionAttempt(s.log, matchedID, decision.Confidence, true, logrus.Fields{
		"action": string(decision.Action),
	})
	s.publishEvent(ctx, decision)

	return &VerifyResult{
		Success:      true,
		Action:       string(decision.Action),
		EmployeeName: decision.Employee.Name,
		EmployeeID:   decision.Employee.EmployeeID,
		Confidence:   decision.Confidence,
	}, nil
}

// captureImage returns the normalized JPEG to store, or nil. A broken capture
// never fails the verification.
func (s *Service) captureImage(encoded string) []byte {
	if !s.cfg.StoreImages || encoded == "" {
		return nil
	}
	raw, err := imaging.DecodeCapture(encoded)
	if err == nil {
		var img []byte
		if img, err = imaging.Normalize(raw, s.cfg.ImageMaxSize); err == nil {
			return img
		}
	}
	logging.For(s.log).WithError(err).Warn("dropping undecodable capture")
	return nil
}

func (s *Service) recordAttempt(ctx context.Context, c *facematch.Candidate, confidence float64, outcome string, probe facematch.Template) {
	if s.attempts == nil {
		return
	}
	a := &database.RecognitionAttempt{
		ID:         uuid.NewString(),
		CreatedAt:  s.now(),
		Confidence: confidence,
		Outcome:    outcome,
		Probe:      probe,
	}
	if c != nil {
		id := c.EmployeeID
		a.EmployeeID = &id
	}
	if err := s.attempts.RecordAttempt(ctx, a); err != nil {
		logging.SystemError(s.log, "audit", err, logrus.Fields{"outcome": outcome})
	}
}

func (s *Service) publishEvent(ctx context.Context, d *Decision) {
	if s.events == nil {
		return
	}
	at := d.Record.CheckIn
	if d.Action == ActionCheckOut && d.Record.CheckOut != nil {
		at = *d.Record.CheckOut
	}
	err := s.events.PublishAttendance(ctx, events.AttendanceEvent{
		ID:           events.NewEventID(at),
		EmployeeID:   d.Employee.EmployeeID,
		EmployeeName: d.Employee.Name,
		Action:       string(d.Action),
		Confidence:   d.Confidence,
		At:           at,
	})
	if err != nil {
		logging.SystemError(s.log, "events", err, logrus.Fields{"employee_id": d.Employee.EmployeeID})
	}
}

// invalidate drops the local cache and notifies other workers.
func (s *Service) invalidate(ctx context.Context, reason string, employeeID int64) {
	s.cache.Invalidate()
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, reason, employeeID); err != nil {
		logging.SystemError(s.log, "invalidation", err, logrus.Fields{"employee_id": employeeID})
	}
}

// CacheStatus reports the encoding cache state.
func (s *Service) CacheStatus() facecache.Status {
	return s.cache.Status()
}

// RefreshCache rebuilds the encoding cache now and returns its size.
func (s *Service) RefreshCache(ctx context.Context) (int, error) {
	n, err := s.cache.Refresh(ctx)
	if err != nil {
		logging.SystemError(s.log, "cache", err, nil)
		return 0, err
	}
	logging.For(s.log).WithField("cache_size", n).Info("encoding cache refreshed")
	return n, nil
}
