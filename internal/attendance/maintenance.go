package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/sirupsen/logrus"
)

// TemplateCount returns the number of decodable templates of an employee.
func (s *Service) TemplateCount(ctx context.Context, employeeID int64) (int, error) {
	n, err := s.templates.Count(ctx, employeeID)
	if errors.Is(err, database.ErrNotFound) {
		return 0, ErrEmployeeNotFound
	}
	return n, err
}

// ClearFaces removes all face data of an employee.
func (s *Service) ClearFaces(ctx context.Context, employeeID int64) error {
	if err := s.templates.Clear(ctx, employeeID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrEmployeeNotFound
		}
		return err
	}
	s.invalidate(ctx, "clear", employeeID)
	logging.For(s.log).WithField("employee_id", employeeID).Info("face data cleared")
	return nil
}

// SetFaceActive toggles whether an employee takes part in recognition.
func (s *Service) SetFaceActive(ctx context.Context, employeeID int64, active bool) error {
	if err := s.employees.SetFaceActive(ctx, employeeID, active); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrEmployeeNotFound
		}
		return fmt.Errorf("setting face_active for employee %d: %w", employeeID, err)
	}
	s.invalidate(ctx, "set_active", employeeID)
	return nil
}

// PruneReport summarises a prune run.
type PruneReport struct {
	ProfilesScanned  int `json:"profiles_scanned"`
	ProfilesPruned   int `json:"profiles_pruned"`
	TemplatesRemoved int `json:"templates_removed"`
}

// Prune keeps only the newest keep templates of every enrolled employee.
// Corrupt collections are skipped. The cache is invalidated only when
// something was removed.
func (s *Service) Prune(ctx context.Context, keep int) (*PruneReport, error) {
	if keep <= 0 {
		return nil, fmt.Errorf("keep must be positive, got %d", keep)
	}
	defer logging.Timed(s.log, "prune")()

	enrolled, err := s.employees.ListEnrolled(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing enrolled employees: %w", err)
	}

	report := &PruneReport{}
	for _, emp := range enrolled {
		report.ProfilesScanned++
		removed, err := s.templates.KeepLatest(ctx, emp.ID, keep)
		if err != nil {
			if errors.Is(err, facematch.ErrDecode) {
				logging.SystemError(s.log, "decode", err, logrus.Fields{"employee_id": emp.ID})
				continue
			}
			return report, err
		}
		if removed > 0 {
			report.ProfilesPruned++
			report.TemplatesRemoved += removed
		}
	}

	if report.TemplatesRemoved > 0 {
		s.invalidate(ctx, "prune", 0)
	}
	logging.RecognitionMetrics(s.log, logrus.Fields{
		"operation":         "prune",
		"keep":              keep,
		"profiles_scanned":  report.ProfilesScanned,
		"profiles_pruned":   report.ProfilesPruned,
		"templates_removed": report.TemplatesRemoved,
	})
	return report, nil
}

// SyncDirectory copies employees from the HR directory. Face data is never
// touched; the cache is invalidated because names and eligibility may change.
func (s *Service) SyncDirectory(ctx context.Context, dir database.DirectoryReader) (int, error) {
	employees, err := dir.ListDirectory(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading HR directory: %w", err)
	}
	if len(employees) == 0 {
		return 0, nil
	}
	n, err := s.employees.UpsertEmployees(ctx, employees)
	if err != nil {
		return 0, fmt.Errorf("upserting employees: %w", err)
	}
	s.invalidate(ctx, "sync", 0)
	logging.For(s.log).WithField("employees", n).Info("employee directory synced")
	return n, nil
}
