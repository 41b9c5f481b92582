package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// TemplateStore adapts the employee face_encoding column to template lists.
// Appends are naive concatenation: no dedup and no shape validation.
type TemplateStore struct {
	employees EmployeeWriter
}

// NewTemplateStore creates a template store over the given employee writer.
func NewTemplateStore(employees EmployeeWriter) *TemplateStore {
	return &TemplateStore{employees: employees}
}

// Load returns the stored templates of an employee. An employee without face
// data yields an empty list. Corrupt data is reported as facematch.ErrDecode.
func (s *TemplateStore) Load(ctx context.Context, employeeID int64) ([]facematch.Template, error) {
	emp, err := s.employees.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if emp.FaceEncoding == "" {
		return nil, nil
	}
	tpls, err := facematch.DecodeTemplates(emp.FaceEncoding)
	if err != nil {
		return nil, fmt.Errorf("employee %d: %w", employeeID, err)
	}
	return tpls, nil
}

// Append adds templates to the employee's collection and returns the new
// total. Existing data that cannot be decoded aborts the append without a
// write so a corrupt collection is never silently replaced.
func (s *TemplateStore) Append(ctx context.Context, employeeID int64, templates []facematch.Template) (int, error) {
	total := 0
	err := s.employees.UpdateFaceEncoding(ctx, employeeID, func(current string) (string, error) {
		var combined []facematch.Template
		if current != "" {
			existing, err := facematch.DecodeTemplates(current)
			if err != nil {
				return "", err
			}
			combined = make([]facematch.Template, 0, len(existing)+len(templates))
			combined = append(combined, existing...)
		}
		combined = append(combined, templates...)
		total = len(combined)
		return facematch.EncodeTemplates(combined)
	})
	if err != nil {
		return 0, fmt.Errorf("appending templates for employee %d: %w", employeeID, err)
	}
	return total, nil
}

// Clear erases all face data of an employee.
func (s *TemplateStore) Clear(ctx context.Context, employeeID int64) error {
	err := s.employees.UpdateFaceEncoding(ctx, employeeID, func(string) (string, error) {
		return "", nil
	})
	if err != nil {
		return fmt.Errorf("clearing face data for employee %d: %w", employeeID, err)
	}
	return nil
}

// KeepLatest trims the collection to its newest n templates and returns how
// many were removed. Corrupt collections are left untouched.
func (s *TemplateStore) KeepLatest(ctx context.Context, employeeID int64, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	removed := 0
	err := s.employees.UpdateFaceEncoding(ctx, employeeID, func(current string) (string, error) {
		if current == "" {
			return current, nil
		}
		tpls, err := facematch.DecodeTemplates(current)
		if err != nil {
			return "", err
		}
		if len(tpls) <= n {
			return current, nil
		}
		removed = len(tpls) - n
		return facematch.EncodeTemplates(tpls[removed:])
	})
	if err != nil {
		return 0, fmt.Errorf("pruning templates for employee %d: %w", employeeID, err)
	}
	return removed, nil
}

// Count returns the number of decodable templates, 0 for missing or corrupt data.
func (s *TemplateStore) Count(ctx context.Context, employeeID int64) (int, error) {
	tpls, err := s.Load(ctx, employeeID)
	if err != nil {
		if errors.Is(err, facematch.ErrDecode) {
			return 0, nil
		}
		return 0, err
	}
	return len(tpls), nil
}
