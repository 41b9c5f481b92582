package database

import (
	"context"
	"time"
)

// EmployeeReader provides read-only access to employees and their face data
type EmployeeReader interface {
	// GetEmployee returns the employee or ErrNotFound
	GetEmployee(ctx context.Context, id int64) (*Employee, error)
	// FindEmployeesByName matches on the normalized display name
	FindEmployeesByName(ctx context.Context, name string) ([]Employee, error)
	// ListFaceProfiles returns active employees with non-empty face data ordered by ID
	ListFaceProfiles(ctx context.Context) ([]FaceProfile, error)
	// ListEnrolled returns every employee with non-empty face data, active or not
	ListEnrolled(ctx context.Context) ([]Employee, error)
	// ListActive returns all employees eligible for face recognition
	ListActive(ctx context.Context) ([]Employee, error)
	// CountEmployees returns the total and the number with face data
	CountEmployees(ctx context.Context) (total int, registered int, err error)
}

// EmployeeWriter provides write access to employee face data
type EmployeeWriter interface {
	EmployeeReader

	// UpdateFaceEncoding rewrites face data under a row lock. fn receives the
	// current encoding and returns the replacement; an error from fn aborts
	// without writing. Returns ErrNotFound for unknown employees.
	UpdateFaceEncoding(ctx context.Context, id int64, fn func(current string) (string, error)) error

	// SetFaceActive toggles whether the employee takes part in recognition.
	SetFaceActive(ctx context.Context, id int64, active bool) error

	// UpsertEmployees inserts or renames employees from the HR directory.
	// Face data is never touched. Returns the number of affected rows.
	UpsertEmployees(ctx context.Context, employees []Employee) (int, error)
}

// AttendanceReader provides read-only access to attendance records
type AttendanceReader interface {
	// GetOpenAttendance returns the record without check_out, or nil
	GetOpenAttendance(ctx context.Context, employeeID int64) (*AttendanceRecord, error)
	// FaceStats aggregates face attendances since window and recent
	FaceStats(ctx context.Context, window, recent time.Time) (*FaceAttendanceStats, error)
	// DailyFaceUsage returns per-day face attendance counts since the given time
	DailyFaceUsage(ctx context.Context, since time.Time) ([]DailyUsage, error)
	// TopFaceUsers returns the employees with the most face attendances
	TopFaceUsers(ctx context.Context, since time.Time, limit int) ([]EmployeeUsage, error)
	// EmployeeConfidence returns per-employee average confidence since the given time
	EmployeeConfidence(ctx context.Context, since time.Time) ([]EmployeeUsage, error)
}

// AttendanceWriter provides write access to attendance records
type AttendanceWriter interface {
	AttendanceReader

	// CreateCheckIn inserts a new open record and sets rec.ID.
	// Returns ErrOpenAttendanceExists if one is already open.
	CreateCheckIn(ctx context.Context, rec *AttendanceRecord) error

	// CloseAttendance stores check_out, method, confidence and image of rec.
	CloseAttendance(ctx context.Context, rec *AttendanceRecord) error
}

// AttemptRecorder stores the recognition audit trail
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt *RecognitionAttempt) error
	AttemptStats(ctx context.Context, since time.Time) (*AttemptStats, error)
}

// DirectoryReader lists employees from an external HR system
type DirectoryReader interface {
	ListDirectory(ctx context.Context) ([]Employee, error)
}
