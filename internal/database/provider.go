package database

import (
	"context"
	"errors"
	"fmt"
)

var (
	postgresEmployeeWriter   func() EmployeeWriter
	postgresAttendanceWriter func() AttendanceWriter
	postgresAttemptRecorder  func() AttemptRecorder
	postgresInitialized      bool
)

var errNotInitialized = errors.New("PostgreSQL backend not initialized: DATABASE_URL is required")

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called from cmd to avoid import cycles.
func RegisterPostgresBackend(
	employees func() EmployeeWriter,
	attendance func() AttendanceWriter,
	attempts func() AttemptRecorder,
) {
	postgresEmployeeWriter = employees
	postgresAttendanceWriter = attendance
	postgresAttemptRecorder = attempts
	postgresInitialized = true
}

// ResetBackend forgets registered constructors. Used by tests.
func ResetBackend() {
	postgresEmployeeWriter = nil
	postgresAttendanceWriter = nil
	postgresAttemptRecorder = nil
	postgresInitialized = false
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	return postgresInitialized
}

// GetEmployeeReader returns an EmployeeReader from the PostgreSQL backend
func GetEmployeeReader(ctx context.Context) (EmployeeReader, error) {
	return GetEmployeeWriter(ctx)
}

// GetEmployeeWriter returns an EmployeeWriter from the PostgreSQL backend
func GetEmployeeWriter(ctx context.Context) (EmployeeWriter, error) {
	if !postgresInitialized {
		return nil, errNotInitialized
	}
	if postgresEmployeeWriter == nil {
		return nil, fmt.Errorf("PostgreSQL employee writer not registered")
	}
	return postgresEmployeeWriter(), nil
}

// GetAttendanceWriter returns an AttendanceWriter from the PostgreSQL backend
func GetAttendanceWriter(ctx context.Context) (AttendanceWriter, error) {
	if !postgresInitialized {
		return nil, errNotInitialized
	}
	if postgresAttendanceWriter == nil {
		return nil, fmt.Errorf("PostgreSQL attendance writer not registered")
	}
	return postgresAttendanceWriter(), nil
}

// GetAttemptRecorder returns the attempt recorder, or nil when none is
// registered. Recording attempts is optional.
func GetAttemptRecorder(ctx context.Context) AttemptRecorder {
	if !postgresInitialized || postgresAttemptRecorder == nil {
		return nil
	}
	return postgresAttemptRecorder()
}
