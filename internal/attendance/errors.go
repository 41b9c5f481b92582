package attendance

import "errors"

var (
	// ErrEmployeeNotFound is returned when registering for an unknown employee.
	ErrEmployeeNotFound = errors.New("employee not found")
	// ErrNoCandidates is returned by Verify when nobody is enrolled.
	ErrNoCandidates = errors.New("no enrolled employees")
	// ErrOpenRecordConflict is returned when a concurrent verification opened
	// an attendance for the same employee first.
	ErrOpenRecordConflict = errors.New("attendance changed concurrently")
)
