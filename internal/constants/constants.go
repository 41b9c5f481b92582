// Package constants provides shared constants used across the codebase.
package constants

import "time"

// Attendance methods stored on check_in_method / check_out_method.
const (
	MethodManual = "manual"
	MethodFace   = "face"
)

// Recognition attempt outcomes.
const (
	OutcomeCheckIn      = "check_in"
	OutcomeCheckOut     = "check_out"
	OutcomeRejected     = "rejected"
	OutcomeNoCandidates = "no_candidates"
)

// Reporting windows used by the health check.
const (
	// RecentActivityWindow is the window for "recent" face attendance counts
	RecentActivityWindow = 7 * 24 * time.Hour

	// UsageWindow is the window for usage and confidence statistics
	UsageWindow = 30 * 24 * time.Hour

	// TopEmployeesLimit is the number of most active employees reported
	TopEmployeesLimit = 5
)

// Logging constants
const (
	// SlowExecutionThreshold marks an operation as slow in the face log
	SlowExecutionThreshold = time.Second
)

// Processing constants
const (
	// ImportWorkers is the number of parallel enrolment workers used by "face import"
	ImportWorkers = 4

	// StoreTimeout bounds a single store round trip started outside a request
	StoreTimeout = 30 * time.Second

	// EventBuffer is how many attendance events wait for the broker before new ones are dropped
	EventBuffer = 256

	// EventPublishTimeout bounds delivering one attendance event
	EventPublishTimeout = 5 * time.Second
)
