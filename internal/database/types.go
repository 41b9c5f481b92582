package database

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the addressed employee does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrOpenAttendanceExists is returned when a second open attendance
	// would be created for the same employee.
	ErrOpenAttendanceExists = errors.New("employee already has an open attendance")
)

// Employee is the collaborator-owned employee record with its face data.
type Employee struct {
	ID           int64
	Name         string
	FaceActive   bool   // eligible for face recognition
	FaceEncoding string // base64(JSON list of templates), empty when not enrolled
	UpdatedAt    time.Time
}

// FaceProfile is an enrolled, active employee as returned for cache builds.
// FaceEncoding is still encoded; decoding happens in the cache so a corrupt
// profile can be excluded without failing the whole query.
type FaceProfile struct {
	EmployeeID   int64
	Name         string
	FaceEncoding string
}

// AttendanceRecord is a check-in/out pair. CheckOut is nil while open.
type AttendanceRecord struct {
	ID              int64
	EmployeeID      int64
	CheckIn         time.Time
	CheckOut        *time.Time
	CheckInMethod   string
	CheckOutMethod  string
	ConfidenceScore float64 // 0-100
	FaceImage       []byte  // JPEG, only when image storage is enabled
}

// IsOpen reports whether the employee has not checked out yet.
func (r *AttendanceRecord) IsOpen() bool {
	return r.CheckOut == nil
}

// RecognitionAttempt is one audited verification.
type RecognitionAttempt struct {
	ID         string
	CreatedAt  time.Time
	EmployeeID *int64 // nil when nobody matched
	Confidence float64
	Outcome    string
	Probe      []float64
}

// ConfidenceBuckets counts face attendances by confidence band.
type ConfidenceBuckets struct {
	Excellent int // 90-100
	Good      int // 80-90
	Fair      int // 70-80
	Low       int // below 70
}

// Total returns the number of scored attendances.
func (b ConfidenceBuckets) Total() int {
	return b.Excellent + b.Good + b.Fair + b.Low
}

// FaceAttendanceStats aggregates face-driven attendances.
type FaceAttendanceStats struct {
	Total         int // all time
	InWindow      int // since the requested window start
	Recent        int // since the requested recent start
	AvgConfidence float64
	Buckets       ConfidenceBuckets
}

// DailyUsage is the number of face attendances on one day.
type DailyUsage struct {
	Day   time.Time
	Count int
}

// EmployeeUsage summarises one employee's face attendances.
type EmployeeUsage struct {
	EmployeeID    int64
	Name          string
	Count         int
	AvgConfidence float64
}

// AttemptStats summarises recorded recognition attempts.
type AttemptStats struct {
	Total        int
	CheckIns     int
	CheckOuts    int
	Rejected     int
	NoCandidates int
}

// Accepted returns the number of attempts that led to an attendance write.
func (s AttemptStats) Accepted() int {
	return s.CheckIns + s.CheckOuts
}

// RejectionRate returns rejected attempts as a percentage of all attempts.
func (s AttemptStats) RejectionRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Rejected) / float64(s.Total) * 100
}
