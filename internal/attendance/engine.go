// Package attendance turns recognition results into check-in/check-out
// transitions and exposes the register/verify operations of the kiosk.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// Action is the outcome of a decision.
type Action string

const (
	ActionRejected Action = "rejected"
	ActionCheckIn  Action = "check_in"
	ActionCheckOut Action = "check_out"
)

// Decision describes what the engine did for one verification.
type Decision struct {
	Action     Action
	Employee   *facematch.Candidate // nil when rejected without a candidate
	Confidence float64
	Record     *database.AttendanceRecord // written record, nil when rejected
}

// Accepted reports whether an attendance write happened.
func (d *Decision) Accepted() bool {
	return d.Action != ActionRejected
}

// Engine applies the threshold and toggles attendance. An accepted decision
// performs exactly one write; a rejected one performs none.
type Engine struct {
	records database.AttendanceWriter
	now     func() time.Time
}

// NewEngine creates an engine writing to records.
func NewEngine(records database.AttendanceWriter) *Engine {
	return &Engine{records: records, now: time.Now}
}

// Decide rejects when there is no candidate or confidence is below
// threshold; otherwise it closes the employee's open record or opens a new one.
func (e *Engine) Decide(
	ctx context.Context, employee *facematch.Candidate, confidence, threshold float64, image []byte,
) (*Decision, error) {
	d := &Decision{Action: ActionRejected, Employee: employee, Confidence: confidence}
	if employee == nil || confidence < threshold {
		return d, nil
	}

	now := e.now()
	open, err := e.records.GetOpenAttendance(ctx, employee.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("looking up open attendance: %w", err)
	}

	if open != nil {
		open.CheckOut = &now
		open.CheckOutMethod = constants.MethodFace
		open.ConfidenceScore = confidence
		open.FaceImage = image
		if err := e.records.CloseAttendance(ctx, open); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, ErrOpenRecordConflict
			}
			return nil, fmt.Errorf("checking out: %w", err)
		}
		d.Action, d.Record = ActionCheckOut, open
		return d, nil
	}

	rec := &database.AttendanceRecord{
		EmployeeID:      employee.EmployeeID,
		CheckIn:         now,
		CheckInMethod:   constants.MethodFace,
		CheckOutMethod:  constants.MethodManual,
		ConfidenceScore: confidence,
		FaceImage:       image,
	}
	if err := e.records.CreateCheckIn(ctx, rec); err != nil {
		if errors.Is(err, database.ErrOpenAttendanceExists) {
			return nil, ErrOpenRecordConflict
		}
		return nil, fmt.Errorf("checking in: %w", err)
	}
	d.Action, d.Record = ActionCheckIn, rec
	return d, nil
}
