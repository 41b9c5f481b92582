package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/pgvector/pgvector-go"
)

// AttemptRepository stores recognition attempts with their probe descriptor.
type AttemptRepository struct {
	pool *Pool
}

// NewAttemptRepository creates a new PostgreSQL attempt repository.
func NewAttemptRepository(pool *Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// RecordAttempt inserts one attempt. The probe is stored as a pgvector value
// so rejected faces can be compared against enrolments later.
func (r *AttemptRepository) RecordAttempt(ctx context.Context, a *database.RecognitionAttempt) error {
	var probe any
	if len(a.Probe) > 0 {
		vec := make([]float32, len(a.Probe))
		for i, v := range a.Probe {
			vec[i] = float32(v)
		}
		probe = pgvector.NewVector(vec)
	}

	var employeeID sql.NullInt64
	if a.EmployeeID != nil {
		employeeID = sql.NullInt64{Int64: *a.EmployeeID, Valid: true}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO recognition_attempts (id, created_at, employee_id, confidence, outcome, probe)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.CreatedAt, employeeID, a.Confidence, a.Outcome, probe)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// AttemptStats counts attempts by outcome since the given time.
func (r *AttemptRepository) AttemptStats(ctx context.Context, since time.Time) (*database.AttemptStats, error) {
	var s database.AttemptStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE outcome = $2),
			COUNT(*) FILTER (WHERE outcome = $3),
			COUNT(*) FILTER (WHERE outcome = $4),
			COUNT(*) FILTER (WHERE outcome = $5)
		FROM recognition_attempts
		WHERE created_at >= $1
	`, since, constants.OutcomeCheckIn, constants.OutcomeCheckOut,
		constants.OutcomeRejected, constants.OutcomeNoCandidates,
	).Scan(&s.Total, &s.CheckIns, &s.CheckOuts, &s.Rejected, &s.NoCandidates)
	if err != nil {
		return nil, fmt.Errorf("attempt stats: %w", err)
	}
	return &s, nil
}
