package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

const openAttendanceConstraint = "attendances_one_open"

// AttendanceRepository provides PostgreSQL-backed attendance storage.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// GetOpenAttendance returns the employee's record without check_out, or nil.
func (r *AttendanceRepository) GetOpenAttendance(ctx context.Context, employeeID int64) (*database.AttendanceRecord, error) {
	var (
		rec      database.AttendanceRecord
		checkOut sql.NullTime
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, employee_id, check_in, check_out, check_in_method, check_out_method, confidence_score, face_image
		FROM attendances
		WHERE employee_id = $1 AND check_out IS NULL
		LIMIT 1
	`, employeeID).Scan(&rec.ID, &rec.EmployeeID, &rec.CheckIn, &checkOut,
		&rec.CheckInMethod, &rec.CheckOutMethod, &rec.ConfidenceScore, &rec.FaceImage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get open attendance: %w", err)
	}
	if checkOut.Valid {
		rec.CheckOut = &checkOut.Time
	}
	return &rec, nil
}

// CreateCheckIn inserts an open record. The partial unique index turns a
// concurrent second check-in into database.ErrOpenAttendanceExists.
func (r *AttendanceRepository) CreateCheckIn(ctx context.Context, rec *database.AttendanceRecord) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO attendances (employee_id, check_in, check_in_method, confidence_score, face_image)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, rec.EmployeeID, rec.CheckIn, rec.CheckInMethod, rec.ConfidenceScore, rec.FaceImage).Scan(&rec.ID)
	if isUniqueViolation(err, openAttendanceConstraint) {
		return database.ErrOpenAttendanceExists
	}
	if err != nil {
		return fmt.Errorf("insert check-in: %w", err)
	}
	return nil
}

// CloseAttendance writes the check-out of an open record.
func (r *AttendanceRepository) CloseAttendance(ctx context.Context, rec *database.AttendanceRecord) error {
	if rec.CheckOut == nil {
		return errors.New("close attendance: check_out is required")
	}
	res, err := r.pool.Exec(ctx, `
		UPDATE attendances
		SET check_out = $2, check_out_method = $3, confidence_score = $4, face_image = $5
		WHERE id = $1 AND check_out IS NULL
	`, rec.ID, *rec.CheckOut, rec.CheckOutMethod, rec.ConfidenceScore, rec.FaceImage)
	if err != nil {
		return fmt.Errorf("close attendance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("open attendance %d: %w", rec.ID, database.ErrNotFound)
	}
	return nil
}

// FaceStats aggregates face check-ins.
func (r *AttendanceRepository) FaceStats(ctx context.Context, window, recent time.Time) (*database.FaceAttendanceStats, error) {
	var s database.FaceAttendanceStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE check_in >= $2),
			COUNT(*) FILTER (WHERE check_in >= $3),
			COALESCE(AVG(confidence_score) FILTER (WHERE check_in >= $2), 0),
			COUNT(*) FILTER (WHERE check_in >= $2 AND confidence_score >= 90),
			COUNT(*) FILTER (WHERE check_in >= $2 AND confidence_score >= 80 AND confidence_score < 90),
			COUNT(*) FILTER (WHERE check_in >= $2 AND confidence_score >= 70 AND confidence_score < 80),
			COUNT(*) FILTER (WHERE check_in >= $2 AND confidence_score < 70)
		FROM attendances
		WHERE check_in_method = $1
	`, constants.MethodFace, window, recent).Scan(
		&s.Total, &s.InWindow, &s.Recent, &s.AvgConfidence,
		&s.Buckets.Excellent, &s.Buckets.Good, &s.Buckets.Fair, &s.Buckets.Low,
	)
	if err != nil {
		return nil, fmt.Errorf("face attendance stats: %w", err)
	}
	return &s, nil
}

// DailyFaceUsage returns face check-ins per UTC day.
func (r *AttendanceRepository) DailyFaceUsage(ctx context.Context, since time.Time) ([]database.DailyUsage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_trunc('day', check_in AT TIME ZONE 'UTC') AS day, COUNT(*)
		FROM attendances
		WHERE check_in_method = $1 AND check_in >= $2
		GROUP BY day
		ORDER BY day
	`, constants.MethodFace, since)
	if err != nil {
		return nil, fmt.Errorf("daily face usage: %w", err)
	}
	defer rows.Close()

	var out []database.DailyUsage
	for rows.Next() {
		var u database.DailyUsage
		if err := rows.Scan(&u.Day, &u.Count); err != nil {
			return nil, fmt.Errorf("scan daily usage: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily usage: %w", err)
	}
	return out, nil
}

func (r *AttendanceRepository) employeeUsage(ctx context.Context, since time.Time, limit int) ([]database.EmployeeUsage, error) {
	query := `
		SELECT a.employee_id, e.name, COUNT(*), AVG(a.confidence_score)
		FROM attendances a
		JOIN employees e ON e.id = a.employee_id
		WHERE a.check_in_method = $1 AND a.check_in >= $2
		GROUP BY a.employee_id, e.name
		ORDER BY COUNT(*) DESC, a.employee_id
	`
	args := []any{constants.MethodFace, since}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("employee usage: %w", err)
	}
	defer rows.Close()

	var out []database.EmployeeUsage
	for rows.Next() {
		var u database.EmployeeUsage
		if err := rows.Scan(&u.EmployeeID, &u.Name, &u.Count, &u.AvgConfidence); err != nil {
			return nil, fmt.Errorf("scan employee usage: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employee usage: %w", err)
	}
	return out, nil
}

// TopFaceUsers returns the employees with the most face check-ins.
func (r *AttendanceRepository) TopFaceUsers(ctx context.Context, since time.Time, limit int) ([]database.EmployeeUsage, error) {
	return r.employeeUsage(ctx, since, limit)
}

// EmployeeConfidence returns every employee's face check-in average.
func (r *AttendanceRepository) EmployeeConfidence(ctx context.Context, since time.Time) ([]database.EmployeeUsage, error) {
	return r.employeeUsage(ctx, since, 0)
}
