package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/lib/pq"
)

// EmployeeRepository provides PostgreSQL-backed employee and face data storage.
type EmployeeRepository struct {
	pool *Pool
}

// NewEmployeeRepository creates a new PostgreSQL employee repository.
func NewEmployeeRepository(pool *Pool) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

const employeeColumns = `id, name, face_active, face_encoding, updated_at`

func scanEmployees(rows *sql.Rows) ([]database.Employee, error) {
	var out []database.Employee
	for rows.Next() {
		var e database.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.FaceActive, &e.FaceEncoding, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return out, nil
}

func (r *EmployeeRepository) queryEmployees(ctx context.Context, query string, args ...any) ([]database.Employee, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEmployees(rows)
}

// GetEmployee returns the employee or database.ErrNotFound.
func (r *EmployeeRepository) GetEmployee(ctx context.Context, id int64) (*database.Employee, error) {
	var e database.Employee
	err := r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id).
		Scan(&e.ID, &e.Name, &e.FaceActive, &e.FaceEncoding, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("employee %d: %w", id, database.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return &e, nil
}

// FindEmployeesByName compares normalized names on both sides.
// The SQL expression mirrors facematch.NormalizeEmployeeName.
func (r *EmployeeRepository) FindEmployeesByName(ctx context.Context, name string) ([]database.Employee, error) {
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE BTRIM(REGEXP_REPLACE(LOWER(REPLACE(unaccent(name), '-', ' ')), '\s+', ' ', 'g')) = $1
		ORDER BY id
	`
	out, err := r.queryEmployees(ctx, query, facematch.NormalizeEmployeeName(name))
	if err != nil {
		return nil, fmt.Errorf("find employees by name: %w", err)
	}
	return out, nil
}

// ListFaceProfiles returns active employees with face data ordered by ID.
func (r *EmployeeRepository) ListFaceProfiles(ctx context.Context) ([]database.FaceProfile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, face_encoding
		FROM employees
		WHERE face_active AND face_encoding <> ''
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list face profiles: %w", err)
	}
	defer rows.Close()

	var out []database.FaceProfile
	for rows.Next() {
		var p database.FaceProfile
		if err := rows.Scan(&p.EmployeeID, &p.Name, &p.FaceEncoding); err != nil {
			return nil, fmt.Errorf("scan face profile: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face profiles: %w", err)
	}
	return out, nil
}

// ListEnrolled returns every employee with face data.
func (r *EmployeeRepository) ListEnrolled(ctx context.Context) ([]database.Employee, error) {
	out, err := r.queryEmployees(ctx, `SELECT `+employeeColumns+` FROM employees WHERE face_encoding <> '' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list enrolled employees: %w", err)
	}
	return out, nil
}

// ListActive returns employees eligible for face recognition.
func (r *EmployeeRepository) ListActive(ctx context.Context) ([]database.Employee, error) {
	out, err := r.queryEmployees(ctx, `SELECT `+employeeColumns+` FROM employees WHERE face_active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active employees: %w", err)
	}
	return out, nil
}

// CountEmployees returns the total and the number of employees with face data.
func (r *EmployeeRepository) CountEmployees(ctx context.Context) (int, int, error) {
	var total, registered int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE face_encoding <> '')
		FROM employees
	`).Scan(&total, &registered)
	if err != nil {
		return 0, 0, fmt.Errorf("count employees: %w", err)
	}
	return total, registered, nil
}

// UpdateFaceEncoding locks the employee row, applies fn and writes the result.
// Concurrent registrations for the same employee serialize on the row lock,
// so no append is lost.
func (r *EmployeeRepository) UpdateFaceEncoding(
	ctx context.Context, id int64, fn func(current string) (string, error),
) error {
	return r.pool.WithTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT face_encoding FROM employees WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("employee %d: %w", id, database.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock employee: %w", err)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == current {
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE employees SET face_encoding = $2, updated_at = NOW() WHERE id = $1`, id, next,
		); err != nil {
			return fmt.Errorf("update face encoding: %w", err)
		}
		return nil
	})
}

// SetFaceActive toggles recognition eligibility.
func (r *EmployeeRepository) SetFaceActive(ctx context.Context, id int64, active bool) error {
	res, err := r.pool.Exec(ctx, `UPDATE employees SET face_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set face active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("employee %d: %w", id, database.ErrNotFound)
	}
	return nil
}

// UpsertEmployees inserts or updates employees in one statement. Face data is
// never touched.
func (r *EmployeeRepository) UpsertEmployees(ctx context.Context, employees []database.Employee) (int, error) {
	if len(employees) == 0 {
		return 0, nil
	}

	ids := make([]int64, len(employees))
	names := make([]string, len(employees))
	active := make([]bool, len(employees))
	for i, e := range employees {
		ids[i], names[i], active[i] = e.ID, e.Name, e.FaceActive
	}

	res, err := r.pool.Exec(ctx, `
		INSERT INTO employees (id, name, face_active)
		SELECT * FROM UNNEST($1::bigint[], $2::text[], $3::boolean[])
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, face_active = EXCLUDED.face_active, updated_at = NOW()
		WHERE employees.name IS DISTINCT FROM EXCLUDED.name
		   OR employees.face_active IS DISTINCT FROM EXCLUDED.face_active
	`, pq.Array(ids), pq.Array(names), pq.Array(active))
	if err != nil {
		return 0, fmt.Errorf("upsert employees: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
