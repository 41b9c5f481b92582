package mariadb

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/database"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Directory lists employees from an HR table with id, name and active columns.
type Directory struct {
	db    *sql.DB
	table string
}

// NewDirectory returns a directory reader over the given table. The table
// name is interpolated into SQL, so only plain identifiers are accepted.
func NewDirectory(p *Pool, table string) (*Directory, error) {
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid HR table name %q", table)
	}
	return &Directory{db: p.db, table: table}, nil
}

// ListDirectory returns all employees, active and inactive, ordered by id.
// Inactive HR employees are synced with FaceActive false so they drop out of
// recognition without losing their face data.
func (d *Directory) ListDirectory(ctx context.Context) ([]database.Employee, error) {
	query := fmt.Sprintf("SELECT id, name, active FROM `%s` ORDER BY id", d.table)
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query HR employees: %w", err)
	}
	defer rows.Close()

	var out []database.Employee
	for rows.Next() {
		var (
			e    database.Employee
			name sql.NullString
		)
		if err := rows.Scan(&e.ID, &name, &e.FaceActive); err != nil {
			return nil, fmt.Errorf("scan HR employee: %w", err)
		}
		e.Name = strings.TrimSpace(name.String)
		if e.Name == "" {
			e.Name = fmt.Sprintf("Employee %d", e.ID)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate HR employees: %w", err)
	}
	return out, nil
}
