package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
)

func writeImportFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "import.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write import file: %v", err)
	}
	return path
}

func TestLoadImportFile(t *testing.T) {
	path := writeImportFile(t, `[
		{"employee_id": 1, "templates": [[1, 0, 0]]},
		{"name": "Jana Nováková", "templates": [[0, 1, 0], [0, 0, 1]]}
	]`)

	entries, err := loadImportFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[1].Name != "Jana Nováková" || len(entries[1].Templates) != 2 {
		t.Errorf("unexpected second entry: %+v", entries[1])
	}
}

func TestLoadImportFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"not json", `{oops`, "parsing"},
		{"no reference", `[{"templates": [[1]]}]`, "employee_id or name"},
		{"no templates", `[{"employee_id": 3, "templates": []}]`, "no templates"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadImportFile(writeImportFile(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestResolveEmployee(t *testing.T) {
	store := mock.NewMockEmployeeStore()
	store.AddEmployee(database.Employee{ID: 7, Name: "Jana Nováková", FaceActive: true})
	store.AddEmployee(database.Employee{ID: 8, Name: "Petr Novák", FaceActive: true})
	store.AddEmployee(database.Employee{ID: 9, Name: "PETR NOVAK", FaceActive: true})
	ctx := context.Background()

	id, err := resolveEmployee(ctx, store, importEntry{Name: "jana novakova"})
	if err != nil || id != 7 {
		t.Errorf("expected employee 7, got %d (%v)", id, err)
	}

	id, err = resolveEmployee(ctx, store, importEntry{EmployeeID: 42, Name: "ignored"})
	if err != nil || id != 42 {
		t.Errorf("explicit ID should win, got %d (%v)", id, err)
	}

	if _, err := resolveEmployee(ctx, store, importEntry{Name: "Petr Novák"}); err == nil {
		t.Error("expected ambiguity error for duplicate names")
	}
	if _, err := resolveEmployee(ctx, store, importEntry{Name: "Nobody"}); err == nil {
		t.Error("expected error for unknown name")
	}
}
