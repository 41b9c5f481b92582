package database

import (
	"testing"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

func TestTemplateIndex_Empty(t *testing.T) {
	idx := NewTemplateIndex()
	idx.Build(nil)

	if idx.Count() != 0 {
		t.Errorf("expected empty index, got %d", idx.Count())
	}
	if _, _, err := idx.Search(facematch.Template{1, 0}, 1); err == nil {
		t.Error("expected error searching uninitialized index")
	}
	if c := idx.Collisions(1); c != nil {
		t.Errorf("expected no collisions, got %v", c)
	}
}

func TestTemplateIndex_SearchNearest(t *testing.T) {
	idx := NewTemplateIndex()
	idx.Build([]facematch.Candidate{
		{EmployeeID: 1, Templates: []facematch.Template{{1, 0, 0}}},
		{EmployeeID: 2, Templates: []facematch.Template{{0, 1, 0}, {0, 0, 1}}},
	})

	refs, dists, err := idx.Search(facematch.Template{0, 0.9, 0}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 1 || refs[0].EmployeeID != 2 || refs[0].Index != 0 {
		t.Fatalf("unexpected nearest: %+v", refs)
	}
	if dists[0] > 0.11 {
		t.Errorf("expected distance ~0.1, got %f", dists[0])
	}
}

func TestTemplateIndex_SkipsOtherDimensions(t *testing.T) {
	idx := NewTemplateIndex()
	idx.Build([]facematch.Candidate{
		{EmployeeID: 1, Templates: []facematch.Template{{1, 0, 0}, {1, 0}}},
		{EmployeeID: 2, Templates: []facematch.Template{{0, 1, 0}}},
	})

	if idx.Count() != 2 {
		t.Errorf("expected 2 indexed templates, got %d", idx.Count())
	}
	if idx.Skipped() != 1 {
		t.Errorf("expected 1 skipped template, got %d", idx.Skipped())
	}
}

func TestTemplateIndex_Collisions(t *testing.T) {
	idx := NewTemplateIndex()
	idx.Build([]facematch.Candidate{
		{EmployeeID: 1, Templates: []facematch.Template{{1, 0, 0}, {0.99, 0, 0}}},
		{EmployeeID: 2, Templates: []facematch.Template{{1, 0.01, 0}}},
		{EmployeeID: 3, Templates: []facematch.Template{{0, 0, 1}}},
	})

	got := idx.Collisions(0.05)
	if len(got) != 2 {
		t.Fatalf("expected 2 cross-employee collisions, got %d: %+v", len(got), got)
	}
	for _, c := range got {
		if c.A.EmployeeID == c.B.EmployeeID {
			t.Errorf("same-employee pair reported: %+v", c)
		}
		if c.A.EmployeeID == 3 || c.B.EmployeeID == 3 {
			t.Errorf("distant employee reported: %+v", c)
		}
	}
	if got[0].Distance > got[1].Distance {
		t.Error("expected collisions sorted by distance")
	}
}
