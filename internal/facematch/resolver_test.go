package facematch

import "testing"

func TestResolve_EmptyPool(t *testing.T) {
	m := Resolve(nil, Template{1, 0, 0})
	if m.Found() || m.Confidence != 0 || m.Compared != 0 {
		t.Errorf("expected empty match without comparisons, got %+v", m)
	}
}

func TestResolve_BestAcrossTemplates(t *testing.T) {
	pool := []Candidate{
		{EmployeeID: 1, Name: "Alice", Templates: []Template{{0, 1, 0}}},
		{EmployeeID: 2, Name: "Bob", Templates: []Template{{0, 0, 1}, {1, 0, 0}}},
	}

	m := Resolve(pool, Template{1, 0, 0})
	if !m.Found() || m.Candidate.EmployeeID != 2 {
		t.Fatalf("expected Bob, got %+v", m.Candidate)
	}
	if m.Confidence != 100 {
		t.Errorf("expected confidence 100, got %f", m.Confidence)
	}
	if m.Compared != 3 {
		t.Errorf("expected 3 comparisons, got %d", m.Compared)
	}
}

func TestResolve_TieKeepsFirst(t *testing.T) {
	pool := []Candidate{
		{EmployeeID: 7, Templates: []Template{{0.5, 0}}},
		{EmployeeID: 3, Templates: []Template{{0.5, 0}}},
	}

	m := Resolve(pool, Template{0.5, 0})
	if m.Candidate == nil || m.Candidate.EmployeeID != 7 {
		t.Errorf("expected first candidate to win tie, got %+v", m.Candidate)
	}
}

func TestResolve_AllZeroScores(t *testing.T) {
	pool := []Candidate{{EmployeeID: 1, Templates: []Template{{9, 9}}}}

	m := Resolve(pool, Template{0, 0})
	if m.Found() {
		t.Error("zero similarity must not produce a match")
	}
	if m.Confidence != 0 {
		t.Errorf("expected confidence 0, got %f", m.Confidence)
	}
}

func TestResolve_CountsFailures(t *testing.T) {
	pool := []Candidate{
		{EmployeeID: 1, Templates: []Template{{1, 0}, {1, 0, 0}}},
	}

	m := Resolve(pool, Template{1, 0, 0})
	if m.Failures != 1 {
		t.Errorf("expected 1 failed comparison, got %d", m.Failures)
	}
	if !m.Found() || m.Confidence != 100 {
		t.Errorf("expected the compatible template to match, got %+v", m)
	}
}
