package facematch

import (
	"errors"
	"math"
	"testing"
)

func TestScore_Identical(t *testing.T) {
	v := Template{0.3, -0.2, 0.9, 0.1}
	if got := Score(v, v); got != 1 {
		t.Errorf("expected 1 for identical vectors, got %f", got)
	}
}

func TestScore_KnownDistance(t *testing.T) {
	// distance 0.5 -> similarity 0.5
	got := Score(Template{0, 0}, Template{0.3, 0.4})
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("expected 0.5, got %f", got)
	}
}

func TestScore_NeverNegative(t *testing.T) {
	if got := Score(Template{0, 0, 0}, Template{10, 10, 10}); got != 0 {
		t.Errorf("expected 0 for distant vectors, got %f", got)
	}
}

func TestEvaluate_Failures(t *testing.T) {
	tests := []struct {
		name string
		a, b Template
		err  error
	}{
		{"length mismatch", Template{1, 2}, Template{1, 2, 3}, ErrShapeMismatch},
		{"empty probe", Template{}, Template{1}, ErrEmptyTemplate},
		{"empty stored", Template{1}, nil, ErrEmptyTemplate},
		{"nan", Template{math.NaN()}, Template{1}, ErrNonFinite},
		{"inf", Template{math.Inf(1)}, Template{1}, ErrNonFinite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Evaluate(tt.a, tt.b)
			if s != 0 {
				t.Errorf("expected zero score, got %f", s)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
			if Score(tt.a, tt.b) != 0 {
				t.Error("Score must fail to zero")
			}
		})
	}
}
