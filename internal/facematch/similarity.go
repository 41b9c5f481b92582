package facematch

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Evaluate returns max(0, 1 - ||a-b||) together with the reason a pair could
// not be compared. A non-nil error always comes with a zero score.
func Evaluate(a, b Template) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrEmptyTemplate
	}
	if len(a) != len(b) {
		return 0, ErrShapeMismatch
	}
	d := floats.Distance(a, b, 2)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, ErrNonFinite
	}
	return math.Max(0, 1-d), nil
}

// Score is Evaluate with the error dropped. Failures count as no similarity.
func Score(a, b Template) float64 {
	s, _ := Evaluate(a, b)
	return s
}
