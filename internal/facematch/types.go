// Package facematch holds the pure matching core: template encoding, the
// Euclidean similarity score and best-match resolution over cached candidates.
package facematch

// Template is a single face descriptor. Stored templates are never mutated.
type Template []float64

// Candidate is one enrolled employee as seen by the resolver.
type Candidate struct {
	EmployeeID int64
	Name       string
	Templates  []Template
}

// Match is the outcome of resolving a probe against the candidate pool.
type Match struct {
	Candidate  *Candidate // nil when nothing scored above zero
	Confidence float64    // best similarity scaled to 0-100
	Compared   int        // number of template comparisons performed
	Failures   int        // comparisons that could not be evaluated
}

// Found reports whether the resolver produced a best match.
func (m Match) Found() bool {
	return m.Candidate != nil
}
