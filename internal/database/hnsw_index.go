package database

import (
	"errors"
	"sort"
	"sync"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// TemplateRef locates one template inside an employee's collection.
type TemplateRef struct {
	EmployeeID int64
	Index      int
}

// Collision is a pair of templates belonging to different employees that lie
// closer than the configured distance. Such pairs make matching ambiguous.
type Collision struct {
	A, B     TemplateRef
	Distance float64
}

// TemplateIndex wraps an HNSW graph over all enrolled templates using
// Euclidean distance, the same metric the scorer uses.
type TemplateIndex struct {
	graph   *hnsw.Graph[int64]
	refs    map[int64]TemplateRef
	vecs    map[int64][]float32
	dim     int
	skipped int
	mu      sync.RWMutex
}

// NewTemplateIndex creates a new empty index.
func NewTemplateIndex() *TemplateIndex {
	return &TemplateIndex{
		refs: make(map[int64]TemplateRef),
		vecs: make(map[int64][]float32),
	}
}

func newTemplateGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors)
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.EuclideanDistance
	return g
}

// Build indexes every template of the pool. The graph needs a single
// dimension, so templates whose length differs from the most common one are
// skipped and counted.
func (h *TemplateIndex) Build(pool []facematch.Candidate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.graph = nil
	h.refs = make(map[int64]TemplateRef)
	h.vecs = make(map[int64][]float32)
	h.skipped = 0
	h.dim = dominantDim(pool)
	if h.dim == 0 {
		return
	}

	g := newTemplateGraph()
	var key int64
	for _, c := range pool {
		for i, tpl := range c.Templates {
			if len(tpl) != h.dim {
				h.skipped++
				continue
			}
			key++
			vec := toFloat32(tpl)
			g.Add(hnsw.MakeNode(key, vec))
			h.refs[key] = TemplateRef{EmployeeID: c.EmployeeID, Index: i}
			h.vecs[key] = vec
		}
	}
	h.graph = g
}

// Search returns the k nearest indexed templates and their distances.
func (h *TemplateIndex) Search(query facematch.Template, k int) ([]TemplateRef, []float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return nil, nil, errors.New("index not initialized")
	}
	if len(query) != h.dim {
		return nil, nil, facematch.ErrShapeMismatch
	}

	q := toFloat32(query)
	neighbors := h.graph.Search(q, k)
	refs := make([]TemplateRef, 0, len(neighbors))
	distances := make([]float64, 0, len(neighbors))
	for _, n := range neighbors {
		refs = append(refs, h.refs[n.Key])
		distances = append(distances, float64(hnsw.EuclideanDistance(q, n.Value)))
	}
	return refs, distances, nil
}

// Collisions lists cross-employee template pairs within maxDistance, closest
// first. Each pair is reported once.
func (h *TemplateIndex) Collisions(maxDistance float64) []Collision {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return nil
	}

	type pairKey struct{ lo, hi int64 }
	seen := make(map[pairKey]struct{})
	var out []Collision

	for key, ref := range h.refs {
		vec := h.vecs[key]
		for _, n := range h.graph.Search(vec, HNSWCollisionNeighbors+1) {
			other := h.refs[n.Key]
			if n.Key == key || other.EmployeeID == ref.EmployeeID {
				continue
			}
			d := float64(hnsw.EuclideanDistance(vec, n.Value))
			if d > maxDistance {
				continue
			}
			pk := pairKey{lo: min(key, n.Key), hi: max(key, n.Key)}
			if _, dup := seen[pk]; dup {
				continue
			}
			seen[pk] = struct{}{}
			a, b := h.refs[pk.lo], h.refs[pk.hi]
			out = append(out, Collision{A: a, B: b, Distance: d})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].A.EmployeeID < out[j].A.EmployeeID
	})
	return out
}

// Count returns the number of indexed templates.
func (h *TemplateIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.refs)
}

// Skipped returns how many templates were left out because of their length.
func (h *TemplateIndex) Skipped() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.skipped
}

func dominantDim(pool []facematch.Candidate) int {
	counts := make(map[int]int)
	best, bestCount := 0, 0
	for _, c := range pool {
		for _, tpl := range c.Templates {
			if len(tpl) == 0 {
				continue
			}
			counts[len(tpl)]++
			n := counts[len(tpl)]
			if n > bestCount || (n == bestCount && len(tpl) < best) {
				best, bestCount = len(tpl), n
			}
		}
	}
	return best
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
