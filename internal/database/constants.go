package database

// HNSW parameters for the template collision index
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	HNSWEfSearch = 64

	// HNSWCollisionNeighbors is how many neighbors are inspected per template
	// when looking for templates shared between employees.
	HNSWCollisionNeighbors = 5
)
