package registry

import (
	"sync"

	"github.com/coder/hnsw"
)

const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	hnswMaxNeighbors = 16

	// linearScanLimit is the enrolled-vector count above which Nearest
	// switches from exhaustive scan to the HNSW graph. Small rosters are
	// cheaper to scan than to index.
	linearScanLimit = 512
)

// VectorIndex maintains an HNSW graph over all enrolled face vectors for
// sub-linear nearest-neighbor lookup on large rosters. Each vector is a
// separate node; nodes map back to their owning identity.
type VectorIndex struct {
	mu        sync.RWMutex
	graph     *hnsw.Graph[int64]
	nodeOwner map[int64]int64 // node key -> identity id
	nextNode  int64
	vectorCnt int
}

// NewVectorIndex creates an empty index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{nodeOwner: make(map[int64]int64)}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.EuclideanDistance
	return g
}

// Build replaces the index contents with the vectors of the given identities.
func (x *VectorIndex) Build(identities []Identity) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.graph = newGraph()
	x.nodeOwner = make(map[int64]int64)
	x.nextNode = 0
	x.vectorCnt = 0

	for i := range identities {
		x.addLocked(identities[i])
	}
	return nil
}

// Add indexes all vectors of a newly enrolled identity.
func (x *VectorIndex) Add(identity Identity) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.graph == nil {
		x.graph = newGraph()
	}
	x.addLocked(identity)
}

func (x *VectorIndex) addLocked(identity Identity) {
	for _, vec := range identity.Vectors {
		if len(vec) == 0 {
			continue
		}
		key := x.nextNode
		x.nextNode++
		x.graph.Add(hnsw.MakeNode(key, vec))
		x.nodeOwner[key] = identity.ID
		x.vectorCnt++
	}
}

// Remove drops an identity's vectors from lookup. HNSW does not support
// true deletion; nodes stay in the graph but are filtered out of results
// through the owner map.
func (x *VectorIndex) Remove(identityID int64) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for key, owner := range x.nodeOwner {
		if owner == identityID {
			delete(x.nodeOwner, key)
			x.vectorCnt--
		}
	}
}

// Count returns the number of indexed vectors.
func (x *VectorIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.vectorCnt
}

// UseGraph reports whether the index is large enough for the HNSW graph
// to beat a linear scan.
func (x *VectorIndex) UseGraph() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.vectorCnt > linearScanLimit
}

// Nearest returns the identity owning the closest indexed vector and the
// Euclidean distance to it. ok is false when the index is empty or every
// neighbor belongs to a deleted identity.
func (x *VectorIndex) Nearest(probe []float32) (identityID int64, distance float64, ok bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil || x.vectorCnt == 0 || len(probe) == 0 {
		return 0, 0, false
	}

	// Over-fetch so deleted owners can be skipped.
	neighbors := x.graph.Search(probe, hnswMaxNeighbors)
	for _, n := range neighbors {
		owner, live := x.nodeOwner[n.Key]
		if !live {
			continue
		}
		return owner, float64(hnsw.EuclideanDistance(probe, n.Value)), true
	}
	return 0, 0, false
}
