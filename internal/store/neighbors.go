package store

import (
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-attendance/internal/vector"
)

// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
const hnswMaxNeighbors = 16

// Neighbor is one approximate nearest identity with its exact distance.
type Neighbor struct {
	ID       int64
	Name     string
	Distance float64
}

// NeighborIndex is an HNSW index over enrolled vectors. It is advisory
// only: enrollment uses it to warn about near-duplicate identities and
// the CLI uses it to browse similar identities. Authoritative matching
// stays with the exhaustive match engine.
type NeighborIndex struct {
	mu       sync.RWMutex
	graph    *hnsw.Graph[int64]
	idToName map[int64]string
}

// NewNeighborIndex creates an empty index.
func NewNeighborIndex() *NeighborIndex {
	return &NeighborIndex{idToName: make(map[int64]string)}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.EuclideanDistance
	return g
}

// BuildFromIdentities replaces the index contents with the given identities.
func (n *NeighborIndex) BuildFromIdentities(identities []Identity) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.idToName = make(map[int64]string, len(identities))
	if len(identities) == 0 {
		n.graph = nil
		return
	}

	g := newGraph()
	for _, ident := range identities {
		if len(ident.Vector) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(ident.ID, ident.Vector))
		n.idToName[ident.ID] = ident.Name
	}
	n.graph = g
}

// Add inserts or replaces a single identity in the index.
func (n *NeighborIndex) Add(ident Identity) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(ident.Vector) == 0 {
		return
	}
	if n.graph == nil {
		n.graph = newGraph()
	}
	n.graph.Add(hnsw.MakeNode(ident.ID, ident.Vector))
	n.idToName[ident.ID] = ident.Name
}

// Nearest returns up to k neighbors of the query, closest first, with
// exact Euclidean distances recomputed from the node vectors.
func (n *NeighborIndex) Nearest(query vector.FaceVector, k int) []Neighbor {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.graph == nil || k <= 0 {
		return nil
	}

	nodes := n.graph.Search(query, k)
	out := make([]Neighbor, 0, len(nodes))
	for _, node := range nodes {
		name, ok := n.idToName[node.Key]
		if !ok {
			continue
		}
		out = append(out, Neighbor{
			ID:       node.Key,
			Name:     name,
			Distance: vector.EuclideanDistance(query, vector.FaceVector(node.Value)),
		})
	}
	return out
}

// Count returns the number of indexed identities.
func (n *NeighborIndex) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.idToName)
}
