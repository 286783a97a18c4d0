package store

import (
	"testing"
)

func identityWithVector(id int64, name string, seed float32) Identity {
	return Identity{ID: id, Name: name, Vector: testVector(seed)}
}

func TestNeighborIndexNearest(t *testing.T) {
	idx := NewNeighborIndex()
	idx.BuildFromIdentities([]Identity{
		identityWithVector(1, "Alice", 0.0),
		identityWithVector(2, "Bob", 1.0),
		identityWithVector(3, "Carol", 5.0),
	})

	if idx.Count() != 3 {
		t.Fatalf("Count = %d, want 3", idx.Count())
	}

	neighbors := idx.Nearest(testVector(0.05), 2)
	if len(neighbors) == 0 {
		t.Fatal("expected neighbors")
	}
	if neighbors[0].ID != 1 {
		t.Errorf("nearest neighbor ID = %d, want 1", neighbors[0].ID)
	}
	if neighbors[0].Name != "Alice" {
		t.Errorf("nearest neighbor name = %s, want Alice", neighbors[0].Name)
	}
}

func TestNeighborIndexExactDistanceForIdenticalVector(t *testing.T) {
	idx := NewNeighborIndex()
	idx.BuildFromIdentities([]Identity{identityWithVector(7, "Alice", 0.3)})

	neighbors := idx.Nearest(testVector(0.3), 1)
	if len(neighbors) != 1 {
		t.Fatalf("expected 1 neighbor, got %d", len(neighbors))
	}
	if neighbors[0].Distance != 0 {
		t.Errorf("distance to identical vector = %f, want 0", neighbors[0].Distance)
	}
}

func TestNeighborIndexEmpty(t *testing.T) {
	idx := NewNeighborIndex()

	if got := idx.Nearest(testVector(0.1), 3); got != nil {
		t.Errorf("empty index should return nil, got %v", got)
	}

	idx.BuildFromIdentities(nil)
	if idx.Count() != 0 {
		t.Errorf("Count after empty build = %d, want 0", idx.Count())
	}
}

func TestNeighborIndexAdd(t *testing.T) {
	idx := NewNeighborIndex()
	idx.Add(identityWithVector(1, "Alice", 0.2))
	idx.Add(identityWithVector(2, "Bob", 3.0))

	if idx.Count() != 2 {
		t.Fatalf("Count = %d, want 2", idx.Count())
	}

	neighbors := idx.Nearest(testVector(2.9), 1)
	if len(neighbors) != 1 || neighbors[0].ID != 2 {
		t.Errorf("expected Bob as nearest, got %v", neighbors)
	}
}
