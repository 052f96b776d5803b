package vamana

import (
	"math"
	"sync"
	"testing"
)

// line1D places locations on a 1-D line so distance is just |a-b|,
// making occlusion outcomes easy to reason about by hand.
type line1D map[uint32]float64

func (l line1D) dist(a, b uint32) (float64, error) {
	return math.Abs(l[a] - l[b]), nil
}

func TestPruneNeighborsKeepsClosestWithinR(t *testing.T) {
	pos := line1D{0: 0, 1: 1, 2: 2, 3: 3, 4: 100}
	pool := []uint32{1, 2, 3, 4}
	opt := Options{R: 2, MaxCandidates: 10, Alpha: 1.0}

	result, err := PruneNeighbors(0, pool, opt, pos.dist)
	if err != nil {
		t.Fatal(err)
	}
	if len(result) > opt.R {
		t.Fatalf("len(result) = %d, want <= %d", len(result), opt.R)
	}
	if len(result) == 0 || result[0] != 1 {
		t.Fatalf("expected closest location 1 admitted first, got %v", result)
	}
}

func TestPruneNeighborsExcludesSelf(t *testing.T) {
	pos := line1D{0: 0, 1: 1}
	opt := Options{R: 5, MaxCandidates: 5, Alpha: 1.0}
	result, err := PruneNeighbors(0, []uint32{0, 1}, opt, pos.dist)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range result {
		if r == 0 {
			t.Fatal("loc must never occlude-admit itself")
		}
	}
}

func TestOccludeListRejectsDominatedCandidate(t *testing.T) {
	// loc=0, candidates 1 (dist 1) and 2 (dist 1.05), with d(1,2)=0.05.
	// At alpha=1, 2 is occluded by 1 since d(1,2)*1 < d(0,2) (0.05 < 1.05).
	pos := line1D{0: 0, 1: 1, 2: 1.05}
	opt := Options{R: 5, MaxCandidates: 5, Alpha: 1.0}
	result, err := PruneNeighbors(0, []uint32{1, 2}, opt, pos.dist)
	if err != nil {
		t.Fatal(err)
	}
	if len(result) != 1 || result[0] != 1 {
		t.Fatalf("expected only location 1 to survive occlusion, got %v", result)
	}
}

func TestOccludeListRelaxedAlphaAdmitsMore(t *testing.T) {
	pos := line1D{0: 0, 1: 1, 2: 1.05}
	// same geometry as above; a larger alpha relaxes the rule. At
	// alpha=25, d(1,2)*alpha = 1.25 is no longer < d(0,2) = 1.05, so the
	// occlusion condition flips from true to false and 2 is admitted.
	opt := Options{R: 5, MaxCandidates: 5, Alpha: 25}
	result, err := PruneNeighbors(0, []uint32{1, 2}, opt, pos.dist)
	if err != nil {
		t.Fatal(err)
	}
	if len(result) != 2 {
		t.Fatalf("expected both candidates admitted under relaxed alpha, got %v", result)
	}
}

func TestPruneNeighborsSaturateGraphTopsUpRejected(t *testing.T) {
	pos := line1D{0: 0, 1: 1, 2: 1.01, 3: 1.02}
	opt := Options{R: 3, MaxCandidates: 10, Alpha: 1.2, SaturateGraph: true}
	result, err := PruneNeighbors(0, []uint32{1, 2, 3}, opt, pos.dist)
	if err != nil {
		t.Fatal(err)
	}
	if len(result) != 3 {
		t.Fatalf("expected saturate_graph to top the result up to R=3, got %v", result)
	}
}

// memGraph is a minimal in-memory NeighborLister for InterInsert tests.
type memGraph struct {
	mu        sync.Mutex
	locks     map[uint32]*sync.Mutex
	neighbors map[uint32][]uint32
}

func newMemGraph() *memGraph {
	return &memGraph{locks: map[uint32]*sync.Mutex{}, neighbors: map[uint32][]uint32{}}
}

func (g *memGraph) Neighbors(loc uint32) []uint32 { return g.neighbors[loc] }

func (g *memGraph) SetNeighbors(loc uint32, neighbors []uint32) error {
	g.neighbors[loc] = neighbors
	return nil
}

func (g *memGraph) Lock(loc uint32) sync.Locker {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[loc]
	if !ok {
		l = &sync.Mutex{}
		g.locks[loc] = l
	}
	return l
}

func TestInterInsertAddsBackEdgeOnce(t *testing.T) {
	g := newMemGraph()
	g.neighbors[1] = []uint32{9}
	pos := line1D{0: 0, 1: 1, 9: 2}
	opt := Options{R: 10, MaxCandidates: 10, Alpha: 1.0, Slack: 1.5}

	if err := InterInsert(0, []uint32{1}, opt, g, pos.dist); err != nil {
		t.Fatal(err)
	}
	if err := InterInsert(0, []uint32{1}, opt, g, pos.dist); err != nil {
		t.Fatal(err)
	}

	count := 0
	for _, n := range g.Neighbors(1) {
		if n == 0 {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one back-edge to loc 0, got %d occurrences", count)
	}
}

func TestInterInsertRePrunesOnOverflow(t *testing.T) {
	g := newMemGraph()
	g.neighbors[1] = []uint32{10, 11}
	pos := line1D{0: 0, 1: 1, 10: 1.1, 11: 1.2}
	opt := Options{R: 2, MaxCandidates: 10, Alpha: 1.0, Slack: 1.0}

	if err := InterInsert(0, []uint32{1}, opt, g, pos.dist); err != nil {
		t.Fatal(err)
	}
	if len(g.Neighbors(1)) > opt.R {
		t.Fatalf("expected re-prune to cap neighbor list at R=%d, got %d", opt.R, len(g.Neighbors(1)))
	}
}
