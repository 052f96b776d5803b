package hnsw

import "github.com/therealutkarshpriyadarshi/tann/pkg/tannerr"

// graph is the size-prefixed leveled neighbor structure: for every
// location, a level and a per-level neighbor slice. Level 0 holds up
// to 2*M neighbors; levels 1..level hold up to M. The first slot of
// each level's backing array is the live neighbor count, followed by
// neighbor locations, mirroring the reference LeveledGraph layout so
// Save/Load can write it out as one flat region per location.
type graph struct {
	maxM  int // per-level neighbor cap above level 0
	nodes []graphNode
}

type graphNode struct {
	level int
	// links is laid out as: level 0's (2*maxM+1) slots, then level 1's
	// (maxM+1) slots, then level 2's, etc. Index 0 of every level's
	// window holds that level's live count.
	links []uint32
}

func newGraph(maxElements, maxM int) *graph {
	return &graph{maxM: maxM, nodes: make([]graphNode, maxElements)}
}

func (g *graph) grow(maxElements int) {
	if maxElements <= len(g.nodes) {
		return
	}
	grown := make([]graphNode, maxElements)
	copy(grown, g.nodes)
	g.nodes = grown
}

func (g *graph) levelWindowSize(level int) int {
	if level == 0 {
		return g.maxM*2 + 1
	}
	return g.maxM + 1
}

// setupLocation allocates link storage for loc at the given level,
// level 0 through level inclusive.
func (g *graph) setupLocation(loc uint32, level int) {
	total := g.levelWindowSize(0)
	for l := 1; l <= level; l++ {
		total += g.levelWindowSize(l)
	}
	g.nodes[loc] = graphNode{level: level, links: make([]uint32, total)}
}

func (g *graph) level(loc uint32) int {
	return g.nodes[loc].level
}

func (g *graph) windowOffset(loc uint32, level int) int {
	offset := 0
	for l := 0; l < level; l++ {
		offset += g.levelWindowSize(l)
	}
	return offset
}

// neighborCount returns the live neighbor count stored at loc/level.
func (g *graph) neighborCount(loc uint32, level int) int {
	off := g.windowOffset(loc, level)
	return int(g.nodes[loc].links[off])
}

// neighbors returns a borrow of the live neighbor locations at
// loc/level (length neighborCount(loc, level)).
func (g *graph) neighbors(loc uint32, level int) []uint32 {
	off := g.windowOffset(loc, level)
	n := int(g.nodes[loc].links[off])
	return g.nodes[loc].links[off+1 : off+1+n]
}

// neighborCapacity returns how many neighbors loc/level's window can
// hold.
func (g *graph) neighborCapacity(loc uint32, level int) int {
	return g.levelWindowSize(level) - 1
}

// setNeighbors overwrites loc/level's live neighbor list, which must
// not exceed neighborCapacity(loc, level).
func (g *graph) setNeighbors(loc uint32, level int, neighbors []uint32) error {
	capacity := g.neighborCapacity(loc, level)
	if len(neighbors) > capacity {
		return tannerr.NewInternal("location %d level %d: %d neighbors exceeds capacity %d", loc, level, len(neighbors), capacity)
	}
	off := g.windowOffset(loc, level)
	g.nodes[loc].links[off] = uint32(len(neighbors))
	copy(g.nodes[loc].links[off+1:off+1+len(neighbors)], neighbors)
	return nil
}

// appendNeighbor adds link to loc/level's live list if capacity
// allows, returning false if the window is already full.
func (g *graph) appendNeighbor(loc uint32, level int, link uint32) bool {
	off := g.windowOffset(loc, level)
	n := int(g.nodes[loc].links[off])
	if n >= g.neighborCapacity(loc, level) {
		return false
	}
	g.nodes[loc].links[off+1+n] = link
	g.nodes[loc].links[off] = uint32(n + 1)
	return true
}
