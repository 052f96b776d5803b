package hnsw

import (
	"github.com/therealutkarshpriyadarshi/tann/pkg/neighborqueue"
	"github.com/therealutkarshpriyadarshi/tann/pkg/workspace"
)

// AddVector wires graph state for a vector the store has already
// placed at loc: assigns it a random level, greedily descends to find
// good entry points above its own level, then at each layer from
// min(level, maxLevel) down to 0 runs a best-first search for
// candidates, selects neighbors from them by the occlude heuristic,
// and connects both directions.
func (e *Engine) AddVector(ws *workspace.Space, loc uint32) error {
	e.ensureCapacity(loc)

	vec, err := e.vectorOf(loc)
	if err != nil {
		return err
	}

	level := e.randomLevel()

	e.mu.Lock()
	e.graph.setupLocation(loc, level)
	e.mu.Unlock()

	e.globalLock.Lock()
	entry := e.entrypoint
	top := e.maxLevel
	if entry == unknownLoc {
		e.entrypoint = loc
		e.maxLevel = level
		e.globalLock.Unlock()
		return nil
	}
	e.globalLock.Unlock()

	ex := ws.Extra.(*extra)
	visited := e.visitedPool.get()
	defer e.visitedPool.release(visited)
	out := neighborqueue.New(e.cfg.EfConstruction)

	cur := entry
	for layer := top; layer > level; layer-- {
		next, _, err := e.greedyDescend(vec, cur, layer)
		if err != nil {
			return err
		}
		cur = next
	}

	startLayer := top
	if level < startLayer {
		startLayer = level
	}
	for layer := startLayer; layer >= 0; layer-- {
		if err := e.searchLayer(vec, cur, layer, e.cfg.EfConstruction, nil, visited, ex.frontier, out); err != nil {
			return err
		}
		m := e.cfg.M
		if layer == 0 {
			m = e.cfg.M * 2
		}
		selected, err := e.selectNeighborsHeuristic(out, m)
		if err != nil {
			return err
		}
		if err := e.graph.setNeighbors(loc, layer, selected); err != nil {
			return err
		}
		for _, n := range selected {
			if err := e.connectBack(n, loc, layer); err != nil {
				return err
			}
		}
		if out.Size() > 0 {
			cur = out.At(0).Loc
		}
	}

	if level > top {
		e.globalLock.Lock()
		if level > e.maxLevel {
			e.maxLevel = level
			e.entrypoint = loc
		}
		e.globalLock.Unlock()
	}
	return nil
}

// selectNeighborsHeuristic picks up to m candidates from out (already
// sorted ascending by distance to the query) by the domination rule: a
// candidate is kept only if no already-kept neighbor is closer to it
// than it is to the query, i.e. it is not "occluded" by an existing
// pick.
func (e *Engine) selectNeighborsHeuristic(out *neighborqueue.Queue, m int) ([]uint32, error) {
	selected := make([]neighborqueue.Entity, 0, m)
	for i := 0; i < out.Size() && len(selected) < m; i++ {
		cand := out.At(i)
		good := true
		for _, s := range selected {
			cv, err := e.vectorOf(cand.Loc)
			if err != nil {
				return nil, err
			}
			sv, err := e.vectorOf(s.Loc)
			if err != nil {
				return nil, err
			}
			if e.distance(cv, sv) < cand.Distance {
				good = false
				break
			}
		}
		if good {
			selected = append(selected, cand)
		}
	}
	locs := make([]uint32, len(selected))
	for i, s := range selected {
		locs[i] = s.Loc
	}
	return locs, nil
}

// connectBack adds a back-edge from neighbor to loc at layer, pruning
// neighbor's list by the same heuristic if it is already at capacity.
func (e *Engine) connectBack(neighbor, loc uint32, layer int) error {
	lock := e.linkLock(neighbor)
	lock.Lock()
	defer lock.Unlock()

	if e.graph.appendNeighbor(neighbor, layer, loc) {
		return nil
	}

	existing := e.graph.neighbors(neighbor, layer)
	nv, err := e.vectorOf(neighbor)
	if err != nil {
		return err
	}
	candidates := neighborqueue.New(len(existing) + 1)
	for _, loc2 := range existing {
		v, err := e.vectorOf(loc2)
		if err != nil {
			continue
		}
		candidates.Insert(neighborqueue.Entity{Distance: e.distance(nv, v), Loc: loc2})
	}
	if v, err := e.vectorOf(loc); err == nil {
		candidates.Insert(neighborqueue.Entity{Distance: e.distance(nv, v), Loc: loc})
	}

	capacity := e.graph.neighborCapacity(neighbor, layer)
	pruned, err := e.selectNeighborsHeuristic(candidates, capacity)
	if err != nil {
		return err
	}
	return e.graph.setNeighbors(neighbor, layer, pruned)
}

// RemoveVector reacts to the store having already dropped loc: if loc
// was the entry point, a still-live neighbor (or, failing that, any
// still-live location) takes over so the entrypoint-never-deleted
// invariant holds. The graph's own links through loc are left in place
// for searchLayer's traverse-through-but-filter-from-results handling.
func (e *Engine) RemoveVector(loc uint32) error {
	e.globalLock.Lock()
	defer e.globalLock.Unlock()
	if e.entrypoint != loc {
		return nil
	}

	for layer := e.graph.level(loc); layer >= 0; layer-- {
		for _, n := range e.graph.neighbors(loc, layer) {
			if !e.store.IsDeleted(n) {
				e.entrypoint = n
				e.maxLevel = e.graph.level(n)
				return nil
			}
		}
	}

	for l := uint32(0); l < uint32(len(e.graph.nodes)); l++ {
		if l != loc && !e.store.IsDeleted(l) {
			e.entrypoint = l
			e.maxLevel = e.graph.level(l)
			return nil
		}
	}

	e.entrypoint = unknownLoc
	e.maxLevel = -1
	return nil
}
