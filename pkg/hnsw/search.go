package hnsw

import (
	"github.com/therealutkarshpriyadarshi/tann/pkg/engine"
	"github.com/therealutkarshpriyadarshi/tann/pkg/neighborqueue"
	"github.com/therealutkarshpriyadarshi/tann/pkg/workspace"
)

// searchLayer runs best-first search at one layer starting from entry,
// exploring up to ef candidates. The frontier queue drives expansion
// order and admits every location reached, deleted or not, so the walk
// keeps crossing lazily deleted nodes instead of losing connectivity
// through them; out only receives non-deleted, filter-accepted
// candidates, implementing the traverse-through-but-filter-from-
// results invariant.
func (e *Engine) searchLayer(query []byte, entry uint32, layer int, ef int, filter engine.FilterFunc, visited *visitedList, frontier, out *neighborqueue.Queue) error {
	frontier.Clear()
	frontier.Reserve(ef)
	out.Clear()
	out.Reserve(ef)
	visited.reset()

	entryVec, err := e.vectorOf(entry)
	if err != nil {
		return err
	}
	d := e.distance(query, entryVec)
	visited.visit(entry)
	frontier.Insert(neighborqueue.Entity{Distance: d, Loc: entry})
	if !e.store.IsDeleted(entry) && (filter == nil || filter(entry)) {
		label, _ := e.store.LabelOf(entry)
		out.Insert(neighborqueue.Entity{Distance: d, Loc: entry, Label: label})
	}

	for frontier.HasUnexpandedNode() {
		cur := frontier.ClosestUnexpanded()
		if out.Size() >= ef && cur.Distance > out.Top().Distance {
			break
		}
		for _, n := range e.graph.neighbors(cur.Loc, layer) {
			if visited.visited(n) {
				continue
			}
			visited.visit(n)
			nv, err := e.vectorOf(n)
			if err != nil {
				continue
			}
			nd := e.distance(query, nv)
			frontier.Insert(neighborqueue.Entity{Distance: nd, Loc: n})
			if !e.store.IsDeleted(n) {
				if filter == nil || filter(n) {
					label, _ := e.store.LabelOf(n)
					out.Insert(neighborqueue.Entity{Distance: nd, Loc: n, Label: label})
				}
			}
		}
	}
	return nil
}

// greedyDescend performs ef=1 greedy search at layer, returning the
// closest location found starting from entry.
func (e *Engine) greedyDescend(query []byte, entry uint32, layer int) (uint32, float64, error) {
	entryVec, err := e.vectorOf(entry)
	if err != nil {
		return unknownLoc, 0, err
	}
	current := entry
	currentDist := e.distance(query, entryVec)

	for {
		improved := false
		for _, n := range e.graph.neighbors(current, layer) {
			nv, err := e.vectorOf(n)
			if err != nil {
				continue
			}
			nd := e.distance(query, nv)
			if nd < currentDist {
				currentDist = nd
				current = n
				improved = true
			}
		}
		if !improved {
			break
		}
	}
	return current, currentDist, nil
}

// SearchVector descends from the entry point through layers maxLevel..1
// with ef=1, then runs a full best-first search at layer 0 with width
// max(ctx.L, ctx.K), finally copying the closest ctx.K accepted hits
// into ws.BestLNodes.
func (e *Engine) SearchVector(ws *workspace.Space, ctx *engine.SearchContext) error {
	e.globalLock.Lock()
	entry := e.entrypoint
	top := e.maxLevel
	e.globalLock.Unlock()

	ws.BestLNodes.Clear()
	ws.BestLNodes.Reserve(ctx.K)
	if entry == unknownLoc {
		return nil
	}

	query := ctx.Query
	cur := entry
	for layer := top; layer >= 1; layer-- {
		next, _, err := e.greedyDescend(query, cur, layer)
		if err != nil {
			return err
		}
		cur = next
	}

	ef := ctx.L
	if ef < ctx.K {
		ef = ctx.K
	}

	ex := ws.Extra.(*extra)
	ex.frontier.Reserve(ef)
	visited := e.visitedPool.get()
	defer e.visitedPool.release(visited)

	out := neighborqueue.New(ef)
	if err := e.searchLayer(query, cur, 0, ef, ctx.Filter, visited, ex.frontier, out); err != nil {
		return err
	}

	for i := 0; i < out.Size() && i < ctx.K; i++ {
		ws.BestLNodes.Insert(out.At(i))
	}
	return nil
}
