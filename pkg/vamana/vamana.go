// Package vamana implements the shared diversification and back-edge
// maintenance primitives a Vamana/DiskANN-style graph builder plugs
// into the same core this module exposes. These are the pruning rules
// only — the offline build/beam-search/PQ phases that assemble a full
// disk-resident index are out of scope here.
package vamana

import (
	"sort"
	"sync"
)

// DistanceFunc resolves the distance between two locations, typically
// backed by a store.Store.GetDistance.
type DistanceFunc func(a, b uint32) (float64, error)

// NeighborLister reads and writes a location's live neighbor list,
// typically backed by an engine's graph structure.
type NeighborLister interface {
	Neighbors(loc uint32) []uint32
	SetNeighbors(loc uint32, neighbors []uint32) error
	Lock(loc uint32) sync.Locker
}

// Options configures one prune/insert pass.
type Options struct {
	R             int     // final neighbor cap
	MaxCandidates int     // candidate pool truncation before occlusion
	Alpha         float64 // diversification relaxation, typically 1.0 then 1.2
	Slack         float64 // inter_insert re-prune trigger: len > Slack*R
	SaturateGraph bool    // top up with closest leftovers when Alpha > 1
}

type candidate struct {
	loc  uint32
	dist float64
}

// PruneNeighbors sorts pool by distance to loc, truncates to
// opt.MaxCandidates, runs OccludeList with opt.Alpha capped at opt.R,
// and (when opt.SaturateGraph is set and opt.Alpha > 1) tops the result
// back up to opt.R with the closest remaining candidates that
// OccludeList rejected.
func PruneNeighbors(loc uint32, pool []uint32, opt Options, dist DistanceFunc) ([]uint32, error) {
	cands := make([]candidate, 0, len(pool))
	for _, p := range pool {
		if p == loc {
			continue
		}
		d, err := dist(loc, p)
		if err != nil {
			return nil, err
		}
		cands = append(cands, candidate{loc: p, dist: d})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })

	if len(cands) > opt.MaxCandidates && opt.MaxCandidates > 0 {
		cands = cands[:opt.MaxCandidates]
	}

	result, rejected, err := occludeList(loc, cands, opt, dist)
	if err != nil {
		return nil, err
	}

	if opt.SaturateGraph && opt.Alpha > 1 && len(result) < opt.R {
		for _, r := range rejected {
			if len(result) >= opt.R {
				break
			}
			result = append(result, r)
		}
	}

	locs := make([]uint32, len(result))
	for i, c := range result {
		locs[i] = c.loc
	}
	return locs, nil
}

// occludeList implements the alpha-relaxed diversification rule: a
// candidate is admitted unless some already-admitted neighbor r
// satisfies d(r, candidate) * alpha < d(loc, candidate). Admission
// stops once opt.R survivors have been picked; remaining candidates
// are returned as rejected so PruneNeighbors can saturate with them.
func occludeList(loc uint32, cands []candidate, opt Options, dist DistanceFunc) (admitted, rejected []candidate, err error) {
	admitted = make([]candidate, 0, opt.R)
	for _, c := range cands {
		if len(admitted) >= opt.R {
			rejected = append(rejected, c)
			continue
		}
		occluded := false
		for _, r := range admitted {
			d, err := dist(r.loc, c.loc)
			if err != nil {
				return nil, nil, err
			}
			if d*opt.Alpha < c.dist {
				occluded = true
				break
			}
		}
		if occluded {
			rejected = append(rejected, c)
		} else {
			admitted = append(admitted, c)
		}
	}
	return admitted, rejected, nil
}

// InterInsert adds loc as a back-edge on every surviving neighbor's
// list (skipping ones that already carry it), re-pruning any neighbor
// whose list overflows opt.Slack*opt.R afterward.
func InterInsert(loc uint32, pruned []uint32, opt Options, graph NeighborLister, dist DistanceFunc) error {
	slackCap := opt.R
	if opt.Slack > 0 {
		slackCap = int(float64(opt.R) * opt.Slack)
	}

	for _, des := range pruned {
		lock := graph.Lock(des)
		lock.Lock()
		err := func() error {
			existing := graph.Neighbors(des)
			for _, n := range existing {
				if n == loc {
					return nil
				}
			}
			grown := append(append([]uint32{}, existing...), loc)
			if len(grown) <= slackCap {
				return graph.SetNeighbors(des, grown)
			}
			pruned2, err := PruneNeighbors(des, grown, opt, dist)
			if err != nil {
				return err
			}
			return graph.SetNeighbors(des, pruned2)
		}()
		lock.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}
