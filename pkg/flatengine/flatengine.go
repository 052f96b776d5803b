// Package flatengine implements the exhaustive-scan engine: no graph
// state is built, every search walks the whole store, trimming work
// once the result set is full by comparing against the current worst
// accepted distance.
package flatengine

import (
	"io"
	"math"

	"github.com/therealutkarshpriyadarshi/tann/pkg/engine"
	"github.com/therealutkarshpriyadarshi/tann/pkg/neighborqueue"
	"github.com/therealutkarshpriyadarshi/tann/pkg/store"
	"github.com/therealutkarshpriyadarshi/tann/pkg/workspace"
)

// Engine is the flat (brute-force) ANN engine. All vector state lives
// in the store; this engine keeps none of its own, so AddVector and
// RemoveVector are no-ops.
type Engine struct {
	store *store.Store
}

// New constructs an uninitialized flat Engine.
func New() *Engine {
	return &Engine{}
}

var _ engine.Engine = (*Engine)(nil)

func (e *Engine) Initialize(st *store.Store) error {
	e.store = st
	return nil
}

func (e *Engine) MakeWorkSpace() *workspace.Space {
	return workspace.New(e.store.Space())
}

func (e *Engine) SetupWorkSpace(ws *workspace.Space) error { return nil }

func (e *Engine) AddVector(ws *workspace.Space, loc uint32) error { return nil }

func (e *Engine) RemoveVector(loc uint32) error { return nil }

// SearchVector scans every non-deleted, filter-accepted location,
// inserting the first k accepted candidates unconditionally and then
// only inserting later candidates closer than the current worst
// accepted distance, keeping the bulk of the scan to a single
// distance-compute-and-compare per location.
func (e *Engine) SearchVector(ws *workspace.Space, ctx *engine.SearchContext) error {
	dataSize := e.store.Size()
	k := uint32(ctx.K)
	firstTravel := k
	if dataSize < firstTravel {
		firstTravel = dataSize
	}

	results := ws.BestLNodes

	for loc := uint32(0); loc < firstTravel; loc++ {
		if e.store.IsDeleted(loc) {
			continue
		}
		label, err := e.store.LabelOf(loc)
		if err != nil {
			continue
		}
		if !ctx.Accepts(loc) {
			continue
		}
		d, err := e.store.GetDistanceFrom(ctx.Query, loc)
		if err != nil {
			return err
		}
		results.Insert(neighborqueue.Entity{Distance: d, Label: label, Loc: loc})
	}

	// Until k candidates have been accepted, every accepted location is
	// inserted; only a full queue's worst distance cuts later ones off.
	lastDist := math.Inf(1)
	if !results.Empty() && results.Size() >= int(k) {
		lastDist = results.Top().Distance
	}

	for loc := firstTravel; loc < dataSize; loc++ {
		if e.store.IsDeleted(loc) {
			continue
		}
		label, err := e.store.LabelOf(loc)
		if err != nil {
			continue
		}
		if !ctx.Accepts(loc) {
			continue
		}
		d, err := e.store.GetDistanceFrom(ctx.Query, loc)
		if err != nil {
			return err
		}
		if d < lastDist {
			results.Insert(neighborqueue.Entity{Distance: d, Label: label, Loc: loc})
			if !results.Empty() && results.Size() >= int(k) {
				lastDist = results.Top().Distance
			}
		}
	}
	return nil
}

func (e *Engine) Save(w io.Writer) error { return nil }
func (e *Engine) Load(r io.Reader) error { return nil }

func (e *Engine) SupportDynamic() bool { return true }
func (e *Engine) NeedModel() bool      { return false }
