// Package engine defines the interface every index construction
// strategy (flat scan, HNSW, Vamana-pruned graphs) implements. An
// engine never touches the vector bytes directly: it coordinates graph
// or scan state over locations the store already owns.
package engine

import (
	"io"

	"github.com/therealutkarshpriyadarshi/tann/pkg/store"
	"github.com/therealutkarshpriyadarshi/tann/pkg/workspace"
)

// FilterFunc reports whether loc should be considered a candidate. It
// is resolved from a search.Filter plus a label's metadata by the
// IndexCore façade, so engines stay oblivious to how metadata is
// stored.
type FilterFunc func(loc uint32) bool

// SearchContext carries one search call's parameters: the raw query
// bytes, how many results to return, the candidate-list width to
// explore with, an optional filter predicate, and whether callers want
// the hits' raw vector bytes back.
type SearchContext struct {
	Query  []byte
	K      int
	L      int
	Filter FilterFunc
	GetRaw bool
}

// Accepts reports whether loc passes ctx's filter, treating a nil
// filter as accept-all.
func (ctx *SearchContext) Accepts(loc uint32) bool {
	return ctx.Filter == nil || ctx.Filter(loc)
}

// Engine is the construction/search strategy plugged into IndexCore.
type Engine interface {
	// Initialize is called once, before any other method, with the
	// backing store the engine will read vectors from.
	Initialize(st *store.Store) error

	// MakeWorkSpace allocates a workspace.Space sized for this engine's
	// needs (e.g. a visited-list buffer for HNSW).
	MakeWorkSpace() *workspace.Space

	// SetupWorkSpace performs any engine-specific preparation beyond
	// workspace.Space.SetupSearch/SetupWrite, such as sizing a bitset
	// to the current store capacity.
	SetupWorkSpace(ws *workspace.Space) error

	// AddVector wires graph state for a vector the store has already
	// placed at loc.
	AddVector(ws *workspace.Space, loc uint32) error

	// RemoveVector reacts to the store having already dropped loc.
	RemoveVector(loc uint32) error

	// SearchVector runs ws's SearchContext and populates
	// ws.BestLNodes with up to k hits.
	SearchVector(ws *workspace.Space, ctx *SearchContext) error

	Save(w io.Writer) error
	Load(r io.Reader) error

	// SupportDynamic reports whether the engine allows AddVector/
	// RemoveVector after construction, as opposed to build-then-freeze.
	SupportDynamic() bool

	// NeedModel reports whether the engine requires an offline-trained
	// model (e.g. a quantization codebook) before it can be used.
	NeedModel() bool
}
