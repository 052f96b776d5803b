// Package workspace provides the per-query/per-insert scratch buffers
// every engine borrows for the duration of one operation, plus a Pool
// that blocks callers until a scratch buffer is free instead of
// allocating one per call.
package workspace

import (
	"github.com/therealutkarshpriyadarshi/tann/pkg/neighborqueue"
	"github.com/therealutkarshpriyadarshi/tann/pkg/vectorspace"
)

// WriteOption carries the per-call knobs an insert needs. Its only
// field records whether this is an update of an existing label.
type WriteOption struct {
	IsUpdate bool
}

// Space is the scratch state shared by every search or insert: an
// aligned copy of the query vector and a reusable neighbor queue sized
// for the call's k or construction width. Engine-specific extras
// (visited lists, candidate stacks) are carried in the Extra field so
// each engine can stash its own pooled state without this package
// knowing about it.
type Space struct {
	QueryView   []byte
	BestLNodes  *neighborqueue.Queue
	WriteOption WriteOption
	IsUpdate    bool
	Extra       interface{}

	queryScratch []byte
}

// New allocates an empty Space with a query scratch buffer sized for
// space's encoded vector.
func New(space *vectorspace.Space) *Space {
	return &Space{
		queryScratch: make([]byte, space.VectorByteSize()),
		BestLNodes:   neighborqueue.New(0),
	}
}

// SetupSearch prepares the workspace for a search call: copies query
// into the aligned scratch buffer and reserves the neighbor queue for
// k results.
func (s *Space) SetupSearch(query []byte, k int) {
	copy(s.queryScratch, query)
	s.QueryView = s.queryScratch
	s.BestLNodes.Clear()
	s.BestLNodes.Reserve(k)
	s.IsUpdate = false
}

// SetupWrite prepares the workspace for an insert/update call.
func (s *Space) SetupWrite(query []byte, opt WriteOption) {
	copy(s.queryScratch, query)
	s.QueryView = s.queryScratch
	s.WriteOption = opt
	s.IsUpdate = opt.IsUpdate
}

// Clear resets transient state so the Space is safe to hand back to a
// Pool. Engine-specific Extra state is cleared by the engine, via the
// ClearFunc passed to Pool.
func (s *Space) Clear() {
	s.BestLNodes.Clear()
	s.IsUpdate = false
}

// Pool hands out Space values for the duration of one operation,
// blocking Acquire when every Space is checked out instead of growing
// unbounded. It is realized with a buffered channel rather than the
// reference implementation's condition-variable-backed queue, matching
// the worker-pool idiom the rest of this codebase already uses for
// bounded concurrent work.
type Pool struct {
	slots chan *Space
}

// NewPool creates a Pool with size pre-allocated Space values, each
// built by newSpace.
func NewPool(size int, newSpace func() *Space) *Pool {
	p := &Pool{slots: make(chan *Space, size)}
	for i := 0; i < size; i++ {
		p.slots <- newSpace()
	}
	return p
}

// Acquire blocks until a Space is available and returns it.
func (p *Pool) Acquire() *Space {
	return <-p.slots
}

// Release clears extra and returns a Space to the pool. clearExtra, if
// non-nil, is invoked before the Space's own Clear so engine-specific
// scratch state is reset too.
func (p *Pool) Release(s *Space, clearExtra func(*Space)) {
	if clearExtra != nil {
		clearExtra(s)
	}
	s.Clear()
	p.slots <- s
}

// Size reports how many Space values this pool manages.
func (p *Pool) Size() int {
	return cap(p.slots)
}
