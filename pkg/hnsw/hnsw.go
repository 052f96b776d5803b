// Package hnsw implements the Hierarchical Navigable Small World engine:
// a layered proximity graph built by greedy best-first search at insert
// time, searched by descending from a coarse entry point down through
// progressively denser layers.
package hnsw

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/therealutkarshpriyadarshi/tann/pkg/engine"
	"github.com/therealutkarshpriyadarshi/tann/pkg/neighborqueue"
	"github.com/therealutkarshpriyadarshi/tann/pkg/store"
	"github.com/therealutkarshpriyadarshi/tann/pkg/tannerr"
	"github.com/therealutkarshpriyadarshi/tann/pkg/vectorspace"
	"github.com/therealutkarshpriyadarshi/tann/pkg/workspace"
)

const unknownLoc = vectorspace.UnknownLocation

// Config holds the construction-time parameters of an HNSW engine.
type Config struct {
	// M is the per-layer neighbor budget above level 0; level 0 holds
	// 2*M.
	M int
	// EfConstruction is the candidate-list width explored while
	// inserting.
	EfConstruction int
	// Seed seeds the level generator. Zero means "use the current
	// time", matching the teacher's rand.New(rand.NewSource(...))
	// idiom rather than a fixed seed.
	Seed int64
}

func (c Config) withDefaults() Config {
	if c.M <= 0 {
		c.M = 16
	}
	if c.EfConstruction <= 0 {
		c.EfConstruction = 200
	}
	return c
}

// Engine is the HNSW engine.Engine implementation.
type Engine struct {
	cfg   Config
	store *store.Store

	levelMult float64

	rngMu sync.Mutex
	rng   *rand.Rand

	globalLock sync.Mutex // guards entrypoint/maxLevel only, held briefly

	mu         sync.RWMutex // guards graph/linkLocks growth
	graph      *graph
	linkLocks  []sync.Mutex
	entrypoint uint32
	maxLevel   int

	visitedPool *visitedListPool
}

var _ engine.Engine = (*Engine)(nil)

// New constructs an uninitialized HNSW engine.
func New(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		cfg:         cfg,
		levelMult:   1.0 / math.Log(float64(cfg.M)),
		rng:         rand.New(rand.NewSource(seed)),
		entrypoint:  unknownLoc,
		maxLevel:    -1,
		visitedPool: newVisitedListPool(0),
	}
}

func (e *Engine) Initialize(st *store.Store) error {
	e.store = st
	initial := int(st.Size())
	if initial == 0 {
		initial = vectorspace.DefaultBatchCapacity
	}
	e.graph = newGraph(initial, e.cfg.M)
	e.linkLocks = make([]sync.Mutex, initial)
	e.visitedPool.setNumElements(initial)
	return nil
}

type extra struct {
	frontier *neighborqueue.Queue
}

func (e *Engine) MakeWorkSpace() *workspace.Space {
	ws := workspace.New(e.store.Space())
	ws.Extra = &extra{frontier: neighborqueue.New(e.cfg.EfConstruction)}
	return ws
}

func (e *Engine) SetupWorkSpace(ws *workspace.Space) error {
	if ws.Extra == nil {
		ws.Extra = &extra{frontier: neighborqueue.New(e.cfg.EfConstruction)}
	}
	return nil
}

// randomLevel draws an exponentially decaying level the way the
// reference implementation does: -ln(r) * levelMult, floored.
func (e *Engine) randomLevel() int {
	e.rngMu.Lock()
	r := e.rng.Float64()
	e.rngMu.Unlock()
	for r == 0 {
		e.rngMu.Lock()
		r = e.rng.Float64()
		e.rngMu.Unlock()
	}
	return int(-math.Log(r) * e.levelMult)
}

func (e *Engine) ensureCapacity(loc uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	need := int(loc) + 1
	if need <= len(e.graph.nodes) {
		return
	}
	grown := need * 2
	e.graph.grow(grown)
	grownLocks := make([]sync.Mutex, grown)
	copy(grownLocks, e.linkLocks)
	e.linkLocks = grownLocks
	e.visitedPool.setNumElements(grown)
}

func (e *Engine) linkLock(loc uint32) *sync.Mutex {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return &e.linkLocks[loc]
}

func (e *Engine) SupportDynamic() bool { return true }
func (e *Engine) NeedModel() bool      { return false }

func (e *Engine) distance(a, b []byte) float64 {
	return e.store.Space().Compare(a, b)
}

func (e *Engine) vectorOf(loc uint32) ([]byte, error) {
	return e.store.GetVector(loc)
}

func (e *Engine) isDeletedOrMissing(loc uint32) bool {
	if loc >= uint32(len(e.graph.nodes)) {
		return true
	}
	return e.store.IsDeleted(loc)
}

var errEmptyIndex = tannerr.NewNotFound("hnsw index is empty")
