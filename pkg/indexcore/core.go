// Package indexcore composes a vector space, a mutable store, a
// pluggable engine and a workspace pool behind the single façade type
// external callers talk to: add, remove, search, save, load.
package indexcore

import (
	"io"
	"sync"
	"time"

	"github.com/therealutkarshpriyadarshi/tann/pkg/engine"
	"github.com/therealutkarshpriyadarshi/tann/pkg/flatengine"
	"github.com/therealutkarshpriyadarshi/tann/pkg/hnsw"
	"github.com/therealutkarshpriyadarshi/tann/pkg/search"
	"github.com/therealutkarshpriyadarshi/tann/pkg/store"
	"github.com/therealutkarshpriyadarshi/tann/pkg/tannerr"
	"github.com/therealutkarshpriyadarshi/tann/pkg/vectorspace"
	"github.com/therealutkarshpriyadarshi/tann/pkg/workspace"
)

const defaultWorkspacePoolSize = 8

// IndexCore is the top-level façade: one vector space, one store, one
// engine, one workspace pool.
type IndexCore struct {
	space  *vectorspace.Space
	option IndexOption
	store  *store.Store
	engine engine.Engine
	pool   *workspace.Pool

	metaMu   sync.RWMutex
	metadata map[uint64]map[string]interface{}
}

// New builds and initializes an IndexCore for the given options. The
// engineOption's concrete type selects the tuning applied: pass
// HnswIndexOption for EngineHNSW, or plain IndexOption for EngineFlat.
func New(option IndexOption, engineOption interface{}) (*IndexCore, error) {
	option = option.withDefaults()

	space, err := vectorspace.NewSpace(option.Metric, option.DataType, option.Dimension)
	if err != nil {
		return nil, err
	}

	st := store.New(space, store.Options{
		MaxElements:      option.MaxElements,
		BatchSize:        option.BatchSize,
		AllowVacantReuse: option.EnableReplaceVacant,
	})

	var eng engine.Engine
	switch option.Engine {
	case EngineFlat:
		eng = flatengine.New()
	case EngineHNSW:
		cfg := hnsw.Config{}
		if hopt, ok := engineOption.(HnswIndexOption); ok {
			cfg.M = hopt.M
			cfg.EfConstruction = hopt.EfConstruction
			cfg.Seed = hopt.RandomSeed
		}
		eng = hnsw.New(cfg)
	default:
		return nil, tannerr.NewInvalidArgument("unsupported engine type %d", option.Engine)
	}

	if err := eng.Initialize(st); err != nil {
		return nil, err
	}

	poolSize := option.NThreads
	if poolSize <= 0 {
		poolSize = defaultWorkspacePoolSize
	}
	pool := workspace.NewPool(poolSize, eng.MakeWorkSpace)

	return &IndexCore{
		space:    space,
		option:   option,
		store:    st,
		engine:   eng,
		pool:     pool,
		metadata: make(map[uint64]map[string]interface{}),
	}, nil
}

// AddVector implements the add_vector contract: preprocess, take the
// per-label lock plus the store's exclusive update lock (AddVectorAt may
// append a batch), resolve a location, write the vector, hand it to the
// engine, release.
func (c *IndexCore) AddVector(opt WriteOption, data []byte, label uint64, metadata map[string]interface{}) (InsertResult, error) {
	start := time.Now()

	aligned, err := c.preprocess(data, opt.IsNormalized)
	if err != nil {
		return InsertResult{}, err
	}

	labelLock := c.store.LabelLock(label)
	labelLock.Lock()
	defer labelLock.Unlock()

	c.store.UpdateLock()
	defer c.store.UpdateUnlock()

	// The store's own AllowVacantReuse option (set from
	// IndexOption.EnableReplaceVacant at construction) alone governs
	// whether AddVectorAt recycles a deleted location, for every add;
	// opt.ReplaceDeleted is not consulted. ResourceExhausted falls
	// through unchanged.
	loc, err := c.store.AddVectorAt(label)
	if err != nil {
		return InsertResult{}, err
	}

	if err := c.store.SetVector(loc, aligned); err != nil {
		return InsertResult{}, err
	}

	ws := c.pool.Acquire()
	defer c.pool.Release(ws, nil)
	ws.SetupWrite(aligned, workspace.WriteOption{IsUpdate: false})
	if err := c.engine.AddVector(ws, loc); err != nil {
		return InsertResult{}, err
	}

	if metadata != nil {
		c.metaMu.Lock()
		c.metadata[label] = metadata
		c.metaMu.Unlock()
	}

	return InsertResult{Location: loc, CostNs: time.Since(start).Nanoseconds()}, nil
}

// RemoveVector drops label from the store and tells the engine to
// react (reassign entrypoints, etc). Removal is idempotent at the
// store layer; NotFound surfaces here unchanged.
func (c *IndexCore) RemoveVector(label uint64) error {
	labelLock := c.store.LabelLock(label)
	labelLock.Lock()
	defer labelLock.Unlock()

	loc, err := c.store.RemoveVector(label)
	if err != nil {
		return err
	}
	if err := c.engine.RemoveVector(loc); err != nil {
		return err
	}

	c.metaMu.Lock()
	delete(c.metadata, label)
	c.metaMu.Unlock()
	return nil
}

// SearchVector implements the search_vector contract: borrow a
// work-space (blocking if none free), take the update-shared lock,
// preprocess the query, run the engine, copy results out, release.
func (c *IndexCore) SearchVector(ctx *SearchContext) (SearchResult, error) {
	start := time.Now()
	if ctx.K <= 0 {
		return SearchResult{}, tannerr.NewInvalidArgument("k must be positive, got %d", ctx.K)
	}

	aligned, err := c.preprocess(ctx.Query, ctx.IsNormalized)
	if err != nil {
		return SearchResult{}, err
	}

	ws := c.pool.Acquire()
	defer c.pool.Release(ws, nil)
	ws.SetupSearch(aligned, ctx.K)

	c.store.ReadLock()
	defer c.store.ReadUnlock()

	ef := ctx.SearchList
	if ef < ctx.K {
		ef = ctx.K
	}
	engCtx := &engine.SearchContext{
		Query:  aligned,
		K:      ctx.K,
		L:      ef,
		Filter: c.filterFunc(ctx.Filter),
		GetRaw: ctx.GetRawVector,
	}
	if err := c.engine.SearchVector(ws, engCtx); err != nil {
		return SearchResult{}, err
	}

	result := SearchResult{}
	n := ws.BestLNodes.Size()
	if n > ctx.K {
		n = ctx.K
	}
	result.Results = make([]ScoredLabel, 0, n)
	var vectors [][]byte
	if ctx.GetRawVector {
		vectors = make([][]byte, 0, n)
	}
	for i := 0; i < n; i++ {
		e := ws.BestLNodes.At(i)
		result.Results = append(result.Results, ScoredLabel{Distance: e.Distance, Label: e.Label})
		if ctx.GetRawVector {
			raw, err := c.store.GetVector(e.Loc)
			if err != nil {
				return SearchResult{}, err
			}
			cp := make([]byte, len(raw))
			copy(cp, raw)
			vectors = append(vectors, cp)
		}
	}
	result.Vectors = vectors
	result.CostNs = time.Since(start).Nanoseconds()
	return result, nil
}

// filterFunc adapts a metadata-keyed search.Filter into the
// location-keyed engine.FilterFunc engines actually evaluate.
func (c *IndexCore) filterFunc(f search.Filter) engine.FilterFunc {
	if f == nil {
		return nil
	}
	return func(loc uint32) bool {
		label, err := c.store.LabelOf(loc)
		if err != nil {
			return false
		}
		c.metaMu.RLock()
		md := c.metadata[label]
		c.metaMu.RUnlock()
		return f.Match(md)
	}
}

func (c *IndexCore) preprocess(data []byte, isNormalized bool) ([]byte, error) {
	kernel := c.space.Kernel()
	if isNormalized || !kernel.PreprocessingRequired() {
		return data, nil
	}
	scratch := make([]byte, len(data))
	if err := kernel.PreprocessQuery(data, scratch); err != nil {
		return nil, err
	}
	return scratch, nil
}

// SaveIndex persists engine_blob followed by store_blob to path.
func (c *IndexCore) SaveIndex(w io.Writer, _ SerializeOption) error {
	if err := c.engine.Save(w); err != nil {
		return err
	}
	return c.store.Save(w)
}

// LoadIndex reverses SaveIndex. The IndexCore must already be
// initialized against matching options before loading.
func (c *IndexCore) LoadIndex(r io.Reader, _ SerializeOption) error {
	if err := c.engine.Load(r); err != nil {
		return err
	}
	return c.store.Load(r)
}

func (c *IndexCore) Size() int { return int(c.store.Size()) }

func (c *IndexCore) Dimension() int { return c.space.Dimension() }

func (c *IndexCore) SupportDynamic() bool { return c.engine.SupportDynamic() }

func (c *IndexCore) NeedModel() bool { return c.engine.NeedModel() }
