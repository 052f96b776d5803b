package indexcore

import "github.com/therealutkarshpriyadarshi/tann/pkg/vectorspace"

// IndexOption aggregates the parameters needed to initialize a Space,
// a Store and an Engine behind one IndexCore.
type IndexOption struct {
	DataType             vectorspace.DataType
	Metric               vectorspace.Metric
	Engine               EngineType
	Dimension            int
	BatchSize            int
	MaxElements          int
	NThreads             int
	EnableReplaceVacant  bool
}

// EngineType selects which Engine implementation backs an IndexCore.
type EngineType int

const (
	EngineFlat EngineType = iota
	EngineHNSW
)

// HnswIndexOption extends IndexOption with HNSW-specific tuning.
type HnswIndexOption struct {
	IndexOption
	M              int
	EfConstruction int
	Ef             int
	RandomSeed     int64
}

func (o IndexOption) withDefaults() IndexOption {
	if o.BatchSize == 0 {
		o.BatchSize = vectorspace.DefaultBatchCapacity
	}
	return o
}

// WriteOption configures one add_vector call.
type WriteOption struct {
	IsNormalized   bool
	ReplaceDeleted bool
}

// SerializeOption configures save_index/load_index. It is currently a
// placeholder for compression/versioning knobs the core doesn't yet
// branch on, kept to match the external interface's own stub shape.
type SerializeOption struct{}

// InsertResult reports the outcome of a successful add_vector.
type InsertResult struct {
	Location uint32
	CostNs   int64
}
