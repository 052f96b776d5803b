package indexcore

import "github.com/therealutkarshpriyadarshi/tann/pkg/search"

// SearchContext carries one search_vector call's parameters across the
// IndexCore boundary. Filter is expressed over per-label metadata, the
// same vocabulary pkg/search already exposes to callers; IndexCore
// adapts it into the location-keyed engine.FilterFunc the engine layer
// understands, since engines have no notion of metadata at all.
type SearchContext struct {
	Query        []byte
	K            int
	SearchList   int // candidate list width ("ef" in HNSW terms)
	Filter       search.Filter
	GetRawVector bool
	IsNormalized bool
}

// SearchResult is the result of a successful search_vector call.
type SearchResult struct {
	Results []ScoredLabel
	Vectors [][]byte // populated only when GetRawVector was set
	CostNs  int64
}

// ScoredLabel pairs a distance with the label it was computed against.
type ScoredLabel struct {
	Distance float64
	Label    uint64
}
