package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/therealutkarshpriyadarshi/tann/pkg/indexcore"
	"github.com/therealutkarshpriyadarshi/tann/pkg/observability"
	"github.com/therealutkarshpriyadarshi/tann/pkg/search"
	"github.com/therealutkarshpriyadarshi/tann/pkg/tannerr"
	"github.com/therealutkarshpriyadarshi/tann/pkg/vectorspace"
)

// Handler wraps a Registry of named IndexCore collections and exposes
// the HTTP verbs the REST surface needs. Unlike the teacher's Handler,
// which proxies every call to a gRPC client, this one calls straight
// into pkg/indexcore — there is no sibling service to dial.
type Handler struct {
	registry *Registry
	metrics  *observability.Metrics
	logger   *observability.Logger
}

// NewHandler builds a Handler bound to registry.
func NewHandler(registry *Registry, metrics *observability.Metrics, logger *observability.Logger) *Handler {
	if logger == nil {
		logger = observability.NewDefaultLogger()
	}
	return &Handler{registry: registry, metrics: metrics, logger: logger}
}

// HealthCheck handles GET /v1/health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]interface{}{"status": "ok", "collections": h.registry.Count()}, http.StatusOK)
}

// GetStats handles GET /v1/stats and GET /v1/stats/{namespace}.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ns := pathTail(r.URL.Path, "/v1/stats")
	if ns == "" {
		writeJSON(w, map[string]interface{}{"namespaces": h.registry.Names()}, http.StatusOK)
		return
	}
	idx, ok := h.registry.Get(ns)
	if !ok {
		writeError(w, fmt.Sprintf("unknown namespace %q", ns), http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]interface{}{
		"namespace":        ns,
		"size":             idx.Size(),
		"dimension":        idx.Dimension(),
		"support_dynamic":  idx.SupportDynamic(),
		"need_model":       idx.NeedModel(),
	}, http.StatusOK)
}

// createCollectionRequest mirrors indexcore.IndexOption/HnswIndexOption
// over the wire; HNSW fields are ignored for EngineFlat.
type createCollectionRequest struct {
	Namespace           string `json:"namespace"`
	DataType            string `json:"data_type"`
	Metric              string `json:"metric"`
	Engine              string `json:"engine"`
	Dimension           int    `json:"dimension"`
	BatchSize           int    `json:"batch_size"`
	MaxElements         int    `json:"max_elements"`
	NThreads            int    `json:"n_threads"`
	EnableReplaceVacant bool   `json:"enable_replace_vacant"`
	M                   int    `json:"m"`
	EfConstruction      int    `json:"ef_construction"`
	Ef                  int    `json:"ef"`
	RandomSeed          int64  `json:"random_seed"`
}

// CreateCollection handles POST /v1/collections.
func (h *Handler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	dt, err := parseDataType(req.DataType)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	metric, err := parseMetric(req.Metric)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	engineType, err := parseEngine(req.Engine)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	base := indexcore.IndexOption{
		DataType:            dt,
		Metric:              metric,
		Engine:              engineType,
		Dimension:           req.Dimension,
		BatchSize:           req.BatchSize,
		MaxElements:         req.MaxElements,
		NThreads:            req.NThreads,
		EnableReplaceVacant: req.EnableReplaceVacant,
	}

	var engineOption interface{} = base
	if engineType == indexcore.EngineHNSW {
		engineOption = indexcore.HnswIndexOption{
			IndexOption:    base,
			M:              req.M,
			EfConstruction: req.EfConstruction,
			Ef:             req.Ef,
			RandomSeed:     req.RandomSeed,
		}
	}

	idx, err := indexcore.New(base, engineOption)
	if err != nil {
		writeErrorFromKind(w, err)
		return
	}
	if err := h.registry.Put(req.Namespace, idx); err != nil {
		writeErrorFromKind(w, err)
		return
	}
	h.logger.Infof("created collection %q (engine=%s dim=%d)", req.Namespace, req.Engine, req.Dimension)
	writeJSON(w, map[string]interface{}{"namespace": req.Namespace, "created": true}, http.StatusCreated)
}

// DropCollection handles DELETE /v1/collections/{namespace}.
func (h *Handler) DropCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ns := pathTail(r.URL.Path, "/v1/collections")
	if ns == "" {
		writeError(w, "namespace required", http.StatusBadRequest)
		return
	}
	if !h.registry.Drop(ns) {
		writeError(w, fmt.Sprintf("unknown namespace %q", ns), http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]interface{}{"namespace": ns, "dropped": true}, http.StatusOK)
}

type insertRequest struct {
	Data           []byte                 `json:"data"`
	Label          uint64                 `json:"label"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	IsNormalized   bool                   `json:"is_normalized"`
	ReplaceDeleted bool                   `json:"replace_deleted"`
}

// Insert handles POST /v1/collections/{namespace}/vectors.
func (h *Handler) Insert(w http.ResponseWriter, r *http.Request, ns string) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	idx, ok := h.registry.Get(ns)
	if !ok {
		writeError(w, fmt.Sprintf("unknown namespace %q", ns), http.StatusNotFound)
		return
	}
	var req insertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	result, err := idx.AddVector(indexcore.WriteOption{
		IsNormalized:   req.IsNormalized,
		ReplaceDeleted: req.ReplaceDeleted,
	}, req.Data, req.Label, req.Metadata)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RequestErrors.WithLabelValues("insert", tannerr.KindOf(err).String()).Inc()
		}
		writeErrorFromKind(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.VectorsInserted.Inc()
	}
	writeJSON(w, map[string]interface{}{
		"location": result.Location,
		"cost_ns":  result.CostNs,
	}, http.StatusCreated)
}

// Delete handles DELETE /v1/collections/{namespace}/vectors/{label}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, ns, labelStr string) {
	if r.Method != http.MethodDelete {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	idx, ok := h.registry.Get(ns)
	if !ok {
		writeError(w, fmt.Sprintf("unknown namespace %q", ns), http.StatusNotFound)
		return
	}
	label, err := strconv.ParseUint(labelStr, 10, 64)
	if err != nil {
		writeError(w, fmt.Sprintf("invalid label %q", labelStr), http.StatusBadRequest)
		return
	}
	if err := idx.RemoveVector(label); err != nil {
		writeErrorFromKind(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.VectorsDeleted.Inc()
	}
	writeJSON(w, map[string]interface{}{"label": label, "removed": true}, http.StatusOK)
}

type searchRequest struct {
	Query        []byte `json:"query"`
	K            int    `json:"k"`
	SearchList   int    `json:"search_list"`
	GetRawVector bool   `json:"get_raw_vector"`
	IsNormalized bool   `json:"is_normalized"`
	Filter       *filterSpec `json:"filter,omitempty"`
}

// filterSpec is the JSON-wire shape for a pkg/search.Filter, rebuilt
// into the Filter tree the engine's FilterFunc adapter understands.
type filterSpec struct {
	Field    string         `json:"field"`
	Operator string         `json:"operator"`
	Value    interface{}    `json:"value"`
	Min      interface{}    `json:"min,omitempty"`
	Max      interface{}    `json:"max,omitempty"`
	Values   []interface{}  `json:"values,omitempty"`
	Filters  []*filterSpec  `json:"filters,omitempty"`
}

func (fs *filterSpec) toFilter() (search.Filter, error) {
	if fs == nil {
		return nil, nil
	}
	switch search.FilterOperator(fs.Operator) {
	case search.OpEquals:
		return search.Eq(fs.Field, fs.Value), nil
	case search.OpNotEquals:
		return search.Ne(fs.Field, fs.Value), nil
	case search.OpGreaterThan:
		return search.Gt(fs.Field, fs.Value), nil
	case search.OpLessThan:
		return search.Lt(fs.Field, fs.Value), nil
	case search.OpGreaterOrEq:
		return search.Gte(fs.Field, fs.Value), nil
	case search.OpLessOrEq:
		return search.Lte(fs.Field, fs.Value), nil
	case search.OpRange:
		return search.Range(fs.Field, fs.Min, fs.Max), nil
	case search.OpIn:
		return search.In(fs.Field, fs.Values...), nil
	case search.OpNotIn:
		return search.NotIn(fs.Field, fs.Values...), nil
	case search.OpExists:
		return search.Exists(fs.Field), nil
	case search.OpAnd, search.OpOr, search.OpNot:
		children := make([]search.Filter, 0, len(fs.Filters))
		for _, c := range fs.Filters {
			f, err := c.toFilter()
			if err != nil {
				return nil, err
			}
			children = append(children, f)
		}
		switch search.FilterOperator(fs.Operator) {
		case search.OpAnd:
			return search.And(children...), nil
		case search.OpOr:
			return search.Or(children...), nil
		default:
			if len(children) == 0 {
				return nil, fmt.Errorf("not filter requires one child")
			}
			return search.Not(children[0]), nil
		}
	default:
		return nil, fmt.Errorf("unknown filter operator %q", fs.Operator)
	}
}

// Search handles POST /v1/collections/{namespace}/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request, ns string) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	idx, ok := h.registry.Get(ns)
	if !ok {
		writeError(w, fmt.Sprintf("unknown namespace %q", ns), http.StatusNotFound)
		return
	}
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	filter, err := req.Filter.toFilter()
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, err := idx.SearchVector(&indexcore.SearchContext{
		Query:        req.Query,
		K:            req.K,
		SearchList:   req.SearchList,
		Filter:       filter,
		GetRawVector: req.GetRawVector,
		IsNormalized: req.IsNormalized,
	})
	if err != nil {
		if h.metrics != nil {
			h.metrics.RequestErrors.WithLabelValues("search", tannerr.KindOf(err).String()).Inc()
		}
		writeErrorFromKind(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.VectorsSearched.Inc()
		h.metrics.SearchResultSize.Observe(float64(len(result.Results)))
	}
	writeJSON(w, result, http.StatusOK)
}

type serializePathRequest struct {
	Path string `json:"path"`
}

// SaveCollection handles POST /v1/collections/{namespace}/save.
func (h *Handler) SaveCollection(w http.ResponseWriter, r *http.Request, ns string) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	idx, ok := h.registry.Get(ns)
	if !ok {
		writeError(w, fmt.Sprintf("unknown namespace %q", ns), http.StatusNotFound)
		return
	}
	var req serializePathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	f, err := os.Create(req.Path)
	if err != nil {
		writeError(w, fmt.Sprintf("failed to open %q: %v", req.Path, err), http.StatusInternalServerError)
		return
	}
	defer f.Close()
	if err := idx.SaveIndex(f, indexcore.SerializeOption{}); err != nil {
		writeErrorFromKind(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"namespace": ns, "path": req.Path, "saved": true}, http.StatusOK)
}

// LoadCollection handles POST /v1/collections/{namespace}/load.
func (h *Handler) LoadCollection(w http.ResponseWriter, r *http.Request, ns string) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	idx, ok := h.registry.Get(ns)
	if !ok {
		writeError(w, fmt.Sprintf("unknown namespace %q", ns), http.StatusNotFound)
		return
	}
	var req serializePathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	f, err := os.Open(req.Path)
	if err != nil {
		writeError(w, fmt.Sprintf("failed to open %q: %v", req.Path, err), http.StatusInternalServerError)
		return
	}
	defer f.Close()
	if err := idx.LoadIndex(f, indexcore.SerializeOption{}); err != nil {
		writeErrorFromKind(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"namespace": ns, "path": req.Path, "loaded": true}, http.StatusOK)
}

func parseDataType(s string) (vectorspace.DataType, error) {
	switch s {
	case "u8":
		return vectorspace.U8, nil
	case "f16":
		return vectorspace.F16, nil
	case "f32", "":
		return vectorspace.F32, nil
	default:
		return vectorspace.DTNone, fmt.Errorf("unknown data_type %q", s)
	}
}

func parseMetric(s string) (vectorspace.Metric, error) {
	switch s {
	case "l1":
		return vectorspace.L1, nil
	case "l2", "":
		return vectorspace.L2, nil
	case "ip":
		return vectorspace.IP, nil
	case "hamming":
		return vectorspace.Hamming, nil
	case "jaccard":
		return vectorspace.Jaccard, nil
	case "cosine":
		return vectorspace.Cosine, nil
	case "angle":
		return vectorspace.Angle, nil
	case "normalized_cosine":
		return vectorspace.NormalizedCosine, nil
	case "normalized_angle":
		return vectorspace.NormalizedAngle, nil
	case "normalized_l2":
		return vectorspace.NormalizedL2, nil
	case "poincare":
		return vectorspace.Poincare, nil
	case "lorentz":
		return vectorspace.Lorentz, nil
	default:
		return vectorspace.MetricUndefined, fmt.Errorf("unknown metric %q", s)
	}
}

func parseEngine(s string) (indexcore.EngineType, error) {
	switch s {
	case "flat":
		return indexcore.EngineFlat, nil
	case "hnsw", "":
		return indexcore.EngineHNSW, nil
	default:
		return 0, fmt.Errorf("unknown engine %q", s)
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, fmt.Sprintf("failed to encode response: %v", err), http.StatusInternalServerError)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  message,
		"status": statusCode,
	})
}

// writeErrorFromKind maps a tannerr.Kind onto the matching HTTP status.
func writeErrorFromKind(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch tannerr.KindOf(err) {
	case tannerr.InvalidArgument:
		status = http.StatusBadRequest
	case tannerr.AlreadyExists:
		status = http.StatusConflict
	case tannerr.NotFound:
		status = http.StatusNotFound
	case tannerr.ResourceExhausted:
		status = http.StatusInsufficientStorage
	case tannerr.Unavailable:
		status = http.StatusServiceUnavailable
	case tannerr.IO, tannerr.FormatMismatch:
		status = http.StatusUnprocessableEntity
	}
	writeError(w, err.Error(), status)
}

// pathTail strips prefix and a following slash, returning "" when
// nothing remains (the bare collection path, with no namespace).
func pathTail(path, prefix string) string {
	if len(path) <= len(prefix) {
		return ""
	}
	rest := path[len(prefix):]
	if len(rest) > 0 && rest[0] == '/' {
		rest = rest[1:]
	}
	return rest
}
