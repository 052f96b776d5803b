package server

import (
	"sync"

	"github.com/therealutkarshpriyadarshi/tann/pkg/indexcore"
	"github.com/therealutkarshpriyadarshi/tann/pkg/tannerr"
)

// Registry owns the set of named IndexCore collections a Server
// exposes over HTTP. One process may host several independently
// configured indexes (different dimension, metric or engine), each
// addressed by a namespace string — the admin surface's equivalent of
// the teacher's per-namespace gRPC collections.
type Registry struct {
	mu   sync.RWMutex
	byNS map[string]*indexcore.IndexCore
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byNS: make(map[string]*indexcore.IndexCore)}
}

// Put registers idx under namespace, failing if one is already present.
func (r *Registry) Put(namespace string, idx *indexcore.IndexCore) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byNS[namespace]; exists {
		return tannerr.NewAlreadyExists("namespace %q already exists", namespace)
	}
	r.byNS[namespace] = idx
	return nil
}

// Get returns the collection registered under namespace, if any.
func (r *Registry) Get(namespace string) (*indexcore.IndexCore, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byNS[namespace]
	return idx, ok
}

// Drop removes namespace, reporting whether it existed.
func (r *Registry) Drop(namespace string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byNS[namespace]; !ok {
		return false
	}
	delete(r.byNS, namespace)
	return true
}

// Count returns the number of registered collections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byNS)
}

// Names returns the registered namespaces in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byNS))
	for ns := range r.byNS {
		names = append(names, ns)
	}
	return names
}
