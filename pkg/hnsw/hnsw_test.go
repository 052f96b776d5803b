package hnsw

import (
	"bytes"
	"math"
	"testing"

	"github.com/therealutkarshpriyadarshi/tann/pkg/engine"
	"github.com/therealutkarshpriyadarshi/tann/pkg/store"
	"github.com/therealutkarshpriyadarshi/tann/pkg/vectorspace"
	"github.com/therealutkarshpriyadarshi/tann/pkg/workspace"
)

func encode(vals ...float32) []byte {
	out := make([]byte, len(vals)*4)
	for i, v := range vals {
		bits := math.Float32bits(v)
		out[4*i] = byte(bits)
		out[4*i+1] = byte(bits >> 8)
		out[4*i+2] = byte(bits >> 16)
		out[4*i+3] = byte(bits >> 24)
	}
	return out
}

func buildIndex(t *testing.T, vectors map[uint64][]float32) (*Engine, *store.Store) {
	t.Helper()
	sp, err := vectorspace.NewSpace(vectorspace.L2, vectorspace.F32, 2)
	if err != nil {
		t.Fatal(err)
	}
	s := store.New(sp, store.Options{AllowVacantReuse: true})
	e := New(Config{M: 8, EfConstruction: 32, Seed: 1})
	if err := e.Initialize(s); err != nil {
		t.Fatal(err)
	}
	ws := e.MakeWorkSpace()

	labels := make([]uint64, 0, len(vectors))
	for label := range vectors {
		labels = append(labels, label)
	}
	for _, label := range labels {
		v := vectors[label]
		loc, err := s.AddVectorAt(label)
		if err != nil {
			t.Fatal(err)
		}
		if err := s.SetVector(loc, encode(v...)); err != nil {
			t.Fatal(err)
		}
		ws.SetupWrite(encode(v...), workspace.WriteOption{})
		if err := e.AddVector(ws, loc); err != nil {
			t.Fatal(err)
		}
	}
	return e, s
}

func TestAddVectorSetsEntrypointOnFirstInsert(t *testing.T) {
	e, _ := buildIndex(t, map[uint64][]float32{1: {0, 0}})
	if e.entrypoint == unknownLoc {
		t.Fatal("expected entrypoint to be set after first insert")
	}
}

func TestSearchVectorReturnsClosest(t *testing.T) {
	e, _ := buildIndex(t, map[uint64][]float32{
		1: {0, 0},
		2: {1, 0},
		3: {5, 0},
		4: {10, 0},
	})
	ws := e.MakeWorkSpace()
	query := encode(0, 0)
	ctx := &engine.SearchContext{Query: query, K: 2, L: 16}
	if err := e.SearchVector(ws, ctx); err != nil {
		t.Fatal(err)
	}
	if ws.BestLNodes.Size() == 0 {
		t.Fatal("expected at least one result")
	}
	if ws.BestLNodes.At(0).Label != 1 {
		t.Errorf("closest label = %d, want 1", ws.BestLNodes.At(0).Label)
	}
}

func TestSearchVectorEmptyIndex(t *testing.T) {
	sp, _ := vectorspace.NewSpace(vectorspace.L2, vectorspace.F32, 2)
	s := store.New(sp, store.Options{})
	e := New(Config{})
	if err := e.Initialize(s); err != nil {
		t.Fatal(err)
	}
	ws := e.MakeWorkSpace()
	ctx := &engine.SearchContext{Query: encode(0, 0), K: 3, L: 8}
	if err := e.SearchVector(ws, ctx); err != nil {
		t.Fatal(err)
	}
	if ws.BestLNodes.Size() != 0 {
		t.Errorf("Size() = %d, want 0 on empty index", ws.BestLNodes.Size())
	}
}

func TestRemoveVectorReassignsEntrypoint(t *testing.T) {
	e, s := buildIndex(t, map[uint64][]float32{
		1: {0, 0},
		2: {1, 0},
	})
	entry := e.entrypoint
	label, err := s.LabelOf(entry)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.RemoveVector(label); err != nil {
		t.Fatal(err)
	}
	if err := e.RemoveVector(entry); err != nil {
		t.Fatal(err)
	}
	if e.entrypoint == entry {
		t.Error("expected entrypoint to move off the removed location")
	}
	if e.entrypoint != unknownLoc && s.IsDeleted(e.entrypoint) {
		t.Error("new entrypoint must not be a deleted location")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	e, s := buildIndex(t, map[uint64][]float32{
		1: {0, 0},
		2: {1, 0},
		3: {2, 2},
	})

	var buf bytes.Buffer
	if err := e.Save(&buf); err != nil {
		t.Fatal(err)
	}

	loaded := New(Config{M: 8, EfConstruction: 32})
	if err := loaded.Initialize(s); err != nil {
		t.Fatal(err)
	}
	if err := loaded.Load(&buf); err != nil {
		t.Fatal(err)
	}

	if loaded.entrypoint != e.entrypoint {
		t.Errorf("entrypoint = %d, want %d", loaded.entrypoint, e.entrypoint)
	}
	if loaded.maxLevel != e.maxLevel {
		t.Errorf("maxLevel = %d, want %d", loaded.maxLevel, e.maxLevel)
	}

	ws := loaded.MakeWorkSpace()
	ctx := &engine.SearchContext{Query: encode(0, 0), K: 1, L: 8}
	if err := loaded.SearchVector(ws, ctx); err != nil {
		t.Fatal(err)
	}
	if ws.BestLNodes.Size() != 1 || ws.BestLNodes.At(0).Label != 1 {
		t.Fatalf("expected closest label 1 after reload, got size=%d", ws.BestLNodes.Size())
	}
}
