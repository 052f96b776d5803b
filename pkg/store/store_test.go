package store

import (
	"bytes"
	"math"
	"testing"

	"github.com/therealutkarshpriyadarshi/tann/pkg/tannerr"
	"github.com/therealutkarshpriyadarshi/tann/pkg/vectorspace"
)

func testSpace(t *testing.T) *vectorspace.Space {
	t.Helper()
	sp, err := vectorspace.NewSpace(vectorspace.L2, vectorspace.F32, 2)
	if err != nil {
		t.Fatal(err)
	}
	return sp
}

func encode(t *testing.T, vals ...float32) []byte {
	t.Helper()
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

func TestAddVectorAtAssignsSequentialLocations(t *testing.T) {
	sp := testSpace(t)
	s := New(sp, Options{})

	l1, err := s.AddVectorAt(100)
	if err != nil {
		t.Fatal(err)
	}
	l2, err := s.AddVectorAt(200)
	if err != nil {
		t.Fatal(err)
	}
	if l1 != 0 || l2 != 1 {
		t.Fatalf("locations = %d,%d want 0,1", l1, l2)
	}
	if s.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", s.Size())
	}
}

func TestAddVectorAtRejectsDuplicateLabel(t *testing.T) {
	sp := testSpace(t)
	s := New(sp, Options{})
	if _, err := s.AddVectorAt(1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddVectorAt(1); !tannerr.Is(err, tannerr.AlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestAddVectorAtRespectsMaxElements(t *testing.T) {
	sp := testSpace(t)
	s := New(sp, Options{MaxElements: 1})
	if _, err := s.AddVectorAt(1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddVectorAt(2); !tannerr.Is(err, tannerr.ResourceExhausted) {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}
}

func TestSetAndGetVectorRoundTrip(t *testing.T) {
	sp := testSpace(t)
	s := New(sp, Options{})
	loc, err := s.AddVectorAt(1)
	if err != nil {
		t.Fatal(err)
	}
	vec := encode(t, 1, 2)
	if err := s.SetVector(loc, vec); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetVector(loc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, vec) {
		t.Errorf("GetVector = %v, want %v", got, vec)
	}
}

func TestRemoveVectorClearsMappingAndMarksDeleted(t *testing.T) {
	sp := testSpace(t)
	s := New(sp, Options{AllowVacantReuse: true})
	loc, err := s.AddVectorAt(1)
	if err != nil {
		t.Fatal(err)
	}
	freed, err := s.RemoveVector(1)
	if err != nil {
		t.Fatal(err)
	}
	if freed != loc {
		t.Fatalf("RemoveVector returned %d, want %d", freed, loc)
	}
	if !s.IsDeleted(loc) {
		t.Error("expected location to be marked deleted")
	}
	if _, err := s.LocationOf(1); !tannerr.Is(err, tannerr.NotFound) {
		t.Errorf("expected NotFound after removal, got %v", err)
	}
}

func TestRemoveVectorUnknownLabel(t *testing.T) {
	sp := testSpace(t)
	s := New(sp, Options{})
	if _, err := s.RemoveVector(999); !tannerr.Is(err, tannerr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestVacantReuseAssignsFreedLocation(t *testing.T) {
	sp := testSpace(t)
	s := New(sp, Options{AllowVacantReuse: true})
	loc1, err := s.AddVectorAt(1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.RemoveVector(1); err != nil {
		t.Fatal(err)
	}
	loc2, err := s.AddVectorAt(2)
	if err != nil {
		t.Fatal(err)
	}
	if loc2 != loc1 {
		t.Errorf("AddVectorAt after remove = %d, want reused %d", loc2, loc1)
	}
	if s.IsDeleted(loc2) {
		t.Error("reused location should no longer be marked deleted")
	}
}

func TestGetDistance(t *testing.T) {
	sp := testSpace(t)
	s := New(sp, Options{})
	l1, _ := s.AddVectorAt(1)
	l2, _ := s.AddVectorAt(2)
	if err := s.SetVector(l1, encode(t, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if err := s.SetVector(l2, encode(t, 3, 4)); err != nil {
		t.Fatal(err)
	}
	dist, err := s.GetDistance(l1, l2)
	if err != nil {
		t.Fatal(err)
	}
	if dist != 5.0 {
		t.Errorf("GetDistance = %v, want 5.0", dist)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	sp := testSpace(t)
	s := New(sp, Options{AllowVacantReuse: true})
	l1, _ := s.AddVectorAt(10)
	l2, _ := s.AddVectorAt(20)
	if err := s.SetVector(l1, encode(t, 1, 2)); err != nil {
		t.Fatal(err)
	}
	if err := s.SetVector(l2, encode(t, 3, 4)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RemoveVector(20); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.Save(&buf); err != nil {
		t.Fatal(err)
	}

	loaded := New(sp, Options{})
	if err := loaded.Load(&buf); err != nil {
		t.Fatal(err)
	}

	if loaded.Size() != s.Size() {
		t.Fatalf("Size() after load = %d, want %d", loaded.Size(), s.Size())
	}
	loc, err := loaded.LocationOf(10)
	if err != nil {
		t.Fatal(err)
	}
	got, err := loaded.GetVector(loc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, encode(t, 1, 2)) {
		t.Errorf("loaded vector = %v, want original", got)
	}
	if !loaded.IsDeleted(l2) {
		t.Error("expected deleted location to survive round trip")
	}
}
