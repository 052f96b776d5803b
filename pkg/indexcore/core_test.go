package indexcore

import (
	"bytes"
	"math"
	"testing"

	"github.com/therealutkarshpriyadarshi/tann/pkg/search"
	"github.com/therealutkarshpriyadarshi/tann/pkg/tannerr"
	"github.com/therealutkarshpriyadarshi/tann/pkg/vectorspace"
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

func newFlatCore(t *testing.T) *IndexCore {
	t.Helper()
	c, err := New(IndexOption{
		DataType:  vectorspace.F32,
		Metric:    vectorspace.L2,
		Engine:    EngineFlat,
		Dimension: 4,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestSmokeAddAndSearch(t *testing.T) {
	c := newFlatCore(t)
	if _, err := c.AddVector(WriteOption{}, encode(1, 0, 0, 0), 1, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddVector(WriteOption{}, encode(0, 1, 0, 0), 2, nil); err != nil {
		t.Fatal(err)
	}

	res, err := c.SearchVector(&SearchContext{Query: encode(1, 0, 0, 0), K: 2, SearchList: 8})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(res.Results))
	}
	if res.Results[0].Label != 1 || res.Results[0].Distance != 0 {
		t.Errorf("first result = %+v, want label=1 distance=0", res.Results[0])
	}
	if res.Results[1].Label != 2 {
		t.Errorf("second result label = %d, want 2", res.Results[1].Label)
	}
}

func TestAddVectorRejectsDuplicateLabel(t *testing.T) {
	c := newFlatCore(t)
	if _, err := c.AddVector(WriteOption{}, encode(1, 0, 0, 0), 1, nil); err != nil {
		t.Fatal(err)
	}
	_, err := c.AddVector(WriteOption{}, encode(2, 0, 0, 0), 1, nil)
	if !tannerr.Is(err, tannerr.AlreadyExists) {
		t.Fatalf("err = %v, want AlreadyExists", err)
	}
}

func TestSearchFilterByMetadata(t *testing.T) {
	c := newFlatCore(t)
	for i := 1; i <= 10; i++ {
		meta := map[string]interface{}{"parity": i % 2}
		if _, err := c.AddVector(WriteOption{}, encode(float32(i), 0, 0, 0), uint64(i), meta); err != nil {
			t.Fatal(err)
		}
	}

	res, err := c.SearchVector(&SearchContext{
		Query:      encode(0, 0, 0, 0),
		K:          3,
		SearchList: 16,
		Filter:     search.Eq("parity", 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []uint64{2, 4, 6}
	if len(res.Results) != len(want) {
		t.Fatalf("len(results) = %d, want %d", len(res.Results), len(want))
	}
	for i, w := range want {
		if res.Results[i].Label != w {
			t.Errorf("results[%d].Label = %d, want %d", i, res.Results[i].Label, w)
		}
	}
}

func TestRemoveThenReplaceDeletedReusesLocation(t *testing.T) {
	c, err := New(IndexOption{
		DataType:            vectorspace.F32,
		Metric:              vectorspace.L2,
		Engine:              EngineFlat,
		Dimension:           4,
		EnableReplaceVacant: true,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 5; i++ {
		if _, err := c.AddVector(WriteOption{}, encode(float32(i), 0, 0, 0), uint64(i), nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.RemoveVector(3); err != nil {
		t.Fatal(err)
	}
	result, err := c.AddVector(WriteOption{ReplaceDeleted: true}, encode(99, 0, 0, 0), 6, nil)
	if err != nil {
		t.Fatal(err)
	}

	res, err := c.SearchVector(&SearchContext{Query: encode(99, 0, 0, 0), K: 1, SearchList: 8})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Results) != 1 || res.Results[0].Label != 6 || res.Results[0].Distance != 0 {
		t.Fatalf("results = %+v, want label=6 distance=0", res.Results)
	}
	_ = result.Location
}

func TestSearchVectorRejectsZeroK(t *testing.T) {
	c := newFlatCore(t)
	_, err := c.SearchVector(&SearchContext{Query: encode(0, 0, 0, 0), K: 0})
	if !tannerr.Is(err, tannerr.InvalidArgument) {
		t.Fatalf("err = %v, want InvalidArgument", err)
	}
}

func TestSaveLoadIndexRoundTrip(t *testing.T) {
	c := newFlatCore(t)
	if _, err := c.AddVector(WriteOption{}, encode(1, 0, 0, 0), 1, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddVector(WriteOption{}, encode(0, 1, 0, 0), 2, nil); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := c.SaveIndex(&buf, SerializeOption{}); err != nil {
		t.Fatal(err)
	}

	loaded, err := New(IndexOption{
		DataType:  vectorspace.F32,
		Metric:    vectorspace.L2,
		Engine:    EngineFlat,
		Dimension: 4,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := loaded.LoadIndex(&buf, SerializeOption{}); err != nil {
		t.Fatal(err)
	}

	res, err := loaded.SearchVector(&SearchContext{Query: encode(1, 0, 0, 0), K: 1, SearchList: 8})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Results) != 1 || res.Results[0].Label != 1 {
		t.Fatalf("results = %+v, want label=1", res.Results)
	}
}

func TestGetRawVectorReturnsBytes(t *testing.T) {
	c := newFlatCore(t)
	v := encode(1, 2, 3, 4)
	if _, err := c.AddVector(WriteOption{}, v, 1, nil); err != nil {
		t.Fatal(err)
	}
	res, err := c.SearchVector(&SearchContext{Query: v, K: 1, SearchList: 8, GetRawVector: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Vectors) != 1 || !bytes.Equal(res.Vectors[0], v) {
		t.Fatalf("Vectors = %v, want [%v]", res.Vectors, v)
	}
}
