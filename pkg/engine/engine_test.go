package engine

import "testing"

func TestSearchContextAcceptsNilFilter(t *testing.T) {
	ctx := &SearchContext{}
	if !ctx.Accepts(7) {
		t.Error("expected nil filter to accept every location")
	}
}

func TestSearchContextAcceptsDelegatesToFilter(t *testing.T) {
	ctx := &SearchContext{Filter: func(loc uint32) bool { return loc == 3 }}
	if !ctx.Accepts(3) {
		t.Error("expected loc 3 to be accepted")
	}
	if ctx.Accepts(4) {
		t.Error("expected loc 4 to be rejected")
	}
}
