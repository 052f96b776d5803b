package neighborqueue

import "testing"

func TestInsertKeepsSortedOrder(t *testing.T) {
	q := New(4)
	q.Insert(Entity{Distance: 3.0, Loc: 1})
	q.Insert(Entity{Distance: 1.0, Loc: 2})
	q.Insert(Entity{Distance: 2.0, Loc: 3})

	if q.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", q.Size())
	}
	want := []float64{1.0, 2.0, 3.0}
	for i, w := range want {
		if got := q.At(i).Distance; got != w {
			t.Errorf("At(%d).Distance = %v, want %v", i, got, w)
		}
	}
}

func TestInsertDropsOverCapacityFarther(t *testing.T) {
	q := New(2)
	q.Insert(Entity{Distance: 1.0, Loc: 1})
	q.Insert(Entity{Distance: 2.0, Loc: 2})
	if ok := q.Insert(Entity{Distance: 5.0, Loc: 3}); ok {
		t.Fatal("expected farther-than-worst insert to be dropped")
	}
	if q.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", q.Size())
	}
}

func TestInsertReplacesWorstWhenCloser(t *testing.T) {
	q := New(2)
	q.Insert(Entity{Distance: 1.0, Loc: 1})
	q.Insert(Entity{Distance: 5.0, Loc: 2})
	if ok := q.Insert(Entity{Distance: 2.0, Loc: 3}); !ok {
		t.Fatal("expected closer-than-worst insert to succeed")
	}
	if q.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", q.Size())
	}
	if q.At(1).Loc != 3 {
		t.Errorf("At(1).Loc = %d, want 3", q.At(1).Loc)
	}
}

func TestInsertRejectsDuplicateLoc(t *testing.T) {
	q := New(4)
	q.Insert(Entity{Distance: 1.0, Loc: 1})
	if ok := q.Insert(Entity{Distance: 1.0, Loc: 1}); ok {
		t.Fatal("expected duplicate Loc insert to be rejected")
	}
	if q.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", q.Size())
	}
}

func TestClosestUnexpandedAdvancesCursor(t *testing.T) {
	q := New(4)
	q.Insert(Entity{Distance: 1.0, Loc: 1})
	q.Insert(Entity{Distance: 2.0, Loc: 2})
	q.Insert(Entity{Distance: 3.0, Loc: 3})

	first := q.ClosestUnexpanded()
	if first.Loc != 1 {
		t.Errorf("first ClosestUnexpanded().Loc = %d, want 1", first.Loc)
	}
	if !q.HasUnexpandedNode() {
		t.Fatal("expected more unexpanded nodes")
	}

	second := q.ClosestUnexpanded()
	if second.Loc != 2 {
		t.Errorf("second ClosestUnexpanded().Loc = %d, want 2", second.Loc)
	}
}

func TestInsertBeforeCursorRewindsCursor(t *testing.T) {
	q := New(4)
	q.Insert(Entity{Distance: 1.0, Loc: 1})
	q.Insert(Entity{Distance: 2.0, Loc: 2})
	q.ClosestUnexpanded()
	q.ClosestUnexpanded()
	if q.HasUnexpandedNode() {
		t.Fatal("expected queue fully expanded before inserting a closer entry")
	}

	q.Insert(Entity{Distance: 0.5, Loc: 3})
	if !q.HasUnexpandedNode() {
		t.Fatal("expected cursor to rewind to the newly inserted closer entry")
	}
	if got := q.ClosestUnexpanded(); got.Loc != 3 {
		t.Errorf("ClosestUnexpanded().Loc = %d, want 3", got.Loc)
	}
}

func TestTopAndPop(t *testing.T) {
	q := New(4)
	q.Insert(Entity{Distance: 1.0, Loc: 1})
	q.Insert(Entity{Distance: 3.0, Loc: 2})
	if q.Top().Loc != 2 {
		t.Errorf("Top().Loc = %d, want 2", q.Top().Loc)
	}
	q.Pop()
	if q.Size() != 1 {
		t.Fatalf("Size() after Pop = %d, want 1", q.Size())
	}
	if q.Top().Loc != 1 {
		t.Errorf("Top().Loc after Pop = %d, want 1", q.Top().Loc)
	}
}

func TestReserveGrowsWithoutLosingCapacitySemantics(t *testing.T) {
	q := New(2)
	q.Insert(Entity{Distance: 1.0, Loc: 1})
	q.Reserve(4)
	q.Insert(Entity{Distance: 2.0, Loc: 2})
	q.Insert(Entity{Distance: 3.0, Loc: 3})
	if q.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", q.Size())
	}
}

func TestSwap(t *testing.T) {
	a := New(2)
	a.Insert(Entity{Distance: 1.0, Loc: 1})
	b := New(4)
	b.Insert(Entity{Distance: 9.0, Loc: 9})

	a.Swap(b)
	if a.Capacity() != 4 || a.Size() != 1 || a.At(0).Loc != 9 {
		t.Errorf("a after Swap = cap:%d size:%d loc:%d, want cap:4 size:1 loc:9", a.Capacity(), a.Size(), a.At(0).Loc)
	}
	if b.Capacity() != 2 || b.At(0).Loc != 1 {
		t.Errorf("b after Swap = cap:%d loc:%d, want cap:2 loc:1", b.Capacity(), b.At(0).Loc)
	}
}
