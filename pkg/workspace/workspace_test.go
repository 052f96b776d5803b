package workspace

import (
	"sync"
	"testing"
	"time"

	"github.com/therealutkarshpriyadarshi/tann/pkg/vectorspace"
)

func testSpace(t *testing.T) *vectorspace.Space {
	t.Helper()
	sp, err := vectorspace.NewSpace(vectorspace.L2, vectorspace.F32, 4)
	if err != nil {
		t.Fatal(err)
	}
	return sp
}

func TestSetupSearchCopiesQueryAndResetsQueue(t *testing.T) {
	sp := testSpace(t)
	ws := New(sp)
	query := make([]byte, sp.VectorByteSize())
	for i := range query {
		query[i] = byte(i + 1)
	}

	ws.SetupSearch(query, 10)

	if string(ws.QueryView) != string(query) {
		t.Errorf("QueryView = %v, want %v", ws.QueryView, query)
	}
	if ws.BestLNodes.Capacity() != 10 {
		t.Errorf("BestLNodes.Capacity() = %d, want 10", ws.BestLNodes.Capacity())
	}
	query[0] = 0xff
	if ws.QueryView[0] == 0xff {
		t.Error("QueryView should be an independent copy, not alias the caller's slice")
	}
}

func TestSetupWriteTracksUpdateFlag(t *testing.T) {
	sp := testSpace(t)
	ws := New(sp)
	query := make([]byte, sp.VectorByteSize())

	ws.SetupWrite(query, WriteOption{IsUpdate: true})
	if !ws.IsUpdate {
		t.Error("expected IsUpdate to be true after SetupWrite with IsUpdate option")
	}
}

func TestPoolAcquireReleaseRoundTrip(t *testing.T) {
	sp := testSpace(t)
	pool := NewPool(2, func() *Space { return New(sp) })

	a := pool.Acquire()
	b := pool.Acquire()
	if a == nil || b == nil {
		t.Fatal("expected two distinct Space values")
	}
	pool.Release(a, nil)
	pool.Release(b, nil)
}

func TestPoolAcquireBlocksUntilRelease(t *testing.T) {
	sp := testSpace(t)
	pool := NewPool(1, func() *Space { return New(sp) })

	first := pool.Acquire()

	acquired := make(chan *Space)
	go func() {
		acquired <- pool.Acquire()
	}()

	select {
	case <-acquired:
		t.Fatal("expected Acquire to block while the only Space is checked out")
	case <-time.After(50 * time.Millisecond):
	}

	pool.Release(first, nil)

	select {
	case s := <-acquired:
		if s == nil {
			t.Fatal("expected a non-nil Space after release unblocks Acquire")
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not unblock after Release")
	}
}

func TestPoolReleaseClearsExtra(t *testing.T) {
	sp := testSpace(t)
	pool := NewPool(1, func() *Space {
		s := New(sp)
		s.Extra = 42
		return s
	})

	s := pool.Acquire()
	var cleared bool
	pool.Release(s, func(s *Space) {
		cleared = true
		s.Extra = nil
	})
	if !cleared {
		t.Error("expected clearExtra callback to run on Release")
	}

	s2 := pool.Acquire()
	if s2.Extra != nil {
		t.Errorf("Extra = %v, want nil after clearExtra", s2.Extra)
	}
}

func TestConcurrentAcquireRelease(t *testing.T) {
	sp := testSpace(t)
	const poolSize = 4
	pool := NewPool(poolSize, func() *Space { return New(sp) })

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := pool.Acquire()
			pool.Release(s, nil)
		}()
	}
	wg.Wait()
}
