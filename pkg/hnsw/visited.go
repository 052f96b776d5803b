package hnsw

import "sync"

// visitedList is a reusable "seen this location during this
// traversal" marker array. Instead of clearing the whole array between
// traversals it stamps a monotonically increasing version per slot,
// so reset() is O(1) except on the rare wraparound.
type visitedList struct {
	cur  uint16
	mark []uint16
}

func newVisitedList(n int) *visitedList {
	return &visitedList{cur: 0, mark: make([]uint16, n)}
}

func (v *visitedList) reset() {
	v.cur++
	if v.cur == 0 {
		for i := range v.mark {
			v.mark[i] = 0
		}
		v.cur++
	}
}

func (v *visitedList) visit(loc uint32) {
	v.mark[loc] = v.cur
}

func (v *visitedList) visited(loc uint32) bool {
	return v.mark[loc] == v.cur
}

// visitedListPool lends visitedList values sized for the current
// number of elements, growing lazily rather than preallocating a fixed
// pool size the way the reference implementation's deque does.
type visitedListPool struct {
	mu          sync.Mutex
	numElements int
	free        []*visitedList
}

func newVisitedListPool(numElements int) *visitedListPool {
	return &visitedListPool{numElements: numElements}
}

func (p *visitedListPool) setNumElements(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n > p.numElements {
		p.numElements = n
		p.free = p.free[:0]
	}
}

func (p *visitedListPool) get() *visitedList {
	p.mu.Lock()
	n := p.numElements
	var vl *visitedList
	if len(p.free) > 0 {
		vl = p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
	}
	p.mu.Unlock()

	if vl == nil || len(vl.mark) < n {
		vl = newVisitedList(n)
	}
	vl.reset()
	return vl
}

func (p *visitedListPool) release(vl *visitedList) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, vl)
}
