// Package neighborqueue implements a fixed-capacity ordered set of
// candidate neighbors, shared by every search-style traversal (flat scan,
// HNSW layer search, Vamana greedy search). Entries are kept sorted by
// (distance, label) and a cursor tracks the closest entry not yet
// expanded, so callers can drive a best-first traversal without
// re-scanning the set on every step.
package neighborqueue

import "github.com/therealutkarshpriyadarshi/tann/pkg/vectorspace"

// Entity is one candidate neighbor: its distance from the query, its
// stable external label, its internal location, and whether the
// traversal has already expanded it.
type Entity struct {
	Distance float64
	Label    uint64
	Loc      uint32
	Expanded bool
}

func less(a, b Entity) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Label < b.Label
}

// Queue is the bounded ordered container itself. The zero value is an
// empty queue with zero capacity; call Reserve before inserting.
type Queue struct {
	capacity int
	size     int
	cursor   int
	data     []Entity
}

// New returns a Queue reserved for the given capacity.
func New(capacity int) *Queue {
	q := &Queue{}
	q.Reserve(capacity)
	return q
}

// Reserve grows the backing storage to hold capacity+1 entries (one
// slot beyond capacity is needed so an over-capacity candidate can be
// compared and discarded without a separate bounds check) and sets the
// queue's capacity.
func (q *Queue) Reserve(capacity int) {
	if capacity+1 > len(q.data) {
		grown := make([]Entity, capacity+1)
		copy(grown, q.data)
		q.data = grown
	}
	q.capacity = capacity
}

func (q *Queue) Size() int     { return q.size }
func (q *Queue) Capacity() int { return q.capacity }
func (q *Queue) Empty() bool   { return q.size == 0 }

// Top returns the farthest entry currently held.
func (q *Queue) Top() Entity { return q.data[q.size-1] }

// Pop discards the farthest entry.
func (q *Queue) Pop() {
	q.size--
}

// Insert places an entry in order by (distance, label), dropping it if
// the queue is already full and it is no closer than the current
// farthest entry, and dropping it (not replacing) if an entry with the
// same Loc already exists. On a successful insert, cursor is pulled
// back to the insertion point if that point precedes it, so a
// traversal that already passed this index will revisit it.
func (q *Queue) Insert(e Entity) bool {
	if q.size == q.capacity && q.capacity > 0 && !less(e, q.data[q.size-1]) {
		return false
	}

	lo, hi := 0, q.size
	for lo < hi {
		mid := (lo + hi) >> 1
		switch {
		case less(e, q.data[mid]):
			hi = mid
		case q.data[mid].Loc == e.Loc:
			return false
		default:
			lo = mid + 1
		}
	}

	if lo < q.capacity {
		copy(q.data[lo+1:q.size+1], q.data[lo:q.size])
		q.data[lo] = e
		q.data[lo].Expanded = false
		if q.size < q.capacity {
			q.size++
		}
		if lo < q.cursor {
			q.cursor = lo
		}
		return true
	}
	return false
}

// InsertDistance is a convenience wrapper for insertions that don't
// carry a label yet (used during preliminary candidate gathering).
func (q *Queue) InsertDistance(dist float64, loc uint32) bool {
	return q.Insert(Entity{Distance: dist, Loc: loc, Label: vectorspace.UnknownLabel})
}

// ClosestUnexpanded marks the entry at cursor expanded, advances cursor
// past any now-contiguous run of expanded entries, and returns the
// entry that was at cursor before advancing.
func (q *Queue) ClosestUnexpanded() Entity {
	q.data[q.cursor].Expanded = true
	prev := q.cursor
	for q.cursor < q.size && q.data[q.cursor].Expanded {
		q.cursor++
	}
	return q.data[prev]
}

// HasUnexpandedNode reports whether any entry remains for
// ClosestUnexpanded to return.
func (q *Queue) HasUnexpandedNode() bool {
	return q.cursor < q.size
}

// At returns the entry at index i in sorted order.
func (q *Queue) At(i int) Entity { return q.data[i] }

// Clear empties the queue and resets it to zero capacity, mirroring the
// reference implementation's clear() (callers must Reserve again before
// reuse).
func (q *Queue) Clear() {
	q.size = 0
	q.cursor = 0
	q.capacity = 0
}

// Swap exchanges the contents of q and other in place.
func (q *Queue) Swap(other *Queue) {
	q.size, other.size = other.size, q.size
	q.capacity, other.capacity = other.capacity, q.capacity
	q.cursor, other.cursor = other.cursor, q.cursor
	q.data, other.data = other.data, q.data
}
