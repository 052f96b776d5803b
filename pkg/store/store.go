// Package store implements the mutable vector store: an ordered list of
// vectorspace.Batch blocks plus the label<->location identity mapping,
// lazy-delete bitmap, and vacant-slot pool every engine builds on.
package store

import (
	"sync"

	"github.com/therealutkarshpriyadarshi/tann/pkg/tannerr"
	"github.com/therealutkarshpriyadarshi/tann/pkg/vectorspace"
)

const numLabelStripes = 65536

// Options configure a Store at construction time.
type Options struct {
	// MaxElements is a soft ceiling on current_idx; exceeding it fails
	// with ResourceExhausted. Zero means unbounded.
	MaxElements int
	// BatchSize overrides vectorspace.DefaultBatchCapacity when > 0.
	BatchSize int
	// AllowVacantReuse enables AddVectorAt to hand back deleted
	// locations instead of always growing current_idx.
	AllowVacantReuse bool
}

// Store holds every vector in a collection plus the bookkeeping needed
// to map between stable external labels and internal locations.
//
// Concurrency: UpdateLock/UpdateUnlock guard operations that grow or
// shrink the batch list (anything that could invalidate an outstanding
// Get borrow); ReadLock/ReadUnlock guard Get/distance reads against
// concurrent growth. LabelLock stripes writes to a single logical
// entity across a fixed 65536-way mutex table so unrelated labels never
// serialize against each other.
type Store struct {
	space     *vectorspace.Space
	opt       Options
	batchSize int

	updateMu sync.RWMutex

	mu         sync.Mutex // guards the fields below
	batches    []*vectorspace.Batch
	currentIdx uint32
	deleted    map[uint32]bool
	vacant     []uint32
	labelToLoc map[uint64]uint32
	locToLabel map[uint32]uint64

	labelStripes [numLabelStripes]sync.Mutex
}

// New constructs an empty Store over space.
func New(space *vectorspace.Space, opt Options) *Store {
	batchSize := opt.BatchSize
	if batchSize <= 0 {
		batchSize = vectorspace.DefaultBatchCapacity
	}
	return &Store{
		space:      space,
		opt:        opt,
		batchSize:  batchSize,
		deleted:    make(map[uint32]bool),
		labelToLoc: make(map[uint64]uint32),
		locToLabel: make(map[uint32]uint64),
	}
}

func (s *Store) Space() *vectorspace.Space { return s.space }

// LabelLock returns the mutex a caller must hold while mutating the
// entity identified by label: add/remove/update of its vector and graph
// state.
func (s *Store) LabelLock(label uint64) *sync.Mutex {
	return &s.labelStripes[label%numLabelStripes]
}

// UpdateLock/UpdateUnlock bracket operations that may grow or shrink
// the batch list.
func (s *Store) UpdateLock()   { s.updateMu.Lock() }
func (s *Store) UpdateUnlock() { s.updateMu.Unlock() }

// ReadLock/ReadUnlock bracket Get/distance reads.
func (s *Store) ReadLock()   { s.updateMu.RLock() }
func (s *Store) ReadUnlock() { s.updateMu.RUnlock() }

// Size returns current_idx, the first never-assigned location.
func (s *Store) Size() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentIdx
}

// Capacity returns the sum of all batch capacities.
func (s *Store) Capacity() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capacityLocked()
}

func (s *Store) capacityLocked() uint32 {
	var cap uint32
	for _, b := range s.batches {
		cap += uint32(b.Cap())
	}
	return cap
}

// LocationOf returns the location assigned to label, or NotFound.
func (s *Store) LocationOf(label uint64) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.labelToLoc[label]
	if !ok {
		return vectorspace.UnknownLocation, tannerr.NewNotFound("label %d not found", label)
	}
	return loc, nil
}

// LabelOf returns the label assigned to loc, or NotFound.
func (s *Store) LabelOf(loc uint32) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	label, ok := s.locToLabel[loc]
	if !ok {
		return vectorspace.UnknownLabel, tannerr.NewNotFound("location %d not found", loc)
	}
	return label, nil
}

// IsDeleted reports whether loc currently carries the deleted bit.
func (s *Store) IsDeleted(loc uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleted[loc]
}

// AddVectorAt reserves a fresh location for label: growing current_idx
// (and allocating a new batch if needed) unless a vacant slot is
// available and reuse is enabled, in which case that slot is reused
// instead. Fails with AlreadyExists if label is already mapped, or
// ResourceExhausted if MaxElements would be exceeded.
func (s *Store) AddVectorAt(label uint64) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.labelToLoc[label]; ok {
		return vectorspace.UnknownLocation, tannerr.NewAlreadyExists("label %d already exists", label)
	}

	if s.opt.AllowVacantReuse && len(s.vacant) > 0 {
		loc := s.vacant[len(s.vacant)-1]
		s.vacant = s.vacant[:len(s.vacant)-1]
		delete(s.deleted, loc)
		s.labelToLoc[label] = loc
		s.locToLabel[loc] = label
		return loc, nil
	}

	if s.opt.MaxElements > 0 && int(s.currentIdx) >= s.opt.MaxElements {
		return vectorspace.UnknownLocation, tannerr.NewResourceExhausted("max_elements %d reached", s.opt.MaxElements)
	}

	if s.currentIdx >= s.capacityLocked() {
		s.batches = append(s.batches, vectorspace.NewBatch(s.space, s.batchSize))
	}

	loc := s.currentIdx
	batch, _, err := s.locateWithinCapacityLocked(loc)
	if err != nil {
		return vectorspace.UnknownLocation, err
	}
	if _, err := batch.Reserve(); err != nil {
		return vectorspace.UnknownLocation, err
	}
	s.currentIdx++
	s.labelToLoc[label] = loc
	s.locToLabel[loc] = label
	return loc, nil
}

// locateWithinCapacityLocked is like locateLocked but allows loc to
// equal currentIdx, for use while reserving the slot that will become
// the new currentIdx.
func (s *Store) locateWithinCapacityLocked(loc uint32) (*vectorspace.Batch, int, error) {
	if loc >= s.capacityLocked() {
		return nil, 0, tannerr.NewInternal("location %d exceeds store capacity", loc)
	}
	bsz := uint32(s.batchSize)
	batchIdx := loc / bsz
	offset := loc % bsz
	if int(batchIdx) >= len(s.batches) {
		return nil, 0, tannerr.NewInternal("location %d has no backing batch", loc)
	}
	return s.batches[batchIdx], int(offset), nil
}

// SetVector copies vec into the batch slot backing loc. Caller must
// hold LabelLock(LabelOf(loc)).
func (s *Store) SetVector(loc uint32, vec []byte) error {
	s.mu.Lock()
	batch, offset, err := s.locateLocked(loc)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return batch.Set(offset, vec)
}

// GetVector returns a borrow of the vector bytes at loc. Valid only
// while the caller holds ReadLock (or UpdateLock) and no concurrent
// SetVector targets the same loc.
func (s *Store) GetVector(loc uint32) ([]byte, error) {
	s.mu.Lock()
	batch, offset, err := s.locateLocked(loc)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return batch.Get(offset)
}

func (s *Store) locateLocked(loc uint32) (*vectorspace.Batch, int, error) {
	if loc >= s.currentIdx {
		return nil, 0, tannerr.NewInvalidArgument("location %d out of range [0,%d)", loc, s.currentIdx)
	}
	bsz := uint32(s.batchSize)
	batchIdx := loc / bsz
	offset := loc % bsz
	if int(batchIdx) >= len(s.batches) {
		return nil, 0, tannerr.NewInternal("location %d has no backing batch", loc)
	}
	return s.batches[batchIdx], int(offset), nil
}

// RemoveVector clears label's mapping, marks its location deleted, and
// pushes the location onto the vacant pool when reuse is enabled. The
// freed location is returned so engines can repair graph state. A label
// that is not mapped (never added, or already removed) fails with
// NotFound and leaves the store unchanged.
func (s *Store) RemoveVector(label uint64) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, ok := s.labelToLoc[label]
	if !ok {
		return vectorspace.UnknownLocation, tannerr.NewNotFound("label %d not found", label)
	}
	delete(s.labelToLoc, label)
	delete(s.locToLabel, loc)
	s.deleted[loc] = true
	if s.opt.AllowVacantReuse {
		s.vacant = append(s.vacant, loc)
	}
	return loc, nil
}

// GetDistance computes the metric distance between the vectors at two
// locations.
func (s *Store) GetDistance(l1, l2 uint32) (float64, error) {
	a, err := s.GetVector(l1)
	if err != nil {
		return 0, err
	}
	b, err := s.GetVector(l2)
	if err != nil {
		return 0, err
	}
	return s.space.Compare(a, b), nil
}

// GetDistanceFrom computes the distance between an arbitrary query
// vector and the stored vector at loc.
func (s *Store) GetDistanceFrom(query []byte, loc uint32) (float64, error) {
	b, err := s.GetVector(loc)
	if err != nil {
		return 0, err
	}
	return s.space.Compare(query, b), nil
}
