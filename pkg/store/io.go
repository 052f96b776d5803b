package store

import (
	"encoding/binary"
	"io"

	"github.com/therealutkarshpriyadarshi/tann/pkg/tannerr"
	"github.com/therealutkarshpriyadarshi/tann/pkg/vectorspace"
)

// Save writes the store's persisted form: option fields (max_elements,
// the vacant-reuse flag, batch_size), current_idx, the deleted bitmap
// (as a count-prefixed location list, in map iteration order), the
// location->label array, then every batch's raw bytes concatenated in
// order. All integers are little-endian.
func (s *Store) Save(w io.Writer) error {
	s.UpdateLock()
	defer s.UpdateUnlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := binary.Write(w, binary.LittleEndian, uint32(s.opt.MaxElements)); err != nil {
		return tannerr.NewIO(err, "writing max_elements")
	}
	if err := binary.Write(w, binary.LittleEndian, boolToByte(s.opt.AllowVacantReuse)); err != nil {
		return tannerr.NewIO(err, "writing vacant-reuse flag")
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(s.batchSize)); err != nil {
		return tannerr.NewIO(err, "writing batch_size")
	}
	if err := binary.Write(w, binary.LittleEndian, s.currentIdx); err != nil {
		return tannerr.NewIO(err, "writing current_idx")
	}

	deletedLocs := make([]uint32, 0, len(s.deleted))
	for loc := range s.deleted {
		deletedLocs = append(deletedLocs, loc)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(deletedLocs))); err != nil {
		return tannerr.NewIO(err, "writing deleted count")
	}
	for _, loc := range deletedLocs {
		if err := binary.Write(w, binary.LittleEndian, loc); err != nil {
			return tannerr.NewIO(err, "writing deleted location")
		}
	}

	for loc := uint32(0); loc < s.currentIdx; loc++ {
		label, ok := s.locToLabel[loc]
		if !ok {
			label = 0
		}
		if err := binary.Write(w, binary.LittleEndian, label); err != nil {
			return tannerr.NewIO(err, "writing location->label entry")
		}
	}

	for _, b := range s.batches {
		raw, err := b.RawBytes()
		if err != nil {
			return tannerr.NewIO(err, "reading batch bytes")
		}
		if _, err := w.Write(raw); err != nil {
			return tannerr.NewIO(err, "writing batch bytes")
		}
	}
	return nil
}

// Load reconstructs a Store's mutable state from a Save'd stream. The
// Store must already have been constructed with New against the same
// Space; Load overwrites its batches and maps.
func (s *Store) Load(r io.Reader) error {
	s.UpdateLock()
	defer s.UpdateUnlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	var maxElements, batchSize, currentIdx uint32
	var vacantByte byte

	if err := binary.Read(r, binary.LittleEndian, &maxElements); err != nil {
		return tannerr.NewIO(err, "reading max_elements")
	}
	if err := binary.Read(r, binary.LittleEndian, &vacantByte); err != nil {
		return tannerr.NewIO(err, "reading vacant-reuse flag")
	}
	if err := binary.Read(r, binary.LittleEndian, &batchSize); err != nil {
		return tannerr.NewIO(err, "reading batch_size")
	}
	if err := binary.Read(r, binary.LittleEndian, &currentIdx); err != nil {
		return tannerr.NewIO(err, "reading current_idx")
	}

	s.opt.MaxElements = int(maxElements)
	s.opt.AllowVacantReuse = vacantByte != 0
	s.batchSize = int(batchSize)
	s.currentIdx = currentIdx

	var deletedCount uint32
	if err := binary.Read(r, binary.LittleEndian, &deletedCount); err != nil {
		return tannerr.NewIO(err, "reading deleted count")
	}
	s.deleted = make(map[uint32]bool, deletedCount)
	s.vacant = s.vacant[:0]
	for i := uint32(0); i < deletedCount; i++ {
		var loc uint32
		if err := binary.Read(r, binary.LittleEndian, &loc); err != nil {
			return tannerr.NewIO(err, "reading deleted location")
		}
		s.deleted[loc] = true
		if s.opt.AllowVacantReuse {
			s.vacant = append(s.vacant, loc)
		}
	}

	s.labelToLoc = make(map[uint64]uint32, currentIdx)
	s.locToLabel = make(map[uint32]uint64, currentIdx)
	for loc := uint32(0); loc < currentIdx; loc++ {
		var label uint64
		if err := binary.Read(r, binary.LittleEndian, &label); err != nil {
			return tannerr.NewIO(err, "reading location->label entry")
		}
		if s.deleted[loc] {
			continue
		}
		s.locToLabel[loc] = label
		s.labelToLoc[label] = loc
	}

	s.batches = s.batches[:0]
	stride := s.space.AlignedByteSize()
	remaining := currentIdx
	for remaining > 0 {
		n := uint32(s.batchSize)
		if n > remaining {
			n = remaining
		}
		buf := make([]byte, uint32(s.batchSize)*uint32(stride))
		if _, err := io.ReadFull(r, buf); err != nil {
			return tannerr.NewIO(err, "reading batch bytes")
		}
		batch, err := vectorspace.LoadBatch(s.space, s.batchSize, buf, int(n))
		if err != nil {
			return tannerr.NewIO(err, "decoding batch")
		}
		s.batches = append(s.batches, batch)
		remaining -= n
	}
	return nil
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
