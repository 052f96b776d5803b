package vectorspace

import "github.com/therealutkarshpriyadarshi/tann/pkg/tannerr"

// DefaultBatchCapacity is B, the number of vector slots per batch.
const DefaultBatchCapacity = 256

// Batch is a contiguous block holding up to cap vectors for one Space.
// Once allocated, its backing array is never reallocated or relocated;
// growth happens by appending a new Batch to the store's batch list, not
// by resizing an existing one. A Batch is move-only in spirit: callers
// must not copy a Batch value, only pass pointers to it.
type Batch struct {
	space *Space
	cap   int
	len   int
	data  []byte
}

// NewBatch allocates a batch with room for capacity vectors from space.
// capacity defaults to DefaultBatchCapacity when 0 is given.
func NewBatch(space *Space, capacity int) *Batch {
	if capacity <= 0 {
		capacity = DefaultBatchCapacity
	}
	return &Batch{
		space: space,
		cap:   capacity,
		data:  make([]byte, capacity*space.AlignedByteSize()),
	}
}

func (b *Batch) Cap() int   { return b.cap }
func (b *Batch) Len() int   { return b.len }
func (b *Batch) Full() bool { return b.len >= b.cap }

// Reserve claims the next free slot without writing any data into it,
// returning its index within this batch. Store uses this to split
// location assignment (AddVectorAt) from the later SetVector write.
func (b *Batch) Reserve() (int, error) {
	if b.Full() {
		return 0, tannerr.NewResourceExhausted("batch is full (cap=%d)", b.cap)
	}
	idx := b.len
	b.len++
	return idx, nil
}

// Append reserves the next free slot and copies vec into it, returning
// the slot's index within this batch. vec must be exactly
// space.VectorByteSize() bytes.
func (b *Batch) Append(vec []byte) (int, error) {
	idx, err := b.Reserve()
	if err != nil {
		return 0, err
	}
	if len(vec) != b.space.VectorByteSize() {
		return 0, tannerr.NewInvalidArgument("vector has %d bytes, want %d", len(vec), b.space.VectorByteSize())
	}
	copy(b.slot(idx), vec)
	return idx, nil
}

// Set overwrites the vector bytes at an already-appended slot index.
func (b *Batch) Set(idx int, vec []byte) error {
	if idx < 0 || idx >= b.len {
		return tannerr.NewInvalidArgument("slot %d out of range [0,%d)", idx, b.len)
	}
	if len(vec) != b.space.VectorByteSize() {
		return tannerr.NewInvalidArgument("vector has %d bytes, want %d", len(vec), b.space.VectorByteSize())
	}
	copy(b.slot(idx), vec)
	return nil
}

// Get returns a borrow of the vector bytes at idx. The returned slice
// aliases the batch's backing array and must not be retained past the
// holder's read-lock scope.
func (b *Batch) Get(idx int) ([]byte, error) {
	if idx < 0 || idx >= b.len {
		return nil, tannerr.NewInvalidArgument("slot %d out of range [0,%d)", idx, b.len)
	}
	return b.slot(idx), nil
}

func (b *Batch) slot(idx int) []byte {
	stride := b.space.AlignedByteSize()
	start := idx * stride
	return b.data[start : start+b.space.VectorByteSize() : start+stride]
}

// RawBytes returns the batch's full backing array, including padding
// and any never-written tail slots, for use by Store.Save.
func (b *Batch) RawBytes() ([]byte, error) {
	return b.data, nil
}

// LoadBatch reconstructs a Batch from raw bytes previously produced by
// RawBytes, marking the first filled slots as occupied.
func LoadBatch(space *Space, capacity int, raw []byte, filled int) (*Batch, error) {
	if capacity <= 0 {
		capacity = DefaultBatchCapacity
	}
	want := capacity * space.AlignedByteSize()
	if len(raw) != want {
		return nil, tannerr.NewFormatMismatch("batch payload has %d bytes, want %d", len(raw), want)
	}
	return &Batch{space: space, cap: capacity, len: filled, data: raw}, nil
}
