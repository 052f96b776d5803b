package vectorspace

// alignmentBytes is the byte alignment every allocated vector buffer is
// padded to, matching the SIMD-friendly allocator the reference index
// uses. Go gives no portable way to request aligned heap memory, so
// Space instead rounds vector_byte_size up to this boundary and callers
// slice into over-allocated buffers; see batch.go.
const alignmentBytes = 32

// Space is the immutable configuration shared by every vector stored
// under one collection: its dimensionality, scalar encoding, distance
// kernel, and the derived sizes engines need to lay out contiguous
// batches.
type Space struct {
	metric   Metric
	dataType DataType
	dim      int

	typeSize        int
	vectorByteSize  int
	alignedByteSize int
	alignmentDim    int

	kernel Kernel
}

// NewSpace validates and constructs a Space for the given metric, data
// type and dimension.
func NewSpace(metric Metric, dt DataType, dim int) (*Space, error) {
	if dim <= 0 {
		return nil, errInvalidDimension(dim)
	}
	kernel, err := NewKernel(metric, dt, dim)
	if err != nil {
		return nil, err
	}

	typeSize := dt.Size()
	vectorByteSize := dim * typeSize
	aligned := vectorByteSize
	if rem := aligned % alignmentBytes; rem != 0 {
		aligned += alignmentBytes - rem
	}

	return &Space{
		metric:          metric,
		dataType:        dt,
		dim:             dim,
		typeSize:        typeSize,
		vectorByteSize:  vectorByteSize,
		alignedByteSize: aligned,
		alignmentDim:    alignmentBytes / typeSize,
		kernel:          kernel,
	}, nil
}

func (s *Space) Metric() Metric     { return s.metric }
func (s *Space) DataType() DataType { return s.dataType }
func (s *Space) Dimension() int     { return s.dim }
func (s *Space) TypeSize() int      { return s.typeSize }

// VectorByteSize is the exact encoded size of one vector.
func (s *Space) VectorByteSize() int { return s.vectorByteSize }

// AlignedByteSize is VectorByteSize rounded up to the allocator's
// alignment boundary; batches use this as their per-slot stride.
func (s *Space) AlignedByteSize() int { return s.alignedByteSize }

func (s *Space) Kernel() Kernel { return s.kernel }

// Compare is a convenience wrapper over Kernel().Compare.
func (s *Space) Compare(a, b []byte) float64 {
	return s.kernel.Compare(a, b)
}
