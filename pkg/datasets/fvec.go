package datasets

import (
	"encoding/binary"
	"io"

	"github.com/therealutkarshpriyadarshi/tann/pkg/tannerr"
	"github.com/therealutkarshpriyadarshi/tann/pkg/vectorspace"
)

// FvecReader reads the little-endian Fvec stream format: a repeating
// `(dim uint32, dim*elementSize bytes)` tuple. Per spec.md §6, the
// reader reads dim once from the first tuple and trusts it for every
// subsequent vector, matching the original FvecVectorSetReader's
// single dimension read at init time.
type FvecReader struct {
	r        io.Reader
	dataType vectorspace.DataType
	typeSize int
	dim      int
	started  bool
}

// NewFvecReader wraps r for reading vectors of dataType. dim is
// discovered from the stream's first tuple, not supplied by the
// caller.
func NewFvecReader(r io.Reader, dataType vectorspace.DataType) *FvecReader {
	return &FvecReader{r: r, dataType: dataType, typeSize: typeSize(dataType)}
}

// Dim returns the dimension discovered from the stream, or 0 before
// the first ReadVector call.
func (f *FvecReader) Dim() int { return f.dim }

// ReadVector reads the next tuple's vector bytes, or io.EOF once the
// stream is exhausted at a tuple boundary.
func (f *FvecReader) ReadVector() ([]byte, error) {
	var ndims uint32
	if err := binary.Read(f.r, binary.LittleEndian, &ndims); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, tannerr.NewIO(err, "reading fvec dimension")
	}

	if !f.started {
		f.dim = int(ndims)
		f.started = true
	}
	// Every subsequent tuple's own dim field is read off the wire but
	// not re-trusted, matching the spec's "reads dim once" contract.

	buf := make([]byte, f.dim*f.typeSize)
	if _, err := io.ReadFull(f.r, buf); err != nil {
		return nil, tannerr.NewIO(err, "reading fvec vector body")
	}
	return buf, nil
}

// ReadBatch reads up to batchSize vectors, stopping early (without
// error) at end of stream.
func (f *FvecReader) ReadBatch(batchSize int) ([][]byte, error) {
	vectors := make([][]byte, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		v, err := f.ReadVector()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}

// FvecWriter writes the little-endian Fvec stream format.
type FvecWriter struct {
	w        io.Writer
	dim      int
	dataType vectorspace.DataType
	typeSize int
}

// NewFvecWriter wraps w for writing dim-element vectors of dataType.
func NewFvecWriter(w io.Writer, dim int, dataType vectorspace.DataType) *FvecWriter {
	return &FvecWriter{w: w, dim: dim, dataType: dataType, typeSize: typeSize(dataType)}
}

// WriteVector writes one `(dim, vec)` tuple.
func (f *FvecWriter) WriteVector(vec []byte) error {
	if len(vec) != f.dim*f.typeSize {
		return tannerr.NewInvalidArgument("vector has %d bytes, want %d", len(vec), f.dim*f.typeSize)
	}
	if err := binary.Write(f.w, binary.LittleEndian, uint32(f.dim)); err != nil {
		return tannerr.NewIO(err, "writing fvec dimension")
	}
	if _, err := f.w.Write(vec); err != nil {
		return tannerr.NewIO(err, "writing fvec vector body")
	}
	return nil
}

// WriteBatch writes every vector in vectors in order.
func (f *FvecWriter) WriteBatch(vectors [][]byte) error {
	for _, v := range vectors {
		if err := f.WriteVector(v); err != nil {
			return err
		}
	}
	return nil
}
