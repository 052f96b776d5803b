// Package datasets implements the two external wire formats used for
// bulk import/export of vector sets, independent of the live index:
// tab-separated text and little-endian Fvec.
package datasets

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/therealutkarshpriyadarshi/tann/pkg/tannerr"
	"github.com/therealutkarshpriyadarshi/tann/pkg/vectorspace"
)

// TsvReader reads one vector per line, tab-separated, parsing each
// element according to dataType.
type TsvReader struct {
	scanner   *bufio.Scanner
	dim       int
	dataType  vectorspace.DataType
	typeSize  int
}

// NewTsvReader wraps r for reading dim-element vectors of dataType.
func NewTsvReader(r io.Reader, dim int, dataType vectorspace.DataType) *TsvReader {
	return &TsvReader{
		scanner:  bufio.NewScanner(r),
		dim:      dim,
		dataType: dataType,
		typeSize: typeSize(dataType),
	}
}

// ReadVector reads the next line and returns its encoded bytes, or
// io.EOF once the stream is exhausted.
func (t *TsvReader) ReadVector() ([]byte, error) {
	if !t.scanner.Scan() {
		if err := t.scanner.Err(); err != nil {
			return nil, tannerr.NewIO(err, "reading tsv line")
		}
		return nil, io.EOF
	}
	line := strings.TrimRight(t.scanner.Text(), "\r\n")
	fields := strings.Split(line, "\t")
	if len(fields) != t.dim {
		return nil, tannerr.NewFormatMismatch("tsv line has %d fields, want %d", len(fields), t.dim)
	}

	out := make([]byte, t.dim*t.typeSize)
	for i, f := range fields {
		if err := encodeElement(out[i*t.typeSize:(i+1)*t.typeSize], t.dataType, f); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ReadBatch reads up to batchSize vectors, stopping early (without
// error) at end of stream.
func (t *TsvReader) ReadBatch(batchSize int) ([][]byte, error) {
	vectors := make([][]byte, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		v, err := t.ReadVector()
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

// TsvWriter writes one vector per line, tab-separated.
type TsvWriter struct {
	w        *bufio.Writer
	dim      int
	dataType vectorspace.DataType
	typeSize int
}

// NewTsvWriter wraps w for writing dim-element vectors of dataType.
func NewTsvWriter(w io.Writer, dim int, dataType vectorspace.DataType) *TsvWriter {
	return &TsvWriter{
		w:        bufio.NewWriter(w),
		dim:      dim,
		dataType: dataType,
		typeSize: typeSize(dataType),
	}
}

// WriteVector encodes vec as one tab-separated line.
func (t *TsvWriter) WriteVector(vec []byte) error {
	if len(vec) != t.dim*t.typeSize {
		return tannerr.NewInvalidArgument("vector has %d bytes, want %d", len(vec), t.dim*t.typeSize)
	}
	for i := 0; i < t.dim; i++ {
		if i > 0 {
			if err := t.w.WriteByte('\t'); err != nil {
				return tannerr.NewIO(err, "writing tsv separator")
			}
		}
		s, err := decodeElementString(vec[i*t.typeSize:(i+1)*t.typeSize], t.dataType)
		if err != nil {
			return err
		}
		if _, err := t.w.WriteString(s); err != nil {
			return tannerr.NewIO(err, "writing tsv field")
		}
	}
	if err := t.w.WriteByte('\n'); err != nil {
		return tannerr.NewIO(err, "writing tsv newline")
	}
	return nil
}

// WriteBatch writes every vector in vectors in order.
func (t *TsvWriter) WriteBatch(vectors [][]byte) error {
	for _, v := range vectors {
		if err := t.WriteVector(v); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes buffered output to the underlying writer.
func (t *TsvWriter) Flush() error {
	if err := t.w.Flush(); err != nil {
		return tannerr.NewIO(err, "flushing tsv writer")
	}
	return nil
}

func typeSize(dt vectorspace.DataType) int {
	switch dt {
	case vectorspace.U8:
		return 1
	case vectorspace.F16:
		return 2
	case vectorspace.F32:
		return 4
	default:
		return 0
	}
}

func encodeElement(dst []byte, dt vectorspace.DataType, field string) error {
	switch dt {
	case vectorspace.U8:
		v, err := strconv.ParseUint(field, 10, 8)
		if err != nil {
			return tannerr.NewFormatMismatch("bad u8 field %q: %v", field, err)
		}
		dst[0] = byte(v)
	case vectorspace.F16:
		v, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return tannerr.NewFormatMismatch("bad f16 field %q: %v", field, err)
		}
		h := vectorspace.EncodeFloat16(float32(v))
		dst[0] = byte(h)
		dst[1] = byte(h >> 8)
	case vectorspace.F32:
		v, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return tannerr.NewFormatMismatch("bad f32 field %q: %v", field, err)
		}
		bits := math.Float32bits(float32(v))
		dst[0] = byte(bits)
		dst[1] = byte(bits >> 8)
		dst[2] = byte(bits >> 16)
		dst[3] = byte(bits >> 24)
	default:
		return tannerr.NewInvalidArgument("unsupported data type %v", dt)
	}
	return nil
}

func decodeElementString(src []byte, dt vectorspace.DataType) (string, error) {
	switch dt {
	case vectorspace.U8:
		return strconv.FormatUint(uint64(src[0]), 10), nil
	case vectorspace.F16:
		h := uint16(src[0]) | uint16(src[1])<<8
		return strconv.FormatFloat(float64(vectorspace.DecodeFloat16(h)), 'g', -1, 32), nil
	case vectorspace.F32:
		bits := uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24
		return strconv.FormatFloat(float64(math.Float32frombits(bits)), 'g', -1, 32), nil
	default:
		return "", tannerr.NewInvalidArgument("unsupported data type %v", dt)
	}
}
