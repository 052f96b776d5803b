// Package vectorspace implements the metric/kernel hierarchy and the
// immutable VectorSpace + VectorBatch abstractions every engine builds on:
// dimension, scalar-type size, alignment, and the chosen distance kernel.
package vectorspace

import "fmt"

// DataType is the scalar element type a vector is stored as.
type DataType int

const (
	DTNone DataType = iota
	U8
	F16
	F32
)

func (d DataType) String() string {
	switch d {
	case U8:
		return "u8"
	case F16:
		return "f16"
	case F32:
		return "f32"
	default:
		return "none"
	}
}

// Size returns the byte size of one scalar element of this type.
func (d DataType) Size() int {
	switch d {
	case U8:
		return 1
	case F16:
		return 2
	case F32:
		return 4
	default:
		return 0
	}
}

// Metric selects the distance convention: smaller is always "nearer".
type Metric int

const (
	MetricUndefined Metric = iota
	L1
	L2
	IP
	Hamming
	Jaccard
	Cosine
	Angle
	NormalizedCosine
	NormalizedAngle
	NormalizedL2
	Poincare
	Lorentz
)

func (m Metric) String() string {
	switch m {
	case L1:
		return "l1"
	case L2:
		return "l2"
	case IP:
		return "ip"
	case Hamming:
		return "hamming"
	case Jaccard:
		return "jaccard"
	case Cosine:
		return "cosine"
	case Angle:
		return "angle"
	case NormalizedCosine:
		return "normalized_cosine"
	case NormalizedAngle:
		return "normalized_angle"
	case NormalizedL2:
		return "normalized_l2"
	case Poincare:
		return "poincare"
	case Lorentz:
		return "lorentz"
	default:
		return "undefined"
	}
}

// UnknownLocation is the sentinel location_t value meaning "no location".
const UnknownLocation uint32 = ^uint32(0)

// UnknownLabel is the sentinel label_type value meaning "no label".
const UnknownLabel uint64 = ^uint64(0)

var errInvalidCombo = func(m Metric, dt DataType) error {
	return fmt.Errorf("metric %s is not valid for data type %s", m, dt)
}

var errInvalidDimension = func(dim int) error {
	return fmt.Errorf("dimension must be positive, got %d", dim)
}
