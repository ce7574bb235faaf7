package quantization

import "fmt"

// Type represents the type of quantization method.
type Type int

const (
	TypeNone Type = iota
	TypeUniform
	TypeVQ
	TypePQ
)

// String returns the string representation of the quantization type.
func (t Type) String() string {
	switch t {
	case TypeNone:
		return "None"
	case TypeUniform:
		return "Uniform"
	case TypeVQ:
		return "VQ"
	case TypePQ:
		return "PQ"
	default:
		return "Unknown"
	}
}

// ParseType parses the names produced by Type.String (case-sensitive) and the
// lowercase CLI spellings.
func ParseType(s string) (Type, error) {
	switch s {
	case "None", "none":
		return TypeNone, nil
	case "Uniform", "uniform":
		return TypeUniform, nil
	case "VQ", "vq":
		return TypeVQ, nil
	case "PQ", "pq":
		return TypePQ, nil
	default:
		return TypeNone, fmt.Errorf("%w: unknown quantization type %q", ErrConfig, s)
	}
}

// SampleMode selects what a VectorQuantizer treats as one sample.
type SampleMode int

const (
	// SampleScalars treats every matrix element as a 1-dimensional sample.
	SampleScalars SampleMode = iota
	// SampleRows treats every matrix row as one sample.
	SampleRows
)

// String returns the string representation of the sample mode.
func (m SampleMode) String() string {
	switch m {
	case SampleScalars:
		return "scalars"
	case SampleRows:
		return "rows"
	default:
		return "unknown"
	}
}

// ParseSampleMode parses "scalars" or "rows".
func ParseSampleMode(s string) (SampleMode, error) {
	switch s {
	case "scalars":
		return SampleScalars, nil
	case "rows":
		return SampleRows, nil
	default:
		return SampleScalars, fmt.Errorf("%w: unknown sample mode %q", ErrConfig, s)
	}
}

func (m SampleMode) valid() bool {
	return m == SampleScalars || m == SampleRows
}
