package quantization

import (
	"github.com/hupe1980/vecquant/tensor"
)

// Quantizer is the capability shared by every quantization method: encode a
// tensor into an Artifact and reconstruct an approximation from it.
type Quantizer interface {
	// Type returns the quantization method.
	Type() Type

	// Encode compresses x. Trainable quantizers return ErrNotTrained
	// before Train has succeeded.
	Encode(x *tensor.Tensor) (Artifact, error)

	// Decode reconstructs a tensor from an artifact produced by a quantizer
	// of the same type.
	Decode(a Artifact) (*tensor.Tensor, error)
}

var (
	_ Quantizer = (*UniformQuantizer)(nil)
	_ Quantizer = (*VectorQuantizer)(nil)
	_ Quantizer = (*ProductQuantizer)(nil)

	_ Artifact = (*QuantizedTensor)(nil)
	_ Artifact = (*VQArtifact)(nil)
	_ Artifact = (*PQArtifact)(nil)
)
