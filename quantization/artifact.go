package quantization

import (
	"fmt"
)

// Artifact is the immutable output of a Quantizer: enough state to
// reconstruct an approximation of the source tensor.
//
// Implementations are *QuantizedTensor, *VQArtifact and *PQArtifact.
type Artifact interface {
	// Type returns the kind of quantization that produced the artifact.
	Type() Type
	// Shape returns the shape of the reconstructed tensor.
	Shape() (rows, cols int)
}

// VQArtifact holds a codebook together with the codes of one tensor.
type VQArtifact struct {
	mode     SampleMode
	codebook *Codebook
	codes    *CodeMatrix
}

// NewVQArtifact validates and bundles a codebook with its codes.
func NewVQArtifact(mode SampleMode, cb *Codebook, codes *CodeMatrix) (*VQArtifact, error) {
	if !mode.valid() {
		return nil, fmt.Errorf("%w: invalid sample mode %d", ErrConfig, mode)
	}
	if cb == nil || codes == nil {
		return nil, fmt.Errorf("%w: codebook and codes are required", ErrUsage)
	}
	if mode == SampleScalars && cb.Dim() != 1 {
		return nil, dimensionMismatch("codebook", 1, cb.Dim())
	}
	if mode == SampleRows && codes.cols != 1 {
		return nil, dimensionMismatch("code matrix columns", 1, codes.cols)
	}
	if err := codes.checkRange(cb.K()); err != nil {
		return nil, err
	}
	return &VQArtifact{mode: mode, codebook: cb, codes: codes}, nil
}

// Type implements Artifact.
func (a *VQArtifact) Type() Type { return TypeVQ }

// Shape implements Artifact.
func (a *VQArtifact) Shape() (int, int) {
	if a.mode == SampleRows {
		return a.codes.rows, a.codebook.Dim()
	}
	return a.codes.rows, a.codes.cols
}

// Mode returns the sample mode the codes were produced with.
func (a *VQArtifact) Mode() SampleMode { return a.mode }

// Codebook returns the codebook.
func (a *VQArtifact) Codebook() *Codebook { return a.codebook }

// Codes returns the code matrix.
func (a *VQArtifact) Codes() *CodeMatrix { return a.codes }

// PQArtifact holds the M subspace codebooks and the rows x M codes of one
// tensor.
type PQArtifact struct {
	codebooks []*Codebook
	codes     *CodeMatrix
}

// NewPQArtifact validates and bundles subspace codebooks with their codes.
func NewPQArtifact(codebooks []*Codebook, codes *CodeMatrix) (*PQArtifact, error) {
	if err := validateCodebooks(codebooks); err != nil {
		return nil, err
	}
	if codes == nil {
		return nil, fmt.Errorf("%w: codes are required", ErrUsage)
	}
	if codes.cols != len(codebooks) {
		return nil, dimensionMismatch("code matrix columns", len(codebooks), codes.cols)
	}
	if err := codes.checkRange(codebooks[0].K()); err != nil {
		return nil, err
	}
	return &PQArtifact{codebooks: append([]*Codebook(nil), codebooks...), codes: codes}, nil
}

// Type implements Artifact.
func (a *PQArtifact) Type() Type { return TypePQ }

// Shape implements Artifact.
func (a *PQArtifact) Shape() (int, int) {
	return a.codes.rows, len(a.codebooks) * a.codebooks[0].Dim()
}

// Codebooks returns a copy of the codebook slice.
func (a *PQArtifact) Codebooks() []*Codebook {
	return append([]*Codebook(nil), a.codebooks...)
}

// Codes returns the code matrix.
func (a *PQArtifact) Codes() *CodeMatrix { return a.codes }

// NumSubvectors returns M.
func (a *PQArtifact) NumSubvectors() int { return len(a.codebooks) }

func artifactType(a Artifact) string {
	if a == nil {
		return "nil"
	}
	return a.Type().String()
}
