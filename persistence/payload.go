package persistence

import (
	"fmt"

	"github.com/hupe1980/vecquant/quantization"
)

type uniformPayload struct {
	Rows  int     `json:"rows"`
	Cols  int     `json:"cols"`
	Bits  int     `json:"bits"`
	Scale float64 `json:"scale"`
	Codes []int32 `json:"codes"`
}

type codebookPayload struct {
	Centroids [][]float64 `json:"centroids"`
}

type codesPayload struct {
	Rows  int     `json:"rows"`
	Cols  int     `json:"cols"`
	Codes []int32 `json:"codes"`
}

type vqPayload struct {
	Mode     string          `json:"mode"`
	Codebook codebookPayload `json:"codebook"`
	Codes    codesPayload    `json:"codes"`
}

type pqPayload struct {
	Codebooks []codebookPayload `json:"codebooks"`
	Codes     codesPayload      `json:"codes"`
}

func newCodesPayload(c *quantization.CodeMatrix) codesPayload {
	return codesPayload{Rows: c.Rows(), Cols: c.Cols(), Codes: c.Codes()}
}

func (p codesPayload) codeMatrix() (*quantization.CodeMatrix, error) {
	return quantization.NewCodeMatrix(p.Rows, p.Cols, p.Codes)
}

// toPayload converts an artifact into its serializable form.
func toPayload(a quantization.Artifact) (any, error) {
	switch a := a.(type) {
	case *quantization.QuantizedTensor:
		rows, cols := a.Shape()
		return uniformPayload{Rows: rows, Cols: cols, Bits: a.NumBits(), Scale: a.Scale(), Codes: a.Codes()}, nil
	case *quantization.VQArtifact:
		return vqPayload{
			Mode:     a.Mode().String(),
			Codebook: codebookPayload{Centroids: a.Codebook().Centroids()},
			Codes:    newCodesPayload(a.Codes()),
		}, nil
	case *quantization.PQArtifact:
		cbs := a.Codebooks()
		p := pqPayload{Codebooks: make([]codebookPayload, len(cbs)), Codes: newCodesPayload(a.Codes())}
		for i, cb := range cbs {
			p.Codebooks[i] = codebookPayload{Centroids: cb.Centroids()}
		}
		return p, nil
	case nil:
		return nil, fmt.Errorf("%w: nil artifact", ErrUnknownArtifact)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownArtifact, a)
	}
}

// fromPayload rebuilds an artifact of type t, running the same validation
// as the quantization constructors.
func fromPayload(t quantization.Type, unmarshal func(v any) error) (quantization.Artifact, error) {
	switch t {
	case quantization.TypeUniform:
		var p uniformPayload
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return quantization.NewQuantizedTensor(p.Rows, p.Cols, p.Bits, p.Scale, p.Codes)

	case quantization.TypeVQ:
		var p vqPayload
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		mode, err := quantization.ParseSampleMode(p.Mode)
		if err != nil {
			return nil, err
		}
		cb, err := quantization.NewCodebook(p.Codebook.Centroids)
		if err != nil {
			return nil, err
		}
		codes, err := p.Codes.codeMatrix()
		if err != nil {
			return nil, err
		}
		return quantization.NewVQArtifact(mode, cb, codes)

	case quantization.TypePQ:
		var p pqPayload
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		cbs := make([]*quantization.Codebook, len(p.Codebooks))
		for i, cp := range p.Codebooks {
			cb, err := quantization.NewCodebook(cp.Centroids)
			if err != nil {
				return nil, fmt.Errorf("codebook %d: %w", i, err)
			}
			cbs[i] = cb
		}
		codes, err := p.Codes.codeMatrix()
		if err != nil {
			return nil, err
		}
		return quantization.NewPQArtifact(cbs, codes)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownArtifact, t)
	}
}
