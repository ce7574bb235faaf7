package quantization

import (
	"fmt"
	"slices"
)

// CodeMatrix is an immutable rows x cols matrix of codebook indices.
// For VQ over scalars it mirrors the source shape, for VQ over rows it is
// rows x 1 and for PQ it is rows x M.
type CodeMatrix struct {
	rows  int
	cols  int
	codes []int32
}

// NewCodeMatrix builds a code matrix from row-major codes. The input is copied.
func NewCodeMatrix(rows, cols int, codes []int32) (*CodeMatrix, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("%w: code matrix shape %dx%d", ErrUsage, rows, cols)
	}
	if len(codes) != rows*cols {
		return nil, dimensionMismatch("code matrix", rows*cols, len(codes))
	}
	return &CodeMatrix{rows: rows, cols: cols, codes: slices.Clone(codes)}, nil
}

// Rows returns the number of rows.
func (c *CodeMatrix) Rows() int { return c.rows }

// Cols returns the number of columns.
func (c *CodeMatrix) Cols() int { return c.cols }

// At returns the code at row i, column j.
func (c *CodeMatrix) At(i, j int) int32 { return c.codes[i*c.cols+j] }

// Row returns a copy of row i.
func (c *CodeMatrix) Row(i int) []int32 {
	return slices.Clone(c.row(i))
}

func (c *CodeMatrix) row(i int) []int32 {
	return c.codes[i*c.cols : (i+1)*c.cols]
}

// Codes returns a row-major copy of all codes.
func (c *CodeMatrix) Codes() []int32 {
	return slices.Clone(c.codes)
}

// ToRows returns the codes as freshly allocated rows.
func (c *CodeMatrix) ToRows() [][]int32 {
	out := make([][]int32, c.rows)
	for i := range out {
		out[i] = c.Row(i)
	}
	return out
}

// Equal reports whether both matrices have the same shape and codes.
func (c *CodeMatrix) Equal(o *CodeMatrix) bool {
	return c.rows == o.rows && c.cols == o.cols && slices.Equal(c.codes, o.codes)
}

// checkRange verifies that every code lies in [0, k).
func (c *CodeMatrix) checkRange(k int) error {
	return checkCodes(c.codes, k)
}

func checkCodes(codes []int32, k int) error {
	for i, code := range codes {
		if code < 0 || int(code) >= k {
			return &ErrCodeOutOfRange{Index: i, Code: code, Limit: k}
		}
	}
	return nil
}
