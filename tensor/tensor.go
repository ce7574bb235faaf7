// Package tensor provides the immutable dense matrix consumed and produced by
// every quantizer.
//
// A Tensor is row-major and never changes after construction: constructors
// copy their input and accessors that return slices return copies unless
// documented as views.
package tensor

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrShape is returned when a tensor would have an invalid shape.
var ErrShape = errors.New("tensor: invalid shape")

// Tensor is an immutable dense rows x cols matrix of float64 values.
type Tensor struct {
	rows int
	cols int
	data []float64
}

// New creates a tensor from row-major data. The data is copied.
func New(rows, cols int, data []float64) (*Tensor, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrShape, rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %dx%d needs %d values, got %d", ErrShape, rows, cols, rows*cols, len(data))
	}

	return &Tensor{rows: rows, cols: cols, data: slices.Clone(data)}, nil
}

// FromRows creates a tensor from a slice of equally sized rows.
func FromRows(rows [][]float64) (*Tensor, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrShape)
	}

	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d", ErrShape, i, len(r), cols)
		}
		data = append(data, r...)
	}

	return &Tensor{rows: len(rows), cols: cols, data: data}, nil
}

// MustFromRows is like FromRows but panics on error. Intended for tests and
// literals.
func MustFromRows(rows [][]float64) *Tensor {
	t, err := FromRows(rows)
	if err != nil {
		panic(err)
	}
	return t
}

// FromMatrix copies any gonum matrix into a tensor.
func FromMatrix(m mat.Matrix) *Tensor {
	r, c := m.Dims()
	data := make([]float64, r*c)
	mat.NewDense(r, c, data).Copy(m)

	return &Tensor{rows: r, cols: c, data: data}
}

// Rows returns the number of rows.
func (t *Tensor) Rows() int { return t.rows }

// Cols returns the number of columns.
func (t *Tensor) Cols() int { return t.cols }

// Len returns the number of elements.
func (t *Tensor) Len() int { return len(t.data) }

// Shape returns (rows, cols).
func (t *Tensor) Shape() (int, int) { return t.rows, t.cols }

// At returns the element at row i, column j.
func (t *Tensor) At(i, j int) float64 {
	return t.data[i*t.cols+j]
}

// Row returns a copy of row i.
func (t *Tensor) Row(i int) []float64 {
	return slices.Clone(t.RawRowView(i))
}

// RawRowView returns row i without copying. Callers must not modify it.
func (t *Tensor) RawRowView(i int) []float64 {
	return t.data[i*t.cols : (i+1)*t.cols]
}

// RawData returns the row-major backing slice without copying. Callers must
// not modify it.
func (t *Tensor) RawData() []float64 {
	return t.data
}

// Data returns a row-major copy of all elements.
func (t *Tensor) Data() []float64 {
	return slices.Clone(t.data)
}

// ToRows returns the tensor as freshly allocated rows.
func (t *Tensor) ToRows() [][]float64 {
	out := make([][]float64, t.rows)
	for i := range out {
		out[i] = t.Row(i)
	}
	return out
}

// Dense returns a fresh gonum matrix holding a copy of the tensor.
func (t *Tensor) Dense() *mat.Dense {
	return mat.NewDense(t.rows, t.cols, slices.Clone(t.data))
}

// MaxAbs returns max |x_ij|.
func (t *Tensor) MaxAbs() float64 {
	return floats.Norm(t.data, math.Inf(1))
}

// IsFinite reports whether every element is neither NaN nor infinite.
func (t *Tensor) IsFinite() bool {
	for _, v := range t.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ColumnSlice returns the columns [start, end) of every row as a new tensor.
func (t *Tensor) ColumnSlice(start, end int) (*Tensor, error) {
	if start < 0 || end > t.cols || start >= end {
		return nil, fmt.Errorf("%w: column range [%d,%d) of %d columns", ErrShape, start, end, t.cols)
	}

	view := mat.NewDense(t.rows, t.cols, t.data)
	return FromMatrix(view.Slice(0, t.rows, start, end)), nil
}

// Equal reports whether both tensors have the same shape and bit-identical
// values.
func (t *Tensor) Equal(o *Tensor) bool {
	if t.rows != o.rows || t.cols != o.cols {
		return false
	}
	return floats.Equal(t.data, o.data)
}

// EqualApprox reports whether both tensors have the same shape and all values
// agree within tol (absolute or relative).
func (t *Tensor) EqualApprox(o *Tensor, tol float64) bool {
	if t.rows != o.rows || t.cols != o.cols {
		return false
	}
	return floats.EqualApprox(t.data, o.data, tol)
}

// String implements fmt.Stringer.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(%dx%d)", t.rows, t.cols)
}
