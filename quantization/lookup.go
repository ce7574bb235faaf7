package quantization

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/floats"
)

// LookupTables holds, for one query, M tables of K partial dot products:
// At(i, j) = dot(query_i, codebooks[i][j]).
//
// Tables are read-only after construction and may be shared between
// goroutines scoring different rows.
type LookupTables struct {
	m      int
	k      int
	values []float64 // flattened M*K
}

// M returns the number of subspaces.
func (t *LookupTables) M() int { return t.m }

// K returns the number of centroids per subspace.
func (t *LookupTables) K() int { return t.k }

// At returns the partial dot product of subspace i with centroid j.
func (t *LookupTables) At(i, j int) float64 { return t.values[i*t.k+j] }

// Table returns a copy of the table of subspace i.
func (t *LookupTables) Table(i int) []float64 {
	return slices.Clone(t.values[i*t.k : (i+1)*t.k])
}

// BuildTables precomputes the partial dot products of query with every
// centroid of every subspace. Cost is O(M*K*subDim).
func BuildTables(query []float64, codebooks []*Codebook) (*LookupTables, error) {
	if err := validateCodebooks(codebooks); err != nil {
		return nil, err
	}

	m := len(codebooks)
	k := codebooks[0].K()
	subDim := codebooks[0].Dim()
	if len(query) != m*subDim {
		return nil, dimensionMismatch("query", m*subDim, len(query))
	}

	values := make([]float64, m*k)
	for i, cb := range codebooks {
		sub := query[i*subDim : (i+1)*subDim]
		for j := 0; j < k; j++ {
			values[i*k+j] = floats.Dot(sub, cb.centroid(j))
		}
	}

	return &LookupTables{m: m, k: k, values: values}, nil
}

// ApproxDot sums the table entries selected by one row of PQ codes, in
// subspace order.
func ApproxDot(rowCodes []int32, tables *LookupTables) (float64, error) {
	if len(rowCodes) != tables.m {
		return 0, dimensionMismatch("row codes", tables.m, len(rowCodes))
	}
	if err := checkCodes(rowCodes, tables.k); err != nil {
		return 0, err
	}
	return approxDot(rowCodes, tables), nil
}

func approxDot(rowCodes []int32, tables *LookupTables) float64 {
	var sum float64
	for i, c := range rowCodes {
		sum += tables.values[i*tables.k+int(c)]
	}
	return sum
}

// RowScore is the approximate dot product of one encoded row with a query.
type RowScore struct {
	Row   int
	Score float64
}

// LookupEngine scores PQ-encoded rows against queries through precomputed
// lookup tables instead of decoding them.
type LookupEngine struct {
	pq      *ProductQuantizer
	workers int
}

// NewLookupEngine creates an engine for the codebooks of pq. workers <= 0
// uses the quantizer's worker count.
func NewLookupEngine(pq *ProductQuantizer, workers int) (*LookupEngine, error) {
	if pq == nil {
		return nil, fmt.Errorf("%w: nil product quantizer", ErrConfig)
	}
	if workers <= 0 {
		workers = pq.workers
	}
	return &LookupEngine{pq: pq, workers: workers}, nil
}

// BuildTables builds the lookup tables of query for the trained codebooks.
func (e *LookupEngine) BuildTables(query []float64) (*LookupTables, error) {
	s := e.pq.state.Load()
	if s == nil {
		return nil, ErrNotTrained
	}
	return BuildTables(query, s.codebooks)
}

// ApproxDot returns the approximate dot product of one encoded row.
func (e *LookupEngine) ApproxDot(rowCodes []int32, tables *LookupTables) (float64, error) {
	if err := e.checkTables(tables); err != nil {
		return 0, err
	}
	return ApproxDot(rowCodes, tables)
}

// ApproxDotAll scores every row of codes. Rows are partitioned across
// workers; the result is indexed by row.
func (e *LookupEngine) ApproxDotAll(ctx context.Context, codes *CodeMatrix, tables *LookupTables) ([]float64, error) {
	if err := e.checkBatch(codes, tables); err != nil {
		return nil, err
	}

	scores := make([]float64, codes.rows)
	err := parallelRows(ctx, codes.rows, e.workers, func(start, end int) error {
		for r := start; r < end; r++ {
			scores[r] = approxDot(codes.row(r), tables)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return scores, nil
}

// ApproxDotSelected scores only the rows contained in rows, in ascending row
// order. A nil bitmap selects every row.
func (e *LookupEngine) ApproxDotSelected(ctx context.Context, codes *CodeMatrix, tables *LookupTables, rows *roaring.Bitmap) ([]RowScore, error) {
	if err := e.checkBatch(codes, tables); err != nil {
		return nil, err
	}

	selected, err := selectRows(codes.rows, rows)
	if err != nil {
		return nil, err
	}

	out := make([]RowScore, len(selected))
	err = parallelRows(ctx, len(selected), e.workers, func(start, end int) error {
		for i := start; i < end; i++ {
			r := int(selected[i])
			out[i] = RowScore{Row: r, Score: approxDot(codes.row(r), tables)}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// TopK returns the k selected rows with the largest approximate dot
// product, best first. Equal scores are ordered by row index.
func (e *LookupEngine) TopK(ctx context.Context, codes *CodeMatrix, tables *LookupTables, k int, rows *roaring.Bitmap) ([]RowScore, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrUsage, k)
	}

	scores, err := e.ApproxDotSelected(ctx, codes, tables, rows)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(scores, func(a, b RowScore) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if len(scores) > k {
		scores = scores[:k]
	}
	return scores, nil
}

func (e *LookupEngine) checkTables(tables *LookupTables) error {
	if tables == nil {
		return fmt.Errorf("%w: nil lookup tables", ErrUsage)
	}
	if tables.m != e.pq.numSubvectors || tables.k != e.pq.numCentroids {
		return fmt.Errorf("%w: lookup tables are %dx%d, quantizer is %dx%d",
			ErrUsage, tables.m, tables.k, e.pq.numSubvectors, e.pq.numCentroids)
	}
	return nil
}

func (e *LookupEngine) checkBatch(codes *CodeMatrix, tables *LookupTables) error {
	if !e.pq.IsTrained() {
		return ErrNotTrained
	}
	if err := e.checkTables(tables); err != nil {
		return err
	}
	if codes == nil {
		return fmt.Errorf("%w: nil code matrix", ErrUsage)
	}
	if codes.cols != tables.m {
		return dimensionMismatch("code matrix columns", tables.m, codes.cols)
	}
	return codes.checkRange(tables.k)
}

// selectRows returns the selected row indices in ascending order.
func selectRows(n int, rows *roaring.Bitmap) ([]uint32, error) {
	if rows == nil {
		all := make([]uint32, n)
		for i := range all {
			all[i] = uint32(i)
		}
		return all, nil
	}

	if !rows.IsEmpty() && int(rows.Maximum()) >= n {
		return nil, fmt.Errorf("%w: selected row %d out of range [0, %d)", ErrUsage, rows.Maximum(), n)
	}
	return rows.ToArray(), nil
}
