package pivot

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Kind classifies a stored cell.
type Kind uint8

const (
	// KindCell is a fully constrained (row-group, col-group) cell.
	KindCell Kind = iota
	// KindRowMargin is constrained by a row-group only.
	KindRowMargin
	// KindColMargin is constrained by a col-group only.
	KindColMargin
	// KindTotal is the unconstrained grand total.
	KindTotal
)

func (k Kind) String() string {
	switch k {
	case KindCell:
		return "cell"
	case KindRowMargin:
		return "row_margin"
	case KindColMargin:
		return "col_margin"
	case KindTotal:
		return "total"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Entry describes one stored cell.
type Entry struct {
	ID      string
	RowKey  string
	ColKey  string
	Measure string
	Kind    Kind
}

// Result is the output of Aggregate. It is not modified after it is returned.
type Result[T any] struct {
	// Rows and Cols are the enumerated groups in odometer order.
	Rows []Group
	Cols []Group
	// Measures are the requested measure headers, in request order.
	Measures []string
	// RowKeys and ColKeys are the folded keys of Rows and Cols.
	RowKeys []string
	ColKeys []string
	// Wildcard is the key used for unconstrained dimensions.
	Wildcard string
	// Cells maps composite cell identifiers to post-processed values.
	Cells map[string]T

	rcid    func(row, col, measure string) string
	entries []Entry
}

// Get returns the cell for the given row key, col key and measure.
func (r *Result[T]) Get(rowKey, colKey, measure string) (T, bool) {
	v, ok := r.Cells[r.rcid(rowKey, colKey, measure)]
	return v, ok
}

// Entries returns the stored cells in computation order: cells, row margins,
// column margins, totals.
func (r *Result[T]) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Fingerprint hashes the stored cells in computation order. Two results with
// the same cells in the same order have the same fingerprint.
func (r *Result[T]) Fingerprint() uint64 {
	d := xxhash.New()
	for _, e := range r.entries {
		_, _ = d.WriteString(e.ID)
		_, _ = d.Write([]byte{0})
		_, _ = fmt.Fprint(d, r.Cells[e.ID])
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}

// Grid is one measure laid out as a matrix. The last row and last column hold
// the margins; Values[len(RowKeys)-1][len(ColKeys)-1] is the grand total.
type Grid[T any] struct {
	Measure string
	RowKeys []string
	ColKeys []string
	Values  [][]T
	Present [][]bool
}

// Grid lays out measure with margins appended as the last row and column.
// Cells that were gated out are reported as absent.
func (r *Result[T]) Grid(measure string) Grid[T] {
	g := Grid[T]{
		Measure: measure,
		RowKeys: append(append([]string(nil), r.RowKeys...), r.Wildcard),
		ColKeys: append(append([]string(nil), r.ColKeys...), r.Wildcard),
	}
	g.Values = make([][]T, len(g.RowKeys))
	g.Present = make([][]bool, len(g.RowKeys))
	for i, rk := range g.RowKeys {
		g.Values[i] = make([]T, len(g.ColKeys))
		g.Present[i] = make([]bool, len(g.ColKeys))
		for j, ck := range g.ColKeys {
			g.Values[i][j], g.Present[i][j] = r.Get(rk, ck, measure)
		}
	}
	return g
}
