// Package pivot cross-tabulates a table.Table.
//
// Row headers and column headers are expanded into the Cartesian product of
// their distinct values, and every (row-group, col-group, measure) cell is
// folded through an Aggregator by a linear scan over the source rows. Row
// margins, column margins and a grand total are keyed with the aggregator's
// wildcard.
//
// Usage:
//
//	t, _ := table.FromBuf(buf, 5)
//	res, err := pivot.Sum(t, pivot.Request{
//	    Rows:     []string{"region"},
//	    Cols:     []string{"year"},
//	    Measures: []string{"revenue"},
//	})
//	total, _ := res.Get(res.Wildcard, res.Wildcard, "revenue")
package pivot

import (
	"errors"
	"fmt"

	"github.com/eunmann/pivotab/pkg/table"
)

// ErrWildcardCollision indicates a group key equal to the aggregator's
// wildcard, which would make cells and margins share identifiers.
var ErrWildcardCollision = errors.New("group key collides with wildcard")

// ErrKeyCollision indicates two distinct groups, or two distinct cells, that
// render to the same key under the aggregator's Keys or RCID.
var ErrKeyCollision = errors.New("key collision")

// CellError wraps an error returned by an Aggregator while computing a cell.
type CellError struct {
	RCID string
	Err  error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("cell %q: %v", e.RCID, e.Err)
}

func (e *CellError) Unwrap() error {
	return e.Err
}

// Sum aggregates t with the Default numeric-sum contract.
func Sum(t *table.Table, req Request) (*Result[float64], error) {
	return Aggregate(t, req, Default())
}

// Aggregate computes the pivot of t described by req. It does not modify t
// and holds no state between calls. Any lookup miss or Aggregator error
// aborts the whole call; no partial result is returned.
func Aggregate[T any](t *table.Table, req Request, agg Aggregator[T]) (*Result[T], error) {
	if agg == nil {
		return nil, ErrNilAggregator
	}

	rowDims, err := resolveDimensions(t, req.Rows)
	if err != nil {
		return nil, fmt.Errorf("resolve rows: %w", err)
	}
	colDims, err := resolveDimensions(t, req.Cols)
	if err != nil {
		return nil, fmt.Errorf("resolve cols: %w", err)
	}
	measureCols := make([]int, len(req.Measures))
	for i, m := range req.Measures {
		col, ok := t.Col(m)
		if !ok {
			return nil, fmt.Errorf("resolve measures: %w", &table.HeaderError{Name: m})
		}
		measureCols[i] = col
	}

	rows, rowCons := enumerate(rowDims)
	cols, colCons := enumerate(colDims)
	wkey := agg.Wildcard()

	res := &Result[T]{
		Rows:     rows,
		Cols:     cols,
		Measures: append([]string(nil), req.Measures...),
		RowKeys:  make([]string, len(rows)),
		ColKeys:  make([]string, len(cols)),
		Wildcard: wkey,
		Cells:    make(map[string]T),
		rcid:     agg.RCID,
	}
	if err := groupKeys(res.RowKeys, rows, agg, "row"); err != nil {
		return nil, err
	}
	if err := groupKeys(res.ColKeys, cols, agg, "col"); err != nil {
		return nil, err
	}

	s := scanner[T]{t: t, agg: agg, res: res, seen: make(map[string]Entry)}
	wild := WildcardGroup(wkey)

	for ri, row := range rows {
		for ci, col := range cols {
			cons := make([]constraint, 0, len(rowCons[ri])+len(colCons[ci]))
			cons = append(cons, rowCons[ri]...)
			cons = append(cons, colCons[ci]...)
			for mi, m := range req.Measures {
				e := Entry{RowKey: res.RowKeys[ri], ColKey: res.ColKeys[ci], Measure: m, Kind: KindCell}
				if err := s.fold(e, row, col, cons, measureCols[mi]); err != nil {
					return nil, err
				}
			}
		}
	}

	for ri, row := range rows {
		for mi, m := range req.Measures {
			e := Entry{RowKey: res.RowKeys[ri], ColKey: wkey, Measure: m, Kind: KindRowMargin}
			if err := s.fold(e, row, wild, rowCons[ri], measureCols[mi]); err != nil {
				return nil, err
			}
		}
	}

	for ci, col := range cols {
		for mi, m := range req.Measures {
			e := Entry{RowKey: wkey, ColKey: res.ColKeys[ci], Measure: m, Kind: KindColMargin}
			if err := s.fold(e, wild, col, colCons[ci], measureCols[mi]); err != nil {
				return nil, err
			}
		}
	}

	for mi, m := range req.Measures {
		e := Entry{RowKey: wkey, ColKey: wkey, Measure: m, Kind: KindTotal}
		if err := s.fold(e, wild, wild, nil, measureCols[mi]); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// groupKeys fills keys with the rendered key of each group, rejecting keys
// equal to the wildcard or shared by two groups.
func groupKeys[T any](keys []string, groups []Group, agg Aggregator[T], axis string) error {
	wkey := agg.Wildcard()
	seen := make(map[string]int, len(groups))
	for i, g := range groups {
		keys[i] = GroupKey(g, agg)
		if keys[i] == wkey {
			return fmt.Errorf("%s group %v: %w", axis, g.Values(), ErrWildcardCollision)
		}
		if prev, dup := seen[keys[i]]; dup {
			return fmt.Errorf("%s groups %v and %v share key %q: %w",
				axis, groups[prev].Values(), g.Values(), keys[i], ErrKeyCollision)
		}
		seen[keys[i]] = i
	}
	return nil
}

type scanner[T any] struct {
	t    *table.Table
	agg  Aggregator[T]
	res  *Result[T]
	seen map[string]Entry
}

// fold computes one cell by scanning every source row that satisfies cons.
func (s *scanner[T]) fold(e Entry, row, col Group, cons []constraint, measureCol int) error {
	if !s.agg.PostIf(row, col) {
		return nil
	}
	e.ID = s.agg.RCID(e.RowKey, e.ColKey, e.Measure)

	acc := s.agg.Zero()
	for r := 0; r < s.t.NumRows(); r++ {
		if !matches(s.t, r, cons) {
			continue
		}
		cur, err := s.agg.Cast(s.t.Get(r, measureCol))
		if err != nil {
			return &CellError{RCID: e.ID, Err: err}
		}
		acc, err = s.agg.Add(acc, cur, row, col)
		if err != nil {
			return &CellError{RCID: e.ID, Err: err}
		}
	}

	if !s.agg.Keep(acc, row, col) {
		return nil
	}
	// A measure requested twice yields the same entry again; anything else
	// sharing an ID would silently overwrite a different cell.
	if prev, dup := s.seen[e.ID]; dup {
		if prev != e {
			return &CellError{RCID: e.ID, Err: ErrKeyCollision}
		}
	} else {
		s.seen[e.ID] = e
		s.res.entries = append(s.res.entries, e)
	}
	s.res.Cells[e.ID] = s.agg.Post(acc)
	return nil
}
