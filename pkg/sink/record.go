// Package sink writes pivot results to SQLite, Parquet and text.
package sink

import (
	"github.com/eunmann/pivotab/pkg/pivot"
)

// Record is one stored cell of a result, flattened for tabular output.
// Margins carry the result's wildcard in their unconstrained key.
type Record struct {
	RowKey  string  `parquet:"row_key"`
	ColKey  string  `parquet:"col_key"`
	Measure string  `parquet:"measure"`
	Kind    string  `parquet:"kind"`
	Value   float64 `parquet:"value"`
}

// Records flattens r in computation order: cells, row margins, column
// margins, totals. value converts an accumulated value to a number.
func Records[T any](r *pivot.Result[T], value func(T) float64) []Record {
	entries := r.Entries()
	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		out = append(out, Record{
			RowKey:  e.RowKey,
			ColKey:  e.ColKey,
			Measure: e.Measure,
			Kind:    e.Kind.String(),
			Value:   value(r.Cells[e.ID]),
		})
	}
	return out
}

// Float is the value func for float64 results.
func Float(v float64) float64 { return v }
