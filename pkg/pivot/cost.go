package pivot

import (
	"fmt"
	"math"

	"github.com/eunmann/pivotab/pkg/table"
)

// Cost is the work a Request implies against a table.
type Cost struct {
	RowGroups int64
	ColGroups int64
	// Cells is the number of cells computed, margins included.
	Cells int64
	// RowScans is Cells times the table's row count.
	RowScans int64
}

// Estimate computes the cost of req against t without scanning any rows.
// Products saturate at math.MaxInt64.
func Estimate(t *table.Table, req Request) (Cost, error) {
	if err := req.Validate(t); err != nil {
		return Cost{}, err
	}
	rowGroups, err := groupCount(t, req.Rows)
	if err != nil {
		return Cost{}, fmt.Errorf("estimate rows: %w", err)
	}
	colGroups, err := groupCount(t, req.Cols)
	if err != nil {
		return Cost{}, fmt.Errorf("estimate cols: %w", err)
	}

	perMeasure := satAdd(satAdd(satMul(rowGroups, colGroups), rowGroups), satAdd(colGroups, 1))
	cells := satMul(perMeasure, int64(len(req.Measures)))
	return Cost{
		RowGroups: rowGroups,
		ColGroups: colGroups,
		Cells:     cells,
		RowScans:  satMul(cells, int64(t.NumRows())),
	}, nil
}

func groupCount(t *table.Table, headers []string) (int64, error) {
	if len(headers) == 0 {
		return 0, nil
	}
	n := int64(1)
	for _, h := range headers {
		values, err := t.Distinct(h)
		if err != nil {
			return 0, err
		}
		n = satMul(n, int64(len(values)))
	}
	return n, nil
}

func satMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}

func satAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
