package sink

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/eunmann/pivotab/pkg/pivot"
)

// WriteText renders one measure's grid as an aligned table. The last row and
// column are the margins; gated-out cells print as "-".
func WriteText[T any](w io.Writer, g pivot.Grid[T]) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(tw, "%s\t", g.Measure)
	for _, ck := range g.ColKeys {
		fmt.Fprintf(tw, "%s\t", ck)
	}
	fmt.Fprintln(tw)

	for i, rk := range g.RowKeys {
		fmt.Fprintf(tw, "%s\t", rk)
		for j := range g.ColKeys {
			if g.Present[i][j] {
				fmt.Fprintf(tw, "%v\t", g.Values[i][j])
			} else {
				fmt.Fprint(tw, "-\t")
			}
		}
		fmt.Fprintln(tw)
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write text grid: %w", err)
	}
	return nil
}

// FloatGrid converts g's values with value, keeping the layout and presence
// flags.
func FloatGrid[T any](g pivot.Grid[T], value func(T) float64) pivot.Grid[float64] {
	out := pivot.Grid[float64]{
		Measure: g.Measure,
		RowKeys: g.RowKeys,
		ColKeys: g.ColKeys,
		Values:  make([][]float64, len(g.Values)),
		Present: g.Present,
	}
	for i, row := range g.Values {
		out.Values[i] = make([]float64, len(row))
		for j, v := range row {
			out.Values[i][j] = value(v)
		}
	}
	return out
}
