package pivot

import "math"

// Count counts matching rows regardless of the measure's content.
func Count() Aggregator[float64] {
	return Merge(Default(), Funcs[float64]{
		Cast: func(string) (float64, error) { return 1, nil },
	})
}

// ExtremeState holds the running minimum or maximum. Seen is false until a
// row matches, so an empty cell is distinguishable from a real ±Inf.
type ExtremeState struct {
	Value float64
	Seen  bool
}

// Min keeps the smallest numeric value. Cells with no matching rows have
// Seen false and Value 0.
func Min() Aggregator[ExtremeState] {
	return extreme(math.Min)
}

// Max keeps the largest numeric value. Cells with no matching rows have
// Seen false and Value 0.
func Max() Aggregator[ExtremeState] {
	return extreme(math.Max)
}

func extreme(pick func(a, b float64) float64) Aggregator[ExtremeState] {
	agg, _ := New(Funcs[ExtremeState]{
		Cast: func(raw string) (ExtremeState, error) {
			return ExtremeState{Value: ParseNumber(raw), Seen: true}, nil
		},
		Add: func(acc, cur ExtremeState, _, _ Group) (ExtremeState, error) {
			if !acc.Seen {
				return cur, nil
			}
			return ExtremeState{Value: pick(acc.Value, cur.Value), Seen: true}, nil
		},
	})
	return agg
}

// MeanState accumulates a running sum and count; Post fills Mean.
type MeanState struct {
	Sum  float64
	N    int
	Mean float64
}

// Mean averages the numeric values of matching rows.
func Mean() Aggregator[MeanState] {
	agg, _ := New(Funcs[MeanState]{
		Cast: func(raw string) (MeanState, error) {
			return MeanState{Sum: ParseNumber(raw), N: 1}, nil
		},
		Add: func(acc, cur MeanState, _, _ Group) (MeanState, error) {
			return MeanState{Sum: acc.Sum + cur.Sum, N: acc.N + cur.N}, nil
		},
		Post: func(acc MeanState) MeanState {
			if acc.N > 0 {
				acc.Mean = acc.Sum / float64(acc.N)
			}
			return acc
		},
	})
	return agg
}

// DistinctState tracks the set of raw values seen in a cell.
type DistinctState struct {
	Raw    string
	Values map[string]struct{}
	Count  int
}

// DistinctCount counts the distinct raw values of the measure in each cell.
func DistinctCount() Aggregator[DistinctState] {
	agg, _ := New(Funcs[DistinctState]{
		Cast: func(raw string) (DistinctState, error) {
			return DistinctState{Raw: raw}, nil
		},
		Add: func(acc, cur DistinctState, _, _ Group) (DistinctState, error) {
			acc.Values[cur.Raw] = struct{}{}
			acc.Count = len(acc.Values)
			return acc, nil
		},
		Zero: func() DistinctState {
			return DistinctState{Values: make(map[string]struct{})}
		},
	})
	return agg
}
