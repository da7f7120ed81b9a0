package pivot

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eunmann/pivotab/pkg/table"
)

func newT5x5(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.FromBuf([]string{
		"a", "b", "c", "d", "e",
		"1", "2", "3", "4", "5",
		"6", "7", "8", "9", "10",
		"11", "12", "13", "14", "15",
		"11", "7", "3", "14", "2",
		"6", "7", "8", "4", "4",
	}, 5)
	require.NoError(t, err)
	return tbl
}

func newT2x5(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.FromBuf([]string{
		"a", "b",
		"1", "2",
		"2", "1",
		"3", "0",
		"4", "-1",
		"5", "-2",
	}, 2)
	require.NoError(t, err)
	return tbl
}

func groups(name string, values ...string) []Group {
	out := make([]Group, len(values))
	for i, v := range values {
		out[i] = Group{{Name: name, Value: v}}
	}
	return out
}

func TestSumSingleDimensions(t *testing.T) {
	res, err := Sum(newT5x5(t), Request{Rows: []string{"a"}, Cols: []string{"b"}, Measures: []string{"c"}})
	require.NoError(t, err)

	require.Equal(t, groups("a", "1", "6", "11"), res.Rows)
	require.Equal(t, groups("b", "2", "7", "12"), res.Cols)
	require.Equal(t, []string{"c"}, res.Measures)

	require.Equal(t, 3.0, res.Cells["1&2&c"])
	require.Equal(t, 16.0, res.Cells["6&7&c"])
	require.Equal(t, 19.0, res.Cells["*&7&c"])
	require.Equal(t, 3.0, res.Cells["1&*&c"])
	require.Equal(t, 35.0, res.Cells["*&*&c"])

	// 3x3 cells + 3 row margins + 3 col margins + total.
	require.Len(t, res.Cells, 16)
}

func TestSumTwoDimensions(t *testing.T) {
	res, err := Sum(newT5x5(t), Request{Rows: []string{"a", "b"}, Cols: []string{"c", "d"}, Measures: []string{"e"}})
	require.NoError(t, err)

	wantRows := []Group{}
	for _, a := range []string{"1", "6", "11"} {
		for _, b := range []string{"2", "7", "12"} {
			wantRows = append(wantRows, Group{{Name: "a", Value: a}, {Name: "b", Value: b}})
		}
	}
	require.Equal(t, wantRows, res.Rows)

	wantCols := []Group{}
	for _, c := range []string{"3", "8", "13"} {
		for _, d := range []string{"4", "9", "14"} {
			wantCols = append(wantCols, Group{{Name: "c", Value: c}, {Name: "d", Value: d}})
		}
	}
	require.Equal(t, wantCols, res.Cols)
	require.Equal(t, "1/2", res.RowKeys[0])
	require.Equal(t, "13/14", res.ColKeys[8])

	v, ok := res.Cells["6/12&8/4&e"]
	require.True(t, ok)
	require.Equal(t, 0.0, v)
	require.Equal(t, 5.0, res.Cells["*&3/4&e"])
	require.Equal(t, 15.0, res.Cells["11/12&*&e"])
	require.Equal(t, 36.0, res.Cells["*&*&e"])
	require.Len(t, res.Cells, 81+9+9+1)
}

func TestSumVector(t *testing.T) {
	tbl := newT2x5(t)

	ab, err := Sum(tbl, Request{Rows: []string{"a"}, Measures: []string{"b"}})
	require.NoError(t, err)
	require.Equal(t, groups("a", "1", "2", "3", "4", "5"), ab.Rows)
	require.Empty(t, ab.Cols)
	require.Equal(t, 2.0, ab.Cells["1&*&b"])
	require.Equal(t, 0.0, ab.Cells["3&*&b"])
	require.Equal(t, -2.0, ab.Cells["5&*&b"])
	require.Equal(t, 0.0, ab.Cells["*&*&b"])
	require.Len(t, ab.Cells, 6)

	ba, err := Sum(tbl, Request{Cols: []string{"a"}, Measures: []string{"b"}})
	require.NoError(t, err)
	require.Empty(t, ba.Rows)
	require.Equal(t, groups("a", "1", "2", "3", "4", "5"), ba.Cols)
	require.Equal(t, 2.0, ba.Cells["*&1&b"])
	require.Equal(t, 0.0, ba.Cells["*&3&b"])
	require.Equal(t, -2.0, ba.Cells["*&5&b"])
	require.Equal(t, 0.0, ba.Cells["*&*&b"])
}

func TestNoDimensionsOnlyTotals(t *testing.T) {
	res, err := Sum(newT5x5(t), Request{Measures: []string{"c", "e"}})
	require.NoError(t, err)
	require.Empty(t, res.Rows)
	require.Empty(t, res.Cols)
	require.Equal(t, map[string]float64{"*&*&c": 35, "*&*&e": 36}, res.Cells)
}

func TestNoMeasures(t *testing.T) {
	res, err := Sum(newT5x5(t), Request{Rows: []string{"a"}, Cols: []string{"b"}})
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	require.Empty(t, res.Cells)
	require.Empty(t, res.Entries())
}

func TestGrandTotalEqualsColumnSum(t *testing.T) {
	tbl := newT5x5(t)
	for _, m := range tbl.Headers() {
		res, err := Sum(tbl, Request{Rows: []string{"a"}, Cols: []string{"d"}, Measures: []string{m}})
		require.NoError(t, err)

		var want float64
		for r := 0; r < tbl.NumRows(); r++ {
			v, err := tbl.Value(r, m)
			require.NoError(t, err)
			want += ParseNumber(v)
		}
		got, ok := res.Get(res.Wildcard, res.Wildcard, m)
		require.True(t, ok)
		require.Equal(t, want, got, "measure %s", m)
	}
}

func TestMarginConsistency(t *testing.T) {
	res, err := Sum(newT5x5(t), Request{Rows: []string{"a", "b"}, Cols: []string{"c", "d"}, Measures: []string{"e"}})
	require.NoError(t, err)

	for _, rk := range res.RowKeys {
		var sum float64
		for _, ck := range res.ColKeys {
			v, ok := res.Get(rk, ck, "e")
			require.True(t, ok)
			sum += v
		}
		margin, ok := res.Get(rk, res.Wildcard, "e")
		require.True(t, ok)
		require.Equal(t, margin, sum, "row %s", rk)
	}
	for _, ck := range res.ColKeys {
		var sum float64
		for _, rk := range res.RowKeys {
			v, _ := res.Get(rk, ck, "e")
			sum += v
		}
		margin, ok := res.Get(res.Wildcard, ck, "e")
		require.True(t, ok)
		require.Equal(t, margin, sum, "col %s", ck)
	}
}

func TestGroupsHaveOneItemPerDimension(t *testing.T) {
	tbl := newT5x5(t)
	res, err := Sum(tbl, Request{Rows: []string{"a", "b", "d"}, Cols: []string{"e"}, Measures: []string{"c"}})
	require.NoError(t, err)

	want := 1
	for _, h := range []string{"a", "b", "d"} {
		values, err := tbl.Distinct(h)
		require.NoError(t, err)
		want *= len(values)
	}
	require.Len(t, res.Rows, want)
	require.Len(t, res.Cols, 5)
}

func TestAggregateIsIdempotent(t *testing.T) {
	tbl := newT5x5(t)
	req := Request{Rows: []string{"a", "b"}, Cols: []string{"c"}, Measures: []string{"d", "e"}}

	first, err := Sum(tbl, req)
	require.NoError(t, err)
	second, err := Sum(tbl, req)
	require.NoError(t, err)

	require.Equal(t, first.Cells, second.Cells)
	require.Equal(t, first.Entries(), second.Entries())
	require.Equal(t, first.Fingerprint(), second.Fingerprint())

	other, err := Sum(tbl, Request{Rows: []string{"a"}, Cols: []string{"c"}, Measures: []string{"d", "e"}})
	require.NoError(t, err)
	require.NotEqual(t, first.Fingerprint(), other.Fingerprint())
}

func TestUnknownHeaderFailsFast(t *testing.T) {
	tbl := newT5x5(t)
	for _, req := range []Request{
		{Rows: []string{"zz"}, Measures: []string{"c"}},
		{Cols: []string{"zz"}, Measures: []string{"c"}},
		{Rows: []string{"a"}, Measures: []string{"zz"}},
	} {
		res, err := Sum(tbl, req)
		require.Nil(t, res)
		require.ErrorIs(t, err, table.ErrUnknownHeader)
		require.ErrorIs(t, req.Validate(tbl), table.ErrUnknownHeader)
	}
}

func TestNilAggregator(t *testing.T) {
	_, err := Aggregate[float64](newT5x5(t), Request{}, nil)
	require.ErrorIs(t, err, ErrNilAggregator)
}

func TestWildcardCollision(t *testing.T) {
	tbl, err := table.FromBuf([]string{"k", "v", "*", "1", "x", "2"}, 2)
	require.NoError(t, err)

	_, err = Sum(tbl, Request{Rows: []string{"k"}, Measures: []string{"v"}})
	require.ErrorIs(t, err, ErrWildcardCollision)

	res, err := Aggregate(tbl, Request{Rows: []string{"k"}, Measures: []string{"v"}},
		Merge(Default(), Funcs[float64]{Wildcard: "ALL"}))
	require.NoError(t, err)
	require.Equal(t, 1.0, res.Cells["*&ALL&v"])
	require.Equal(t, 3.0, res.Cells["ALL&ALL&v"])
}

func TestKeyCollision(t *testing.T) {
	tbl, err := table.FromBuf([]string{"a", "b", "m", "x/y", "z", "1", "x", "y/z", "10"}, 3)
	require.NoError(t, err)

	req := Request{Rows: []string{"a", "b"}, Measures: []string{"m"}}
	_, err = Sum(tbl, req)
	require.ErrorIs(t, err, ErrKeyCollision)
	require.Contains(t, err.Error(), "x/y/z")

	_, err = Sum(tbl, Request{Cols: []string{"a", "b"}, Measures: []string{"m"}})
	require.ErrorIs(t, err, ErrKeyCollision)

	res, err := Aggregate(tbl, req, Merge(Default(), Funcs[float64]{
		Keys: func(prev, cur string) string { return prev + "|" + cur },
	}))
	require.NoError(t, err)
	require.Equal(t, 1.0, res.Cells["x/y|z&*&m"])
	require.Equal(t, 10.0, res.Cells["x|y/z&*&m"])
}

func TestCellIDCollision(t *testing.T) {
	tbl, err := table.FromBuf([]string{"g", "m", "n", "a", "1", "2"}, 3)
	require.NoError(t, err)

	agg := Merge(Default(), Funcs[float64]{
		RCID: func(row, col, _ string) string { return row + "&" + col },
	})
	_, err = Aggregate(tbl, Request{Rows: []string{"g"}, Measures: []string{"m", "n"}}, agg)
	require.ErrorIs(t, err, ErrKeyCollision)

	var cellErr *CellError
	require.ErrorAs(t, err, &cellErr)
	require.Equal(t, "a&*", cellErr.RCID)

	res, err := Sum(tbl, Request{Rows: []string{"g"}, Measures: []string{"m", "m"}})
	require.NoError(t, err)
	require.Equal(t, 1.0, res.Cells["a&*&m"])
	require.Len(t, res.Cells, 2)
}

func TestPostIfGatesOnGroupIdentity(t *testing.T) {
	calls := 0
	agg := Merge(Default(), Funcs[float64]{
		PostIf: func(row, _ Group) bool {
			calls++
			return row.IsWildcard(DefaultWildcard) || row[0].Value != "6"
		},
	})

	res, err := Aggregate(newT5x5(t), Request{Rows: []string{"a"}, Cols: []string{"b"}, Measures: []string{"c"}}, agg)
	require.NoError(t, err)

	// PostIf runs once per candidate cell, not per row.
	require.Equal(t, 16, calls)

	_, ok := res.Cells["6&7&c"]
	require.False(t, ok)
	_, ok = res.Cells["6&*&c"]
	require.False(t, ok)
	require.Equal(t, 19.0, res.Cells["*&7&c"])
	require.Equal(t, 35.0, res.Cells["*&*&c"])
	require.Len(t, res.Cells, 16-4)
}

func TestKeepGatesOnFinalValue(t *testing.T) {
	agg := Merge(Default(), Funcs[float64]{
		Keep: func(acc float64, _, _ Group) bool { return acc > 10 },
	})

	res, err := Aggregate(newT5x5(t), Request{Rows: []string{"a"}, Cols: []string{"b"}, Measures: []string{"c"}}, agg)
	require.NoError(t, err)

	require.Equal(t, map[string]float64{
		"6&7&c":   16,
		"11&12&c": 13,
		"6&*&c":   16,
		"11&*&c":  16,
		"*&7&c":   19,
		"*&12&c":  13,
		"*&*&c":   35,
	}, res.Cells)
}

func TestCustomKeysAndRCID(t *testing.T) {
	agg := Merge(Default(), Funcs[float64]{
		Keys:     func(prev, cur string) string { return prev + "-" + cur },
		RCID:     func(row, col, measure string) string { return row + "|" + col + "|" + measure },
		Wildcard: "ALL",
	})

	res, err := Aggregate(newT5x5(t), Request{Rows: []string{"a", "b"}, Cols: []string{"c", "d"}, Measures: []string{"e"}}, agg)
	require.NoError(t, err)
	require.Equal(t, 15.0, res.Cells["11-12|ALL|e"])
	require.Equal(t, 5.0, res.Cells["ALL|3-4|e"])
	require.Equal(t, 36.0, res.Cells["ALL|ALL|e"])

	v, ok := res.Get("11-12", "ALL", "e")
	require.True(t, ok)
	require.Equal(t, 15.0, v)
}

func TestAddSeesWildcardGroups(t *testing.T) {
	agg := Merge(Default(), Funcs[float64]{
		Add: func(acc, cur float64, row, col Group) (float64, error) {
			if col.IsWildcard(DefaultWildcard) && !row.IsWildcard(DefaultWildcard) {
				return acc + 100*cur, nil
			}
			return acc + cur, nil
		},
	})

	res, err := Aggregate(newT5x5(t), Request{Rows: []string{"a"}, Cols: []string{"b"}, Measures: []string{"c"}}, agg)
	require.NoError(t, err)
	require.Equal(t, 3.0, res.Cells["1&2&c"])
	require.Equal(t, 300.0, res.Cells["1&*&c"])
	require.Equal(t, 19.0, res.Cells["*&7&c"])
	require.Equal(t, 35.0, res.Cells["*&*&c"])
}

func TestAggregatorErrorsPropagate(t *testing.T) {
	errBoom := errors.New("boom")
	agg := Merge(Default(), Funcs[float64]{
		Cast: func(raw string) (float64, error) {
			if raw == "8" {
				return 0, errBoom
			}
			return ParseNumber(raw), nil
		},
	})

	res, err := Aggregate(newT5x5(t), Request{Rows: []string{"a"}, Cols: []string{"b"}, Measures: []string{"c"}}, agg)
	require.Nil(t, res)
	require.ErrorIs(t, err, errBoom)

	var cellErr *CellError
	require.ErrorAs(t, err, &cellErr)
	require.Equal(t, "6&7&c", cellErr.RCID)
}

func TestGrid(t *testing.T) {
	res, err := Sum(newT5x5(t), Request{Rows: []string{"a"}, Cols: []string{"b"}, Measures: []string{"c"}})
	require.NoError(t, err)

	g := res.Grid("c")
	require.Equal(t, []string{"1", "6", "11", "*"}, g.RowKeys)
	require.Equal(t, []string{"2", "7", "12", "*"}, g.ColKeys)
	require.Equal(t, 16.0, g.Values[1][1])
	require.Equal(t, 19.0, g.Values[3][1])
	require.Equal(t, 35.0, g.Values[3][3])
	for i := range g.Present {
		for j := range g.Present[i] {
			require.True(t, g.Present[i][j])
		}
	}

	missing := res.Grid("nope")
	require.False(t, missing.Present[0][0])
}

func TestEntriesOrder(t *testing.T) {
	res, err := Sum(newT2x5(t), Request{Rows: []string{"a"}, Measures: []string{"b"}})
	require.NoError(t, err)

	entries := res.Entries()
	require.Len(t, entries, 6)
	for _, e := range entries[:5] {
		require.Equal(t, KindRowMargin, e.Kind)
		require.Equal(t, "*", e.ColKey)
	}
	require.Equal(t, KindTotal, entries[5].Kind)
	require.Equal(t, "*&*&b", entries[5].ID)
	require.Equal(t, "row_margin", KindRowMargin.String())
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"", 0},
		{"12", 12},
		{" 12 ", 12},
		{"-2", -2},
		{"1.5", 1.5},
		{"abc", 0},
		{"NaN", 0},
		{"1e500", math.Inf(1)},
		{"-1e500", math.Inf(-1)},
		{".5", 0.5},
		{"5.", 5},
		{"Infinity", math.Inf(1)},
		{"+Infinity", math.Inf(1)},
		{" -Infinity ", math.Inf(-1)},
		{"inf", 0},
		{"+inf", 0},
		{"infinity", 0},
		{"nan", 0},
		{"1_000", 0},
		{"0x10", 16},
		{"0X1f", 31},
		{"0b101", 5},
		{"0o17", 15},
		{"-0x10", 0},
		{"0x", 0},
		{"0xzz", 0},
		{"0x1p3", 0},
		{"1e", 0},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ParseNumber(tt.raw), "ParseNumber(%q)", tt.raw)
	}
}

func TestGroupKeyEmptyGroup(t *testing.T) {
	require.Equal(t, "*", GroupKey(Group{}, Default()))
	require.Equal(t, "x", GroupKey(Group{{Name: "a", Value: "x"}}, Default()))
	require.Equal(t, "x/y", GroupKey(Group{{Name: "a", Value: "x"}, {Name: "b", Value: "y"}}, Default()))
}
