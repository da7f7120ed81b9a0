package guard

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eunmann/pivotab/pkg/humanfmt"
	"github.com/eunmann/pivotab/pkg/pivot"
	"github.com/eunmann/pivotab/pkg/table"
)

func smallTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.FromBuf([]string{
		"region", "year", "sales",
		"eu", "2023", "10",
		"us", "2023", "20",
		"eu", "2024", "30",
	}, 3)
	require.NoError(t, err)
	return tbl
}

func TestResolvePriority(t *testing.T) {
	t.Setenv(EnvMemBudget, "2GiB")

	b, err := Resolve("4GiB")
	require.NoError(t, err)
	require.Equal(t, uint64(4*humanfmt.GiB), b.TotalBytes)
	require.Equal(t, SourceCLI, b.Source)

	b, err = Resolve("")
	require.NoError(t, err)
	require.Equal(t, uint64(2*humanfmt.GiB), b.TotalBytes)
	require.Equal(t, SourceEnv, b.Source)
}

func TestResolveSystem(t *testing.T) {
	t.Setenv(EnvMemBudget, "")

	b, err := Resolve("")
	require.NoError(t, err)
	require.Contains(t, []Source{SourceAuto50Pct, SourceDefault}, b.Source)
	require.NotZero(t, b.TotalBytes)
}

func TestResolveInvalid(t *testing.T) {
	_, err := Resolve("lots")
	require.ErrorContains(t, err, "--mem-budget")

	t.Setenv(EnvMemBudget, "badvalue")
	_, err = Resolve("")
	require.ErrorContains(t, err, EnvMemBudget)
}

func TestCheckTable(t *testing.T) {
	tbl := smallTable(t)
	require.NoError(t, Budget{TotalBytes: humanfmt.MiB}.CheckTable(tbl))
	require.NoError(t, Budget{}.CheckTable(tbl))
	require.ErrorIs(t, Budget{TotalBytes: 8}.CheckTable(tbl), ErrOverBudget)
}

func TestCheckRequest(t *testing.T) {
	tbl := smallTable(t)
	req := pivot.Request{Rows: []string{"region"}, Cols: []string{"year"}, Measures: []string{"sales"}}

	cost, err := Budget{TotalBytes: humanfmt.MiB}.CheckRequest(tbl, req)
	require.NoError(t, err)
	// 2x2 cells + 2 + 2 margins + total.
	require.Equal(t, int64(9), cost.Cells)

	_, err = Budget{TotalBytes: humanfmt.MiB, MaxCells: 8}.CheckRequest(tbl, req)
	require.ErrorIs(t, err, ErrTooManyCells)

	_, err = Budget{TotalBytes: uint64(tbl.EstimateBytes()) + 10}.CheckRequest(tbl, req)
	require.ErrorIs(t, err, ErrOverBudget)

	_, err = Budget{}.CheckRequest(tbl, pivot.Request{Rows: []string{"nope"}})
	require.ErrorIs(t, err, table.ErrUnknownHeader)
}
