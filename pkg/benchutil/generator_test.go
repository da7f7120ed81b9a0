package benchutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeneratorDeterministic(t *testing.T) {
	a, wa := NewGenerator(DefaultConfig(100)).Buffer()
	b, wb := NewGenerator(DefaultConfig(100)).Buffer()
	require.Equal(t, wa, wb)
	require.Equal(t, a, b)
}

func TestGeneratorShape(t *testing.T) {
	cfg := DefaultConfig(500)
	tbl := NewGenerator(cfg).Table(t)

	require.Equal(t, []string{"region", "product", "year", "units", "revenue"}, tbl.Headers())
	require.Equal(t, 500, tbl.NumRows())
	for _, d := range cfg.Dimensions {
		vals, err := tbl.Distinct(d.Name)
		require.NoError(t, err)
		require.LessOrEqual(t, len(vals), d.Cardinality)
	}
}
