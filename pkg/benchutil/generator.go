// Package benchutil provides synthetic table generation for benchmarks and
// testing.
package benchutil

import (
	"fmt"
	"math/rand"
	"strconv"
	"testing"

	"github.com/eunmann/pivotab/pkg/table"
)

// Dimension describes a generated categorical column.
type Dimension struct {
	Name string
	// Cardinality is the number of distinct values the column takes.
	Cardinality int
}

// GeneratorConfig configures synthetic table generation.
type GeneratorConfig struct {
	// Rows is the number of body rows to generate.
	Rows int
	// Dimensions are categorical columns, in header order.
	Dimensions []Dimension
	// Measures are numeric columns following the dimensions.
	Measures []string
	// MaxValue bounds generated measure values, exclusive.
	MaxValue int
	// Seed for reproducible generation. 0 = use default seed.
	Seed int64
}

// DefaultConfig returns a sales-like table: region x product x year with two
// measures.
func DefaultConfig(rows int) GeneratorConfig {
	return GeneratorConfig{
		Rows: rows,
		Dimensions: []Dimension{
			{Name: "region", Cardinality: 4},
			{Name: "product", Cardinality: 12},
			{Name: "year", Cardinality: 5},
		},
		Measures: []string{"units", "revenue"},
		MaxValue: 1000,
		Seed:     BenchmarkSeed,
	}
}

// Generator produces flat table buffers.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// NewGenerator creates a new data generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = BenchmarkSeed
	}
	if cfg.MaxValue <= 0 {
		cfg.MaxValue = 1000
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Headers returns the generated header row.
func (g *Generator) Headers() []string {
	h := make([]string, 0, len(g.cfg.Dimensions)+len(g.cfg.Measures))
	for _, d := range g.cfg.Dimensions {
		h = append(h, d.Name)
	}
	return append(h, g.cfg.Measures...)
}

// Buffer returns a header-first flat buffer and its header count, ready for
// table.FromBuf.
func (g *Generator) Buffer() ([]string, int) {
	headers := g.Headers()
	width := len(headers)
	buf := make([]string, 0, width*(g.cfg.Rows+1))
	buf = append(buf, headers...)

	for range g.cfg.Rows {
		for _, d := range g.cfg.Dimensions {
			buf = append(buf, fmt.Sprintf("%s_%d", d.Name, g.rng.Intn(max(d.Cardinality, 1))))
		}
		for range g.cfg.Measures {
			buf = append(buf, strconv.Itoa(g.rng.Intn(g.cfg.MaxValue)))
		}
	}
	return buf, width
}

// Table builds a table from Buffer, failing tb on error.
func (g *Generator) Table(tb testing.TB) *table.Table {
	tb.Helper()
	buf, headers := g.Buffer()
	t, err := table.FromBuf(buf, headers)
	if err != nil {
		tb.Fatalf("build synthetic table: %v", err)
	}
	return t
}
