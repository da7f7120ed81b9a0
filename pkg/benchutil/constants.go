package benchutil

import (
	"os"
	"testing"
)

// BenchmarkSeed is the default seed for reproducible benchmark data generation.
const BenchmarkSeed = 42

// BenchmarkSizes are row counts for quick runs.
var BenchmarkSizes = []int{1000, 10000, 100000}

// ScalingSizes are larger row counts, used with PIVOTAB_LONG_BENCH=1.
var ScalingSizes = []int{250000, 500000, 1000000}

// SkipIfNoLongBench skips the benchmark if PIVOTAB_LONG_BENCH is not set.
func SkipIfNoLongBench(b *testing.B) {
	if os.Getenv("PIVOTAB_LONG_BENCH") == "" {
		b.Skip("set PIVOTAB_LONG_BENCH=1 to run scaling benchmark")
	}
}
