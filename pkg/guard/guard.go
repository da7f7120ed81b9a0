// Package guard bounds the cost of loading a table and pivoting it.
//
// Aggregation cost grows with the product of the requested dimensions'
// cardinalities times the row count, and the engine itself has no
// cancellation, so the host checks a request against a Budget before running
// it.
package guard

import (
	"errors"
	"fmt"
	"os"

	"github.com/eunmann/pivotab/pkg/humanfmt"
	"github.com/eunmann/pivotab/pkg/pivot"
	"github.com/eunmann/pivotab/pkg/table"
)

// DefaultBudgetBytes is used when system memory cannot be detected.
const DefaultBudgetBytes uint64 = 8 * humanfmt.GiB

// EnvMemBudget is the environment variable consulted by Resolve.
const EnvMemBudget = "PIVOTAB_MEM_BUDGET"

// cellBytes approximates the memory held per result cell (map entry, key
// string, entry record).
const cellBytes = 128

var (
	// ErrOverBudget indicates the estimated memory exceeds the budget.
	ErrOverBudget = errors.New("memory budget exceeded")
	// ErrTooManyCells indicates a request would compute more cells than allowed.
	ErrTooManyCells = errors.New("too many cells")
)

// Source records how a Budget's byte limit was chosen.
type Source string

const (
	SourceCLI       Source = "cli"
	SourceEnv       Source = "env"
	SourceAuto50Pct Source = "auto-50pct"
	SourceDefault   Source = "default"
)

// Budget limits memory and cell count for one run.
type Budget struct {
	// TotalBytes bounds the table plus the result.
	TotalBytes uint64
	// MaxCells bounds the cells one request may compute; 0 means unbounded.
	MaxCells int64
	Source   Source
}

// FromSystem returns a budget of half the detected system RAM, or
// DefaultBudgetBytes when detection is unavailable.
func FromSystem() Budget {
	total, ok := totalSystemMemory()
	if !ok || total == 0 {
		return Budget{TotalBytes: DefaultBudgetBytes, Source: SourceDefault}
	}
	return Budget{TotalBytes: total / 2, Source: SourceAuto50Pct}
}

// Resolve picks the byte limit from the CLI value, then EnvMemBudget, then
// FromSystem.
func Resolve(cliValue string) (Budget, error) {
	if cliValue != "" {
		n, err := humanfmt.ParseSize(cliValue)
		if err != nil {
			return Budget{}, fmt.Errorf("invalid --mem-budget: %w", err)
		}
		return Budget{TotalBytes: n, Source: SourceCLI}, nil
	}
	if env := os.Getenv(EnvMemBudget); env != "" {
		n, err := humanfmt.ParseSize(env)
		if err != nil {
			return Budget{}, fmt.Errorf("invalid %s: %w", EnvMemBudget, err)
		}
		return Budget{TotalBytes: n, Source: SourceEnv}, nil
	}
	return FromSystem(), nil
}

// CheckTable fails if the table alone exceeds the byte limit.
func (b Budget) CheckTable(t *table.Table) error {
	if b.TotalBytes == 0 {
		return nil
	}
	if n := uint64(t.EstimateBytes()); n > b.TotalBytes {
		return fmt.Errorf("table needs ~%s of %s: %w",
			humanfmt.Bytes(int64(n)), humanfmt.Bytes(int64(b.TotalBytes)), ErrOverBudget)
	}
	return nil
}

// CheckRequest estimates req against t and fails if it exceeds MaxCells or,
// together with the table, the byte limit.
func (b Budget) CheckRequest(t *table.Table, req pivot.Request) (pivot.Cost, error) {
	cost, err := pivot.Estimate(t, req)
	if err != nil {
		return cost, err
	}
	if b.MaxCells > 0 && cost.Cells > b.MaxCells {
		return cost, fmt.Errorf("request computes %s cells, limit %s: %w",
			humanfmt.Count(cost.Cells), humanfmt.Count(b.MaxCells), ErrTooManyCells)
	}
	if b.TotalBytes == 0 {
		return cost, nil
	}
	need := uint64(t.EstimateBytes())
	if cost.Cells > int64(b.TotalBytes/cellBytes) {
		need = b.TotalBytes + 1
	} else {
		need += uint64(cost.Cells) * cellBytes
	}
	if need > b.TotalBytes {
		return cost, fmt.Errorf("table and result need more than %s: %w",
			humanfmt.Bytes(int64(b.TotalBytes)), ErrOverBudget)
	}
	return cost, nil
}
