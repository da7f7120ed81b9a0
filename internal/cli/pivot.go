package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/eunmann/pivotab/internal/logctx"
	"github.com/eunmann/pivotab/pkg/fileutil"
	"github.com/eunmann/pivotab/pkg/guard"
	"github.com/eunmann/pivotab/pkg/humanfmt"
	"github.com/eunmann/pivotab/pkg/memdiag"
	"github.com/eunmann/pivotab/pkg/pivot"
	"github.com/eunmann/pivotab/pkg/sink"
	"github.com/eunmann/pivotab/pkg/source"
	"github.com/eunmann/pivotab/pkg/table"
)

type pivotFlags struct {
	commonFlags
	rows        string
	cols        string
	measures    string
	agg         string
	sqlitePath  string
	sqliteTable string
	parquetPath string
	digest      bool
	quiet       bool
	parallel    int
	maxCells    int64
	memBudget   string
}

// pivotRun carries what emit needs besides the aggregator.
type pivotRun struct {
	flags   *pivotFlags
	stdout  io.Writer
	table   *table.Table
	reqs    []pivot.Request
	budget  guard.Budget
	tracker *memdiag.Tracker
}

func runPivot(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("pivot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f pivotFlags
	f.register(fs)
	fs.StringVar(&f.rows, "rows", "", "comma-separated row headers")
	fs.StringVar(&f.cols, "cols", "", "comma-separated column headers; separate alternative layouts with ';'")
	fs.StringVar(&f.measures, "measures", "", "comma-separated measure headers")
	fs.StringVar(&f.agg, "agg", "sum", "aggregation: sum, count, mean, min, max or distinct")
	fs.StringVar(&f.sqlitePath, "sqlite", "", "write cells to this SQLite database")
	fs.StringVar(&f.sqliteTable, "sqlite-table", sink.DefaultTableName, "SQLite table name")
	fs.StringVar(&f.parquetPath, "parquet", "", "write cells to this Parquet file")
	fs.BoolVar(&f.digest, "digest", false, "print the result fingerprint")
	fs.BoolVar(&f.quiet, "quiet", false, "do not print grids")
	fs.IntVar(&f.parallel, "parallel", runtime.NumCPU(), "layouts aggregated concurrently")
	fs.Int64Var(&f.maxCells, "max-cells", 0, "maximum cells per layout (0 = unbounded)")
	fs.StringVar(&f.memBudget, "mem-budget", "", "memory budget, e.g. 4GiB (default: "+guard.EnvMemBudget+" or 50% of RAM)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, err := f.setup(ctx, stderr, "pivot")
	if err != nil {
		return err
	}
	reqs, err := f.requests()
	if err != nil {
		return err
	}
	if f.maxCells < 0 {
		return errors.New("--max-cells must be >= 0")
	}

	budget, err := guard.Resolve(f.memBudget)
	if err != nil {
		return err
	}
	budget.MaxCells = f.maxCells

	log := logctx.FromContext(ctx)
	log.Info().
		Str("mem_budget", humanfmt.Bytes(int64(budget.TotalBytes))).
		Str("budget_source", string(budget.Source)).
		Msg("memory budget configured")

	diag := memdiag.DefaultConfig()
	diag.Enabled = diag.Enabled || f.debug
	tracker := memdiag.NewTracker(diag, log)
	tracker.Start()
	defer tracker.Stop()

	tracker.SetPhase("load")
	t, err := source.Load(ctx, f.in, f.sources)
	if err != nil {
		return err
	}

	tracker.SetPhase("build")
	if err := budget.CheckTable(t); err != nil {
		return err
	}
	for i, req := range reqs {
		cost, err := budget.CheckRequest(t, req)
		if err != nil {
			return err
		}
		log.Info().
			Str("phase", "build").
			Int("layout", i).
			Str("cells", humanfmt.Count(cost.Cells)).
			Str("row_scans", humanfmt.Count(cost.RowScans)).
			Msg("request accepted")
	}

	run := &pivotRun{flags: &f, stdout: stdout, table: t, reqs: reqs, budget: budget, tracker: tracker}
	switch f.agg {
	case "sum":
		return emit(ctx, run, pivot.Default(), sink.Float)
	case "count":
		return emit(ctx, run, pivot.Count(), sink.Float)
	case "min":
		return emit(ctx, run, pivot.Min(), extremeValue)
	case "max":
		return emit(ctx, run, pivot.Max(), extremeValue)
	case "mean":
		return emit(ctx, run, pivot.Mean(),
			func(m pivot.MeanState) float64 { return m.Mean })
	case "distinct":
		return emit(ctx, run, pivot.DistinctCount(),
			func(d pivot.DistinctState) float64 { return float64(d.Count) })
	default:
		return fmt.Errorf("invalid --agg %q (want sum, count, mean, min, max or distinct)", f.agg)
	}
}

func extremeValue(e pivot.ExtremeState) float64 { return e.Value }

// requests expands the flags into one request per column layout.
func (f *pivotFlags) requests() ([]pivot.Request, error) {
	rows := splitList(f.rows)
	measures := splitList(f.measures)
	if len(measures) == 0 {
		return nil, errors.New("--measures is required")
	}
	switch f.agg {
	case "sum", "count", "mean", "min", "max", "distinct":
	default:
		return nil, fmt.Errorf("invalid --agg %q (want sum, count, mean, min, max or distinct)", f.agg)
	}

	layouts := strings.Split(f.cols, ";")
	if len(layouts) > 1 && (f.sqlitePath != "" || f.parquetPath != "") {
		return nil, errors.New("--sqlite and --parquet need a single --cols layout")
	}
	reqs := make([]pivot.Request, len(layouts))
	for i, cols := range layouts {
		reqs[i] = pivot.Request{Rows: rows, Cols: splitList(cols), Measures: measures}
	}
	return reqs, nil
}

// emit aggregates every layout and writes the results to the requested
// outputs.
func emit[T any](ctx context.Context, run *pivotRun, agg pivot.Aggregator[T], value func(T) float64) error {
	f := run.flags
	log := logctx.FromContext(ctx)

	run.tracker.SetPhase("aggregate")
	start := time.Now()
	results, err := pivot.AggregateAll(ctx, run.table, run.reqs, agg, f.parallel)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	var cells int
	for _, res := range results {
		cells += len(res.Cells)
	}
	log.Info().
		Str("phase", "aggregate").
		Str("agg", f.agg).
		Int("layouts", len(results)).
		Str("cells", humanfmt.Count(int64(cells))).
		Str("elapsed", humanfmt.Duration(time.Since(start))).
		Msg("aggregation complete")
	run.tracker.LogWithBudget("after_aggregate", run.budget.TotalBytes)

	for i, res := range results {
		if len(results) > 1 {
			if i > 0 {
				fmt.Fprintln(run.stdout)
			}
			fmt.Fprintf(run.stdout, "# cols: %s\n", strings.Join(run.reqs[i].Cols, ","))
		}
		if err := writeResult(run.stdout, f, res, value); err != nil {
			return err
		}
	}

	if f.sqlitePath == "" && f.parquetPath == "" {
		return nil
	}
	run.tracker.SetPhase("sink")
	records := sink.Records(results[0], value)
	if f.sqlitePath != "" {
		if err := sink.WriteSQLite(ctx, f.sqlitePath, f.sqliteTable, records); err != nil {
			return fmt.Errorf("write sqlite: %w", err)
		}
	}
	if f.parquetPath != "" {
		if err := writeParquetFile(ctx, f.parquetPath, records); err != nil {
			return err
		}
	}
	return nil
}

func writeResult[T any](w io.Writer, f *pivotFlags, res *pivot.Result[T], value func(T) float64) error {
	if !f.quiet {
		for i, m := range res.Measures {
			if i > 0 {
				fmt.Fprintln(w)
			}
			if err := sink.WriteText(w, sink.FloatGrid(res.Grid(m), value)); err != nil {
				return err
			}
		}
	}
	if f.digest {
		fmt.Fprintf(w, "digest %016x\n", res.Fingerprint())
	}
	return nil
}

func writeParquetFile(ctx context.Context, path string, records []sink.Record) error {
	start := time.Now()
	err := fileutil.WriteTmpThenMove(path, func(w io.Writer) error {
		return sink.WriteParquet(w, records)
	})
	if err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	log := logctx.FromContext(ctx)
	log.Info().
		Str("phase", "sink").
		Str("path", path).
		Str("rows", humanfmt.Count(int64(len(records)))).
		Str("elapsed", humanfmt.Duration(time.Since(start))).
		Msg("wrote parquet file")
	return nil
}
