package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/eunmann/pivotab/pkg/humanfmt"
	"github.com/eunmann/pivotab/pkg/source"
)

func runDescribe(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("describe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f commonFlags
	f.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx, err := f.setup(ctx, stderr, "describe")
	if err != nil {
		return err
	}

	t, err := source.Load(ctx, f.in, f.sources)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "rows: %s\n", humanfmt.Count(int64(t.NumRows())))
	fmt.Fprintf(stdout, "cols: %d\n", t.NumCols())
	fmt.Fprintf(stdout, "size: ~%s\n", humanfmt.Bytes(t.EstimateBytes()))
	if dups := t.Duplicates(); len(dups) > 0 {
		fmt.Fprintf(stdout, "duplicate headers: %v\n", dups)
	}
	fmt.Fprintln(stdout)

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "header\tdistinct")
	for _, h := range t.Headers() {
		d, err := t.Distinct(h)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\n", h, humanfmt.Count(int64(len(d))))
	}
	return tw.Flush()
}
