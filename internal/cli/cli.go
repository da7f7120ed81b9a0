// Package cli implements the command-line interface for pivotab.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/eunmann/pivotab/internal/logctx"
	"github.com/eunmann/pivotab/pkg/source"
)

const usage = "usage: pivotab <command> [options]\ncommands: pivot, describe"

// Run executes the CLI with the given arguments, writing results to stdout
// and logs to stderr.
func Run(args []string) error {
	return run(context.Background(), args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	switch args[0] {
	case "pivot":
		return runPivot(ctx, args[1:], stdout, stderr)
	case "describe":
		return runDescribe(ctx, args[1:], stdout, stderr)
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

// commonFlags are shared by every subcommand that loads a table.
type commonFlags struct {
	in      string
	format  string
	tmpDir  string
	debug   bool
	human   bool
	sources source.Options
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.in, "in", "", "source table: local path or s3://bucket/key")
	fs.StringVar(&c.format, "format", "auto", "source format: auto, csv or parquet")
	fs.StringVar(&c.tmpDir, "tmp", "", "directory for spooled source data")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&c.human, "human", false, "human-readable logs instead of JSON")
}

// setup validates the shared flags and returns a context carrying a
// run-scoped logger.
func (c *commonFlags) setup(ctx context.Context, stderr io.Writer, command string) (context.Context, error) {
	if c.in == "" {
		return nil, errors.New("--in is required")
	}
	format, err := source.ParseFormat(c.format)
	if err != nil {
		return nil, fmt.Errorf("invalid --format: %w", err)
	}
	c.sources = source.Options{Format: format, TempDir: c.tmpDir}

	ctx = logctx.WithLogger(ctx, logctx.New(stderr, c.debug, c.human))
	ctx, _ = logctx.WithRunID(ctx)
	return logctx.WithStr(ctx, "command", command), nil
}

// splitList parses a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
