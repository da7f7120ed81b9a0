package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/eunmann/pivotab/internal/logctx"
	"github.com/eunmann/pivotab/pkg/humanfmt"
	"github.com/eunmann/pivotab/pkg/s3fetch"
	"github.com/eunmann/pivotab/pkg/table"
)

// Options configures Load.
type Options struct {
	// Format overrides extension-based detection. Empty means auto.
	Format Format

	// TempDir holds spooled Parquet data when the source cannot be read in
	// place. Empty uses os.TempDir.
	TempDir string

	// S3 is used for s3:// URIs. When nil a client is created from the
	// default AWS configuration.
	S3 *s3fetch.Client
}

// Load reads a local path or s3://bucket/key into a table.
func Load(ctx context.Context, uri string, opts Options) (*table.Table, error) {
	log := logctx.FromContext(ctx).With().Str("phase", "load").Str("source", uri).Logger()
	start := time.Now()

	format, comp := Detect(uri)
	if opts.Format != "" && opts.Format != FormatAuto {
		format = opts.Format
	}

	var (
		buf     []string
		headers int
		err     error
	)
	if s3fetch.IsURI(uri) {
		buf, headers, err = loadS3(ctx, uri, format, comp, opts)
	} else {
		buf, headers, err = loadLocal(uri, format, comp, opts.TempDir)
	}
	if err != nil {
		return nil, err
	}
	decoded := time.Since(start)

	t, err := table.FromBuf(buf, headers)
	if err != nil {
		return nil, fmt.Errorf("build table from %s: %w", uri, err)
	}

	log.Info().
		Str("format", string(format)).
		Str("compression", string(comp)).
		Int("cols", t.NumCols()).
		Int("rows", t.NumRows()).
		Str("decode", humanfmt.Duration(decoded)).
		Str("elapsed", humanfmt.Duration(time.Since(start))).
		Msg("source loaded")
	if dups := t.Duplicates(); len(dups) > 0 {
		log.Warn().Strs("headers", dups).Msg("duplicate headers: last occurrence wins")
	}
	return t, nil
}

func loadLocal(name string, format Format, comp Compression, tempDir string) ([]string, int, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, 0, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	if format == FormatParquet && comp == CompressionNone {
		info, err := f.Stat()
		if err != nil {
			return nil, 0, fmt.Errorf("stat source: %w", err)
		}
		return ReadParquet(f, info.Size())
	}
	return decode(f, format, comp, tempDir)
}

func loadS3(ctx context.Context, uri string, format Format, comp Compression, opts Options) ([]string, int, error) {
	bucket, key, err := s3fetch.ParseURI(uri)
	if err != nil {
		return nil, 0, err
	}
	client := opts.S3
	if client == nil {
		client, err = s3fetch.NewClient(ctx)
		if err != nil {
			return nil, 0, err
		}
	}

	if format == FormatParquet && comp == CompressionNone {
		tf, err := client.Download(ctx, bucket, key, opts.TempDir)
		if err != nil {
			return nil, 0, err
		}
		defer tf.Close()
		log := logctx.FromContext(ctx)
		log.Debug().
			Str("phase", "load").
			Str("bytes", humanfmt.Bytes(tf.Size())).
			Msg("downloaded parquet object")
		return ReadParquet(tf, tf.Size())
	}

	body, err := client.StreamObject(ctx, bucket, key)
	if err != nil {
		return nil, 0, err
	}
	defer body.Close()
	return decode(body, format, comp, opts.TempDir)
}

// decode reads a sequential stream. Parquet needs random access, so a
// compressed Parquet stream is spooled to a temp file first.
func decode(r io.Reader, format Format, comp Compression, tempDir string) ([]string, int, error) {
	dr, err := Decompress(r, comp)
	if err != nil {
		return nil, 0, err
	}
	defer dr.Close()

	if format != FormatParquet {
		return ReadCSV(dr)
	}

	tmp, err := os.CreateTemp(tempDir, "pivotab-parquet-*.parquet")
	if err != nil {
		return nil, 0, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	written, err := io.Copy(tmp, dr)
	if err != nil {
		return nil, 0, fmt.Errorf("buffer parquet data: %w", err)
	}
	return ReadParquet(tmp, written)
}
