// Package source decodes CSV and Parquet files into the flat, header-first
// string buffer that table.FromBuf consumes.
package source

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Format identifies the encoding of a source file.
type Format string

const (
	FormatAuto    Format = "auto"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// ParseFormat validates a --format value. The empty string means auto.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatCSV, FormatParquet:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want auto, csv or parquet)", s)
	}
}

// Compression identifies a whole-file compression wrapper.
type Compression string

const (
	CompressionNone Compression = ""
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

var compressionSuffixes = map[string]Compression{
	".gz":   CompressionGzip,
	".gzip": CompressionGzip,
	".zst":  CompressionZstd,
	".zstd": CompressionZstd,
	".lz4":  CompressionLZ4,
}

// Detect infers the compression and format of name from its extensions,
// e.g. "sales.csv.zst" is zstd-compressed CSV. Unknown extensions default to
// CSV.
func Detect(name string) (Format, Compression) {
	lower := strings.ToLower(name)
	comp := CompressionNone
	if c, ok := compressionSuffixes[path.Ext(lower)]; ok {
		comp = c
		lower = strings.TrimSuffix(lower, path.Ext(lower))
	}
	if path.Ext(lower) == ".parquet" {
		return FormatParquet, comp
	}
	return FormatCSV, comp
}

// Decompress wraps r in a decoder for comp. The returned closer releases the
// decoder only; the caller still owns r.
func Decompress(r io.Reader, comp Compression) (io.ReadCloser, error) {
	switch comp {
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return zr, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create zstd reader: %w", err)
		}
		return zr.IOReadCloser(), nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("unsupported compression %q", comp)
	}
}
