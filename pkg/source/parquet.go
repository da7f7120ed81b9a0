package source

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// ReadParquet decodes a Parquet file into a flat buffer. Each leaf column
// becomes a header named by its dotted path; values are rendered as strings
// and NULL becomes "". Repeated values in one row are joined with ",".
func ReadParquet(r io.ReaderAt, size int64) ([]string, int, error) {
	file, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, 0, fmt.Errorf("open parquet file: %w", err)
	}

	paths := file.Schema().Columns()
	width := len(paths)
	if width == 0 {
		return nil, 0, ErrEmptyInput
	}
	buf := make([]string, width, width*(1+int(file.NumRows())))
	for i, p := range paths {
		buf[i] = strings.Join(p, ".")
	}

	rowBuf := make([]parquet.Row, 1024)
	for _, rg := range file.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(rowBuf)
			for _, row := range rowBuf[:n] {
				buf = appendRow(buf, row, width)
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				rows.Close()
				return nil, 0, fmt.Errorf("read parquet rows: %w", err)
			}
			if n == 0 {
				break
			}
		}
		if err := rows.Close(); err != nil {
			return nil, 0, fmt.Errorf("close parquet rows: %w", err)
		}
	}
	return buf, width, nil
}

func appendRow(buf []string, row parquet.Row, width int) []string {
	start := len(buf)
	buf = append(buf, make([]string, width)...)
	cells := buf[start:]
	for _, v := range row {
		col := v.Column()
		if col < 0 || col >= width || v.IsNull() {
			continue
		}
		if cells[col] == "" {
			cells[col] = v.String()
		} else {
			cells[col] += "," + v.String()
		}
	}
	return buf
}
