package sink

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

// WriteParquet writes records as a single Parquet file to w.
func WriteParquet(w io.Writer, records []Record) error {
	pw := parquet.NewGenericWriter[Record](w)
	if _, err := pw.Write(records); err != nil {
		pw.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
