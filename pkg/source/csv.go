package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ErrEmptyInput is returned when a source has no header record.
var ErrEmptyInput = errors.New("source has no header row")

// ReadCSV decodes r into a flat buffer. The first record is the header and
// every following record must have the same width.
func ReadCSV(r io.Reader) ([]string, int, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, ErrEmptyInput
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read CSV header: %w", err)
	}
	width := len(header)
	buf := make([]string, 0, width*64)
	buf = append(buf, header...)

	for {
		// FieldsPerRecord defaults to the header width, so ragged rows
		// surface here as csv.ErrFieldCount.
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read CSV row: %w", err)
		}
		buf = append(buf, rec...)
	}
	return buf, width, nil
}
