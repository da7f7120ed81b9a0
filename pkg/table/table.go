// Package table holds a flat, header-tagged table of raw string cells.
//
// A Table is built once from a flat buffer (header names followed by the
// row-major body) and is immutable afterwards, so it can be shared by any
// number of concurrent readers without locking.
package table

// Table is an immutable row-major grid of string cells with named columns.
type Table struct {
	names    []string
	cols     map[string]int
	body     []string
	rows     int
	distinct map[string][]string
	dups     []string
}

// FromBuf builds a Table from buf, whose first headers elements are the
// column names and whose remaining elements are the body in row-major order.
//
// If a header name occurs more than once, the later occurrence's index wins
// for lookups by name; Duplicates reports such names. Values are kept as raw
// strings; no casting happens here.
func FromBuf(buf []string, headers int) (*Table, error) {
	if headers <= 0 {
		return nil, &ShapeError{Len: len(buf), Headers: headers, Err: ErrNoHeaders}
	}
	if len(buf) < headers {
		return nil, &ShapeError{Len: len(buf), Headers: headers, Err: ErrShortBuffer}
	}
	if (len(buf)-headers)%headers != 0 {
		return nil, &ShapeError{Len: len(buf), Headers: headers, Err: ErrRaggedBody}
	}

	t := &Table{
		names:    make([]string, headers),
		cols:     make(map[string]int, headers),
		body:     make([]string, len(buf)-headers),
		rows:     (len(buf) - headers) / headers,
		distinct: make(map[string][]string, headers),
	}
	copy(t.names, buf[:headers])
	copy(t.body, buf[headers:])

	for i, name := range t.names {
		if _, seen := t.cols[name]; seen {
			t.dups = append(t.dups, name)
		}
		t.cols[name] = i
	}

	// Header-major, row-minor: this order fixes the pivot enumeration order.
	for _, name := range t.names {
		if _, done := t.distinct[name]; done {
			continue
		}
		col := t.cols[name]
		seen := make(map[string]struct{})
		values := make([]string, 0)
		for row := 0; row < t.rows; row++ {
			v := t.Get(row, col)
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			values = append(values, v)
		}
		t.distinct[name] = values
	}

	return t, nil
}

// Headers returns a copy of the header names in column order.
func (t *Table) Headers() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	return len(t.names)
}

// NumRows returns the number of body rows.
func (t *Table) NumRows() int {
	return t.rows
}

// Col returns the column index for a header name.
func (t *Table) Col(name string) (int, bool) {
	c, ok := t.cols[name]
	return c, ok
}

// Get returns the cell at row, col. It panics on out-of-range indices,
// like a slice access.
func (t *Table) Get(row, col int) string {
	if col < 0 || col >= len(t.names) {
		panic("table: column index out of range")
	}
	return t.body[row*len(t.names)+col]
}

// Value returns the cell at row under the named header.
func (t *Table) Value(row int, name string) (string, error) {
	col, ok := t.cols[name]
	if !ok {
		return "", &HeaderError{Name: name}
	}
	return t.Get(row, col), nil
}

// Distinct returns the distinct values of the named column in
// first-occurrence order.
func (t *Table) Distinct(name string) ([]string, error) {
	values, ok := t.distinct[name]
	if !ok {
		return nil, &HeaderError{Name: name}
	}
	out := make([]string, len(values))
	copy(out, values)
	return out, nil
}

// Duplicates returns header names that occur more than once, in the order
// their repeats were found.
func (t *Table) Duplicates() []string {
	if len(t.dups) == 0 {
		return nil
	}
	out := make([]string, len(t.dups))
	copy(out, t.dups)
	return out
}

// EstimateBytes returns a rough in-memory footprint of the table.
func (t *Table) EstimateBytes() int64 {
	// 16 bytes per string header plus payload.
	var n int64
	for _, s := range t.body {
		n += 16 + int64(len(s))
	}
	for _, s := range t.names {
		n += 16 + int64(len(s))
	}
	for _, values := range t.distinct {
		n += 24 + int64(len(values))*16
	}
	return n
}
