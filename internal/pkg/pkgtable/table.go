package pkgtable

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrDuplicateHeader is returned when a table is built with a repeated column name.
	ErrDuplicateHeader = errors.New("duplicate header")
	// ErrRowTooWide is returned when a row has more cells than the table has headers.
	ErrRowTooWide = errors.New("row has more cells than headers")
	// ErrUnknownColumn is returned when a record references a column that is not a header.
	ErrUnknownColumn = errors.New("unknown column")
)

// Cell is a single value of a row. Present is false when the source had no
// value at all for the column, which is different from an empty string.
type Cell struct {
	Value   string
	Present bool
}

// Text returns a present cell holding s.
func Text(s string) Cell {
	return Cell{Value: s, Present: true}
}

// Absent returns a cell with no value.
func Absent() Cell {
	return Cell{}
}

// String renders the cell; absent cells render as the empty string.
func (c Cell) String() string {
	return c.Value
}

// Row is an ordered list of cells aligned with the headers of its table.
type Row []Cell

// Strings renders every cell of the row.
func (r Row) Strings() []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.Value
	}
	return out
}

// Table is an immutable set of headers and rows loaded from one source.
type Table struct {
	name    string
	headers []string
	index   map[string]int
	rows    []Row
}

// New builds a table from headers and rows. Input slices are copied. Rows
// shorter than the headers are padded with absent cells.
func New(name string, headers []string, rows []Row) (*Table, error) {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, dup := index[h]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateHeader, h)
		}
		index[h] = i
	}

	out := make([]Row, len(rows))
	for i, row := range rows {
		if len(row) > len(headers) {
			return nil, fmt.Errorf("%w: row %d has %d cells, want at most %d", ErrRowTooWide, i, len(row), len(headers))
		}
		cp := make(Row, len(headers))
		copy(cp, row)
		out[i] = cp
	}

	return &Table{
		name:    name,
		headers: slices.Clone(headers),
		index:   index,
		rows:    out,
	}, nil
}

// FromRecords builds a table from name/value records. A header missing from a
// record becomes an absent cell.
func FromRecords(name string, headers []string, records []map[string]string) (*Table, error) {
	t, err := New(name, headers, nil)
	if err != nil {
		return nil, err
	}

	t.rows = make([]Row, 0, len(records))
	for i, rec := range records {
		row := make(Row, len(headers))
		for k, v := range rec {
			col, ok := t.index[k]
			if !ok {
				return nil, fmt.Errorf("%w: record %d references %q", ErrUnknownColumn, i, k)
			}
			row[col] = Text(v)
		}
		t.rows = append(t.rows, row)
	}

	return t, nil
}

// Name returns the source label of the table, usually a file name.
func (t *Table) Name() string {
	return t.name
}

// Headers returns a copy of the column names in order.
func (t *Table) Headers() []string {
	return slices.Clone(t.headers)
}

// Width returns the number of columns.
func (t *Table) Width() int {
	return len(t.headers)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// ColumnIndex returns the position of a column by name.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Has reports whether the table has a column named name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Cell returns the cell at row i and column col.
func (t *Table) Cell(i, col int) Cell {
	return t.rows[i][col]
}

// Row returns a copy of row i.
func (t *Table) Row(i int) Row {
	return slices.Clone(t.rows[i])
}

// Slice returns copies of the rows in [start, end), clamped to the table bounds.
func (t *Table) Slice(start, end int) []Row {
	start = max(0, min(start, len(t.rows)))
	end = max(start, min(end, len(t.rows)))

	out := make([]Row, 0, end-start)
	for _, row := range t.rows[start:end] {
		out = append(out, slices.Clone(row))
	}
	return out
}

// Record returns row i as a map holding only its present cells.
func (t *Table) Record(i int) map[string]string {
	rec := make(map[string]string, len(t.headers))
	for col, c := range t.rows[i] {
		if c.Present {
			rec[t.headers[col]] = c.Value
		}
	}
	return rec
}

// Records returns every row as a record, see Record.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, len(t.rows))
	for i := range t.rows {
		out[i] = t.Record(i)
	}
	return out
}

// wrap adopts rows without copying. Callers must not keep references to rows.
func wrap(name string, headers []string, index map[string]int, rows []Row) *Table {
	return &Table{name: name, headers: headers, index: index, rows: rows}
}

// Builder assembles a table row by row without copying each row again.
// Rows handed to Append are owned by the builder.
type Builder struct {
	name    string
	headers []string
	index   map[string]int
	rows    []Row
}

// NewBuilder prepares a builder for a table with the given headers.
func NewBuilder(name string, headers []string, capacity int) (*Builder, error) {
	t, err := New(name, headers, nil)
	if err != nil {
		return nil, err
	}
	return &Builder{
		name:    name,
		headers: t.headers,
		index:   t.index,
		rows:    make([]Row, 0, capacity),
	}, nil
}

// Append adds a row. The row must have exactly one cell per header.
func (b *Builder) Append(row Row) {
	if len(row) != len(b.headers) {
		panic(fmt.Sprintf("pkgtable: row width %d, want %d", len(row), len(b.headers)))
	}
	b.rows = append(b.rows, row)
}

// Build returns the table. The builder must not be used afterwards.
func (b *Builder) Build() *Table {
	t := wrap(b.name, b.headers, b.index, b.rows)
	b.rows = nil
	return t
}
