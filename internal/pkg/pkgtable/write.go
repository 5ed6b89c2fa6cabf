package pkgtable

import (
	"bufio"
	"encoding/csv"
	"io"
)

// WriteOptions controls how a table is written as delimited text.
type WriteOptions struct {
	// Delimiter separates fields; zero means ','.
	Delimiter rune
	// UseCRLF ends lines with \r\n.
	UseCRLF bool
}

// Write writes the headers of t followed by one line per row.
// Absent and empty cells are both written as empty fields.
func Write(w io.Writer, t *Table, opts WriteOptions) error {
	bw := bufio.NewWriter(w)
	cw := newCSVWriter(bw, opts)

	if err := writeRecord(bw, cw, t.headers, opts); err != nil {
		return err
	}

	for _, row := range t.rows {
		if err := writeRecord(bw, cw, row.Strings(), opts); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}

func newCSVWriter(w io.Writer, opts WriteOptions) *csv.Writer {
	cw := csv.NewWriter(w)
	if opts.Delimiter != 0 {
		cw.Comma = opts.Delimiter
	}
	cw.UseCRLF = opts.UseCRLF
	return cw
}

// writeRecord writes one record. A lone empty field would become a blank
// line, which readers skip, so it is written as a quoted empty string.
func writeRecord(bw *bufio.Writer, cw *csv.Writer, record []string, opts WriteOptions) error {
	if len(record) != 1 || record[0] != "" {
		return cw.Write(record)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	eol := "\n"
	if opts.UseCRLF {
		eol = "\r\n"
	}
	_, err := bw.WriteString(`""` + eol)
	return err
}
