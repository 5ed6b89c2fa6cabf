package pkgtable

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNoHeader is returned when the input has no non-empty line to use as headers.
var ErrNoHeader = errors.New("no header row")

// contextCheckInterval is how many rows are read between cancellation checks.
const contextCheckInterval = 1000

// ParseError reports a source that could not be parsed as delimited text.
type ParseError struct {
	Name string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s: line %d: %v", e.Name, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Name, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseOptions controls how delimited text is read.
type ParseOptions struct {
	// Delimiter separates fields. Zero sniffs the header line among ',', ';', '\t' and '|'.
	Delimiter rune
	// TrimLeadingSpace ignores leading white space in fields.
	TrimLeadingSpace bool
	// LazyQuotes accepts quotes appearing in unquoted fields.
	LazyQuotes bool
}

// Parse reads a header line and data rows from r.
//
// Empty lines are skipped. A row shorter than the header leaves its trailing
// cells absent; extra fields are ignored. When a header name repeats, the
// column keeps its first position and the last occurrence supplies the value.
// A UTF-8 or UTF-16 byte order mark is honored and invalid UTF-8 is replaced.
func Parse(ctx context.Context, name string, r io.Reader, opts ParseOptions) (*Table, error) {
	br := bufio.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))

	first, skipped, err := firstLine(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Name: name, Err: ErrNoHeader}
		}
		return nil, &ParseError{Name: name, Err: err}
	}

	delim := opts.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(first)
	}

	reader := csv.NewReader(io.MultiReader(bytes.NewReader(first), br))
	reader.Comma = delim
	reader.TrimLeadingSpace = opts.TrimLeadingSpace
	reader.LazyQuotes = opts.LazyQuotes
	reader.ReuseRecord = true
	reader.FieldsPerRecord = -1

	record, err := reader.Read()
	if err != nil {
		return nil, toParseError(name, skipped, err)
	}

	headers, positions := collapseHeaders(record)
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[h] = i
	}

	var rows []Row
	for n := 0; ; n++ {
		if n%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, toParseError(name, skipped, err)
		}

		row := make(Row, len(headers))
		for i, field := range record {
			if i >= len(positions) {
				break
			}
			row[positions[i]] = Text(strings.Clone(field))
		}
		rows = append(rows, row)
	}

	return wrap(name, headers, index, rows), nil
}

// firstLine returns the first line holding anything but a line terminator,
// including its terminator, and the number of blank lines before it.
func firstLine(br *bufio.Reader) ([]byte, int, error) {
	for skipped := 0; ; skipped++ {
		line, err := br.ReadBytes('\n')
		if len(bytes.TrimRight(line, "\r\n")) > 0 {
			return line, skipped, nil
		}
		if err != nil {
			return nil, skipped, err
		}
	}
}

// collapseHeaders drops repeated names and maps each field position to its column.
func collapseHeaders(record []string) ([]string, []int) {
	headers := make([]string, 0, len(record))
	positions := make([]int, len(record))
	seen := make(map[string]int, len(record))

	for i, h := range record {
		if col, ok := seen[h]; ok {
			positions[i] = col
			continue
		}
		seen[h] = len(headers)
		positions[i] = len(headers)
		headers = append(headers, strings.Clone(h))
	}

	return headers, positions
}

func sniffDelimiter(line []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	counts := make(map[rune]int, len(candidates))

	inQuotes := false
	for _, r := range string(line) {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best := ','
	for _, c := range candidates {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

// toParseError reports csv errors against the line numbers of the source,
// which starts skipped lines before the text the csv reader saw.
func toParseError(name string, skipped int, err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Name: name, Line: csvErr.Line + skipped, Err: csvErr.Err}
	}
	return &ParseError{Name: name, Err: err}
}

// ErrBadDelimiter is returned by ParseDelimiter for values that cannot separate fields.
var ErrBadDelimiter = errors.New("invalid delimiter")

// ParseDelimiter reads a delimiter setting. "" and "auto" mean sniffing;
// "tab" and `\t` mean a tab; anything else must be a single character
// other than a quote, a line break or the Unicode replacement character.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	}

	runes := []rune(s)
	if len(runes) != 1 {
		return 0, fmt.Errorf("%w: %q", ErrBadDelimiter, s)
	}
	switch d := runes[0]; d {
	case '"', '\r', '\n', utf8.RuneError:
		return 0, fmt.Errorf("%w: %q", ErrBadDelimiter, s)
	default:
		return d, nil
	}
}
