package pipeline

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadOptions controls CSV parsing.
type ReadOptions struct {
	// MaxRows limits data rows; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, auto-detects among ',', ';', '\t' on the header line.
	Delimiter rune
}

// ReadCSV parses an uploaded CSV file. UTF-8 (with or without BOM) and UTF-16 with BOM
// are accepted. Any failure is an *InputFormatError.
func ReadCSV(r io.Reader, opt ReadOptions) (*Table, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	br := bufio.NewReaderSize(decoded, 64*1024)

	head, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, &InputFormatError{Reason: "cannot read file", Err: err}
	}
	if strings.TrimSpace(string(head)) == "" {
		return nil, &InputFormatError{Reason: "file is empty"}
	}

	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(firstLine(string(head)))
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = 0
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, csvError("cannot parse header", err)
	}
	columns := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if prev, ok := seen[name]; ok {
			return nil, &InputFormatError{Reason: fmt.Sprintf("duplicate column %q (columns %d and %d)", name, prev+1, i+1), Line: 1}
		}
		seen[name] = i
		columns[i] = name
	}

	table := &Table{Columns: columns}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError("cannot parse row", err)
		}
		if opt.MaxRows > 0 && len(table.Rows) >= opt.MaxRows {
			return nil, &InputFormatError{Reason: fmt.Sprintf("file has more than %d data rows", opt.MaxRows), Err: ErrTooManyRows}
		}
		row := make([]string, len(record))
		for i, cell := range record {
			row[i] = strings.TrimSpace(cell)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// WriteCSV writes the result as comma separated UTF-8 with a header row.
func (r *Result) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Columns); err != nil {
		return err
	}
	return cw.WriteAll(r.Rows)
}

func csvError(reason string, err error) error {
	if errors.Is(err, io.EOF) {
		return &InputFormatError{Reason: "missing header row"}
	}
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		if errors.Is(parseErr.Err, csv.ErrFieldCount) {
			return &InputFormatError{Reason: "row has a different number of fields than the header", Line: parseErr.Line}
		}
		return &InputFormatError{Reason: reason, Line: parseErr.Line, Err: parseErr.Err}
	}
	return &InputFormatError{Reason: reason, Err: err}
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// sniffDelimiter picks the most frequent candidate outside quotes, defaulting to ','.
func sniffDelimiter(line string) rune {
	counts := map[rune]int{}
	inQuotes := false
	for _, c := range line {
		switch c {
		case '"':
			inQuotes = !inQuotes
		case ',', ';', '\t':
			if !inQuotes {
				counts[c]++
			}
		}
	}
	best := ','
	for _, c := range []rune{';', '\t'} {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}
