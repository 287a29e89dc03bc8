package extract

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

var candidateDelimiters = []rune{',', ';', '\t'}

// ParseCSV reads delimited text. The delimiter is sniffed from the first
// non-blank line and the first record is the header.
func ParseCSV(text string) (Table, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	var table Table
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line = perr.Line
			}
			return Table{}, parseErr("csv", line, "malformed record", err)
		}
		if blankRow(record) {
			continue
		}
		if table.Columns == nil {
			table.Columns = headerFrom(record)
			continue
		}
		table.Rows = append(table.Rows, record)
	}
	if len(table.Columns) == 0 {
		return Table{}, parseErr("csv", 0, "no header row", nil)
	}
	return table, nil
}

func sniffDelimiter(text string) rune {
	var first string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			first = line
			break
		}
	}
	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		if n := strings.Count(first, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
