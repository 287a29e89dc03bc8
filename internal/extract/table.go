// Package extract turns raw sales files into a Table and summarizes that
// table into the figures stored on a sales report. The heuristics here are
// deliberately small: a header row, known column aliases, a few date layouts.
package extract

import (
	"fmt"
	"strings"
)

// Table is a header plus data rows. Rows may be shorter than Columns.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ParseError reports content that could not be turned into a report.
type ParseError struct {
	Format string
	Line   int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse ")
	b.WriteString(e.Format)
	if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErr(format string, line int, msg string, err error) *ParseError {
	return &ParseError{Format: format, Line: line, Msg: msg, Err: err}
}

// cell returns row[i] trimmed, or "" when the row is short.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func headerFrom(row []string) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = strings.TrimSpace(strings.TrimPrefix(v, "\ufeff"))
	}
	// trailing empty header cells come from ragged spreadsheets
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}
