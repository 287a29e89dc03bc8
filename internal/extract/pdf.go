package extract

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// ParsePDF extracts the text of every page and reads it with ParseText.
func ParsePDF(data []byte) (Table, error) {
	text, err := pdfText(data)
	if err != nil {
		return Table{}, parseErr("pdf", 0, "extract text", err)
	}
	table, err := ParseText(text)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Format = "pdf"
		}
		return Table{}, err
	}
	return table, nil
}

// pdfText rebuilds page lines from positioned text runs. Runs on one line are
// joined with two spaces so ParseText can split them back into cells.
func pdfText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("new pdf reader: %w", err)
	}
	var builder strings.Builder
	total := doc.NumPage()
	for page := 1; page <= total; page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position > rows[j].Position })
		for _, row := range rows {
			sort.SliceStable(row.Content, func(i, j int) bool { return row.Content[i].X < row.Content[j].X })
			parts := make([]string, 0, len(row.Content))
			for _, t := range row.Content {
				if s := strings.TrimSpace(t.S); s != "" {
					parts = append(parts, s)
				}
			}
			builder.WriteString(strings.Join(parts, "  "))
			builder.WriteString("\n")
		}
	}
	return builder.String(), nil
}

var wideSpace = regexp.MustCompile(`\s{2,}`)

// ParseText reads loosely formatted tabular text such as PDF output. Cells are
// split on ';', '|', tabs or runs of two or more spaces, whichever the header
// line uses. Lines with fewer than two cells before the header are titles and
// are skipped.
func ParseText(text string) (Table, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var (
		table Table
		split func(string) []string
	)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if split == nil {
			s := splitterFor(line)
			if len(s(line)) < 2 {
				continue
			}
			split = s
			table.Columns = headerFrom(split(line))
			continue
		}
		cells := split(line)
		if blankRow(cells) || ruleRow(cells) {
			continue
		}
		table.Rows = append(table.Rows, cells)
	}
	if len(table.Columns) == 0 {
		return Table{}, parseErr("text", 0, "no header row", nil)
	}
	return table, nil
}

func splitterFor(line string) func(string) []string {
	for _, sep := range []string{"|", ";", "\t"} {
		if strings.Contains(line, sep) {
			return func(s string) []string { return trimCells(strings.Split(s, sep)) }
		}
	}
	return func(s string) []string { return trimCells(wideSpace.Split(strings.TrimSpace(s), -1)) }
}

// trimCells trims every cell and drops the empty edges left by "| a | b |".
func trimCells(cells []string) []string {
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	if len(cells) > 0 && cells[0] == "" {
		cells = cells[1:]
	}
	if len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}

// ruleRow reports separator lines such as "|---|:---:|".
func ruleRow(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-:= ") != "" {
			return false
		}
	}
	return true
}
