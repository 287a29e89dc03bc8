package extract

import (
	"github.com/tealeg/xlsx/v3"
)

// ParseXLSX reads the first worksheet. The first non-empty row is the header.
func ParseXLSX(data []byte) (Table, error) {
	file, err := xlsx.OpenBinary(data)
	if err != nil {
		return Table{}, parseErr("xlsx", 0, "open workbook", err)
	}
	if len(file.Sheets) == 0 {
		return Table{}, parseErr("xlsx", 0, "workbook has no sheets", nil)
	}
	sheet := file.Sheets[0]

	var table Table
	line := 0
	err = sheet.ForEachRow(func(row *xlsx.Row) error {
		line++
		var values []string
		cerr := row.ForEachCell(func(c *xlsx.Cell) error {
			values = append(values, cellText(c, file.Date1904))
			return nil
		})
		if cerr != nil {
			return parseErr("xlsx", line, "read row", cerr)
		}
		if blankRow(values) {
			return nil
		}
		if table.Columns == nil {
			table.Columns = headerFrom(values)
			return nil
		}
		table.Rows = append(table.Rows, values)
		return nil
	})
	if err != nil {
		return Table{}, err
	}
	if len(table.Columns) == 0 {
		return Table{}, parseErr("xlsx", 0, "no header row", nil)
	}
	return table, nil
}

// cellText renders date cells in ISO form so Summarize can read them; other
// cells keep their formatted value.
func cellText(c *xlsx.Cell, date1904 bool) string {
	if c.IsTime() {
		if t, err := c.GetTime(date1904); err == nil {
			return t.Format(isoDate)
		}
	}
	if v, err := c.FormattedValue(); err == nil {
		return v
	}
	return c.Value
}
