// Package sheet loads spreadsheet tables (.xlsx and .csv) into ordered rows.
package sheet

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one data row. Values are keyed by trimmed column title; a missing or
// blank cell reads as the empty string.
type Row struct {
	// Index is the 1-based row number in the source sheet, header included.
	Index  int
	values map[string]string
}

// NewRow builds a row from title/value pairs.
func NewRow(index int, values map[string]string) Row {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Row{Index: index, values: copied}
}

// Value returns the raw cell text for title.
func (r Row) Value(title string) string {
	return r.values[title]
}

// Has reports whether the cell for title is non-blank.
func (r Row) Has(title string) bool {
	return strings.TrimSpace(r.values[title]) != ""
}

// Table is a header row plus data rows in sheet order.
type Table struct {
	Headers []string
	Rows    []Row
}

// HasColumn reports whether title is one of the headers.
func (t *Table) HasColumn(title string) bool {
	return t.ColumnIndex(title) >= 0
}

// ColumnIndex returns the position of title in Headers, or -1.
func (t *Table) ColumnIndex(title string) int {
	for i, h := range t.Headers {
		if h == title {
			return i
		}
	}
	return -1
}

// Read loads path. For workbooks, sheetName selects the sheet and an empty
// name selects the first one. CSV files ignore sheetName.
func Read(path, sheetName string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("table file not found: %s: %w", path, err)
	}

	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx", ".xlsm":
		rows, err = readWorkbook(path, sheetName)
	default:
		return nil, fmt.Errorf("unsupported table file: %s (must be .xlsx, .xlsm or .csv)", path)
	}
	if err != nil {
		return nil, err
	}

	return FromRows(rows)
}

func readWorkbook(path, sheetName string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheetName = sheets[0]
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}

	// Excel writes a UTF-8 BOM when saving CSV
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// FromRows builds a table from raw rows whose first row is the header.
// Headers are trimmed; blank header columns are dropped and repeated headers
// get a ".1", ".2" suffix. Fully blank data rows are skipped.
func FromRows(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("table has no header row")
	}

	headers := make([]string, len(rows[0]))
	seen := make(map[string]int)
	for i, raw := range rows[0] {
		h := strings.TrimSpace(raw)
		if h == "" {
			continue
		}
		if n, dup := seen[h]; dup {
			seen[h] = n + 1
			h = fmt.Sprintf("%s.%d", h, n+1)
		} else {
			seen[h] = 0
		}
		headers[i] = h
	}

	table := &Table{}
	for _, h := range headers {
		if h != "" {
			table.Headers = append(table.Headers, h)
		}
	}

	for i := 1; i < len(rows); i++ {
		values := make(map[string]string, len(table.Headers))
		blank := true
		for j, cell := range rows[i] {
			if j >= len(headers) || headers[j] == "" {
				continue
			}
			values[headers[j]] = cell
			if strings.TrimSpace(cell) != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		table.Rows = append(table.Rows, Row{Index: i + 1, values: values})
	}

	return table, nil
}
