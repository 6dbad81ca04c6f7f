// Package sequence groups sheet rows into records and orders the cells of a
// record into replay steps.
//
// A record is every row sharing a sequence key. When the sheet has both
// sub-sequence marker columns, each row is replayed in turn and the span of
// columns between the markers is applied as one block for that row. Without
// markers only the first row of a record is replayed.
package sequence

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/entrhq/formreplay/pkg/action"
	"github.com/entrhq/formreplay/pkg/sheet"
)

// Columns names the structural columns that are never replayed as actions.
type Columns struct {
	Sequence         string
	SubsequenceStart string
	SubsequenceEnd   string

	// Exclude lists further columns handled outside the step sequence.
	Exclude []string
}

// Record is the set of rows sharing one sequence key, in sheet order.
type Record struct {
	Key  string
	Rows []sheet.Row
}

// Step is one cell to replay, or a pause marker after a row that closed a
// sub-sequence.
type Step struct {
	Title string
	Value string

	// Row is the sheet row number the cell came from.
	Row int

	// Block numbers the sub-sequence span the cell belongs to within the
	// record, starting at 1. It is 0 for cells outside any span.
	Block int

	// Boundary marks a pause step; Title and Value are empty.
	Boundary bool
}

// Group splits the table into records by the sequence column. Keys are
// compared after numeric normalization, so "1" and "1.0" group together.
// A row with a blank key continues the previous record; blank-key rows before
// the first keyed row are returned as orphans.
//
// Records are ordered by key value when every key is numeric, and by first
// appearance otherwise.
func Group(table *sheet.Table, cols Columns) ([]Record, []sheet.Row, error) {
	if cols.Sequence == "" || !table.HasColumn(cols.Sequence) {
		return nil, nil, fmt.Errorf("sequence column %q not found in sheet", cols.Sequence)
	}

	var (
		records []Record
		orphans []sheet.Row
		index   = make(map[string]int)
		current = -1
	)
	for _, row := range table.Rows {
		key := action.Normalize(row.Value(cols.Sequence))
		if key == "" {
			if current < 0 {
				orphans = append(orphans, row)
				continue
			}
			records[current].Rows = append(records[current].Rows, row)
			continue
		}

		pos, ok := index[key]
		if !ok {
			pos = len(records)
			index[key] = pos
			records = append(records, Record{Key: key})
		}
		records[pos].Rows = append(records[pos].Rows, row)
		current = pos
	}

	sortNumeric(records)
	return records, orphans, nil
}

// sortNumeric orders records by numeric key. It leaves them untouched when
// any key is not a number.
func sortNumeric(records []Record) {
	values := make(map[string]float64, len(records))
	for _, r := range records {
		v, err := strconv.ParseFloat(r.Key, 64)
		if err != nil {
			return
		}
		values[r.Key] = v
	}
	sort.SliceStable(records, func(i, j int) bool {
		return values[records[i].Key] < values[records[j].Key]
	})
}

// Markers reports the positions of the sub-sequence marker columns in
// headers. ok is false unless both exist and start precedes end.
func Markers(headers []string, cols Columns) (start, end int, ok bool) {
	start, end = -1, -1
	for i, h := range headers {
		switch {
		case cols.SubsequenceStart != "" && h == cols.SubsequenceStart:
			start = i
		case cols.SubsequenceEnd != "" && h == cols.SubsequenceEnd:
			end = i
		}
	}
	return start, end, start >= 0 && end > start
}

// Sequence orders the cells of rec into steps. Empty cells are included;
// classifying them is left to the caller.
func Sequence(rec Record, headers []string, cols Columns) []Step {
	if len(rec.Rows) == 0 {
		return nil
	}

	skip := make(map[string]bool, 3+len(cols.Exclude))
	for _, h := range append([]string{cols.Sequence, cols.SubsequenceStart, cols.SubsequenceEnd}, cols.Exclude...) {
		if h != "" {
			skip[h] = true
		}
	}

	start, end, ok := Markers(headers, cols)
	if !ok {
		row := rec.Rows[0]
		var steps []Step
		for _, h := range headers {
			if skip[h] {
				continue
			}
			steps = append(steps, Step{Title: h, Value: row.Value(h), Row: row.Index})
		}
		return steps
	}

	var (
		steps []Step
		block int
	)
	for _, row := range rec.Rows {
		for c := 0; c < len(headers); c++ {
			if c == start {
				block++
				for k := start; k <= end; k++ {
					if skip[headers[k]] {
						continue
					}
					steps = append(steps, Step{Title: headers[k], Value: row.Value(headers[k]), Row: row.Index, Block: block})
				}
				c = end
				continue
			}
			if skip[headers[c]] {
				continue
			}
			steps = append(steps, Step{Title: headers[c], Value: row.Value(headers[c]), Row: row.Index})
		}

		if strings.TrimSpace(row.Value(cols.SubsequenceEnd)) != "" {
			steps = append(steps, Step{Row: row.Index, Boundary: true})
		}
	}
	return steps
}
