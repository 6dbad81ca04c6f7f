// Package mapping resolves spreadsheet column titles to page element
// identifiers and dropdown labels to option values.
package mapping

import (
	"fmt"
	"sort"
	"strings"

	"github.com/entrhq/formreplay/pkg/action"
	"github.com/entrhq/formreplay/pkg/sheet"
)

// TitleMap is an immutable title-to-identifier table.
type TitleMap struct {
	ids map[string]string
}

// NewTitleMap copies entries into a TitleMap. Keys and values are trimmed and
// blank entries are dropped.
func NewTitleMap(entries map[string]string) *TitleMap {
	m := &TitleMap{ids: make(map[string]string, len(entries))}
	for title, id := range entries {
		title, id = strings.TrimSpace(title), strings.TrimSpace(id)
		if title == "" || id == "" {
			continue
		}
		m.ids[title] = id
	}
	return m
}

// Lookup returns the identifier mapped to title.
func (m *TitleMap) Lookup(title string) (string, bool) {
	id, ok := m.ids[strings.TrimSpace(title)]
	return id, ok
}

// Len returns the number of mapped titles.
func (m *TitleMap) Len() int {
	return len(m.ids)
}

// Titles returns the mapped titles in sorted order.
func (m *TitleMap) Titles() []string {
	titles := make([]string, 0, len(m.ids))
	for t := range m.ids {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	return titles
}

// LoadTitleMap reads a title map workbook (.xlsx or .csv). sheetName may be
// blank for the first sheet.
func LoadTitleMap(path, sheetName string) (*TitleMap, []string, error) {
	table, err := sheet.Read(path, sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read title map: %w", err)
	}
	return TitleMapFromTable(table)
}

// TitleMapFromTable reads the first two columns of table as (title, identifier).
// It returns the titles that appeared more than once; the last entry wins.
func TitleMapFromTable(table *sheet.Table) (*TitleMap, []string, error) {
	if len(table.Headers) < 2 {
		return nil, nil, fmt.Errorf("title map needs two columns, found %d", len(table.Headers))
	}
	titleCol, idCol := table.Headers[0], table.Headers[1]

	entries := make(map[string]string, len(table.Rows))
	var duplicates []string
	for _, row := range table.Rows {
		title := strings.TrimSpace(row.Value(titleCol))
		id := strings.TrimSpace(action.Normalize(row.Value(idCol)))
		if title == "" || id == "" {
			continue
		}
		if _, dup := entries[title]; dup {
			duplicates = append(duplicates, title)
		}
		entries[title] = id
	}
	return NewTitleMap(entries), duplicates, nil
}

// DropdownTable maps dropdown column titles to label-to-value tables.
type DropdownTable struct {
	fields map[string]map[string]string
}

// NewDropdownTable creates a table from field -> label -> value entries.
func NewDropdownTable(fields map[string]map[string]string) *DropdownTable {
	t := &DropdownTable{fields: make(map[string]map[string]string)}
	t.Merge(fields)
	return t
}

// Merge adds entries, overriding existing labels. A field with no labels
// still registers the title as a dropdown.
func (t *DropdownTable) Merge(fields map[string]map[string]string) {
	for field, labels := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		dst, ok := t.fields[field]
		if !ok {
			dst = make(map[string]string, len(labels))
			t.fields[field] = dst
		}
		for label, value := range labels {
			dst[strings.TrimSpace(label)] = strings.TrimSpace(value)
		}
	}
}

// Extend merges every entry of other into t; other wins on conflicts.
func (t *DropdownTable) Extend(other *DropdownTable) {
	if other == nil {
		return
	}
	t.Merge(other.fields)
}

// IsDropdown reports whether title is a registered dropdown field.
func (t *DropdownTable) IsDropdown(title string) bool {
	_, ok := t.fields[strings.TrimSpace(title)]
	return ok
}

// Translate returns the option value for a display label of a dropdown field.
func (t *DropdownTable) Translate(title, label string) (string, bool) {
	v, ok := t.fields[strings.TrimSpace(title)][strings.TrimSpace(label)]
	return v, ok
}

// Fields returns the number of registered dropdown fields.
func (t *DropdownTable) Fields() int {
	return len(t.fields)
}

// LoadDropdowns reads a dropdown workbook (.xlsx or .csv) from its first sheet.
func LoadDropdowns(path string) (*DropdownTable, error) {
	table, err := sheet.Read(path, "")
	if err != nil {
		return nil, fmt.Errorf("failed to read dropdown map: %w", err)
	}
	return DropdownsFromTable(table)
}

// DropdownsFromTable reads the first three columns of table as
// (field, label, value) and merges them into a new table.
func DropdownsFromTable(table *sheet.Table) (*DropdownTable, error) {
	if len(table.Headers) < 3 {
		return nil, fmt.Errorf("dropdown map needs three columns, found %d", len(table.Headers))
	}
	fieldCol, labelCol, valueCol := table.Headers[0], table.Headers[1], table.Headers[2]

	fields := make(map[string]map[string]string)
	for _, row := range table.Rows {
		field := strings.TrimSpace(row.Value(fieldCol))
		label := strings.TrimSpace(action.Normalize(row.Value(labelCol)))
		value := strings.TrimSpace(action.Normalize(row.Value(valueCol)))
		if field == "" || label == "" {
			continue
		}
		if fields[field] == nil {
			fields[field] = make(map[string]string)
		}
		fields[field][label] = value
	}
	return NewDropdownTable(fields), nil
}
