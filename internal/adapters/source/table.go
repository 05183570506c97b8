// Package source adapts the raw input files and the enriched output to the
// introspect.Dataset contract. Each adapter keeps a bounded sample of rows in
// memory and only counts the rest.
package source

import (
	"iter"

	"github.com/okian/pitchlens/internal/domain/introspect"
)

// DefaultSampleRows is the number of rows kept per dataset.
const DefaultSampleRows = 1000

// Table is a sampled, row-major dataset.
type Table struct {
	name    string
	columns []string
	kinds   []introspect.Kind
	index   map[string]int
	sample  [][]any
	limit   int
	rows    int
}

func newTable(name string, limit int) *Table {
	if limit <= 0 {
		limit = DefaultSampleRows
	}
	return &Table{name: name, index: make(map[string]int), limit: limit}
}

// Name implements introspect.Dataset.
func (t *Table) Name() string { return t.name }

// Rows implements introspect.Dataset. It counts every row, sampled or not.
func (t *Table) Rows() int { return t.rows }

// Sampled returns how many rows are held in memory.
func (t *Table) Sampled() int { return len(t.sample) }

// ColumnNames returns the columns in first-seen order.
func (t *Table) ColumnNames() []string { return t.columns }

// Columns implements introspect.Dataset.
func (t *Table) Columns() []introspect.Column {
	out := make([]introspect.Column, len(t.columns))
	for i, name := range t.columns {
		out[i] = introspect.Column{Name: name, Kind: t.kinds[i], Values: t.values(i)}
	}
	return out
}

func (t *Table) values(col int) iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, row := range t.sample {
			var v any
			if col < len(row) {
				v = row[col]
			}
			if !yield(v) {
				return
			}
		}
	}
}

// column returns the position of name, registering it if new.
func (t *Table) column(name string, kind introspect.Kind) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
	t.kinds = append(t.kinds, kind)
	return len(t.columns) - 1
}

// sampling reports whether the next row will be kept.
func (t *Table) sampling() bool { return len(t.sample) < t.limit }

// addFields counts a row given as ordered name/value pairs.
func (t *Table) addFields(fields []field) {
	t.rows++
	keep := t.sampling()
	var row []any
	if keep {
		row = make([]any, len(t.columns), len(t.columns)+len(fields))
	}
	for _, f := range fields {
		i := t.column(f.name, introspect.Unknown)
		if !keep {
			continue
		}
		for len(row) <= i {
			row = append(row, nil)
		}
		row[i] = f.value
	}
	if keep {
		t.sample = append(t.sample, row)
	}
}

// addRow counts a row aligned with the registered columns.
func (t *Table) addRow(row []any) {
	t.rows++
	if t.sampling() {
		t.sample = append(t.sample, row)
	}
}
