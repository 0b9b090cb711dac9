package models

import (
	"fmt"
	"strconv"
	"time"
)

// Value is a single table cell. nil represents null/missing. Parsers produce
// int64, float64, string, bool, or time.Time cells; the engines treat anything
// else as an opaque scalar.
type Value any

// Column is an ordered sequence of values under a name.
type Column struct {
	Name   string
	Values []Value
}

// Table is an immutable, column-oriented dataset: ordered named columns that
// all share a common row count. It is the normalized shape every parser
// produces and the only input the analysis engines accept.
type Table struct {
	Name    string
	Columns []Column
}

// NewTable builds a table from columns, padding shorter columns with nulls so
// every column shares the same row count.
func NewTable(name string, columns []Column) *Table {
	rows := 0
	for _, c := range columns {
		if len(c.Values) > rows {
			rows = len(c.Values)
		}
	}
	for i := range columns {
		for len(columns[i].Values) < rows {
			columns[i].Values = append(columns[i].Values, nil)
		}
	}
	return &Table{Name: name, Columns: columns}
}

// RowCount returns the shared row count.
func (t *Table) RowCount() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// ColumnNames returns column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column, or nil if absent.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// IsEmpty reports whether the table has no rows or no columns.
func (t *Table) IsEmpty() bool {
	return len(t.Columns) == 0 || t.RowCount() == 0
}

// MissingCells counts null cells across the whole table.
func (t *Table) MissingCells() int {
	n := 0
	for _, c := range t.Columns {
		n += c.NullCount()
	}
	return n
}

// TotalCells returns rows × columns.
func (t *Table) TotalCells() int {
	return t.RowCount() * len(t.Columns)
}

// IsNull reports whether a cell is null.
func IsNull(v Value) bool { return v == nil }

// NonNull returns the column's non-null values in order.
func (c *Column) NonNull() []Value {
	out := make([]Value, 0, len(c.Values))
	for _, v := range c.Values {
		if !IsNull(v) {
			out = append(out, v)
		}
	}
	return out
}

// NullCount counts null cells.
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.Values {
		if IsNull(v) {
			n++
		}
	}
	return n
}

// UniqueCount counts distinct non-null values.
func (c *Column) UniqueCount() int {
	seen := make(map[string]struct{}, len(c.Values))
	for _, v := range c.Values {
		if IsNull(v) {
			continue
		}
		seen[ValueKey(v)] = struct{}{}
	}
	return len(seen)
}

// IsNumeric reports whether the column holds native numeric cells: at least
// one non-null value, all of them int64 or float64.
func (c *Column) IsNumeric() bool {
	found := false
	for _, v := range c.Values {
		switch v.(type) {
		case nil:
		case int64, float64:
			found = true
		default:
			return false
		}
	}
	return found
}

// IsInteger reports whether all non-null cells are int64 (and at least one exists).
func (c *Column) IsInteger() bool {
	found := false
	for _, v := range c.Values {
		switch v.(type) {
		case nil:
		case int64:
			found = true
		default:
			return false
		}
	}
	return found
}

// IsText reports whether the column has non-null values and is not numeric.
// Dates held as strings count as text; type inference decides what they mean.
func (c *Column) IsText() bool {
	return c.NullCount() < len(c.Values) && !c.IsNumeric()
}

// Floats returns the non-null values of a numeric column as float64s.
// Non-numeric cells are skipped.
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if f, ok := NumericValue(v); ok {
			out = append(out, f)
		}
	}
	return out
}

// NumericValue extracts a float from a natively numeric cell.
func NumericValue(v Value) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// CoerceFloat attempts numeric coercion, including numeric strings.
// This is the coercion the type-inference numeric scorer uses.
func CoerceFloat(v Value) (float64, bool) {
	if f, ok := NumericValue(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// ValueKey returns a canonical string identity for a cell, used for
// uniqueness counting and cross-table value-set comparison. Numeric cells of
// different widths that represent the same number share a key (int64 5 and
// float64 5.0 compare equal); strings never collide with numbers.
func ValueKey(v Value) string {
	switch x := v.(type) {
	case nil:
		return "\x00"
	case string:
		return "s:" + x
	case int64:
		return "n:" + strconv.FormatFloat(float64(x), 'g', -1, 64)
	case float64:
		return "n:" + strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return "b:" + strconv.FormatBool(x)
	case time.Time:
		return "t:" + x.Format(time.RFC3339Nano)
	default:
		return "o:" + fmt.Sprint(x)
	}
}

// StringValue renders a cell the way the string-based scorers see it.
// Null renders as the empty string.
func StringValue(v Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(x)
	}
}

// ValueSet returns the set of distinct non-null value keys with a
// representative value for each key.
func (c *Column) ValueSet() map[string]Value {
	set := make(map[string]Value, len(c.Values))
	for _, v := range c.Values {
		if IsNull(v) {
			continue
		}
		k := ValueKey(v)
		if _, ok := set[k]; !ok {
			set[k] = v
		}
	}
	return set
}
