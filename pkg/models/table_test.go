package models

import (
	"testing"
)

func TestNewTablePadsShortColumns(t *testing.T) {
	tbl := NewTable("t", []Column{
		{Name: "a", Values: []Value{int64(1), int64(2), int64(3)}},
		{Name: "b", Values: []Value{"x"}},
	})

	if got := tbl.RowCount(); got != 3 {
		t.Fatalf("RowCount() = %d, want 3", got)
	}
	b := tbl.Column("b")
	if b.NullCount() != 2 {
		t.Errorf("padded column null count = %d, want 2", b.NullCount())
	}
}

func TestColumnKindChecks(t *testing.T) {
	tests := []struct {
		name      string
		values    []Value
		isNumeric bool
		isInteger bool
		isText    bool
	}{
		{name: "all ints", values: []Value{int64(1), int64(2)}, isNumeric: true, isInteger: true},
		{name: "ints with nulls", values: []Value{int64(1), nil}, isNumeric: true, isInteger: true},
		{name: "mixed int float", values: []Value{int64(1), 2.5}, isNumeric: true},
		{name: "strings", values: []Value{"a", "b"}, isText: true},
		{name: "numeric strings stay text", values: []Value{"1", "2"}, isText: true},
		{name: "mixed string and int is text", values: []Value{"a", int64(1)}, isText: true},
		{name: "all null", values: []Value{nil, nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Column{Name: "c", Values: tt.values}
			if got := c.IsNumeric(); got != tt.isNumeric {
				t.Errorf("IsNumeric() = %v, want %v", got, tt.isNumeric)
			}
			if got := c.IsInteger(); got != tt.isInteger {
				t.Errorf("IsInteger() = %v, want %v", got, tt.isInteger)
			}
			if got := c.IsText(); got != tt.isText {
				t.Errorf("IsText() = %v, want %v", got, tt.isText)
			}
		})
	}
}

func TestValueKeyNumericEquivalence(t *testing.T) {
	if ValueKey(int64(5)) != ValueKey(5.0) {
		t.Error("int64 5 and float64 5.0 should share a value key")
	}
	if ValueKey("5") == ValueKey(int64(5)) {
		t.Error("string \"5\" must not collide with number 5")
	}
	if ValueKey(nil) == ValueKey("") {
		t.Error("null must not collide with empty string")
	}
}

func TestUniqueCountIgnoresNulls(t *testing.T) {
	c := Column{Name: "c", Values: []Value{int64(1), int64(1), nil, 1.0, "1"}}
	// int64(1) and float64(1.0) collapse; "1" is distinct; nulls excluded.
	if got := c.UniqueCount(); got != 2 {
		t.Errorf("UniqueCount() = %d, want 2", got)
	}
}

func TestCoerceFloat(t *testing.T) {
	if _, ok := CoerceFloat("12.5"); !ok {
		t.Error("numeric string should coerce")
	}
	if _, ok := CoerceFloat("abc"); ok {
		t.Error("non-numeric string should not coerce")
	}
	if f, ok := CoerceFloat(int64(3)); !ok || f != 3 {
		t.Errorf("CoerceFloat(int64(3)) = %v, %v", f, ok)
	}
}
