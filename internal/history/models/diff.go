package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Field is a named, already-normalised value of an audited entity.
// Build fields with the constructors below so equal values compare equal
// regardless of input formatting.
type Field struct {
	Name  string
	Value string
}

// FieldChange is one differing field between two snapshots.
type FieldChange struct {
	Field string
	Old   string
	New   string
}

// Text normalises by trimming surrounding whitespace.
func Text(name, v string) Field {
	return Field{Name: name, Value: strings.TrimSpace(v)}
}

// Money formats with exactly two decimals so 100 and 100.00 are equal.
func Money(name string, d decimal.Decimal) Field {
	return Field{Name: name, Value: d.StringFixed(2)}
}

// Decimal formats without trailing zeros (quantities, percentages).
func Decimal(name string, d decimal.Decimal) Field {
	return Field{Name: name, Value: d.String()}
}

// NullMoney formats like Money, or empty when the value is absent.
func NullMoney(name string, d decimal.NullDecimal) Field {
	if !d.Valid {
		return Field{Name: name}
	}
	return Money(name, d.Decimal)
}

// Date formats as YYYY-MM-DD, or empty for nil.
func Date(name string, t *time.Time) Field {
	if t == nil || t.IsZero() {
		return Field{Name: name}
	}
	return Field{Name: name, Value: t.Format(time.DateOnly)}
}

// Timestamp formats as RFC 3339 in UTC, or empty for nil.
func Timestamp(name string, t *time.Time) Field {
	if t == nil || t.IsZero() {
		return Field{Name: name}
	}
	return Field{Name: name, Value: t.UTC().Format(time.RFC3339)}
}

// Bool formats as true/false.
func Bool(name string, b bool) Field {
	return Field{Name: name, Value: strconv.FormatBool(b)}
}

// Int formats a base-10 integer.
func Int(name string, i int) Field {
	return Field{Name: name, Value: strconv.Itoa(i)}
}

// Diff returns the fields whose values differ between old and new. Output order
// follows old, then fields present only in new. A field missing on one side is
// compared against the empty string.
func Diff(old, new []Field) []FieldChange {
	newValues := make(map[string]string, len(new))
	for _, f := range new {
		newValues[f.Name] = f.Value
	}
	seen := make(map[string]bool, len(old))

	var changes []FieldChange
	for _, f := range old {
		seen[f.Name] = true
		nv := newValues[f.Name]
		if strings.TrimSpace(f.Value) != strings.TrimSpace(nv) {
			changes = append(changes, FieldChange{Field: f.Name, Old: f.Value, New: nv})
		}
	}
	for _, f := range new {
		if seen[f.Name] {
			continue
		}
		if strings.TrimSpace(f.Value) != "" {
			changes = append(changes, FieldChange{Field: f.Name, New: f.Value})
		}
	}
	return changes
}

// Expand turns a diff into entries sharing the identity fields of base.
func Expand(base Entry, changes []FieldChange) []Entry {
	if len(changes) == 0 {
		return nil
	}
	entries := make([]Entry, 0, len(changes))
	for _, c := range changes {
		e := base
		e.FieldName = c.Field
		e.OldValue = c.Old
		e.NewValue = c.New
		entries = append(entries, e)
	}
	return entries
}

// Summarize renders fields as "name=value; ..." for single-entry row events.
func Summarize(fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		parts = append(parts, f.Name+"="+f.Value)
	}
	return strings.Join(parts, "; ")
}
