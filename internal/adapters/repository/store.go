// Package repository is the table-oriented Backing Store used by the
// practice history: a Postgres implementation and an in-memory one.
package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Row is one untyped table row. Values are only interpreted by the schema
// translators that produce and consume them.
type Row map[string]any

// Op is a filter comparison.
type Op string

const (
	OpEq Op = "="
	OpIn Op = "in"
)

// Filter restricts a select, update or delete to matching rows.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Eq matches rows whose column equals v.
func Eq(column string, v any) Filter { return Filter{Column: column, Op: OpEq, Value: v} }

// In matches rows whose column is one of values.
func In(column string, values []string) Filter { return Filter{Column: column, Op: OpIn, Value: values} }

// Query describes a select.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	// Limit of 0 means no limit.
	Limit int
}

// Insert is one row destined for table, used by Apply.
type Insert struct {
	Table string
	Row   Row
}

// Store is the Backing Store contract.
type Store interface {
	// Probe is a cheap read-only availability check.
	Probe(ctx context.Context) error
	Insert(ctx context.Context, table string, row Row) error
	// Apply inserts every row or none of them.
	Apply(ctx context.Context, inserts ...Insert) error
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	Update(ctx context.Context, table string, filters []Filter, patch Row) (int64, error)
	Delete(ctx context.Context, table string, filters []Filter) (int64, error)
}

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String reads col as text.
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

// Int reads col as an integer; unparseable values read as 0.
func (r Row) Int(col string) int {
	switch v := r[col].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string, []byte:
		n, _ := strconv.Atoi(r.String(col))
		return n
	}
	return 0
}

// Float reads col as a float; unparseable values read as 0.
func (r Row) Float(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string, []byte:
		f, _ := strconv.ParseFloat(r.String(col), 64)
		return f
	}
	return 0
}

// Time reads col as a timestamp; text is parsed as RFC 3339.
func (r Row) Time(col string) time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return v
	case string, []byte:
		t, err := time.Parse(time.RFC3339Nano, r.String(col))
		if err == nil {
			return t
		}
	}
	return time.Time{}
}

// Has reports whether col is present and not NULL.
func (r Row) Has(col string) bool {
	v, ok := r[col]
	return ok && v != nil
}
