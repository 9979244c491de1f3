package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Store. It validates rows against the same schema
// as Postgres and can be told to fail, which makes it the backend of choice
// for tests and single-process deployments.
type Memory struct {
	mu      sync.RWMutex
	tables  map[string][]Row
	down    error
	failing map[string]error
}

// NewMemory returns an empty, available Memory store.
func NewMemory() *Memory {
	m := &Memory{
		tables:  make(map[string][]Row, len(columns)),
		failing: make(map[string]error),
	}
	for t := range columns {
		m.tables[t] = nil
	}
	return m
}

// SetAvailable makes every operation fail with ErrBackendUnavailable until
// called again with true.
func (m *Memory) SetAvailable(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.down = nil
		return
	}
	m.down = fmt.Errorf("%w: memory store marked down", ErrBackendUnavailable)
}

// FailOn makes every operation touching table return err. A nil err clears
// the failure.
func (m *Memory) FailOn(table string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failing, table)
		return
	}
	m.failing[table] = err
}

func (m *Memory) fault(tables ...string) error {
	if m.down != nil {
		return m.down
	}
	for _, t := range tables {
		if err, ok := m.failing[t]; ok {
			return err
		}
	}
	return nil
}

func (m *Memory) Probe(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fault(probeTable)
}

func (m *Memory) Insert(ctx context.Context, table string, row Row) error {
	return m.Apply(ctx, Insert{Table: table, Row: row})
}

func (m *Memory) Apply(_ context.Context, inserts ...Insert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tables := make([]string, 0, len(inserts))
	for _, in := range inserts {
		if err := checkRow(in.Table, in.Row); err != nil {
			return err
		}
		tables = append(tables, in.Table)
	}
	if err := m.fault(tables...); err != nil {
		return err
	}
	for _, in := range inserts {
		m.tables[in.Table] = append(m.tables[in.Table], in.Row.Clone())
	}
	return nil
}

func (m *Memory) Select(_ context.Context, table string, q Query) ([]Row, error) {
	if err := checkFilters(table, q.Filters); err != nil {
		return nil, err
	}
	if q.OrderBy != "" {
		if err := checkColumns(table, q.OrderBy); err != nil {
			return nil, err
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fault(table); err != nil {
		return nil, err
	}

	var out []Row
	for _, r := range m.tables[table] {
		if matches(r, q.Filters) {
			out = append(out, r.Clone())
		}
	}
	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			c := compare(out[i][q.OrderBy], out[j][q.OrderBy])
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *Memory) Update(_ context.Context, table string, filters []Filter, patch Row) (int64, error) {
	if len(filters) == 0 {
		return 0, fmt.Errorf("%w: update of %s without filters", ErrInvalidRow, table)
	}
	if err := checkFilters(table, filters); err != nil {
		return 0, err
	}
	if err := checkRow(table, patch); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault(table); err != nil {
		return 0, err
	}

	var n int64
	for _, r := range m.tables[table] {
		if !matches(r, filters) {
			continue
		}
		for k, v := range patch {
			r[k] = v
		}
		n++
	}
	return n, nil
}

func (m *Memory) Delete(_ context.Context, table string, filters []Filter) (int64, error) {
	if len(filters) == 0 {
		return 0, fmt.Errorf("%w: delete from %s without filters", ErrInvalidRow, table)
	}
	if err := checkFilters(table, filters); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault(table); err != nil {
		return 0, err
	}

	kept := m.tables[table][:0]
	var n int64
	for _, r := range m.tables[table] {
		if matches(r, filters) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.tables[table] = kept
	return n, nil
}

// Len returns the number of rows in table.
func (m *Memory) Len(table string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tables[table])
}

func matches(r Row, filters []Filter) bool {
	for _, f := range filters {
		v := r[f.Column]
		switch f.Op {
		case OpEq:
			if compare(v, f.Value) != 0 {
				return false
			}
		case OpIn:
			values, _ := f.Value.([]string)
			found := false
			for _, want := range values {
				if compare(v, want) == 0 {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// compare orders two column values: NULLs first, then times, numbers and
// finally text.
func compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
