package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// Postgres implements Store over database/sql with the lib/pq driver.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// OpenPostgres opens and pings a connection pool for dsn.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping postgres: %w", ErrBackendUnavailable, err)
	}
	return db, nil
}

// InitSchema creates every table that does not exist yet.
func (p *Postgres) InitSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) Probe(ctx context.Context) error {
	rows, err := p.db.QueryContext(ctx, "SELECT 1 FROM "+pq.QuoteIdentifier(probeTable)+" LIMIT 1")
	if err != nil {
		return fmt.Errorf("%w: probe: %w", ErrBackendUnavailable, err)
	}
	defer rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: probe: %w", ErrBackendUnavailable, err)
	}
	return nil
}

func (p *Postgres) Insert(ctx context.Context, table string, row Row) error {
	if err := checkRow(table, row); err != nil {
		return err
	}
	query, args := insertSQL(table, row)
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: insert into %s: %w", ErrBackendUnavailable, table, err)
	}
	return nil
}

// Apply runs every insert in one transaction.
func (p *Postgres) Apply(ctx context.Context, inserts ...Insert) error {
	for _, in := range inserts {
		if err := checkRow(in.Table, in.Row); err != nil {
			return err
		}
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", ErrBackendUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, in := range inserts {
		query, args := insertSQL(in.Table, in.Row)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: insert into %s: %w", ErrBackendUnavailable, in.Table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrBackendUnavailable, err)
	}
	return nil
}

func (p *Postgres) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	if err := checkFilters(table, q.Filters); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(pq.QuoteIdentifier(table))
	where, args := whereSQL(q.Filters, 1)
	b.WriteString(where)
	if q.OrderBy != "" {
		if err := checkColumns(table, q.OrderBy); err != nil {
			return nil, err
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(pq.QuoteIdentifier(q.OrderBy))
		if q.Desc {
			b.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.Limit))
	}

	rows, err := p.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: select from %s: %w", ErrBackendUnavailable, table, err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: scan %s: %w", ErrBackendUnavailable, table, err)
	}
	return out, nil
}

func (p *Postgres) Update(ctx context.Context, table string, filters []Filter, patch Row) (int64, error) {
	if len(filters) == 0 {
		return 0, fmt.Errorf("%w: update of %s without filters", ErrInvalidRow, table)
	}
	if err := checkFilters(table, filters); err != nil {
		return 0, err
	}
	if err := checkRow(table, patch); err != nil {
		return 0, err
	}

	keys := sortedKeys(patch)
	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+len(filters))
	for i, k := range keys {
		sets[i] = pq.QuoteIdentifier(k) + " = $" + strconv.Itoa(i+1)
		args = append(args, patch[k])
	}
	where, wargs := whereSQL(filters, len(keys)+1)
	args = append(args, wargs...)

	query := "UPDATE " + pq.QuoteIdentifier(table) + " SET " + strings.Join(sets, ", ") + where
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: update %s: %w", ErrBackendUnavailable, table, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (p *Postgres) Delete(ctx context.Context, table string, filters []Filter) (int64, error) {
	if len(filters) == 0 {
		return 0, fmt.Errorf("%w: delete from %s without filters", ErrInvalidRow, table)
	}
	if err := checkFilters(table, filters); err != nil {
		return 0, err
	}

	where, args := whereSQL(filters, 1)
	res, err := p.db.ExecContext(ctx, "DELETE FROM "+pq.QuoteIdentifier(table)+where, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: delete from %s: %w", ErrBackendUnavailable, table, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func insertSQL(table string, row Row) (string, []any) {
	keys := sortedKeys(row)
	cols := make([]string, len(keys))
	marks := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		cols[i] = pq.QuoteIdentifier(k)
		marks[i] = "$" + strconv.Itoa(i+1)
		args[i] = row[k]
	}
	return "INSERT INTO " + pq.QuoteIdentifier(table) +
		" (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")", args
}

// whereSQL renders filters with placeholders numbered from start.
func whereSQL(filters []Filter, start int) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	parts := make([]string, len(filters))
	args := make([]any, len(filters))
	for i, f := range filters {
		mark := "$" + strconv.Itoa(start+i)
		col := pq.QuoteIdentifier(f.Column)
		if f.Op == OpIn {
			values, _ := f.Value.([]string)
			parts[i] = col + " = ANY(" + mark + ")"
			args[i] = pq.Array(values)
			continue
		}
		parts[i] = col + " = " + mark
		args[i] = f.Value
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				r[c] = string(b)
				continue
			}
			r[c] = values[i]
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
