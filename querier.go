package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Row is one introspection result row keyed by column label.
type Row map[string]any

// Querier runs introspection queries. Implementations only ever receive
// SHOW, PRAGMA and catalog SELECT statements.
type Querier interface {
	FetchAll(ctx context.Context, query string, args ...any) ([]Row, error)
}

// sqlQuerier adapts a *sql.DB (or *sql.Conn / *sql.Tx) to Querier.
type sqlQuerier struct {
	db interface {
		QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	}
}

func newSQLQuerier(db *sql.DB) *sqlQuerier {
	return &sqlQuerier{db: db}
}

func (s *sqlQuerier) FetchAll(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				r[c] = string(b)
			} else {
				r[c] = vals[i]
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// fetchRow returns the first row of the result, or nil when there is none.
func fetchRow(ctx context.Context, q Querier, query string, args ...any) (Row, error) {
	rows, err := q.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// lookup finds key case-insensitively; catalogs disagree on label casing.
func (r Row) lookup(key string) (any, bool) {
	if v, ok := r[key]; ok {
		return v, true
	}
	for k, v := range r {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// String returns the value as text, "" for NULL or a missing key.
func (r Row) String(key string) string {
	v, ok := r.lookup(key)
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// NullString returns the value as text and whether it was non-NULL.
func (r Row) NullString(key string) (string, bool) {
	v, ok := r.lookup(key)
	if !ok || v == nil {
		return "", false
	}
	return r.String(key), true
}

// Int returns the value as an integer, 0 for NULL or unparseable text.
func (r Row) Int(key string) int64 {
	v, ok := r.lookup(key)
	if !ok || v == nil {
		return 0
	}
	switch x := v.(type) {
	case int64:
		return x
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case int16:
		return int64(x)
	case uint64:
		return int64(x)
	case float64:
		return int64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		n, err := strconv.ParseInt(strings.TrimSpace(r.String(key)), 10, 64)
		if err != nil {
			return 0
		}
		return n
	}
}

// Bool interprets YES/NO, t/f, 1/0 and native booleans.
func (r Row) Bool(key string) bool {
	v, ok := r.lookup(key)
	if !ok || v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	switch strings.ToLower(strings.TrimSpace(r.String(key))) {
	case "yes", "y", "true", "t", "1":
		return true
	}
	return false
}
