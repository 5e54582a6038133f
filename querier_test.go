package main

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockQuerier(t *testing.T) (*sqlQuerier, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newSQLQuerier(db), mock
}

func TestSQLQuerierFetchAll(t *testing.T) {
	q, mock := newMockQuerier(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, size, note FROM things WHERE kind = ?")).
		WithArgs("box").
		WillReturnRows(sqlmock.NewRows([]string{"name", "size", "note"}).
			AddRow([]byte("crate"), int64(3), nil).
			AddRow("bin", int64(7), "dusty"))

	rows, err := q.FetchAll(context.Background(), "SELECT name, size, note FROM things WHERE kind = ?", "box")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "crate", rows[0]["name"], "[]byte columns are converted to strings")
	assert.Equal(t, int64(3), rows[0].Int("size"))
	assert.Equal(t, int64(7), rows[1].Int("size"))

	_, ok := rows[0].NullString("note")
	assert.False(t, ok, "NULL note reported as present")
	note, ok := rows[1].NullString("note")
	assert.True(t, ok)
	assert.Equal(t, "dusty", note)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchRow(t *testing.T) {
	q, mock := newMockQuerier(t)
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"n"}))
	mock.ExpectQuery("SELECT 2").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(2)).AddRow(int64(3)))

	ctx := context.Background()
	row, err := fetchRow(ctx, q, "SELECT 1")
	require.NoError(t, err)
	assert.Nil(t, row)

	row, err = fetchRow(ctx, q, "SELECT 2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), row.Int("n"), "fetchRow returns the first row")
}

func TestRowAccessors(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := Row{
		"COLUMN_NAME": "id",
		"is_nullable": "YES",
		"flag_t":      "t",
		"flag_bool":   true,
		"flag_int":    int64(0),
		"width":       "11",
		"bytes":       []byte("raw"),
		"float":       float64(42),
		"created":     ts,
		"junk":        "abc",
		"nothing":     nil,
	}

	if got := r.String("column_name"); got != "id" {
		t.Errorf("String(column_name) = %q, want case-insensitive match id", got)
	}
	if got := r.String("bytes"); got != "raw" {
		t.Errorf("String(bytes) = %q, want raw", got)
	}
	if got := r.String("created"); got != "2024-05-01T12:00:00Z" {
		t.Errorf("String(created) = %q", got)
	}
	if got := r.String("missing"); got != "" {
		t.Errorf("String(missing) = %q, want empty", got)
	}

	for key, want := range map[string]bool{
		"is_nullable": true, "flag_t": true, "flag_bool": true,
		"flag_int": false, "nothing": false, "missing": false,
	} {
		if got := r.Bool(key); got != want {
			t.Errorf("Bool(%s) = %v, want %v", key, got, want)
		}
	}

	for key, want := range map[string]int64{"width": 11, "float": 42, "flag_bool": 1, "junk": 0, "nothing": 0} {
		if got := r.Int(key); got != want {
			t.Errorf("Int(%s) = %d, want %d", key, got, want)
		}
	}
}
