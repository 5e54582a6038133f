package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			"single statement",
			"SELECT 1",
			[]string{"SELECT 1"},
		},
		{
			"two statements",
			"SELECT 1; SELECT 2;",
			[]string{"SELECT 1", "SELECT 2"},
		},
		{
			"trailing without semicolon",
			"SELECT 1; SELECT 2",
			[]string{"SELECT 1", "SELECT 2"},
		},
		{
			"empty statements skipped",
			"SELECT 1;; ;SELECT 2;",
			[]string{"SELECT 1", "SELECT 2"},
		},
		{
			"semicolon inside quotes",
			"INSERT INTO t VALUES ('a;b'); SELECT 2",
			[]string{"INSERT INTO t VALUES ('a;b')", "SELECT 2"},
		},
		{
			"escaped quotes",
			"SELECT 'it''s;'; SELECT 2",
			[]string{"SELECT 'it''s;'", "SELECT 2"},
		},
		{
			"whitespace trimmed",
			"  SELECT 1  ;  SELECT 2  ;  ",
			[]string{"SELECT 1", "SELECT 2"},
		},
		{
			"empty input",
			"",
			nil,
		},
		{
			"only whitespace",
			"   \n\t  ",
			nil,
		},
		{
			"multiline DDL",
			"CREATE TABLE t (\n  id INT\n);\nCREATE INDEX i ON t (id);",
			[]string{"CREATE TABLE t (\n  id INT\n)", "CREATE INDEX i ON t (id)"},
		},
		{
			"comments preserved in statements",
			"-- seed; users\nINSERT INTO t VALUES (1); SELECT 1",
			[]string{"-- seed; users\nINSERT INTO t VALUES (1)", "SELECT 1"},
		},
		{
			"dollar-quoted function body",
			"CREATE FUNCTION f() RETURNS void AS $$ BEGIN PERFORM 1; END; $$ LANGUAGE plpgsql; SELECT 1;",
			[]string{"CREATE FUNCTION f() RETURNS void AS $$ BEGIN PERFORM 1; END; $$ LANGUAGE plpgsql", "SELECT 1"},
		},
		{
			"tagged dollar-quoted body",
			"DO $fn$ BEGIN RAISE NOTICE 'x;y'; END; $fn$; SELECT 2;",
			[]string{"DO $fn$ BEGIN RAISE NOTICE 'x;y'; END; $fn$", "SELECT 2"},
		},
		{
			"positional parameter is not a tag",
			"SELECT $1; SELECT 2",
			[]string{"SELECT $1", "SELECT 2"},
		},
		{
			"nested block comment with semicolon",
			"/* outer; /* inner; */ done; */ SELECT 1; SELECT 2;",
			[]string{"/* outer; /* inner; */ done; */ SELECT 1", "SELECT 2"},
		},
		{
			"double-quoted identifier with semicolon",
			`CREATE TABLE "a;b" (id INT); SELECT 2;`,
			[]string{`CREATE TABLE "a;b" (id INT)`, "SELECT 2"},
		},
		{
			"backtick identifier with semicolon",
			"CREATE TABLE `a;b` (`c;d` INT); SELECT 2",
			[]string{"CREATE TABLE `a;b` (`c;d` INT)", "SELECT 2"},
		},
		{
			"doubled backtick",
			"SELECT `x``;y` FROM t; SELECT 2",
			[]string{"SELECT `x``;y` FROM t", "SELECT 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitStatements(tt.sql)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitStatements(%q) =\n  %v\nwant:\n  %v", tt.sql, got, tt.want)
			}
		})
	}
}

// recordingExecutor records statements and fails on the first one
// containing failOn.
type recordingExecutor struct {
	stmts  []string
	failOn string
}

func (e *recordingExecutor) execStatement(_ context.Context, stmt string) error {
	e.stmts = append(e.stmts, stmt)
	if e.failOn != "" && strings.Contains(stmt, e.failOn) {
		return errors.New("boom")
	}
	return nil
}

func TestExecBatches(t *testing.T) {
	batches := []statementBatch{
		{source: "a.sql", stmts: []string{"CREATE TABLE a (id INT)", "CREATE TABLE b (id INT)"}},
		{source: "c.toml", stmts: []string{"CREATE TABLE c (id INT)"}},
	}
	ctx := context.Background()

	exec := &recordingExecutor{}
	if err := execBatches(ctx, exec, &mysqlDialect{}, batches, true); err != nil {
		t.Fatalf("execBatches() error: %v", err)
	}
	want := []string{
		"SET FOREIGN_KEY_CHECKS = 0",
		"CREATE TABLE a (id INT)",
		"CREATE TABLE b (id INT)",
		"CREATE TABLE c (id INT)",
		"SET FOREIGN_KEY_CHECKS = 1",
	}
	if !slices.Equal(exec.stmts, want) {
		t.Errorf("executed %q, want %q", exec.stmts, want)
	}

	exec = &recordingExecutor{}
	if err := execBatches(ctx, exec, &sqliteDialect{}, batches, false); err != nil {
		t.Fatalf("execBatches() error: %v", err)
	}
	if len(exec.stmts) != 3 {
		t.Errorf("without disableFKs executed %q, want only the batch statements", exec.stmts)
	}

	exec = &recordingExecutor{failOn: "TABLE b"}
	err := execBatches(ctx, exec, &postgresDialect{}, batches, true)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.HasPrefix(err.Error(), "a.sql: statement 2: boom\nSQL: CREATE TABLE b") {
		t.Errorf("error = %q, want source and statement number", err)
	}
	if last := exec.stmts[len(exec.stmts)-1]; last != "CREATE TABLE b (id INT)" {
		t.Errorf("execution continued after the failure, last statement %q", last)
	}

	exec = &recordingExecutor{failOn: "FOREIGN_KEY_CHECKS = 0"}
	if err := execBatches(ctx, exec, &mysqlDialect{}, batches, true); err == nil || !strings.HasPrefix(err.Error(), "disable foreign keys") {
		t.Errorf("error = %v, want disable foreign keys failure", err)
	}
}

func TestLoadStatementBatches(t *testing.T) {
	r := fixedDialect{d: &postgresDialect{}}
	batches, err := loadStatementBatches(r, []string{"testdata/users.toml", "testdata/seed.sql"})
	if err != nil {
		t.Fatalf("loadStatementBatches() error: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	if b := batches[0]; b.source != "testdata/users.toml" || !strings.HasPrefix(b.stmts[0], `CREATE TABLE "users"`) {
		t.Errorf("descriptor batch = %+v", b)
	}
	seed := batches[1].stmts
	if len(seed) != 3 || !strings.Contains(seed[1], "'Alan; Turing'") {
		t.Errorf("seed batch = %q, want three statements with the quoted semicolon intact", seed)
	}

	dir := t.TempDir()
	bad := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(bad, []byte("SELECT 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadStatementBatches(r, []string{bad}); err == nil || !strings.Contains(err.Error(), "unsupported file type") {
		t.Errorf("error = %v, want unsupported file type", err)
	}
	if _, err := loadStatementBatches(r, []string{filepath.Join(dir, "missing.sql")}); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestApplyBatches_SQLite(t *testing.T) {
	conn := openSQLite(t)
	ctx := context.Background()

	batches, err := loadStatementBatches(conn, []string{"testdata/posts.toml", "testdata/users.toml", "testdata/seed.sql"})
	if err != nil {
		t.Fatalf("loadStatementBatches() error: %v", err)
	}
	// posts is created before users, so foreign keys must be off while applying
	if err := applyBatches(ctx, conn, ApplyConfig{DisableForeignKeys: true}, batches); err != nil {
		t.Fatalf("applyBatches() error: %v", err)
	}
	if n := countRows(t, conn, "users"); n != 2 {
		t.Errorf("users has %d rows, want 2", n)
	}
	var name string
	if err := conn.db.QueryRow(`SELECT name FROM users WHERE id = 2`).Scan(&name); err != nil {
		t.Fatal(err)
	}
	if name != "Alan; Turing" {
		t.Errorf("name = %q, want the semicolon preserved", name)
	}

	// a failing batch reports where it stopped
	err = applyBatches(ctx, conn, ApplyConfig{}, []statementBatch{{source: "dup", stmts: []string{
		`INSERT INTO users (email) VALUES ('grace@example.com')`,
		`INSERT INTO users (email) VALUES ('grace@example.com')`,
	}}})
	if err == nil || !strings.HasPrefix(err.Error(), "dup: statement 2:") {
		t.Errorf("error = %v, want the duplicate email to fail statement 2", err)
	}
}
