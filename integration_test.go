//go:build integration

package main

import (
	"context"
	"os"
	"slices"
	"strings"
	"testing"
)

// openIntegration connects to the database named by env, skipping the test
// when it is unset, and drops the fixture tables before and after the test.
func openIntegration(t *testing.T, engine, env string) *Connection {
	t.Helper()
	dsn := os.Getenv(env)
	if dsn == "" {
		t.Skipf("%s env var required", env)
	}
	ctx := context.Background()
	conn, err := openConnection(ctx, ConnectionConfig{Engine: engine, DSN: dsn})
	if err != nil {
		t.Fatalf("open %s: %v", engine, err)
	}

	drop := func() {
		for _, table := range []string{"posts", "users", "scratch"} {
			stmt := conn.Dialect().DropTableSQL(table, DropTableOptions{IfExists: true})
			if _, err := conn.db.ExecContext(context.Background(), stmt); err != nil {
				t.Logf("cleanup %s: %v", table, err)
			}
		}
	}
	drop()
	t.Cleanup(func() {
		drop()
		conn.Close()
	})
	return conn
}

func applyFixtures(t *testing.T, conn *Connection, cfg ApplyConfig) {
	t.Helper()
	batches, err := loadStatementBatches(conn, []string{"testdata/users.toml", "testdata/posts.toml", "testdata/seed.sql"})
	if err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	if err := applyBatches(context.Background(), conn, cfg, batches); err != nil {
		t.Fatalf("apply fixtures: %v", err)
	}
}

func assertNoDrift(t *testing.T, conn *Connection, descriptor string) *TableSchema {
	t.Helper()
	want, err := loadTableDescriptor(descriptor)
	if err != nil {
		t.Fatal(err)
	}
	got, err := conn.Editor().Describe(context.Background(), want.Name())
	if err != nil {
		t.Fatalf("describe %s: %v", want.Name(), err)
	}
	diffs, err := compareTables(conn.Dialect(), want, got)
	if err != nil {
		t.Fatal(err)
	}
	if len(diffs) > 0 {
		t.Errorf("%s drifted:\n  %s", want.Name(), strings.Join(diffs, "\n  "))
	}
	return got
}

func assertRowCount(t *testing.T, conn *Connection, table string, want int) {
	t.Helper()
	var got int
	q := "SELECT COUNT(*) FROM " + conn.Dialect().QuoteIdentifier(table)
	if err := conn.db.QueryRowContext(context.Background(), q).Scan(&got); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	if got != want {
		t.Errorf("%s: expected %d rows, got %d", table, want, got)
	}
}

func execEdits(t *testing.T, conn *Connection, stmts []string, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("render alteration: %v", err)
	}
	if err := applyBatches(context.Background(), conn, ApplyConfig{}, []statementBatch{{source: "edit", stmts: stmts}}); err != nil {
		t.Fatal(err)
	}
}

func TestIntegration_MySQL(t *testing.T) {
	conn := openIntegration(t, "mysql", "MYSQL_DSN")
	ctx := context.Background()
	ed := conn.Editor()

	applyFixtures(t, conn, ApplyConfig{DisableForeignKeys: true})
	assertNoDrift(t, conn, "testdata/users.toml")
	posts := assertNoDrift(t, conn, "testdata/posts.toml")
	assertRowCount(t, conn, "users", 2)
	assertRowCount(t, conn, "posts", 1)

	tables, err := ed.Tables(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(tables, "users") || !slices.Contains(tables, "posts") {
		t.Errorf("Tables() = %v, want users and posts", tables)
	}

	stmts, err := ed.ShowCreateTable(ctx, "users")
	if err != nil {
		t.Fatal(err)
	}
	if err := verifyMySQLStatements(stmts); err != nil {
		t.Errorf("re-rendered users does not parse: %v", err)
	}

	stmts, err = ed.ChangeColumn(ctx, "users", Column{Name: "name", Type: TypeString, Limit: 120, NotNull: true, Default: "anon"})
	execEdits(t, conn, stmts, err)
	stmts, err = ed.RenameIndex(ctx, "users", "idx_users_name", "idx_users_display")
	execEdits(t, conn, stmts, err)
	stmts, err = ed.RemoveForeignKey(ctx, "posts", posts.ForeignKeys()[0].Name)
	execEdits(t, conn, stmts, err)
	stmts, err = ed.AddColumn(ctx, "posts", Column{Name: "views", Type: TypeBigInt, Unsigned: true, NotNull: true, Default: int64(0)})
	execEdits(t, conn, stmts, err)

	users, err := ed.Describe(ctx, "users")
	if err != nil {
		t.Fatal(err)
	}
	name, _ := users.Column("name")
	if name.Limit != 120 || !name.NotNull || name.Default != "anon" {
		t.Errorf("name after change = %+v", name)
	}
	if idx := users.Indexes(); len(idx) != 1 || idx[0].Name != "idx_users_display" {
		t.Errorf("indexes after rename = %+v", idx)
	}
	got, err := ed.Describe(ctx, "posts")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.ForeignKeys()) != 0 {
		t.Errorf("foreign keys after removal = %+v", got.ForeignKeys())
	}
	if views, ok := got.Column("views"); !ok || !views.Unsigned || views.Type != TypeBigInt {
		t.Errorf("views = %+v", views)
	}
	assertRowCount(t, conn, "posts", 1)
}

func TestIntegration_Postgres(t *testing.T) {
	conn := openIntegration(t, "postgres", "POSTGRES_DSN")
	ctx := context.Background()
	ed := conn.Editor()

	applyFixtures(t, conn, ApplyConfig{Transactional: true})
	assertNoDrift(t, conn, "testdata/users.toml")
	assertNoDrift(t, conn, "testdata/posts.toml")
	assertRowCount(t, conn, "users", 2)

	stmts, err := ed.ChangeColumn(ctx, "users", Column{Name: "name", Type: TypeText, NotNull: true, Default: "anon"})
	execEdits(t, conn, stmts, err)
	stmts, err = ed.RenameIndex(ctx, "users", "idx_users_name", "idx_users_display")
	execEdits(t, conn, stmts, err)

	users, err := ed.Describe(ctx, "users")
	if err != nil {
		t.Fatal(err)
	}
	name, _ := users.Column("name")
	if name.Type != TypeText || !name.NotNull || name.Default != "anon" {
		t.Errorf("name after change = %+v", name)
	}

	// a failed transactional apply leaves nothing behind
	batches := []statementBatch{{source: "broken", stmts: []string{
		`CREATE TABLE "scratch" (id INT)`,
		`CREATE TABLE "scratch" (id INT)`,
	}}}
	if err := applyBatches(ctx, conn, ApplyConfig{Transactional: true}, batches); err == nil {
		t.Fatal("expected the duplicate CREATE TABLE to fail")
	}
	tables, err := ed.Tables(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if slices.Contains(tables, "scratch") {
		t.Errorf("scratch survived a rolled back apply: %v", tables)
	}
}
