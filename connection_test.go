package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
)

func TestMySQLConnectionDSN(t *testing.T) {
	dsn, err := mysqlConnectionDSN("app:secret@tcp(db:3306)/shop?multiStatements=true", "latin1")
	if err != nil {
		t.Fatalf("mysqlConnectionDSN() error: %v", err)
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("normalised DSN %q does not parse: %v", dsn, err)
	}
	if cfg.User != "app" || cfg.Passwd != "secret" || cfg.Addr != "db:3306" || cfg.DBName != "shop" {
		t.Errorf("credentials or address lost: %+v", cfg)
	}
	if !cfg.ParseTime || !cfg.InterpolateParams || cfg.MultiStatements {
		t.Errorf("ParseTime=%v InterpolateParams=%v MultiStatements=%v, want true, true, false",
			cfg.ParseTime, cfg.InterpolateParams, cfg.MultiStatements)
	}
	if cfg.Loc != time.UTC {
		t.Errorf("Loc = %v, want UTC", cfg.Loc)
	}
	if n := strings.Count(dsn, "charset="); n != 1 || !strings.Contains(dsn, "charset=latin1") {
		t.Errorf("dsn %q should carry charset=latin1 once", dsn)
	}
}

func TestMySQLConnectionDSN_CharsetOverride(t *testing.T) {
	tests := []struct {
		base    string
		charset string
		want    string
	}{
		{"app@tcp(db:3306)/shop?charset=utf8mb4", "latin1", "charset=latin1"},
		{"app@tcp(db:3306)/shop?charset=utf8mb4", "", "charset=utf8mb4"},
		{"app@tcp(db:3306)/shop", "", ""},
	}
	for _, tt := range tests {
		dsn, err := mysqlConnectionDSN(tt.base, tt.charset)
		if err != nil {
			t.Errorf("mysqlConnectionDSN(%q, %q) error: %v", tt.base, tt.charset, err)
			continue
		}
		n := strings.Count(dsn, "charset=")
		switch {
		case tt.want == "" && n != 0:
			t.Errorf("mysqlConnectionDSN(%q, %q) = %q, want no charset", tt.base, tt.charset, dsn)
		case tt.want != "" && (n != 1 || !strings.Contains(dsn, tt.want)):
			t.Errorf("mysqlConnectionDSN(%q, %q) = %q, want %s once", tt.base, tt.charset, dsn, tt.want)
		}
	}
}

func TestMySQLConnectionDSN_Errors(t *testing.T) {
	for _, dsn := range []string{"app:secret@tcp(db:3306)/", "not a dsn"} {
		if _, err := mysqlConnectionDSN(dsn, ""); err == nil {
			t.Errorf("mysqlConnectionDSN(%q) should fail", dsn)
		}
	}
}

func TestSQLiteConnectionURI(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"/var/lib/app.db", "file:/var/lib/app.db?_pragma=foreign_keys(1)"},
		{"app.db", "file:app.db?_pragma=foreign_keys(1)"},
		{":memory:", "file::memory:?_pragma=foreign_keys%281%29"},
		{"file:app.db?cache=shared", "file:app.db?_pragma=foreign_keys%281%29&cache=shared"},
	}
	for _, tt := range tests {
		got, err := sqliteConnectionURI(tt.dsn)
		if err != nil {
			t.Errorf("sqliteConnectionURI(%q) error: %v", tt.dsn, err)
			continue
		}
		if got != tt.want {
			t.Errorf("sqliteConnectionURI(%q) = %q, want %q", tt.dsn, got, tt.want)
		}
	}

	if _, err := sqliteConnectionURI(""); err == nil {
		t.Error("empty DSN should fail")
	}
}

func TestOpenConnection_SQLite(t *testing.T) {
	conn, err := openConnection(context.Background(), ConnectionConfig{Engine: "sqlite3", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("openConnection() error: %v", err)
	}
	defer conn.Close()

	if conn.Dialect().Name() != "sqlite" {
		t.Errorf("Dialect().Name() = %q, want sqlite", conn.Dialect().Name())
	}
	var on int
	if err := conn.db.QueryRow("PRAGMA foreign_keys").Scan(&on); err != nil {
		t.Fatal(err)
	}
	if on != 1 {
		t.Errorf("PRAGMA foreign_keys = %d, want 1", on)
	}
}

func TestOpenConnection_UnknownEngine(t *testing.T) {
	if _, err := openConnection(context.Background(), ConnectionConfig{Engine: "oracle", DSN: "x"}); err == nil {
		t.Fatal("expected an error for an unknown engine")
	}
}
