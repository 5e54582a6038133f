package main

import (
	"math"
	"testing"
)

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		name  string
		quote string
		want  string
	}{
		{"users", "`", "`users`"},
		{"we`ird", "`", "`we``ird`"},
		{"users", `"`, `"users"`},
		{`say "hi"`, `"`, `"say ""hi"""`},
		{"public.users", `"`, `"public"."users"`},
	}
	for _, tt := range tests {
		if got := quoteIdent(tt.name, tt.quote); got != tt.want {
			t.Errorf("quoteIdent(%q, %q) = %s, want %s", tt.name, tt.quote, got, tt.want)
		}
	}
}

func TestSchemaValue(t *testing.T) {
	mysql, pg, sqlite := &mysqlDialect{}, &postgresDialect{}, &sqliteDialect{}

	tests := []struct {
		name string
		d    Dialect
		v    any
		want string
	}{
		{"nil", mysql, nil, "NULL"},
		{"mysql true", mysql, true, "1"},
		{"mysql false", mysql, false, "0"},
		{"postgres true", pg, true, "TRUE"},
		{"postgres false", pg, false, "FALSE"},
		{"sqlite true", sqlite, true, "1"},
		{"int", pg, 42, "42"},
		{"int64", pg, int64(-7), "-7"},
		{"float", pg, 1.5, "1.5"},
		{"large float", mysql, 1e21, "1000000000000000000000"},
		{"infinity", pg, math.Inf(1), "'+Inf'"},
		{"string", pg, "hello", "'hello'"},
		{"embedded quote", sqlite, "it's", "'it''s'"},
		{"mysql backslash", mysql, `C:\tmp`, `'C:\\tmp'`},
		{"postgres backslash", pg, `C:\tmp`, `'C:\tmp'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.SchemaValue(tt.v); got != tt.want {
				t.Errorf("%s.SchemaValue(%#v) = %s, want %s", tt.d.Name(), tt.v, got, tt.want)
			}
		})
	}
}

func TestLengthClause(t *testing.T) {
	tests := []struct {
		col  Column
		want string
	}{
		{Column{Type: TypeString, Limit: 64}, "(64)"},
		{Column{Type: TypeString}, ""},
		{Column{Type: TypeDecimal, Precision: 10, Scale: 2}, "(10,2)"},
		{Column{Type: TypeDecimal}, ""},
		{Column{Type: TypeFloat, Precision: 8}, "(8,0)"},
		{Column{Type: TypeInteger, Limit: 11}, "(11)"},
		{Column{Type: TypeText, Limit: 500}, ""},
		{Column{Type: TypeDate}, ""},
	}
	for _, tt := range tests {
		if got := lengthClause(tt.col); got != tt.want {
			t.Errorf("lengthClause(%+v) = %q, want %q", tt.col, got, tt.want)
		}
	}
}

func TestNativeType(t *testing.T) {
	tests := []struct {
		abstract string
		mysql    string
		postgres string
		sqlite   string
	}{
		{TypeString, "VARCHAR", "VARCHAR", "VARCHAR"},
		{TypeInteger, "INT", "INTEGER", "INTEGER"},
		{TypeBoolean, "TINYINT", "BOOLEAN", "TINYINT"},
		{TypeBinary, "BLOB", "BYTEA", "BLOB"},
		{TypeDatetime, "DATETIME", "TIMESTAMP", "DATETIME"},
		{TypeTimestamp, "TIMESTAMP", "TIMESTAMP", "TIMESTAMP"},
		{"json", "json", "json", "json"},
	}
	for _, tt := range tests {
		if got := (&mysqlDialect{}).NativeType(tt.abstract); got != tt.mysql {
			t.Errorf("mysql NativeType(%q) = %q, want %q", tt.abstract, got, tt.mysql)
		}
		if got := (&postgresDialect{}).NativeType(tt.abstract); got != tt.postgres {
			t.Errorf("postgres NativeType(%q) = %q, want %q", tt.abstract, got, tt.postgres)
		}
		if got := (&sqliteDialect{}).NativeType(tt.abstract); got != tt.sqlite {
			t.Errorf("sqlite NativeType(%q) = %q, want %q", tt.abstract, got, tt.sqlite)
		}
	}
}

func TestNewDialect(t *testing.T) {
	tests := map[string]string{
		"mysql":      "mysql",
		"MariaDB":    "mysql",
		"postgres":   "postgres",
		"postgresql": "postgres",
		" pgsql ":    "postgres",
		"sqlite3":    "sqlite",
	}
	for in, want := range tests {
		d, err := newDialect(in)
		if err != nil {
			t.Errorf("newDialect(%q) error: %v", in, err)
			continue
		}
		if d.Name() != want {
			t.Errorf("newDialect(%q).Name() = %q, want %q", in, d.Name(), want)
		}
	}
	if _, err := newDialect("oracle"); err == nil {
		t.Error("newDialect(oracle) should fail")
	}
}

func TestReferentialAction(t *testing.T) {
	tests := []struct {
		action ReferentialAction
		sql    string
	}{
		{ActionCascade, "CASCADE"},
		{ActionRestrict, "RESTRICT"},
		{ActionSetNull, "SET NULL"},
		{ActionSetDefault, "SET DEFAULT"},
		{ActionNoAction, "NO ACTION"},
		{"", "RESTRICT"},
	}
	for _, tt := range tests {
		if got := tt.action.SQL(); got != tt.sql {
			t.Errorf("ReferentialAction(%q).SQL() = %q, want %q", tt.action, got, tt.sql)
		}
		if tt.action == "" {
			continue
		}
		if got := referentialActionFromSQL(" " + tt.sql + " "); got != tt.action {
			t.Errorf("referentialActionFromSQL(%q) = %q, want %q", tt.sql, got, tt.action)
		}
	}
}
