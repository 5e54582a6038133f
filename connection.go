package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "modernc.org/sqlite"             // pure-Go SQLite driver
)

// Connection is an open database handle together with the dialect that
// renders and reads its schema.
type Connection struct {
	dialect Dialect
	dsn     string
	db      *sql.DB
}

// openConnection opens and pings the database described by cfg.
func openConnection(ctx context.Context, cfg ConnectionConfig) (*Connection, error) {
	d, err := newDialect(cfg.Engine)
	if err != nil {
		return nil, err
	}

	var driver, dsn string
	switch d.Name() {
	case "mysql":
		driver = "mysql"
		dsn, err = mysqlConnectionDSN(cfg.DSN, cfg.Charset)
	case "postgres":
		driver, dsn = "pgx", cfg.DSN
	case "sqlite":
		driver = "sqlite"
		dsn, err = sqliteConnectionURI(cfg.DSN)
	}
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name(), err)
	}
	if d.Name() == "sqlite" {
		// PRAGMA foreign_keys is per connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Name(), err)
	}
	return &Connection{dialect: d, dsn: cfg.DSN, db: db}, nil
}

func (c *Connection) Dialect() Dialect { return c.dialect }

// Editor returns a SchemaEditor reading the catalog through this connection.
func (c *Connection) Editor() *SchemaEditor {
	return NewSchemaEditor(c.dialect, newSQLQuerier(c.db))
}

func (c *Connection) Close() error { return c.db.Close() }

// mysqlConnectionDSN normalises a MySQL DSN for catalog access.
func mysqlConnectionDSN(baseDSN, charset string) (string, error) {
	cfg, err := mysql.ParseDSN(baseDSN)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	if cfg.DBName == "" {
		return "", fmt.Errorf("mysql dsn must name a database")
	}
	cfg.ParseTime = true
	cfg.InterpolateParams = true
	cfg.MultiStatements = false
	cfg.Loc = time.UTC
	if charset != "" {
		if err := cfg.Apply(mysql.Charset(charset, cfg.Collation)); err != nil {
			return "", fmt.Errorf("mysql charset: %w", err)
		}
	}
	return cfg.FormatDSN(), nil
}

// sqliteConnectionURI turns a path or file: URI into a URI that enables
// foreign key enforcement.
func sqliteConnectionURI(dsn string) (string, error) {
	if dsn == "" {
		return "", fmt.Errorf("sqlite dsn is empty")
	}
	if dsn == ":memory:" {
		dsn = "file::memory:"
	}
	if !strings.HasPrefix(dsn, "file:") {
		return "file:" + dsn + "?_pragma=foreign_keys(1)", nil
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse sqlite URI: %w", err)
	}
	q := u.Query()
	q.Add("_pragma", "foreign_keys(1)")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
