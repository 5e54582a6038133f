package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned when a dialect cannot express an operation.
var ErrUnsupported = errors.New("unsupported on this dialect")

func unsupported(dialect, op string) error {
	return fmt.Errorf("%s: %s: %w", dialect, op, ErrUnsupported)
}

// Dialect renders engine-agnostic table descriptions into DDL for one SQL
// engine and reads that engine's catalog back into the same model.
type Dialect interface {
	// Name returns the engine identifier ("mysql", "postgres", "sqlite").
	Name() string

	// QuoteIdentifier quotes a table, column, index or constraint name.
	QuoteIdentifier(name string) string

	// SchemaValue renders a literal for use in DEFAULT and COMMENT clauses.
	SchemaValue(v any) string

	// NativeType maps an abstract type to the engine keyword. Unknown types
	// are returned unchanged.
	NativeType(abstract string) string

	// ColumnSQL renders one column definition.
	ColumnSQL(c Column) string

	// ConstraintSQL renders an inline PRIMARY KEY, UNIQUE or FOREIGN KEY clause.
	ConstraintSQL(c Constraint) string

	// IndexSQL renders a CREATE INDEX statement.
	IndexSQL(table string, idx Index) (string, error)

	// CreateTableSQL renders the statements that create the table, in the
	// order they must be executed.
	CreateTableSQL(t *TableSchema) ([]string, error)

	DropTableSQL(table string, opts DropTableOptions) string
	TruncateTableSQL(table string) string
	RenameTableSQL(from, to string) string

	AddColumnSQL(table string, c Column) ([]string, error)
	ChangeColumnSQL(table string, c Column) ([]string, error)
	RenameColumnSQL(table, from, to string) ([]string, error)
	RemoveColumnSQL(table, column string) ([]string, error)

	AddIndexSQL(table string, idx Index) (string, error)
	RemoveIndexSQL(table, name string) string
	RenameIndexSQL(table, from, to string) ([]string, error)

	AddForeignKeySQL(table string, fk Constraint) ([]string, error)
	RemoveForeignKeySQL(table, name string) ([]string, error)

	// ChangeAutoIncrementSQL sets the next value handed out for the table's
	// autoincrement column.
	ChangeAutoIncrementSQL(table, column string, next int64) string

	DisableForeignKeySQL() string
	EnableForeignKeySQL() string

	// Tables lists the base tables visible through q.
	Tables(ctx context.Context, q Querier) ([]string, error)

	// Describe reads the structure of an existing table.
	Describe(ctx context.Context, q Querier, table string) (*TableSchema, error)
}

// tableRebuilder is implemented by dialects that alter tables by copying them
// into a freshly created replacement.
type tableRebuilder interface {
	RebuildTableSQL(current, desired *TableSchema) ([]string, error)
}

// newDialect returns the Dialect for an engine identifier.
func newDialect(engine string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "mysql", "mariadb":
		return &mysqlDialect{}, nil
	case "postgres", "postgresql", "pgsql":
		return &postgresDialect{}, nil
	case "sqlite", "sqlite3":
		return &sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported engine %q (must be mysql, postgres or sqlite)", engine)
	}
}

// fixedDialect resolves to a dialect without a live connection, used by render.
type fixedDialect struct{ d Dialect }

func (f fixedDialect) Dialect() Dialect { return f.d }
