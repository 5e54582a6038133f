package main

import (
	"fmt"
	"strings"
)

type sqliteDialect struct{}

var sqliteTypes = map[string]string{
	TypeString:    "VARCHAR",
	TypeText:      "TEXT",
	TypeInteger:   "INTEGER",
	TypeBigInt:    "BIGINT",
	TypeFloat:     "FLOAT",
	TypeDecimal:   "DECIMAL",
	TypeDate:      "DATE",
	TypeDatetime:  "DATETIME",
	TypeTime:      "TIME",
	TypeTimestamp: "TIMESTAMP",
	TypeBinary:    "BLOB",
	TypeBoolean:   "TINYINT",
}

func (s *sqliteDialect) Name() string { return "sqlite" }

func (s *sqliteDialect) QuoteIdentifier(name string) string {
	return quoteIdent(name, `"`)
}

func (s *sqliteDialect) SchemaValue(v any) string {
	return schemaValue(v, false, func(b bool) string {
		if b {
			return "1"
		}
		return "0"
	})
}

func (s *sqliteDialect) NativeType(abstract string) string {
	if t, ok := sqliteTypes[abstract]; ok {
		return t
	}
	return abstract
}

func (s *sqliteDialect) columnType(c Column) string {
	switch c.Type {
	case TypeString:
		limit := c.Limit
		if limit <= 0 {
			limit = 255
		}
		if c.Fixed {
			return fmt.Sprintf("CHAR(%d)", limit)
		}
		return fmt.Sprintf("VARCHAR(%d)", limit)
	case TypeBoolean:
		return "TINYINT(1)"
	}
	if native, ok := sqliteTypes[c.Type]; ok {
		return native + lengthClause(c)
	}
	return c.Type
}

// ColumnSQL declares an autoincrement column as the rowid alias
// INTEGER PRIMARY KEY AUTOINCREMENT; the table builder then omits the
// separate primary key clause.
func (s *sqliteDialect) ColumnSQL(c Column) string {
	var b strings.Builder
	b.WriteString(s.QuoteIdentifier(c.Name))
	b.WriteByte(' ')

	if c.AutoIncrement {
		b.WriteString("INTEGER PRIMARY KEY AUTOINCREMENT")
		s.writeComment(&b, c.Comment)
		return b.String()
	}

	b.WriteString(s.columnType(c))
	if c.Unsigned && c.isNumeric() {
		b.WriteString(" UNSIGNED")
	}
	if c.Collate != "" && c.isTextual() {
		b.WriteString(" COLLATE " + c.Collate)
	}

	currentTS := sqliteCurrentTimestamp(c)
	if sqliteNotNull(c) {
		b.WriteString(" NOT NULL")
	}
	switch {
	case currentTS:
		b.WriteString(" DEFAULT CURRENT_TIMESTAMP")
	case c.Default != nil:
		b.WriteString(" DEFAULT " + s.SchemaValue(c.Default))
	}
	s.writeComment(&b, c.Comment)
	return b.String()
}

func sqliteCurrentTimestamp(c Column) bool {
	return (c.Type == TypeTimestamp || c.Type == TypeDatetime) && c.defaultsToCurrentTimestamp()
}

// sqliteNotNull reports whether ColumnSQL declares c NOT NULL. Booleans are
// always NOT NULL; a TIMESTAMP defaulting to CURRENT_TIMESTAMP never is.
func sqliteNotNull(c Column) bool {
	if c.Type == TypeTimestamp && sqliteCurrentTimestamp(c) {
		return false
	}
	return c.NotNull || c.Type == TypeBoolean
}

// implicitDefault is the value a rebuild copies into a new NOT NULL column
// that has no default.
func (s *sqliteDialect) implicitDefault(c Column) string {
	if c.isNumeric() || c.Type == TypeBoolean {
		return "0"
	}
	return "''"
}

func (s *sqliteDialect) writeComment(b *strings.Builder, comment string) {
	if comment == "" {
		return
	}
	b.WriteString(" /* " + strings.ReplaceAll(comment, "*/", "* /") + " */")
}

func (s *sqliteDialect) ConstraintSQL(c Constraint) string {
	switch c.Kind {
	case ConstraintPrimary:
		return fmt.Sprintf("PRIMARY KEY (%s)", quoteList(c.Columns, s.QuoteIdentifier))
	case ConstraintUnique:
		return fmt.Sprintf("UNIQUE (%s)", quoteList(c.Columns, s.QuoteIdentifier))
	default:
		return foreignKeySQL(s, c)
	}
}

func (s *sqliteDialect) IndexSQL(table string, idx Index) (string, error) {
	return createIndexSQL(s, table, idx, false)
}

func (s *sqliteDialect) CreateTableSQL(t *TableSchema) ([]string, error) {
	if err := checkTable(t); err != nil {
		return nil, err
	}
	ai, hasAI := t.autoIncrementColumn()
	stmts := []string{createTableStatement(s, t, hasAI, "")}

	idx, err := indexStatements(s, t)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", t.name, err)
	}
	stmts = append(stmts, idx...)

	// the sqlite_sequence row only exists once a row has been inserted
	if t.options.AutoIncrement > 0 && hasAI {
		stmts = append(stmts, s.ChangeAutoIncrementSQL(t.name, ai.Name, t.options.AutoIncrement))
	}
	return stmts, nil
}

func (s *sqliteDialect) DropTableSQL(table string, opts DropTableOptions) string {
	if opts.IfExists {
		return "DROP TABLE IF EXISTS " + s.QuoteIdentifier(table)
	}
	return "DROP TABLE " + s.QuoteIdentifier(table)
}

func (s *sqliteDialect) TruncateTableSQL(table string) string {
	return "DELETE FROM " + s.QuoteIdentifier(table)
}

func (s *sqliteDialect) RenameTableSQL(from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", s.QuoteIdentifier(from), s.QuoteIdentifier(to))
}

func (s *sqliteDialect) AddColumnSQL(table string, c Column) ([]string, error) {
	switch {
	case c.AutoIncrement:
		return nil, unsupported(s.Name(), "add autoincrement column")
	case sqliteCurrentTimestamp(c):
		return nil, unsupported(s.Name(), "add column with non-constant default")
	case sqliteNotNull(c) && c.Default == nil:
		return nil, unsupported(s.Name(), "add NOT NULL column without default")
	}
	return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", s.QuoteIdentifier(table), s.ColumnSQL(c))}, nil
}

func (s *sqliteDialect) ChangeColumnSQL(string, Column) ([]string, error) {
	return nil, unsupported(s.Name(), "change column")
}

// RenameColumnSQL needs SQLite 3.25 or later.
func (s *sqliteDialect) RenameColumnSQL(table, from, to string) ([]string, error) {
	return []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
		s.QuoteIdentifier(table), s.QuoteIdentifier(from), s.QuoteIdentifier(to))}, nil
}

func (s *sqliteDialect) RemoveColumnSQL(string, string) ([]string, error) {
	return nil, unsupported(s.Name(), "remove column")
}

func (s *sqliteDialect) AddIndexSQL(table string, idx Index) (string, error) {
	return s.IndexSQL(table, idx)
}

func (s *sqliteDialect) RemoveIndexSQL(_, name string) string {
	return "DROP INDEX " + s.QuoteIdentifier(name)
}

func (s *sqliteDialect) RenameIndexSQL(string, string, string) ([]string, error) {
	return nil, unsupported(s.Name(), "rename index")
}

func (s *sqliteDialect) AddForeignKeySQL(string, Constraint) ([]string, error) {
	return nil, unsupported(s.Name(), "add foreign key")
}

func (s *sqliteDialect) RemoveForeignKeySQL(string, string) ([]string, error) {
	return nil, unsupported(s.Name(), "remove foreign key")
}

// ChangeAutoIncrementSQL only takes effect once the table has held a row.
func (s *sqliteDialect) ChangeAutoIncrementSQL(table, _ string, next int64) string {
	return fmt.Sprintf("UPDATE SQLITE_SEQUENCE SET seq = %d WHERE name = %s", next-1, s.SchemaValue(table))
}

func (s *sqliteDialect) DisableForeignKeySQL() string { return "PRAGMA foreign_keys = OFF" }
func (s *sqliteDialect) EnableForeignKeySQL() string  { return "PRAGMA foreign_keys = ON" }

// RebuildTableSQL replaces current with desired by copying the shared
// columns into a new table:
//
//	CREATE TABLE "_t_rebuild" (...)
//	INSERT INTO "_t_rebuild" (...) SELECT ... FROM "t"
//	DROP TABLE "t"
//	ALTER TABLE "_t_rebuild" RENAME TO "t"
//	CREATE INDEX ...
//
// Callers should run the sequence with foreign keys disabled.
func (s *sqliteDialect) RebuildTableSQL(current, desired *TableSchema) ([]string, error) {
	if err := checkTable(desired); err != nil {
		return nil, err
	}
	if current == nil {
		return nil, invalidSchema("rebuild of %s: current table is required", desired.name)
	}

	tmp := desired.clone()
	tmp.name = "_" + current.name + "_rebuild"
	tmp.indexes = nil
	tmp.options.Temporary = false
	_, hasAI := tmp.autoIncrementColumn()

	// new NOT NULL columns without a default get an implicit zero value
	var into, from []string
	for _, c := range desired.columns {
		switch {
		case current.columnIndex(c.Name) >= 0:
			into = append(into, s.QuoteIdentifier(c.Name))
			from = append(from, s.QuoteIdentifier(c.Name))
		case sqliteNotNull(c) && c.Default == nil && !c.AutoIncrement:
			into = append(into, s.QuoteIdentifier(c.Name))
			from = append(from, s.implicitDefault(c))
		}
	}

	stmts := []string{createTableStatement(s, tmp, hasAI, "")}
	if len(from) > 0 {
		stmts = append(stmts, fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			s.QuoteIdentifier(tmp.name), strings.Join(into, ", "), strings.Join(from, ", "), s.QuoteIdentifier(current.name)))
	}
	stmts = append(stmts,
		s.DropTableSQL(current.name, DropTableOptions{}),
		s.RenameTableSQL(tmp.name, desired.name),
	)

	idx, err := indexStatements(s, desired)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", desired.name, err)
	}
	return append(stmts, idx...), nil
}
