package main

import (
	"fmt"
	"strings"
)

type mysqlDialect struct{}

var mysqlTypes = map[string]string{
	TypeString:    "VARCHAR",
	TypeText:      "TEXT",
	TypeInteger:   "INT",
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

// Byte limits of the TINY/MEDIUM/LONG text and blob variants.
const (
	mysqlTinyLimit   = 255
	mysqlPlainLimit  = 65535
	mysqlMediumLimit = 16777215
	mysqlLongLimit   = 4294967295
)

func (m *mysqlDialect) Name() string { return "mysql" }

func (m *mysqlDialect) QuoteIdentifier(name string) string {
	return quoteIdent(name, "`")
}

func (m *mysqlDialect) SchemaValue(v any) string {
	return schemaValue(v, true, func(b bool) string {
		if b {
			return "1"
		}
		return "0"
	})
}

func (m *mysqlDialect) NativeType(abstract string) string {
	if t, ok := mysqlTypes[abstract]; ok {
		return t
	}
	return abstract
}

func (m *mysqlDialect) columnType(c Column) string {
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
	case TypeText:
		return mysqlSizedType("TEXT", c.Limit)
	case TypeBinary:
		return mysqlSizedType("BLOB", c.Limit)
	case TypeBoolean:
		return "TINYINT(1)"
	}
	if native, ok := mysqlTypes[c.Type]; ok {
		return native + lengthClause(c)
	}
	return c.Type
}

// mysqlSizedType picks the TINY/MEDIUM/LONG variant able to hold limit bytes.
func mysqlSizedType(base string, limit int) string {
	switch {
	case limit <= 0:
		return base
	case limit <= mysqlTinyLimit:
		return "TINY" + base
	case limit <= mysqlPlainLimit:
		return base
	case limit <= mysqlMediumLimit:
		return "MEDIUM" + base
	default:
		return "LONG" + base
	}
}

func (m *mysqlDialect) ColumnSQL(c Column) string {
	var b strings.Builder
	b.WriteString(m.QuoteIdentifier(c.Name))
	b.WriteByte(' ')
	b.WriteString(m.columnType(c))

	if c.Unsigned && c.isNumeric() {
		b.WriteString(" UNSIGNED")
	}
	if c.Collate != "" && c.isTextual() {
		b.WriteString(" COLLATE " + c.Collate)
	}

	currentTS := (c.Type == TypeTimestamp || c.Type == TypeDatetime) && c.defaultsToCurrentTimestamp()
	notNull := c.NotNull || c.Type == TypeBoolean
	if c.Type == TypeTimestamp && currentTS {
		notNull = false
	}
	if notNull {
		b.WriteString(" NOT NULL")
	}

	switch {
	case currentTS:
		b.WriteString(" DEFAULT CURRENT_TIMESTAMP")
	case c.AutoIncrement:
	case c.Default != nil:
		b.WriteString(" DEFAULT " + m.SchemaValue(c.Default))
	}
	if c.AutoIncrement {
		b.WriteString(" AUTO_INCREMENT")
	}
	if c.Comment != "" {
		b.WriteString(" COMMENT " + m.SchemaValue(c.Comment))
	}
	return b.String()
}

func (m *mysqlDialect) ConstraintSQL(c Constraint) string {
	switch c.Kind {
	case ConstraintPrimary:
		return fmt.Sprintf("PRIMARY KEY (%s)", quoteList(c.Columns, m.QuoteIdentifier))
	case ConstraintUnique:
		return fmt.Sprintf("UNIQUE KEY %s (%s)", m.QuoteIdentifier(c.Name), quoteList(c.Columns, m.QuoteIdentifier))
	default:
		return foreignKeySQL(m, c)
	}
}

func (m *mysqlDialect) IndexSQL(table string, idx Index) (string, error) {
	return createIndexSQL(m, table, idx, true)
}

func (m *mysqlDialect) tableOptions(opts TableOptions) string {
	var b strings.Builder
	if opts.Engine != "" {
		b.WriteString(" ENGINE=" + opts.Engine)
	}
	if opts.Charset != "" {
		b.WriteString(" DEFAULT CHARSET=" + opts.Charset)
	}
	if opts.Collation != "" {
		b.WriteString(" COLLATE=" + opts.Collation)
	}
	return b.String()
}

func (m *mysqlDialect) CreateTableSQL(t *TableSchema) ([]string, error) {
	if err := checkTable(t); err != nil {
		return nil, err
	}
	stmts := []string{createTableStatement(m, t, false, m.tableOptions(t.options))}

	idx, err := indexStatements(m, t)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", t.name, err)
	}
	stmts = append(stmts, idx...)

	if t.options.AutoIncrement > 0 {
		if col, ok := singleColumnPrimaryKey(t); ok {
			stmts = append(stmts, m.ChangeAutoIncrementSQL(t.name, col, t.options.AutoIncrement))
		}
	}
	return stmts, nil
}

func (m *mysqlDialect) DropTableSQL(table string, opts DropTableOptions) string {
	if opts.IfExists {
		return "DROP TABLE IF EXISTS " + m.QuoteIdentifier(table)
	}
	return "DROP TABLE " + m.QuoteIdentifier(table)
}

func (m *mysqlDialect) TruncateTableSQL(table string) string {
	return "TRUNCATE TABLE " + m.QuoteIdentifier(table)
}

func (m *mysqlDialect) RenameTableSQL(from, to string) string {
	return fmt.Sprintf("RENAME TABLE %s TO %s", m.QuoteIdentifier(from), m.QuoteIdentifier(to))
}

func (m *mysqlDialect) AddColumnSQL(table string, c Column) ([]string, error) {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", m.QuoteIdentifier(table), m.ColumnSQL(c))}, nil
}

func (m *mysqlDialect) ChangeColumnSQL(table string, c Column) ([]string, error) {
	return []string{fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", m.QuoteIdentifier(table), m.ColumnSQL(c))}, nil
}

func (m *mysqlDialect) RenameColumnSQL(table, from, to string) ([]string, error) {
	return []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
		m.QuoteIdentifier(table), m.QuoteIdentifier(from), m.QuoteIdentifier(to))}, nil
}

func (m *mysqlDialect) RemoveColumnSQL(table, column string) ([]string, error) {
	return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", m.QuoteIdentifier(table), m.QuoteIdentifier(column))}, nil
}

func (m *mysqlDialect) AddIndexSQL(table string, idx Index) (string, error) {
	return m.IndexSQL(table, idx)
}

func (m *mysqlDialect) RemoveIndexSQL(table, name string) string {
	return fmt.Sprintf("DROP INDEX %s ON %s", m.QuoteIdentifier(name), m.QuoteIdentifier(table))
}

// RenameIndexSQL needs MySQL 5.7 or later.
func (m *mysqlDialect) RenameIndexSQL(table, from, to string) ([]string, error) {
	return []string{fmt.Sprintf("ALTER TABLE %s RENAME INDEX %s TO %s",
		m.QuoteIdentifier(table), m.QuoteIdentifier(from), m.QuoteIdentifier(to))}, nil
}

func (m *mysqlDialect) AddForeignKeySQL(table string, fk Constraint) ([]string, error) {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD %s", m.QuoteIdentifier(table), foreignKeySQL(m, fk))}, nil
}

func (m *mysqlDialect) RemoveForeignKeySQL(table, name string) ([]string, error) {
	return []string{fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", m.QuoteIdentifier(table), m.QuoteIdentifier(name))}, nil
}

func (m *mysqlDialect) ChangeAutoIncrementSQL(table, _ string, next int64) string {
	return fmt.Sprintf("ALTER TABLE %s AUTO_INCREMENT = %d", m.QuoteIdentifier(table), next)
}

func (m *mysqlDialect) DisableForeignKeySQL() string { return "SET FOREIGN_KEY_CHECKS = 0" }
func (m *mysqlDialect) EnableForeignKeySQL() string  { return "SET FOREIGN_KEY_CHECKS = 1" }
