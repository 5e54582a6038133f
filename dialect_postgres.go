package main

import (
	"fmt"
	"strings"
)

type postgresDialect struct{}

var postgresTypes = map[string]string{
	TypeString:    "VARCHAR",
	TypeText:      "TEXT",
	TypeInteger:   "INTEGER",
	TypeBigInt:    "BIGINT",
	TypeFloat:     "FLOAT",
	TypeDecimal:   "DECIMAL",
	TypeDate:      "DATE",
	TypeDatetime:  "TIMESTAMP",
	TypeTime:      "TIME",
	TypeTimestamp: "TIMESTAMP",
	TypeBinary:    "BYTEA",
	TypeBoolean:   "BOOLEAN",
}

func (p *postgresDialect) Name() string { return "postgres" }

func (p *postgresDialect) QuoteIdentifier(name string) string {
	return quoteIdent(name, `"`)
}

func (p *postgresDialect) SchemaValue(v any) string {
	return schemaValue(v, false, func(b bool) string {
		if b {
			return "TRUE"
		}
		return "FALSE"
	})
}

func (p *postgresDialect) NativeType(abstract string) string {
	if t, ok := postgresTypes[abstract]; ok {
		return t
	}
	return abstract
}

// columnType ignores integer display widths and float precision, neither of
// which PostgreSQL supports.
func (p *postgresDialect) columnType(c Column) string {
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
	case TypeDecimal:
		return "DECIMAL" + lengthClause(c)
	}
	if native, ok := postgresTypes[c.Type]; ok {
		return native
	}
	return c.Type
}

func (p *postgresDialect) serialType(c Column) (string, bool) {
	if !c.AutoIncrement {
		return "", false
	}
	switch c.Type {
	case TypeInteger:
		return "SERIAL", true
	case TypeBigInt:
		return "BIGSERIAL", true
	}
	return "", false
}

func (p *postgresDialect) ColumnSQL(c Column) string {
	var b strings.Builder
	b.WriteString(p.QuoteIdentifier(c.Name))
	b.WriteByte(' ')

	if serial, ok := p.serialType(c); ok {
		b.WriteString(serial)
		return b.String()
	}

	b.WriteString(p.columnType(c))
	if c.Collate != "" && c.isTextual() {
		b.WriteString(" COLLATE " + p.QuoteIdentifier(c.Collate))
	}

	currentTS := (c.Type == TypeTimestamp || c.Type == TypeDatetime) && c.defaultsToCurrentTimestamp()
	if c.NotNull && !(c.Type == TypeTimestamp && currentTS) {
		b.WriteString(" NOT NULL")
	}
	switch {
	case currentTS:
		b.WriteString(" DEFAULT CURRENT_TIMESTAMP")
	case c.Default != nil:
		b.WriteString(" DEFAULT " + p.SchemaValue(c.Default))
	}
	return b.String()
}

func (p *postgresDialect) ConstraintSQL(c Constraint) string {
	switch c.Kind {
	case ConstraintPrimary:
		return fmt.Sprintf("PRIMARY KEY (%s)", quoteList(c.Columns, p.QuoteIdentifier))
	case ConstraintUnique:
		return fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", p.QuoteIdentifier(c.Name), quoteList(c.Columns, p.QuoteIdentifier))
	default:
		return foreignKeySQL(p, c) + " DEFERRABLE INITIALLY IMMEDIATE"
	}
}

func (p *postgresDialect) IndexSQL(table string, idx Index) (string, error) {
	return createIndexSQL(p, table, idx, false)
}

func (p *postgresDialect) commentSQL(table string, c Column) string {
	return fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s",
		p.QuoteIdentifier(table), p.QuoteIdentifier(c.Name), p.SchemaValue(c.Comment))
}

func (p *postgresDialect) CreateTableSQL(t *TableSchema) ([]string, error) {
	if err := checkTable(t); err != nil {
		return nil, err
	}
	stmts := []string{createTableStatement(p, t, false, "")}

	idx, err := indexStatements(p, t)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", t.name, err)
	}
	stmts = append(stmts, idx...)

	for _, c := range t.columns {
		if c.Comment != "" {
			stmts = append(stmts, p.commentSQL(t.name, c))
		}
	}

	// only SERIAL columns own a sequence
	if ai, ok := t.autoIncrementColumn(); ok && t.options.AutoIncrement > 0 {
		if _, serial := p.serialType(ai); serial {
			stmts = append(stmts, p.ChangeAutoIncrementSQL(t.name, ai.Name, t.options.AutoIncrement))
		}
	}
	return stmts, nil
}

// DropTableSQL always cascades so dependent foreign keys do not block the drop.
func (p *postgresDialect) DropTableSQL(table string, opts DropTableOptions) string {
	if opts.IfExists {
		return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", p.QuoteIdentifier(table))
	}
	return fmt.Sprintf("DROP TABLE %s CASCADE", p.QuoteIdentifier(table))
}

func (p *postgresDialect) TruncateTableSQL(table string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", p.QuoteIdentifier(table))
}

func (p *postgresDialect) RenameTableSQL(from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", p.QuoteIdentifier(from), p.QuoteIdentifier(to))
}

func (p *postgresDialect) AddColumnSQL(table string, c Column) ([]string, error) {
	stmts := []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", p.QuoteIdentifier(table), p.ColumnSQL(c))}
	if c.Comment != "" {
		stmts = append(stmts, p.commentSQL(table, c))
	}
	return stmts, nil
}

// ChangeColumnSQL alters type, nullability and default in one statement.
// Autoincrement columns keep their sequence default.
func (p *postgresDialect) ChangeColumnSQL(table string, c Column) ([]string, error) {
	col := p.QuoteIdentifier(c.Name)

	typ := p.columnType(c)
	if c.Collate != "" && c.isTextual() {
		typ += " COLLATE " + p.QuoteIdentifier(c.Collate)
	}
	clauses := []string{fmt.Sprintf("ALTER COLUMN %s TYPE %s", col, typ)}

	if c.NotNull || c.AutoIncrement {
		clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s SET NOT NULL", col))
	} else {
		clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s DROP NOT NULL", col))
	}

	if !c.AutoIncrement {
		switch {
		case (c.Type == TypeTimestamp || c.Type == TypeDatetime) && c.defaultsToCurrentTimestamp():
			clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s SET DEFAULT CURRENT_TIMESTAMP", col))
		case c.Default != nil:
			clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s SET DEFAULT %s", col, p.SchemaValue(c.Default)))
		default:
			clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s DROP DEFAULT", col))
		}
	}

	stmts := []string{fmt.Sprintf("ALTER TABLE %s %s", p.QuoteIdentifier(table), strings.Join(clauses, ", "))}
	if c.Comment != "" {
		stmts = append(stmts, p.commentSQL(table, c))
	}
	return stmts, nil
}

func (p *postgresDialect) RenameColumnSQL(table, from, to string) ([]string, error) {
	return []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
		p.QuoteIdentifier(table), p.QuoteIdentifier(from), p.QuoteIdentifier(to))}, nil
}

func (p *postgresDialect) RemoveColumnSQL(table, column string) ([]string, error) {
	return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", p.QuoteIdentifier(table), p.QuoteIdentifier(column))}, nil
}

func (p *postgresDialect) AddIndexSQL(table string, idx Index) (string, error) {
	return p.IndexSQL(table, idx)
}

func (p *postgresDialect) RemoveIndexSQL(_, name string) string {
	return "DROP INDEX " + p.QuoteIdentifier(name)
}

func (p *postgresDialect) RenameIndexSQL(_, from, to string) ([]string, error) {
	return []string{fmt.Sprintf("ALTER INDEX %s RENAME TO %s", p.QuoteIdentifier(from), p.QuoteIdentifier(to))}, nil
}

func (p *postgresDialect) AddForeignKeySQL(table string, fk Constraint) ([]string, error) {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD %s", p.QuoteIdentifier(table), p.ConstraintSQL(fk))}, nil
}

func (p *postgresDialect) RemoveForeignKeySQL(table, name string) ([]string, error) {
	return []string{fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", p.QuoteIdentifier(table), p.QuoteIdentifier(name))}, nil
}

// ChangeAutoIncrementSQL restarts the sequence SERIAL creates for the column.
func (p *postgresDialect) ChangeAutoIncrementSQL(table, column string, next int64) string {
	return fmt.Sprintf("ALTER SEQUENCE %s RESTART WITH %d", p.QuoteIdentifier(table+"_"+column+"_seq"), next)
}

func (p *postgresDialect) DisableForeignKeySQL() string { return "SET CONSTRAINTS ALL DEFERRED" }
func (p *postgresDialect) EnableForeignKeySQL() string  { return "SET CONSTRAINTS ALL IMMEDIATE" }
