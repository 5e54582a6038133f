package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

func (m *mysqlDialect) Tables(ctx context.Context, q Querier) ([]string, error) {
	rows, err := q.FetchAll(ctx,
		`SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		 WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'
		 ORDER BY TABLE_NAME`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.String("TABLE_NAME"))
	}
	return names, nil
}

func (m *mysqlDialect) Describe(ctx context.Context, q Querier, table string) (*TableSchema, error) {
	t := NewTableSchema(table)

	opts, err := m.describeOptions(ctx, q, table)
	if err != nil {
		return nil, fmt.Errorf("describe options for %s: %w", table, err)
	}
	t.options = opts

	if err := m.describeColumns(ctx, q, t); err != nil {
		return nil, fmt.Errorf("describe columns for %s: %w", table, err)
	}

	fks, err := m.describeForeignKeys(ctx, q, table)
	if err != nil {
		return nil, fmt.Errorf("describe foreign keys for %s: %w", table, err)
	}

	if err := m.describeIndexes(ctx, q, t, fks); err != nil {
		return nil, fmt.Errorf("describe indexes for %s: %w", table, err)
	}
	for _, fk := range fks {
		if err := t.AddConstraint(fk); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (m *mysqlDialect) describeOptions(ctx context.Context, q Querier, table string) (TableOptions, error) {
	rows, err := q.FetchAll(ctx, "SHOW TABLE STATUS WHERE Name = ?", table)
	if err != nil {
		return TableOptions{}, err
	}
	i := slices.IndexFunc(rows, func(r Row) bool { return r.String("Name") == table })
	if i < 0 {
		return TableOptions{}, fmt.Errorf("table %s not found", table)
	}
	row := rows[i]
	opts := TableOptions{
		Engine:    row.String("Engine"),
		Collation: row.String("Collation"),
	}
	if i := strings.IndexByte(opts.Collation, '_'); i > 0 {
		opts.Charset = opts.Collation[:i]
	}
	return opts, nil
}

func (m *mysqlDialect) describeColumns(ctx context.Context, q Querier, t *TableSchema) error {
	rows, err := q.FetchAll(ctx, "SHOW FULL COLUMNS FROM "+m.QuoteIdentifier(t.name))
	if err != nil {
		return err
	}
	for _, r := range rows {
		c, err := mysqlColumnFromNative(r.String("Type"))
		if err != nil {
			return err
		}
		c.Name = r.String("Field")
		c.NotNull = !r.Bool("Null")
		if c.Type == TypeBoolean {
			c.NotNull = true
		}
		if coll := r.String("Collation"); coll != "" && c.isTextual() && coll != t.options.Collation {
			c.Collate = coll
		}
		c.Comment = r.String("Comment")
		c.AutoIncrement = strings.Contains(strings.ToLower(r.String("Extra")), "auto_increment")
		if dflt, ok := r.NullString("Default"); ok && !c.AutoIncrement {
			c.Default = mysqlDefaultValue(c, dflt)
		}
		if err := t.AddColumn(c); err != nil {
			return err
		}
	}
	if len(t.columns) == 0 {
		return fmt.Errorf("table %s has no columns", t.name)
	}
	return nil
}

// mysqlDefaultValue normalises a COLUMN_DEFAULT value. MySQL 8 reports
// literals unquoted, MariaDB quotes them and reports NULL as the text "NULL".
func mysqlDefaultValue(c Column, raw string) any {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch lower {
	case "null":
		return nil
	case "current_timestamp", "current_timestamp()", "now()":
		return CurrentTimestamp
	}
	v := mysqlDefaultUnquote(raw)
	if c.Type == TypeBoolean {
		return v == "1"
	}
	return v
}

func mysqlDefaultUnquote(v string) string {
	if len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'' {
		inner := v[1 : len(v)-1]
		return strings.ReplaceAll(inner, "''", "'")
	}
	return v
}

// mysqlColumnFromNative converts a SHOW COLUMNS type such as "int(11) unsigned"
// into an abstract column. tinyint(1) always reads back as boolean.
func mysqlColumnFromNative(raw string) (Column, error) {
	nt, err := parseNativeType("mysql", raw)
	if err != nil {
		return Column{}, err
	}
	c := Column{Unsigned: nt.Unsigned}

	switch nt.Base {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint",
		"char", "varchar", "decimal", "numeric", "dec", "fixed", "float", "double", "real", "double precision":
		if err := nt.requireNumericArgs("mysql", raw); err != nil {
			return Column{}, err
		}
	}

	switch nt.Base {
	case "tinyint":
		if nt.HasArgs && nt.arg(0) == 1 {
			return Column{Type: TypeBoolean, NotNull: true}, nil
		}
		c.Type, c.Limit = TypeInteger, nt.arg(0)
	case "smallint", "mediumint", "int", "integer":
		c.Type, c.Limit = TypeInteger, nt.arg(0)
	case "bigint":
		c.Type, c.Limit = TypeBigInt, nt.arg(0)
	case "float", "double", "real", "double precision":
		c.Type, c.Precision, c.Scale = TypeFloat, nt.arg(0), nt.arg(1)
	case "decimal", "numeric", "dec", "fixed":
		c.Type, c.Precision, c.Scale = TypeDecimal, nt.arg(0), nt.arg(1)
	case "char":
		c.Type, c.Limit, c.Fixed = TypeString, nt.arg(0), true
	case "varchar":
		c.Type, c.Limit = TypeString, nt.arg(0)
	case "tinytext":
		c.Type, c.Limit = TypeText, mysqlTinyLimit
	case "text":
		c.Type = TypeText
	case "mediumtext":
		c.Type, c.Limit = TypeText, mysqlMediumLimit
	case "longtext":
		c.Type, c.Limit = TypeText, mysqlLongLimit
	case "tinyblob":
		c.Type, c.Limit = TypeBinary, mysqlTinyLimit
	case "blob":
		c.Type = TypeBinary
	case "mediumblob":
		c.Type, c.Limit = TypeBinary, mysqlMediumLimit
	case "longblob":
		c.Type, c.Limit = TypeBinary, mysqlLongLimit
	case "date", "datetime", "time", "timestamp":
		c.Type = nt.Base
	default:
		c.Type = nt.String()
		c.Unsigned = false
	}
	return c, nil
}

func (m *mysqlDialect) describeIndexes(ctx context.Context, q Querier, t *TableSchema, fks []Constraint) error {
	rows, err := q.FetchAll(ctx, "SHOW INDEX FROM "+m.QuoteIdentifier(t.name))
	if err != nil {
		return err
	}

	type keyPart struct {
		seq    int64
		column string
	}
	type key struct {
		name      string
		unique    bool
		indexType string
		parts     []keyPart
	}
	keys := make(map[string]*key)
	var order []string
	for _, r := range rows {
		name := r.String("Key_name")
		k, ok := keys[name]
		if !ok {
			k = &key{
				name:      name,
				unique:    r.Int("Non_unique") == 0,
				indexType: strings.ToUpper(r.String("Index_type")),
			}
			keys[name] = k
			order = append(order, name)
		}
		k.parts = append(k.parts, keyPart{seq: r.Int("Seq_in_index"), column: r.String("Column_name")})
	}

	for _, name := range order {
		k := keys[name]
		slices.SortStableFunc(k.parts, func(a, b keyPart) int { return int(a.seq - b.seq) })
		cols := make([]string, len(k.parts))
		for i, p := range k.parts {
			cols[i] = p.column
		}

		switch {
		case name == "PRIMARY":
			err = t.AddConstraint(Constraint{Name: "primary", Kind: ConstraintPrimary, Columns: cols})
		case slices.ContainsFunc(fks, func(fk Constraint) bool { return fk.Name == name }):
			// implicit index MySQL creates for a foreign key
			continue
		case k.indexType == "FULLTEXT":
			err = t.AddIndex(Index{Name: name, Kind: IndexFulltext, Columns: cols})
		case k.unique:
			err = t.AddConstraint(Constraint{Name: name, Kind: ConstraintUnique, Columns: cols})
		default:
			err = t.AddIndex(Index{Name: name, Kind: IndexPlain, Columns: cols})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *mysqlDialect) describeForeignKeys(ctx context.Context, q Querier, table string) ([]Constraint, error) {
	rows, err := q.FetchAll(ctx,
		`SELECT kcu.CONSTRAINT_NAME, kcu.COLUMN_NAME,
		        kcu.REFERENCED_TABLE_NAME, kcu.REFERENCED_COLUMN_NAME,
		        rc.UPDATE_RULE, rc.DELETE_RULE
		 FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
		 JOIN INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS rc
		   ON kcu.CONSTRAINT_NAME = rc.CONSTRAINT_NAME
		   AND kcu.TABLE_SCHEMA = rc.CONSTRAINT_SCHEMA
		 WHERE kcu.TABLE_SCHEMA = DATABASE() AND kcu.TABLE_NAME = ?
		   AND kcu.REFERENCED_TABLE_NAME IS NOT NULL
		 ORDER BY kcu.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`,
		table,
	)
	if err != nil {
		return nil, err
	}
	return groupForeignKeys(rows, func(r Row) string { return r.String("CONSTRAINT_NAME") }), nil
}

// groupForeignKeys folds one-row-per-column catalog output into constraints,
// preserving first-seen order. Rows must expose COLUMN_NAME,
// REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME, UPDATE_RULE and DELETE_RULE.
func groupForeignKeys(rows []Row, name func(Row) string) []Constraint {
	byName := make(map[string]*Constraint)
	var order []string
	for _, r := range rows {
		n := name(r)
		fk, ok := byName[n]
		if !ok {
			fk = &Constraint{
				Name:       n,
				Kind:       ConstraintForeign,
				References: &Reference{Table: r.String("REFERENCED_TABLE_NAME")},
				Update:     referentialActionFromSQL(r.String("UPDATE_RULE")),
				Delete:     referentialActionFromSQL(r.String("DELETE_RULE")),
			}
			byName[n] = fk
			order = append(order, n)
		}
		fk.Columns = append(fk.Columns, r.String("COLUMN_NAME"))
		fk.References.Columns = append(fk.References.Columns, r.String("REFERENCED_COLUMN_NAME"))
	}
	fks := make([]Constraint, 0, len(order))
	for _, n := range order {
		fks = append(fks, *byName[n])
	}
	return fks
}
