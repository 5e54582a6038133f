package main

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"slices"
	"strings"
)

func (s *sqliteDialect) Tables(ctx context.Context, q Querier) ([]string, error) {
	rows, err := q.FetchAll(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.String("name"))
	}
	return names, nil
}

func (s *sqliteDialect) Describe(ctx context.Context, q Querier, table string) (*TableSchema, error) {
	t := NewTableSchema(table)

	pk, err := s.describeColumns(ctx, q, t)
	if err != nil {
		return nil, fmt.Errorf("describe columns for %s: %w", table, err)
	}
	if len(pk) > 0 {
		if err := t.AddConstraint(Constraint{Name: "primary", Kind: ConstraintPrimary, Columns: pk}); err != nil {
			return nil, err
		}
	}
	if err := s.describeIndexes(ctx, q, t); err != nil {
		return nil, fmt.Errorf("describe indexes for %s: %w", table, err)
	}
	if err := s.describeForeignKeys(ctx, q, t); err != nil {
		return nil, fmt.Errorf("describe foreign keys for %s: %w", table, err)
	}
	return t, nil
}

// describeColumns adds the table's columns and returns the primary key
// columns in key order.
func (s *sqliteDialect) describeColumns(ctx context.Context, q Querier, t *TableSchema) ([]string, error) {
	rows, err := q.FetchAll(ctx, fmt.Sprintf("PRAGMA table_info(%s)", s.QuoteIdentifier(t.name)))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("table %s not found", t.name)
	}

	autoIncrement, err := s.hasAutoIncrement(ctx, q, t.name)
	if err != nil {
		return nil, err
	}

	type pkCol struct {
		name string
		pos  int64
	}
	var pkCols []pkCol
	for _, r := range rows {
		if pos := r.Int("pk"); pos > 0 {
			pkCols = append(pkCols, pkCol{name: r.String("name"), pos: pos})
		}
	}
	slices.SortFunc(pkCols, func(a, b pkCol) int { return int(a.pos - b.pos) })

	for _, r := range rows {
		c, err := sqliteColumnFromNative(r.String("type"))
		if err != nil {
			return nil, err
		}
		c.Name = r.String("name")
		c.NotNull = r.Int("notnull") == 1 || c.Type == TypeBoolean

		// AUTOINCREMENT is only legal on a sole INTEGER PRIMARY KEY
		if autoIncrement && len(pkCols) == 1 && pkCols[0].name == c.Name && c.Type == TypeInteger {
			c.AutoIncrement = true
			c.NotNull = true
		}

		if raw, ok := r.NullString("dflt_value"); ok && !c.AutoIncrement {
			val, known := sqliteDefaultValue(c, raw)
			if !known {
				log.Printf("    WARN: %s.%s: skipping default expression %s", t.name, c.Name, raw)
			}
			c.Default = val
		}
		if err := t.AddColumn(c); err != nil {
			return nil, err
		}
	}

	pk := make([]string, len(pkCols))
	for i, p := range pkCols {
		pk[i] = p.name
	}
	return pk, nil
}

// hasAutoIncrement checks the stored CREATE TABLE text; SQLite exposes no
// dedicated flag.
func (s *sqliteDialect) hasAutoIncrement(ctx context.Context, q Querier, table string) (bool, error) {
	row, err := fetchRow(ctx, q,
		"SELECT COUNT(*) AS n FROM sqlite_master WHERE type='table' AND name = ? AND sql LIKE '%AUTOINCREMENT%'",
		table,
	)
	if err != nil {
		return false, fmt.Errorf("detect autoincrement: %w", err)
	}
	return row != nil && row.Int("n") > 0, nil
}

// sqliteColumnFromNative converts a declared column type to an abstract column.
// A column without a declared type has BLOB affinity and reads back as binary.
func sqliteColumnFromNative(raw string) (Column, error) {
	if strings.TrimSpace(raw) == "" {
		return Column{Type: TypeBinary}, nil
	}
	nt, err := parseNativeType("sqlite", raw)
	if err != nil {
		return Column{}, err
	}
	c := Column{Unsigned: nt.Unsigned}

	switch nt.Base {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint",
		"varchar", "character varying", "nvarchar", "char", "character", "nchar",
		"decimal", "numeric", "float", "double", "real", "double precision":
		if err := nt.requireNumericArgs("sqlite", raw); err != nil {
			return Column{}, err
		}
	}

	switch nt.Base {
	case "tinyint":
		if nt.HasArgs && nt.arg(0) == 1 {
			return Column{Type: TypeBoolean, NotNull: true}, nil
		}
		c.Type, c.Limit = TypeInteger, nt.arg(0)
	case "boolean", "bool":
		return Column{Type: TypeBoolean, NotNull: true}, nil
	case "smallint", "mediumint", "int", "integer":
		c.Type, c.Limit = TypeInteger, nt.arg(0)
	case "bigint":
		c.Type, c.Limit = TypeBigInt, nt.arg(0)
	case "varchar", "character varying", "nvarchar":
		c.Type, c.Limit = TypeString, nt.arg(0)
	case "char", "character", "nchar":
		c.Type, c.Limit, c.Fixed = TypeString, nt.arg(0), true
	case "text", "clob":
		c.Type = TypeText
	case "blob":
		c.Type = TypeBinary
	case "float", "double", "real", "double precision":
		c.Type, c.Precision, c.Scale = TypeFloat, nt.arg(0), nt.arg(1)
	case "decimal", "numeric":
		c.Type, c.Precision, c.Scale = TypeDecimal, nt.arg(0), nt.arg(1)
	case "date", "datetime", "time", "timestamp":
		c.Type = nt.Base
	default:
		c.Type = nt.String()
		c.Unsigned = false
	}
	return c, nil
}

var sqliteNumeric = regexp.MustCompile(`^[-+]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][-+]?\d+)?$`)

// sqliteDefaultValue normalises PRAGMA table_info's dflt_value, which holds
// the default clause as written with any outer parentheses removed. known is
// false for anything but a literal.
func sqliteDefaultValue(c Column, raw string) (val any, known bool) {
	v := strings.TrimSpace(raw)
	switch strings.ToLower(v) {
	case "null":
		return nil, true
	case "current_timestamp":
		return CurrentTimestamp, true
	case "true":
		v = "1"
	case "false":
		v = "0"
	}
	quoted := len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\''
	if !quoted && !sqliteNumeric.MatchString(v) {
		return nil, false
	}
	v = mysqlDefaultUnquote(v)
	if c.Type == TypeBoolean {
		return v == "1", true
	}
	return v, true
}

func (s *sqliteDialect) describeIndexes(ctx context.Context, q Querier, t *TableSchema) error {
	rows, err := q.FetchAll(ctx, fmt.Sprintf("PRAGMA index_list(%s)", s.QuoteIdentifier(t.name)))
	if err != nil {
		return err
	}
	// index_list reports the newest index first
	slices.Reverse(rows)

	for _, r := range rows {
		name := r.String("name")
		origin := r.String("origin")
		if origin == "pk" {
			continue
		}
		if r.Int("partial") == 1 {
			log.Printf("    WARN: partial index %q on %s will be skipped (WHERE clause not supported)", name, t.name)
			continue
		}

		info, err := q.FetchAll(ctx, fmt.Sprintf("PRAGMA index_info(%s)", s.QuoteIdentifier(name)))
		if err != nil {
			return fmt.Errorf("index %s: %w", name, err)
		}
		slices.SortFunc(info, func(a, b Row) int { return int(a.Int("seqno") - b.Int("seqno")) })

		var cols []string
		expression := false
		for _, ir := range info {
			col, ok := ir.NullString("name")
			if !ok {
				expression = true
				break
			}
			cols = append(cols, col)
		}
		if expression {
			log.Printf("    WARN: expression index %q on %s will be skipped", name, t.name)
			continue
		}

		unique := r.Int("unique") == 1
		switch {
		case origin == "u":
			err = t.AddConstraint(Constraint{Name: name, Kind: ConstraintUnique, Columns: cols})
		case unique:
			err = t.AddIndex(Index{Name: name, Kind: IndexUnique, Columns: cols})
		default:
			err = t.AddIndex(Index{Name: name, Kind: IndexPlain, Columns: cols})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteDialect) describeForeignKeys(ctx context.Context, q Querier, t *TableSchema) error {
	rows, err := q.FetchAll(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", s.QuoteIdentifier(t.name)))
	if err != nil {
		return err
	}
	slices.SortStableFunc(rows, func(a, b Row) int {
		if d := a.Int("id") - b.Int("id"); d != 0 {
			return int(d)
		}
		return int(a.Int("seq") - b.Int("seq"))
	})

	byID := make(map[int64]*Constraint)
	var order []int64
	skipped := make(map[int64]bool)
	for _, r := range rows {
		id := r.Int("id")
		fk, ok := byID[id]
		if !ok {
			fk = &Constraint{
				Kind:       ConstraintForeign,
				References: &Reference{Table: r.String("table")},
				Update:     referentialActionFromSQL(r.String("on_update")),
				Delete:     referentialActionFromSQL(r.String("on_delete")),
			}
			byID[id] = fk
			order = append(order, id)
		}
		to, ok := r.NullString("to")
		if !ok {
			// REFERENCES parent without a column list targets the parent's primary key
			skipped[id] = true
			continue
		}
		fk.Columns = append(fk.Columns, r.String("from"))
		fk.References.Columns = append(fk.References.Columns, to)
	}

	// SQLite keeps no foreign key names
	for _, id := range order {
		fk := byID[id]
		if skipped[id] {
			log.Printf("    WARN: foreign key on %s referencing %s without explicit columns will be skipped", t.name, fk.References.Table)
			continue
		}
		fk.Name = "fk_" + strings.Join(fk.Columns, "_")
		if err := t.AddConstraint(*fk); err != nil {
			return err
		}
	}
	return nil
}
