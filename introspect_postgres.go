package main

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
)

func (p *postgresDialect) Tables(ctx context.Context, q Querier) ([]string, error) {
	rows, err := q.FetchAll(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		 ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.String("table_name"))
	}
	return names, nil
}

func (p *postgresDialect) Describe(ctx context.Context, q Querier, table string) (*TableSchema, error) {
	t := NewTableSchema(table)

	if err := p.describeColumns(ctx, q, t); err != nil {
		return nil, fmt.Errorf("describe columns for %s: %w", table, err)
	}
	if err := p.describeIndexes(ctx, q, t); err != nil {
		return nil, fmt.Errorf("describe indexes for %s: %w", table, err)
	}
	if err := p.describeForeignKeys(ctx, q, t); err != nil {
		return nil, fmt.Errorf("describe foreign keys for %s: %w", table, err)
	}
	return t, nil
}

func (p *postgresDialect) describeColumns(ctx context.Context, q Querier, t *TableSchema) error {
	rows, err := q.FetchAll(ctx,
		`SELECT c.column_name, c.data_type, c.udt_name, c.is_nullable, c.column_default,
		        c.character_maximum_length, c.numeric_precision, c.numeric_scale,
		        c.collation_name, c.is_identity, d.description AS column_comment
		 FROM information_schema.columns c
		 LEFT JOIN pg_catalog.pg_description d
		   ON d.objoid = format('%I.%I', c.table_schema, c.table_name)::regclass
		   AND d.objsubid = c.ordinal_position
		 WHERE c.table_schema = current_schema() AND c.table_name = $1
		 ORDER BY c.ordinal_position`,
		t.name,
	)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("table %s not found", t.name)
	}

	for _, r := range rows {
		c := postgresColumnFromCatalog(r)
		c.Name = r.String("column_name")
		c.NotNull = !r.Bool("is_nullable")
		c.Comment = r.String("column_comment")
		if coll := r.String("collation_name"); coll != "" && coll != "default" && c.isTextual() {
			c.Collate = coll
		}

		if r.Bool("is_identity") {
			c.AutoIncrement = true
		} else if raw, ok := r.NullString("column_default"); ok {
			val, serial, known := postgresDefaultValue(raw)
			switch {
			case serial:
				c.AutoIncrement = true
			case !known:
				log.Printf("    WARN: %s.%s: skipping default expression %s", t.name, c.Name, raw)
			case val == nil:
			case c.Type == TypeBoolean:
				c.Default = strings.EqualFold(fmt.Sprint(val), "true")
			default:
				c.Default = val
			}
		}
		if c.AutoIncrement && c.Type != TypeInteger && c.Type != TypeBigInt {
			c.AutoIncrement = false
		}
		if err := t.AddColumn(c); err != nil {
			return err
		}
	}
	return nil
}

// postgresColumnFromCatalog maps information_schema.columns type metadata to
// an abstract column. timestamp columns read back as datetime since both
// render as TIMESTAMP.
func postgresColumnFromCatalog(r Row) Column {
	dataType := strings.ToLower(r.String("data_type"))
	switch dataType {
	case "character varying":
		return Column{Type: TypeString, Limit: int(r.Int("character_maximum_length"))}
	case "character":
		return Column{Type: TypeString, Limit: int(r.Int("character_maximum_length")), Fixed: true}
	case "text":
		return Column{Type: TypeText}
	case "smallint", "integer":
		return Column{Type: TypeInteger}
	case "bigint":
		return Column{Type: TypeBigInt}
	case "real", "double precision":
		return Column{Type: TypeFloat}
	case "numeric":
		return Column{
			Type:      TypeDecimal,
			Precision: int(r.Int("numeric_precision")),
			Scale:     int(r.Int("numeric_scale")),
		}
	case "boolean":
		return Column{Type: TypeBoolean}
	case "date":
		return Column{Type: TypeDate}
	case "timestamp without time zone":
		return Column{Type: TypeDatetime}
	case "timestamp with time zone":
		return Column{Type: TypeTimestamp}
	case "time without time zone", "time with time zone":
		return Column{Type: TypeTime}
	case "bytea":
		return Column{Type: TypeBinary}
	case "user-defined", "array":
		return Column{Type: r.String("udt_name")}
	default:
		return Column{Type: dataType}
	}
}

var (
	pgCastLiteral = regexp.MustCompile(`(?is)^'((?:[^']|'')*)'(?:::[a-z0-9_ ."\[\]()]+)?$`)
	pgCastNull    = regexp.MustCompile(`(?i)^null(?:::[a-z0-9_ ."\[\]()]+)?$`)
	pgNumeric     = regexp.MustCompile(`^-?\d+(?:\.\d+)?$`)
)

// postgresDefaultValue unwraps the cast decoration PostgreSQL adds to column
// defaults. serial reports a nextval() sequence default. known is false for
// expressions outside the handled patterns.
func postgresDefaultValue(raw string) (val any, serial, known bool) {
	s := strings.TrimSpace(raw)
	for len(s) > 1 && s[0] == '(' && matchingParen(s, 0) == len(s)-1 {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	// numeric literals are parenthesised when negative: '(-1)::integer'
	if i := strings.LastIndex(s, "::"); i > 0 && pgNumeric.MatchString(strings.Trim(s[:i], "()")) {
		s = strings.Trim(s[:i], "()")
	}
	lower := strings.ToLower(s)

	switch {
	case strings.HasPrefix(lower, "nextval("):
		return nil, true, true
	case pgCastNull.MatchString(s):
		return nil, false, true
	case lower == "true" || lower == "false":
		return lower, false, true
	case lower == "now()" || strings.HasPrefix(lower, "current_timestamp") || lower == "localtimestamp":
		return CurrentTimestamp, false, true
	case pgNumeric.MatchString(s):
		return s, false, true
	}
	if m := pgCastLiteral.FindStringSubmatch(s); m != nil {
		return strings.ReplaceAll(m[1], "''", "'"), false, true
	}
	return nil, false, false
}

func (p *postgresDialect) describeIndexes(ctx context.Context, q Querier, t *TableSchema) error {
	rows, err := q.FetchAll(ctx,
		`SELECT ic.relname AS index_name, ix.indisunique, ix.indisprimary, a.attname AS column_name
		 FROM pg_catalog.pg_index ix
		 JOIN pg_catalog.pg_class tc ON tc.oid = ix.indrelid
		 JOIN pg_catalog.pg_class ic ON ic.oid = ix.indexrelid
		 JOIN pg_catalog.pg_namespace n ON n.oid = tc.relnamespace
		 CROSS JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord)
		 JOIN pg_catalog.pg_attribute a ON a.attrelid = tc.oid AND a.attnum = k.attnum
		 WHERE n.nspname = current_schema() AND tc.relname = $1
		 ORDER BY ic.relname, k.ord`,
		t.name,
	)
	if err != nil {
		return err
	}

	type key struct {
		unique  bool
		primary bool
		columns []string
	}
	keys := make(map[string]*key)
	var order []string
	for _, r := range rows {
		name := r.String("index_name")
		k, ok := keys[name]
		if !ok {
			k = &key{unique: r.Bool("indisunique"), primary: r.Bool("indisprimary")}
			keys[name] = k
			order = append(order, name)
		}
		k.columns = append(k.columns, r.String("column_name"))
	}

	for _, name := range order {
		k := keys[name]
		switch {
		case k.primary || strings.HasSuffix(name, "_pkey"):
			err = t.AddConstraint(Constraint{Name: "primary", Kind: ConstraintPrimary, Columns: k.columns})
		case k.unique:
			err = t.AddConstraint(Constraint{Name: name, Kind: ConstraintUnique, Columns: k.columns})
		default:
			err = t.AddIndex(Index{Name: name, Kind: IndexPlain, Columns: k.columns})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *postgresDialect) describeForeignKeys(ctx context.Context, q Querier, t *TableSchema) error {
	rows, err := q.FetchAll(ctx,
		`SELECT kcu.constraint_name, kcu.column_name,
		        rk.table_name AS referenced_table_name, rk.column_name AS referenced_column_name,
		        rc.update_rule, rc.delete_rule
		 FROM information_schema.referential_constraints rc
		 JOIN information_schema.key_column_usage kcu
		   ON kcu.constraint_schema = rc.constraint_schema
		   AND kcu.constraint_name = rc.constraint_name
		 JOIN information_schema.key_column_usage rk
		   ON rk.constraint_schema = rc.unique_constraint_schema
		   AND rk.constraint_name = rc.unique_constraint_name
		   AND rk.ordinal_position = kcu.position_in_unique_constraint
		 WHERE kcu.table_schema = current_schema() AND kcu.table_name = $1
		 ORDER BY kcu.constraint_name, kcu.ordinal_position`,
		t.name,
	)
	if err != nil {
		return err
	}
	for _, fk := range groupForeignKeys(rows, func(r Row) string { return r.String("constraint_name") }) {
		if err := t.AddConstraint(fk); err != nil {
			return err
		}
	}
	return nil
}
