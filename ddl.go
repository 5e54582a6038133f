package main

import (
	"fmt"
	"strings"
)

// createTableStatement assembles CREATE TABLE with every column followed by
// the inline constraints. skipPrimary drops the PRIMARY KEY clause when a
// column definition already declared it. suffix is appended after the closing
// parenthesis (table options).
func createTableStatement(d Dialect, t *TableSchema, skipPrimary bool, suffix string) string {
	var b strings.Builder
	if t.options.Temporary {
		b.WriteString("CREATE TEMPORARY TABLE ")
	} else {
		b.WriteString("CREATE TABLE ")
	}
	b.WriteString(d.QuoteIdentifier(t.name))
	b.WriteString(" (\n")

	lines := make([]string, 0, len(t.columns)+len(t.constraints))
	for _, c := range t.columns {
		lines = append(lines, "  "+d.ColumnSQL(c))
	}
	for _, c := range t.constraints {
		if skipPrimary && c.Kind == ConstraintPrimary {
			continue
		}
		lines = append(lines, "  "+d.ConstraintSQL(c))
	}
	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n)")
	b.WriteString(suffix)
	return b.String()
}

// indexStatements renders every secondary index of t as its own statement.
func indexStatements(d Dialect, t *TableSchema) ([]string, error) {
	stmts := make([]string, 0, len(t.indexes))
	for _, idx := range t.indexes {
		s, err := d.IndexSQL(t.name, idx)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", idx.Name, err)
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

// createIndexSQL renders CREATE [UNIQUE|FULLTEXT] INDEX. fulltext reports
// whether the engine accepts FULLTEXT indexes.
func createIndexSQL(d Dialect, table string, idx Index, fulltext bool) (string, error) {
	var kind string
	switch idx.Kind {
	case IndexPlain, "":
	case IndexUnique:
		kind = "UNIQUE "
	case IndexFulltext:
		if !fulltext {
			return "", unsupported(d.Name(), "fulltext index")
		}
		kind = "FULLTEXT "
	default:
		return "", fmt.Errorf("unknown index type %q", idx.Kind)
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
		kind, d.QuoteIdentifier(idx.Name), d.QuoteIdentifier(table), quoteList(idx.Columns, d.QuoteIdentifier)), nil
}

// foreignKeySQL renders the portable part of a FOREIGN KEY constraint.
func foreignKeySQL(d Dialect, c Constraint) string {
	ref := c.References
	if ref == nil {
		ref = &Reference{}
	}
	return fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON UPDATE %s ON DELETE %s",
		d.QuoteIdentifier(c.Name),
		quoteList(c.Columns, d.QuoteIdentifier),
		d.QuoteIdentifier(ref.Table),
		quoteList(ref.Columns, d.QuoteIdentifier),
		c.Update.SQL(), c.Delete.SQL(),
	)
}

// singleColumnPrimaryKey returns the primary key column when the key covers
// exactly one column.
func singleColumnPrimaryKey(t *TableSchema) (string, bool) {
	pk, ok := t.PrimaryKey()
	if !ok || len(pk.Columns) != 1 {
		return "", false
	}
	return pk.Columns[0], true
}

// checkTable validates t before rendering.
func checkTable(t *TableSchema) error {
	if t == nil {
		return invalidSchema("nil table")
	}
	return t.validate()
}
