package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/mitchellh/hashstructure/v2"
)

// tableShape is the part of a table that survives a render and describe
// round trip on a given dialect. Names of unique and foreign key constraints
// are left out since SQLite does not keep them.
type tableShape struct {
	Columns []columnShape
	Primary []string
	Uniques []string `hash:"set"`
	Foreign []string `hash:"set"`
	Indexes []string `hash:"set"`
}

type columnShape struct {
	Name          string
	Type          string
	Limit         int
	Precision     int
	Scale         int
	NotNull       bool
	AutoIncrement bool
	Default       string
}

func shapeOf(d Dialect, t *TableSchema) tableShape {
	var s tableShape
	for _, c := range t.columns {
		s.Columns = append(s.Columns, columnShapeOf(d, c))
	}
	for _, c := range t.constraints {
		switch c.Kind {
		case ConstraintPrimary:
			s.Primary = slices.Clone(c.Columns)
		case ConstraintUnique:
			s.Uniques = append(s.Uniques, "("+strings.Join(c.Columns, ", ")+")")
		case ConstraintForeign:
			ref := c.References
			if ref == nil {
				ref = &Reference{}
			}
			s.Foreign = append(s.Foreign, fmt.Sprintf("(%s) -> %s(%s) ON UPDATE %s ON DELETE %s",
				strings.Join(c.Columns, ", "), ref.Table, strings.Join(ref.Columns, ", "), c.Update.SQL(), c.Delete.SQL()))
		}
	}
	for _, idx := range t.indexes {
		cols := "(" + strings.Join(idx.Columns, ", ") + ")"
		// MySQL and PostgreSQL report unique indexes as unique constraints
		if idx.Kind == IndexUnique && d.Name() != "sqlite" {
			s.Uniques = append(s.Uniques, cols)
			continue
		}
		s.Indexes = append(s.Indexes, fmt.Sprintf("%s %s %s", idx.Kind, idx.Name, cols))
	}
	slices.Sort(s.Uniques)
	slices.Sort(s.Foreign)
	slices.Sort(s.Indexes)
	return s
}

// columnShapeOf folds away the differences a dialect introduces when a
// column is rendered and read back.
func columnShapeOf(d Dialect, c Column) columnShape {
	s := columnShape{
		Name:          c.Name,
		Type:          c.Type,
		NotNull:       c.NotNull,
		AutoIncrement: c.AutoIncrement,
		Default:       normalizeDefault(c.Default),
	}

	switch c.Type {
	case TypeString:
		s.Limit = c.Limit
		if s.Limit <= 0 {
			s.Limit = 255
		}
	case TypeDecimal:
		s.Precision, s.Scale = c.Precision, c.Scale
	case TypeText, TypeBinary:
		if d.Name() == "mysql" {
			s.Limit = mysqlSizeBucket(c.Limit)
		}
	}

	switch d.Name() {
	case "postgres":
		if c.Type == TypeTimestamp {
			s.Type = TypeDatetime
		}
	case "mysql", "sqlite":
		if c.Type == TypeBoolean {
			s.NotNull = true
		}
	}
	if d.Name() == "sqlite" && c.AutoIncrement {
		s.Type = TypeInteger
	}
	if c.AutoIncrement {
		s.NotNull = true
		s.Default = ""
	}
	if c.Type == TypeTimestamp && c.defaultsToCurrentTimestamp() {
		s.NotNull = false
	}
	return s
}

// mysqlSizeBucket maps a text/blob limit to the variant MySQL would pick.
func mysqlSizeBucket(limit int) int {
	switch {
	case limit <= 0, limit > mysqlTinyLimit && limit <= mysqlPlainLimit:
		return 0
	case limit <= mysqlTinyLimit:
		return mysqlTinyLimit
	case limit <= mysqlMediumLimit:
		return mysqlMediumLimit
	default:
		return mysqlLongLimit
	}
}

func normalizeDefault(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		if x {
			return "1"
		}
		return "0"
	case string:
		if strings.EqualFold(x, CurrentTimestamp) {
			return CurrentTimestamp
		}
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
		return x
	case int, int32, int64, uint64, float32, float64:
		f, _ := strconv.ParseFloat(fmt.Sprint(x), 64)
		return strconv.FormatFloat(f, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// tableFingerprint hashes the round-trip shape of t for d.
func tableFingerprint(d Dialect, t *TableSchema) (uint64, error) {
	return hashstructure.Hash(shapeOf(d, t), hashstructure.FormatV2, nil)
}

// compareTables lists the differences between the desired table and the one
// described from the database. It returns nil when they match.
func compareTables(d Dialect, want, got *TableSchema) ([]string, error) {
	wantHash, err := tableFingerprint(d, want)
	if err != nil {
		return nil, fmt.Errorf("fingerprint %s: %w", want.name, err)
	}
	gotHash, err := tableFingerprint(d, got)
	if err != nil {
		return nil, fmt.Errorf("fingerprint %s: %w", got.name, err)
	}
	if wantHash == gotHash {
		return nil, nil
	}

	ws, gs := shapeOf(d, want), shapeOf(d, got)
	var diffs []string

	gotCols := make(map[string]columnShape, len(gs.Columns))
	for _, c := range gs.Columns {
		gotCols[c.Name] = c
	}
	wantCols := make(map[string]bool, len(ws.Columns))
	for _, w := range ws.Columns {
		wantCols[w.Name] = true
		g, ok := gotCols[w.Name]
		if !ok {
			diffs = append(diffs, fmt.Sprintf("column %s: missing", w.Name))
			continue
		}
		diffs = append(diffs, diffColumn(w, g)...)
	}
	for _, g := range gs.Columns {
		if !wantCols[g.Name] {
			diffs = append(diffs, fmt.Sprintf("column %s: not in descriptor", g.Name))
		}
	}
	if len(diffs) == 0 && !slices.EqualFunc(ws.Columns, gs.Columns, func(a, b columnShape) bool { return a.Name == b.Name }) {
		diffs = append(diffs, fmt.Sprintf("column order: want %v, got %v", columnShapeNames(ws.Columns), columnShapeNames(gs.Columns)))
	}

	if !slices.Equal(ws.Primary, gs.Primary) {
		diffs = append(diffs, fmt.Sprintf("primary key: want %v, got %v", ws.Primary, gs.Primary))
	}
	diffs = append(diffs, diffSet("unique", ws.Uniques, gs.Uniques)...)
	diffs = append(diffs, diffSet("foreign key", ws.Foreign, gs.Foreign)...)
	diffs = append(diffs, diffSet("index", ws.Indexes, gs.Indexes)...)
	return diffs, nil
}

func diffColumn(w, g columnShape) []string {
	var diffs []string
	field := func(name string, want, got any) {
		if want != got {
			diffs = append(diffs, fmt.Sprintf("column %s: %s want %v, got %v", w.Name, name, want, got))
		}
	}
	field("type", w.Type, g.Type)
	field("limit", w.Limit, g.Limit)
	field("precision", w.Precision, g.Precision)
	field("scale", w.Scale, g.Scale)
	field("not null", w.NotNull, g.NotNull)
	field("autoincrement", w.AutoIncrement, g.AutoIncrement)
	field("default", w.Default, g.Default)
	return diffs
}

func diffSet(label string, want, got []string) []string {
	var diffs []string
	for _, w := range want {
		if !slices.Contains(got, w) {
			diffs = append(diffs, fmt.Sprintf("%s %s: missing", label, w))
		}
	}
	for _, g := range got {
		if !slices.Contains(want, g) {
			diffs = append(diffs, fmt.Sprintf("%s %s: not in descriptor", label, g))
		}
	}
	return diffs
}

func columnShapeNames(cols []columnShape) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
