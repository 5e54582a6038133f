package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// quoteIdent wraps name in q, doubling any embedded q. Dotted names are
// quoted per segment so schema-qualified tables keep working.
func quoteIdent(name string, q string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = q + strings.ReplaceAll(p, q, q+q) + q
	}
	return strings.Join(parts, ".")
}

// quoteList quotes each name with quote and joins them with ", ".
func quoteList(names []string, quote func(string) string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quote(n)
	}
	return strings.Join(quoted, ", ")
}

// quoteLiteral returns a single-quoted SQL string literal. backslashEscapes
// additionally escapes backslashes for engines that treat them specially.
func quoteLiteral(s string, backslashEscapes bool) string {
	if backslashEscapes {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// schemaValue renders v as a SQL literal. Booleans are delegated to boolSQL
// because each engine spells them differently.
func schemaValue(v any, backslashEscapes bool, boolSQL func(bool) string) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		return boolSQL(x)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return formatFloat(float64(x))
	case float64:
		return formatFloat(x)
	case string:
		return quoteLiteral(x, backslashEscapes)
	default:
		return quoteLiteral(fmt.Sprint(x), backslashEscapes)
	}
}

func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return quoteLiteral(strconv.FormatFloat(f, 'g', -1, 64), false)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// lengthClause renders "(n)" or "(p,s)" for abstract types that take one.
func lengthClause(c Column) string {
	switch c.Type {
	case TypeString:
		if c.Limit > 0 {
			return fmt.Sprintf("(%d)", c.Limit)
		}
	case TypeDecimal, TypeFloat:
		if c.Precision > 0 {
			return fmt.Sprintf("(%d,%d)", c.Precision, c.Scale)
		}
	case TypeInteger, TypeBigInt:
		if c.Limit > 0 {
			return fmt.Sprintf("(%d)", c.Limit)
		}
	}
	return ""
}
