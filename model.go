package main

import (
	"fmt"
	"strings"
)

// Abstract column types understood by every dialect. Any other type string is
// passed through to the database verbatim.
const (
	TypeString    = "string"
	TypeText      = "text"
	TypeInteger   = "integer"
	TypeBigInt    = "bigint"
	TypeFloat     = "float"
	TypeDecimal   = "decimal"
	TypeDate      = "date"
	TypeDatetime  = "datetime"
	TypeTime      = "time"
	TypeTimestamp = "timestamp"
	TypeBinary    = "binary"
	TypeBoolean   = "boolean"
)

// CurrentTimestamp is the default value that renders as an unquoted
// CURRENT_TIMESTAMP on timestamp and datetime columns (compared case-insensitively).
const CurrentTimestamp = "CURRENT_TIMESTAMP"

// Column describes one table column in engine-agnostic terms.
type Column struct {
	Name          string
	Type          string
	Limit         int // character/byte length, or display width for integers
	Precision     int // decimal/float only
	Scale         int // decimal/float only
	NotNull       bool
	Default       any // nil, string, bool, int64, float64 or CurrentTimestamp
	Unsigned      bool
	Fixed         bool // CHAR instead of VARCHAR
	Collate       string
	Comment       string
	AutoIncrement bool
}

func (c Column) isNumeric() bool {
	switch c.Type {
	case TypeInteger, TypeBigInt, TypeFloat, TypeDecimal:
		return true
	}
	return false
}

func (c Column) isTextual() bool {
	return c.Type == TypeString || c.Type == TypeText
}

func (c Column) defaultsToCurrentTimestamp() bool {
	s, ok := c.Default.(string)
	return ok && strings.EqualFold(s, CurrentTimestamp)
}

// ConstraintKind tags a table constraint.
type ConstraintKind int

const (
	ConstraintPrimary ConstraintKind = iota
	ConstraintUnique
	ConstraintForeign
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintPrimary:
		return "primary"
	case ConstraintUnique:
		return "unique"
	case ConstraintForeign:
		return "foreign"
	default:
		return fmt.Sprintf("ConstraintKind(%d)", int(k))
	}
}

func parseConstraintKind(s string) (ConstraintKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary":
		return ConstraintPrimary, nil
	case "unique":
		return ConstraintUnique, nil
	case "foreign":
		return ConstraintForeign, nil
	default:
		return 0, fmt.Errorf("unknown constraint kind %q (must be primary, unique or foreign)", s)
	}
}

// ReferentialAction is an ON UPDATE / ON DELETE behaviour.
type ReferentialAction string

const (
	ActionCascade    ReferentialAction = "cascade"
	ActionRestrict   ReferentialAction = "restrict"
	ActionSetNull    ReferentialAction = "setNull"
	ActionSetDefault ReferentialAction = "setDefault"
	ActionNoAction   ReferentialAction = "noAction"
)

var referentialActionSQL = map[ReferentialAction]string{
	ActionCascade:    "CASCADE",
	ActionRestrict:   "RESTRICT",
	ActionSetNull:    "SET NULL",
	ActionSetDefault: "SET DEFAULT",
	ActionNoAction:   "NO ACTION",
}

// SQL renders the action keyword. Empty or unknown actions render RESTRICT.
func (a ReferentialAction) SQL() string {
	if s, ok := referentialActionSQL[a]; ok {
		return s
	}
	return "RESTRICT"
}

func (a ReferentialAction) valid() bool {
	if a == "" {
		return true
	}
	_, ok := referentialActionSQL[a]
	return ok
}

// referentialActionFromSQL maps catalog rule text (e.g. "SET NULL") back to
// an action. Unknown rules map to restrict.
func referentialActionFromSQL(rule string) ReferentialAction {
	switch strings.ToUpper(strings.TrimSpace(rule)) {
	case "CASCADE":
		return ActionCascade
	case "SET NULL":
		return ActionSetNull
	case "SET DEFAULT":
		return ActionSetDefault
	case "NO ACTION":
		return ActionNoAction
	default:
		return ActionRestrict
	}
}

// Reference is the target of a foreign key.
type Reference struct {
	Table   string
	Columns []string
}

// Constraint is a primary key, unique or foreign key constraint.
type Constraint struct {
	Name       string
	Kind       ConstraintKind
	Columns    []string
	References *Reference // foreign only
	Update     ReferentialAction
	Delete     ReferentialAction
}

// IndexKind tags an index.
type IndexKind string

const (
	IndexPlain    IndexKind = "index"
	IndexUnique   IndexKind = "unique"
	IndexFulltext IndexKind = "fulltext" // MySQL only
)

// Index is a named secondary index.
type Index struct {
	Name    string
	Kind    IndexKind
	Columns []string
}

// TableOptions carries table-level settings. Engine, Charset and Collation
// only apply to MySQL.
type TableOptions struct {
	Engine        string
	Charset       string
	Collation     string
	AutoIncrement int64 // starting counter, 0 = engine default
	Temporary     bool
}

// DropTableOptions controls DROP TABLE rendering.
type DropTableOptions struct {
	IfExists bool
}
