package main

import (
	"fmt"
	"strconv"
	"strings"
)

// TypeParseError reports a native column type that could not be understood.
type TypeParseError struct {
	Dialect string
	Type    string
	Reason  string
}

func (e *TypeParseError) Error() string {
	return fmt.Sprintf("%s: cannot parse column type %q: %s", e.Dialect, e.Type, e.Reason)
}

// nativeType is a tokenized engine type such as "int(11) unsigned",
// "decimal(10,2)" or "enum('a','b')".
type nativeType struct {
	Base     string // lower-case keyword(s), e.g. "varchar", "double precision"
	RawArgs  string // text between the parentheses, verbatim
	Args     []int  // numeric arguments; nil when absent or not numeric
	HasArgs  bool
	Unsigned bool
	Zerofill bool
}

// arg returns the i-th numeric argument or 0.
func (n nativeType) arg(i int) int {
	if i < len(n.Args) {
		return n.Args[i]
	}
	return 0
}

// String renders the type back in canonical lower-case form.
func (n nativeType) String() string {
	var b strings.Builder
	b.WriteString(n.Base)
	if n.HasArgs {
		b.WriteByte('(')
		b.WriteString(n.RawArgs)
		b.WriteByte(')')
	}
	if n.Unsigned {
		b.WriteString(" unsigned")
	}
	if n.Zerofill {
		b.WriteString(" zerofill")
	}
	return b.String()
}

// parseNativeType tokenizes a native type string of the shape
// `word [word...] [( args )] [modifier...]`.
func parseNativeType(dialect, s string) (nativeType, error) {
	fail := func(reason string) (nativeType, error) {
		return nativeType{}, &TypeParseError{Dialect: dialect, Type: s, Reason: reason}
	}

	src := strings.TrimSpace(s)
	if src == "" {
		return fail("empty type")
	}

	var nt nativeType
	prefix, rest := src, ""
	if open := strings.IndexByte(src, '('); open >= 0 {
		close := matchingParen(src, open)
		if close < 0 {
			return fail("unbalanced parentheses")
		}
		prefix = src[:open]
		nt.HasArgs = true
		nt.RawArgs = strings.TrimSpace(src[open+1 : close])
		rest = src[close+1:]
		if strings.ContainsAny(rest, "()") {
			return fail("unexpected parentheses after arguments")
		}
		if nt.RawArgs == "" {
			return fail("empty argument list")
		}
		nt.Args = parseIntArgs(nt.RawArgs)
	} else if strings.ContainsAny(src, ")") {
		return fail("unbalanced parentheses")
	}

	var words []string
	for _, w := range strings.Fields(strings.ToLower(prefix + " " + rest)) {
		switch w {
		case "unsigned":
			nt.Unsigned = true
		case "zerofill":
			nt.Zerofill = true
		case "signed":
		default:
			if !isTypeWord(w) {
				return fail(fmt.Sprintf("invalid token %q", w))
			}
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return fail("missing type name")
	}
	nt.Base = strings.Join(words, " ")
	return nt, nil
}

// requireNumericArgs returns an error when the type carries arguments that are not
// integers, for bases where only integers make sense.
func (n nativeType) requireNumericArgs(dialect, raw string) error {
	if n.HasArgs && n.Args == nil {
		return &TypeParseError{Dialect: dialect, Type: raw, Reason: "non-numeric length"}
	}
	return nil
}

func matchingParen(s string, open int) int {
	depth := 0
	inQuote := false
	for i := open; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func parseIntArgs(raw string) []int {
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil
		}
		out = append(out, n)
	}
	return out
}

func isTypeWord(w string) bool {
	for i, r := range w {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return w != ""
}
