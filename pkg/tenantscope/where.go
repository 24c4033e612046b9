package tenantscope

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Cond is a single SQL predicate using "?" placeholders.
type Cond struct {
	sql  string
	args []any
}

// Eq matches column = value.
func Eq(column string, value any) Cond {
	return Cond{sql: column + " = ?", args: []any{value}}
}

// Expr wraps an arbitrary predicate. It is parenthesised when combined.
func Expr(sql string, args ...any) Cond {
	return Cond{sql: "(" + sql + ")", args: args}
}

// Where renders a WHERE clause with the tenant filter first and pgx style
// numbered placeholders starting at $1. It returns an empty clause when
// nothing filters the statement.
func (s Scope) Where(ctx context.Context, conds ...Cond) (string, []any, error) {
	return s.WhereFrom(ctx, 0, conds...)
}

// WhereFrom is Where for statements that already bind offset arguments,
// such as the SET list of an UPDATE.
func (s Scope) WhereFrom(ctx context.Context, offset int, conds ...Cond) (string, []any, error) {
	id, filtered, err := s.Filter(ctx)
	if err != nil {
		return "", nil, err
	}

	all := conds
	if filtered {
		all = append([]Cond{Eq(s.column, id)}, conds...)
	}
	if len(all) == 0 {
		return "", nil, nil
	}

	var (
		b    strings.Builder
		args []any
		n    = offset
	)
	b.WriteString(" WHERE ")
	for i, c := range all {
		if i > 0 {
			b.WriteString(" AND ")
		}
		placeholders := 0
		for _, r := range c.sql {
			if r != '?' {
				b.WriteRune(r)
				continue
			}
			n++
			placeholders++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		}
		if placeholders != len(c.args) {
			return "", nil, fmt.Errorf("tenantscope: condition %q has %d placeholders for %d args", c.sql, placeholders, len(c.args))
		}
		args = append(args, c.args...)
	}

	return b.String(), args, nil
}
