// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"strconv"
	"strings"

	"github.com/canonical/sqlorm/internal/quote"
)

// Join kinds accepted by Select.Join.
const (
	JoinPlain      = ""
	JoinInner      = "INNER"
	JoinLeftOuter  = "LEFT OUTER"
	JoinRightOuter = "RIGHT OUTER"
	JoinFullOuter  = "FULL OUTER"
)

// fragment is a piece of SQL whose identifiers are quoted when the
// statement is compiled.
type fragment func(q quote.Quoter) string

func verbatim(sql string) fragment {
	return func(quote.Quoter) string { return sql }
}

func identifier(id string, suffix string) fragment {
	return func(q quote.Quoter) string { return q.Identifier(id) + suffix }
}

// condition is a single WHERE fragment with "?" placeholders and the values
// bound to them, in placeholder order.
type condition struct {
	sql  fragment
	args []any
}

// Columns is a snapshot of the result columns of a Select.
type Columns struct {
	list      []fragment
	isDefault bool
}

// Select accumulates the state of a SELECT statement. Identifiers are kept
// unquoted and quoted by [Select.SQL].
type Select struct {
	table string
	alias string

	// columns holds the result columns. While defaultColumns is set it holds
	// the single wildcard column and is replaced by the first explicit
	// column.
	columns        []fragment
	defaultColumns bool
	distinct       bool

	joins      []fragment
	conditions []condition
	groupBy    []fragment
	orderBy    []fragment

	limit  *int
	offset *int

	// raw, when set, replaces everything else.
	raw *condition
}

// NewSelect returns a Select on table selecting every column.
func NewSelect(table string) *Select {
	s := &Select{table: table}
	s.ResetColumns()
	return s
}

// Table returns the target table name.
func (s *Select) Table() string {
	return s.table
}

// SetAlias sets the table alias.
func (s *Select) SetAlias(alias string) {
	s.alias = alias
}

func (s *Select) addColumn(f fragment, alias string) {
	if alias != "" {
		inner := f
		f = func(q quote.Quoter) string { return inner(q) + " AS " + q.Identifier(alias) }
	}
	if s.defaultColumns {
		s.columns = []fragment{f}
		s.defaultColumns = false
		return
	}
	s.columns = append(s.columns, f)
}

// AddColumn adds a result column expression, which is not quoted. The first
// call replaces the default wildcard, later calls append. A non empty alias
// is quoted.
func (s *Select) AddColumn(expr string, alias string) {
	s.addColumn(verbatim(expr), alias)
}

// AddQuotedColumn adds column, quoting it.
func (s *Select) AddQuotedColumn(column string, alias string) {
	s.addColumn(identifier(column, ""), alias)
}

// Columns returns the current result columns.
func (s *Select) Columns() Columns {
	return Columns{list: append([]fragment(nil), s.columns...), isDefault: s.defaultColumns}
}

// SetColumns restores columns returned by [Select.Columns].
func (s *Select) SetColumns(c Columns) {
	s.columns = append([]fragment(nil), c.list...)
	s.defaultColumns = c.isDefault
}

// ResetColumns goes back to selecting every column.
func (s *Select) ResetColumns() {
	s.columns = []fragment{verbatim("*")}
	s.defaultColumns = true
}

// SetDistinct marks the statement as SELECT DISTINCT.
func (s *Select) SetDistinct() {
	s.distinct = true
}

// Join appends a join clause of the given kind. The constraint must be valid.
func (s *Select) Join(kind string, table string, on Constraint, alias string) error {
	if err := on.validate(); err != nil {
		return err
	}
	op := strings.TrimSpace(kind + " JOIN")
	s.joins = append(s.joins, func(q quote.Quoter) string {
		target := q.Identifier(table)
		if alias != "" {
			target += " " + q.Identifier(alias)
		}
		return op + " " + target + " ON " + on.toSQL(q)
	})
	return nil
}

// Where appends a raw condition.
func (s *Select) Where(sql string, args ...any) {
	s.conditions = append(s.conditions, condition{sql: verbatim(sql), args: args})
}

// WhereColumn appends "<column> <op> ?" with a single bound value.
func (s *Select) WhereColumn(column, op string, value any) {
	s.conditions = append(s.conditions, condition{
		sql:  identifier(column, " "+op+" ?"),
		args: []any{value},
	})
}

// WhereList appends "<column> <op> (?, ?, ...)" with one placeholder per
// value. An empty list yields "()".
func (s *Select) WhereList(column, op string, values []any) {
	s.conditions = append(s.conditions, condition{
		sql:  identifier(column, " "+op+" ("+Placeholders(len(values))+")"),
		args: append([]any(nil), values...),
	})
}

// WhereUnary appends a condition without bound values, e.g. "IS NULL".
func (s *Select) WhereUnary(column, op string) {
	s.conditions = append(s.conditions, condition{sql: identifier(column, " "+op)})
}

// GroupBy appends a grouping column.
func (s *Select) GroupBy(column string) {
	s.groupBy = append(s.groupBy, identifier(column, ""))
}

// OrderBy appends an ordering entry; direction is ASC or DESC.
func (s *Select) OrderBy(column, direction string) {
	s.orderBy = append(s.orderBy, identifier(column, " "+direction))
}

// SetLimit sets the LIMIT.
func (s *Select) SetLimit(n int) {
	s.limit = &n
}

// ClearLimit removes the LIMIT.
func (s *Select) ClearLimit() {
	s.limit = nil
}

// Limit returns the limit and whether one is set.
func (s *Select) Limit() (int, bool) {
	if s.limit == nil {
		return 0, false
	}
	return *s.limit, true
}

// SetOffset sets the OFFSET.
func (s *Select) SetOffset(n int) {
	s.offset = &n
}

// SetRaw switches the statement to raw mode.
func (s *Select) SetRaw(sql string, args ...any) {
	s.raw = &condition{sql: verbatim(sql), args: args}
}

// IsRaw reports whether a raw query has been set.
func (s *Select) IsRaw() bool {
	return s.raw != nil
}

// SQL compiles the statement with identifiers quoted by q, returning the SQL
// and the bound values in placeholder order.
func (s *Select) SQL(q quote.Quoter) (string, []any) {
	if s.raw != nil {
		return s.raw.sql(q), append([]any{}, s.raw.args...)
	}

	args := []any{}
	pieces := []string{
		s.selectStart(q),
		joinFragments(q, "", " ", s.joins),
		s.where(q, &args),
		joinFragments(q, "GROUP BY ", ", ", s.groupBy),
		joinFragments(q, "ORDER BY ", ", ", s.orderBy),
		intClause("LIMIT ", s.limit),
		intClause("OFFSET ", s.offset),
	}

	b := sqlBuilder{}
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		if b.buf.Len() != 0 {
			b.write(" ")
		}
		b.write(piece)
	}
	return b.getSQL(), args
}

func (s *Select) selectStart(q quote.Quoter) string {
	b := sqlBuilder{}
	b.write("SELECT ")
	if s.distinct {
		b.write("DISTINCT ")
	}
	b.writeCommaSeparatedList(make([]string, len(s.columns)), func(i int, _ string) string {
		return s.columns[i](q)
	})
	b.write(" FROM ")
	b.write(q.Identifier(s.table))
	if s.alias != "" {
		b.write(" " + q.Identifier(s.alias))
	}
	return b.getSQL()
}

// where renders the conditions and appends their values to args in
// condition order.
func (s *Select) where(q quote.Quoter, args *[]any) string {
	if len(s.conditions) == 0 {
		return ""
	}
	fragments := make([]string, len(s.conditions))
	for i, c := range s.conditions {
		fragments[i] = c.sql(q)
		*args = append(*args, c.args...)
	}
	return "WHERE " + strings.Join(fragments, " AND ")
}

func joinFragments(q quote.Quoter, prefix, sep string, list []fragment) string {
	if len(list) == 0 {
		return ""
	}
	parts := make([]string, len(list))
	for i, f := range list {
		parts[i] = f(q)
	}
	return prefix + strings.Join(parts, sep)
}

func intClause(prefix string, n *int) string {
	if n == nil {
		return ""
	}
	return prefix + strconv.Itoa(*n)
}

// Placeholders returns n comma separated "?" placeholders.
func Placeholders(n int) string {
	b := sqlBuilder{}
	b.writeCommaSeparatedList(make([]string, n), func(_ int, _ string) string {
		return "?"
	})
	return b.getSQL()
}
