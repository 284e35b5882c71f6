// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlorm

import (
	"context"
	"errors"

	"github.com/canonical/sqlorm/internal/convert"
	"github.com/canonical/sqlorm/internal/expr"
)

// JoinConstraint is the ON part of a join. Use [On] to compare two columns,
// which are quoted, or [RawOn] for a SQL fragment used verbatim.
type JoinConstraint = expr.Constraint

// On returns a constraint comparing two columns, e.g.
//
//	sqlorm.On("contact.address_id", "=", "address.id")
func On(left, operator, right string) JoinConstraint {
	return expr.ColumnConstraint{Left: left, Operator: operator, Right: right}
}

// RawOn returns a constraint that is passed to the database untouched. The
// caller is responsible for escaping any values in it.
func RawOn(sql string) JoinConstraint {
	return expr.RawConstraint(sql)
}

// Query builds a SELECT statement on a single table. Builder methods return
// the Query so calls can be chained:
//
//	contacts, err := conn.Query("contact").
//		WhereGt("id", 1).
//		OrderByAsc("id").
//		Limit(2).
//		FindMany(ctx)
//
// The statement is compiled each time an execution method ([Query.FindMany],
// [Query.FindOne], [Query.FindByID], [Query.Count]) is called. A Query is not
// safe for concurrent use.
type Query struct {
	conn       *Conn
	recordType *RecordType
	sel        *expr.Select
	// err is the first builder error. It is returned by the execution
	// methods.
	err error
}

func newQuery(conn *Conn, table string, rt *RecordType) *Query {
	q := &Query{
		conn:       conn,
		recordType: rt,
		sel:        expr.NewSelect(table),
	}
	if table == "" {
		q.err = preconditionf("query", "no table given")
	}
	return q
}

func (q *Query) setErr(err error) {
	if q.err == nil {
		q.err = err
	}
}

// optionalAlias returns the alias given to a builder method, if any.
func (q *Query) optionalAlias(op string, alias []string) string {
	switch len(alias) {
	case 0:
		return ""
	case 1:
		return alias[0]
	}
	q.setErr(preconditionf(op, "need at most one alias, got %d", len(alias)))
	return ""
}

// Select adds a column to the result. The column is quoted. The first column
// added replaces the default "*".
func (q *Query) Select(column string, alias ...string) *Query {
	q.sel.AddQuotedColumn(column, q.optionalAlias("select "+column, alias))
	return q
}

// SelectExpr adds an expression, e.g. "COUNT(*)", to the result. The
// expression is not quoted.
func (q *Query) SelectExpr(expression string, alias ...string) *Query {
	q.sel.AddColumn(expression, q.optionalAlias("select "+expression, alias))
	return q
}

// Distinct makes the query SELECT DISTINCT.
func (q *Query) Distinct() *Query {
	q.sel.SetDistinct()
	return q
}

func (q *Query) join(kind, table string, on JoinConstraint, alias []string) *Query {
	op := "join " + table
	if on == nil {
		q.setErr(&PreconditionError{Op: op, Err: ErrInvalidJoin})
		return q
	}
	if err := q.sel.Join(kind, table, on, q.optionalAlias(op, alias)); err != nil {
		q.setErr(&PreconditionError{Op: op, Err: err})
	}
	return q
}

// Join adds a JOIN clause.
func (q *Query) Join(table string, on JoinConstraint, alias ...string) *Query {
	return q.join(expr.JoinPlain, table, on, alias)
}

// InnerJoin adds an INNER JOIN clause.
func (q *Query) InnerJoin(table string, on JoinConstraint, alias ...string) *Query {
	return q.join(expr.JoinInner, table, on, alias)
}

// LeftOuterJoin adds a LEFT OUTER JOIN clause.
func (q *Query) LeftOuterJoin(table string, on JoinConstraint, alias ...string) *Query {
	return q.join(expr.JoinLeftOuter, table, on, alias)
}

// RightOuterJoin adds a RIGHT OUTER JOIN clause.
func (q *Query) RightOuterJoin(table string, on JoinConstraint, alias ...string) *Query {
	return q.join(expr.JoinRightOuter, table, on, alias)
}

// FullOuterJoin adds a FULL OUTER JOIN clause.
func (q *Query) FullOuterJoin(table string, on JoinConstraint, alias ...string) *Query {
	return q.join(expr.JoinFullOuter, table, on, alias)
}

// Where is an alias for [Query.WhereEqual].
func (q *Query) Where(column string, value any) *Query {
	return q.WhereEqual(column, value)
}

// WhereEqual adds "column = ?".
func (q *Query) WhereEqual(column string, value any) *Query {
	q.sel.WhereColumn(column, "=", value)
	return q
}

// WhereNotEqual adds "column != ?".
func (q *Query) WhereNotEqual(column string, value any) *Query {
	q.sel.WhereColumn(column, "!=", value)
	return q
}

// WhereIDIs adds an equality condition on the primary key column.
func (q *Query) WhereIDIs(id any) *Query {
	return q.WhereEqual(q.conn.idColumn(q.sel.Table(), q.recordType), id)
}

// WhereLike adds "column LIKE ?".
func (q *Query) WhereLike(column string, value any) *Query {
	q.sel.WhereColumn(column, "LIKE", value)
	return q
}

// WhereNotLike adds "column NOT LIKE ?".
func (q *Query) WhereNotLike(column string, value any) *Query {
	q.sel.WhereColumn(column, "NOT LIKE", value)
	return q
}

// WhereGt adds "column > ?".
func (q *Query) WhereGt(column string, value any) *Query {
	q.sel.WhereColumn(column, ">", value)
	return q
}

// WhereLt adds "column < ?".
func (q *Query) WhereLt(column string, value any) *Query {
	q.sel.WhereColumn(column, "<", value)
	return q
}

// WhereGte adds "column >= ?".
func (q *Query) WhereGte(column string, value any) *Query {
	q.sel.WhereColumn(column, ">=", value)
	return q
}

// WhereLte adds "column <= ?".
func (q *Query) WhereLte(column string, value any) *Query {
	q.sel.WhereColumn(column, "<=", value)
	return q
}

// WhereIn adds "column IN (?, ...)" with a placeholder for every value.
// An empty list produces "IN ()", which most databases reject.
func (q *Query) WhereIn(column string, values []any) *Query {
	q.sel.WhereList(column, "IN", values)
	return q
}

// WhereNotIn adds "column NOT IN (?, ...)". See [Query.WhereIn] for empty
// lists.
func (q *Query) WhereNotIn(column string, values []any) *Query {
	q.sel.WhereList(column, "NOT IN", values)
	return q
}

// WhereNull adds "column IS NULL".
func (q *Query) WhereNull(column string) *Query {
	q.sel.WhereUnary(column, "IS NULL")
	return q
}

// WhereNotNull adds "column IS NOT NULL".
func (q *Query) WhereNotNull(column string) *Query {
	q.sel.WhereUnary(column, "IS NOT NULL")
	return q
}

// WhereRaw adds a SQL fragment with "?" placeholders for args. The fragment
// is not escaped.
func (q *Query) WhereRaw(clause string, args ...any) *Query {
	q.sel.Where(clause, args...)
	return q
}

// Limit sets the LIMIT.
func (q *Query) Limit(n int) *Query {
	q.sel.SetLimit(n)
	return q
}

// Offset sets the OFFSET.
func (q *Query) Offset(n int) *Query {
	q.sel.SetOffset(n)
	return q
}

// OrderByAsc adds an ascending sort on column.
func (q *Query) OrderByAsc(column string) *Query {
	q.sel.OrderBy(column, "ASC")
	return q
}

// OrderByDesc adds a descending sort on column.
func (q *Query) OrderByDesc(column string) *Query {
	q.sel.OrderBy(column, "DESC")
	return q
}

// GroupBy adds a grouping column.
func (q *Query) GroupBy(column string) *Query {
	q.sel.GroupBy(column)
	return q
}

// TableAlias sets an alias for the table.
func (q *Query) TableAlias(alias string) *Query {
	q.sel.SetAlias(alias)
	return q
}

// RawQuery replaces the whole statement with sql. Every other clause, added
// before or after, is ignored.
func (q *Query) RawQuery(sql string, args ...any) *Query {
	q.sel.SetRaw(sql, args...)
	return q
}

// SQL returns the compiled statement and its arguments in placeholder order.
// Identifiers are quoted for the Conn's current client. Placeholders are
// always "?"; they are rebound for the driver when the query runs.
func (q *Query) SQL() (string, []any) {
	return q.sel.SQL(q.conn.quoter())
}

// FindMany runs the query and returns a record for every row.
func (q *Query) FindMany(ctx context.Context) ([]*Record, error) {
	if q.err != nil {
		return nil, q.err
	}
	sql, args := q.SQL()
	return q.run(ctx, sql, args)
}

// FindOne runs the query with a limit of one and returns the first record.
// It returns [ErrNoRows] if nothing matched.
func (q *Query) FindOne(ctx context.Context) (*Record, error) {
	if q.err != nil {
		return nil, q.err
	}
	sql, args := q.limitOne()
	records, err := q.run(ctx, sql, args)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRows
	}
	return records[0], nil
}

// FindByID adds an equality condition on the primary key and then behaves
// like [Query.FindOne].
func (q *Query) FindByID(ctx context.Context, id any) (*Record, error) {
	return q.WhereIDIs(id).FindOne(ctx)
}

// Count returns the number of rows matching the query. The result columns
// are replaced by COUNT(*) for the duration of the call.
func (q *Query) Count(ctx context.Context) (int, error) {
	defer q.sel.SetColumns(q.sel.Columns())
	q.sel.ResetColumns()
	q.sel.AddColumn("COUNT(*)", "count")

	r, err := q.FindOne(ctx)
	if errors.Is(err, ErrNoRows) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	n, ok := convert.Int64(r.Get("count"))
	if !ok {
		return 0, nil
	}
	return int(n), nil
}

// limitOne compiles the query with LIMIT 1 without changing the builder.
func (q *Query) limitOne() (string, []any) {
	prev, hadLimit := q.sel.Limit()
	q.sel.SetLimit(1)
	sql, args := q.SQL()
	if hadLimit {
		q.sel.SetLimit(prev)
	} else {
		q.sel.ClearLimit()
	}
	return sql, args
}

func (q *Query) run(ctx context.Context, sql string, args []any) ([]*Record, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rows, err := q.conn.queryRows(ctx, sql, args)
	if err != nil {
		return nil, err
	}
	records := make([]*Record, 0, len(rows))
	for _, row := range rows {
		r := newRecord(q.conn, q.sel.Table(), q.recordType)
		r.hydrateRow(row)
		records = append(records, r)
	}
	return records, nil
}
