// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/canonical/sqlorm/internal/quote"
)

// ErrNoFields is returned when an INSERT or UPDATE has nothing to write.
var ErrNoFields = errors.New("no fields to write")

// Field is a column and the value to write to it.
type Field struct {
	Column string
	Value  any
}

// Insert compiles "INSERT INTO <table> (<cols>) VALUES (<placeholders>)" with
// the values in field order.
func Insert(q quote.Quoter, table string, fields []Field) (string, []any, error) {
	if len(fields) == 0 {
		return "", nil, ErrNoFields
	}
	columns := make([]string, len(fields))
	values := make([]any, len(fields))
	for i, f := range fields {
		columns[i] = q.Identifier(f.Column)
		values[i] = f.Value
	}
	return sq.Insert(q.Identifier(table)).Columns(columns...).Values(values...).ToSql()
}

// Update compiles "UPDATE <table> SET <col> = ?, ... WHERE <id> = ?". The
// values are the field values in order followed by id.
func Update(q quote.Quoter, table string, fields []Field, idColumn string, id any) (string, []any, error) {
	if len(fields) == 0 {
		return "", nil, ErrNoFields
	}
	b := sq.Update(q.Identifier(table))
	for _, f := range fields {
		b = b.Set(q.Identifier(f.Column), f.Value)
	}
	return b.Where(q.Identifier(idColumn)+" = ?", id).ToSql()
}

// Delete compiles "DELETE FROM <table> WHERE <id> = ?".
func Delete(q quote.Quoter, table string, idColumn string, id any) (string, []any, error) {
	return sq.Delete(q.Identifier(table)).Where(q.Identifier(idColumn)+" = ?", id).ToSql()
}
