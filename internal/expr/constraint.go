// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"errors"
	"fmt"

	"github.com/canonical/sqlorm/internal/quote"
)

// ErrInvalidJoin is returned when a structured join constraint is missing one
// of its parts.
var ErrInvalidJoin = errors.New("join constraint needs a left column, an operator and a right column")

// A Constraint is the ON part of a join clause. It is either a structured
// comparison between two columns, which are quoted, or a raw SQL fragment
// which is used verbatim.
type Constraint interface {
	// String returns a representation of the constraint for debugging and
	// testing purposes.
	String() string

	// toSQL renders the constraint using the quoter.
	toSQL(q quote.Quoter) string

	// validate reports malformed constraints.
	validate() error
}

// ColumnConstraint compares two columns, e.g. p.address_id = a.id.
type ColumnConstraint struct {
	Left     string
	Operator string
	Right    string
}

func (c ColumnConstraint) String() string {
	return fmt.Sprintf("On[%s %s %s]", c.Left, c.Operator, c.Right)
}

func (c ColumnConstraint) toSQL(q quote.Quoter) string {
	return q.Identifier(c.Left) + " " + c.Operator + " " + q.Identifier(c.Right)
}

func (c ColumnConstraint) validate() error {
	if c.Left == "" || c.Operator == "" || c.Right == "" {
		return fmt.Errorf("%w, got %s", ErrInvalidJoin, c)
	}
	return nil
}

// RawConstraint is passed to the database untouched. The caller is
// responsible for escaping.
type RawConstraint string

func (c RawConstraint) String() string {
	return "RawOn[" + string(c) + "]"
}

func (c RawConstraint) toSQL(_ quote.Quoter) string {
	return string(c)
}

func (c RawConstraint) validate() error {
	if c == "" {
		return fmt.Errorf("%w, got empty raw constraint", ErrInvalidJoin)
	}
	return nil
}
