// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package quote

import "strings"

// Quoter wraps table and column identifiers in dialect specific quote
// characters.
type Quoter struct {
	open  string
	close string
}

// New returns a Quoter that uses char on both sides of an identifier.
func New(char string) Quoter {
	return Quoter{open: char, close: char}
}

// NewPair returns a Quoter with distinct opening and closing characters, e.g.
// "[" and "]".
func NewPair(open, close string) Quoter {
	return Quoter{open: open, close: close}
}

// ForDriver returns the Quoter for the family of the named database/sql
// driver. ANSI style engines get double quotes, everything else backticks.
func ForDriver(driverName string) Quoter {
	switch strings.ToLower(driverName) {
	case "pgx", "postgres", "postgresql", "pgsql", "pq",
		"sqlserver", "mssql", "dblib", "sybase", "cloudsqlpostgres":
		return New(`"`)
	default:
		return New("`")
	}
}

// Identifier quotes every segment of a dotted identifier. The wildcard
// segment "*" is left as is.
//
//	`table.col` -> "table"."col"
//	`t.*`       -> "t".*
func (q Quoter) Identifier(identifier string) string {
	parts := strings.Split(identifier, ".")
	for i, part := range parts {
		parts[i] = q.Part(part)
	}
	return strings.Join(parts, ".")
}

// Part quotes a single identifier segment.
func (q Quoter) Part(part string) string {
	if part == "*" {
		return part
	}
	return q.open + part + q.close
}

// Chars returns the opening and closing quote characters.
func (q Quoter) Chars() (string, string) {
	return q.open, q.close
}
