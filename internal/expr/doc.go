/*
Package expr generates the SQL for sqlorm. It covers all functionality
relating to statement text and bound values; it does not interact with
databases.

# SELECT statements

A Select accumulates the clauses of a query as they are added by the fluent
builder: result columns, joins, conditions, grouping, ordering, limit and
offset. Column identifiers are quoted with the quote.Quoter given to
NewSelect. Select.SQL compiles the clauses in a fixed order, skipping empty
ones:

	SELECT [DISTINCT] <columns> FROM <table> [<alias>]
	<joins>
	WHERE <cond1> AND <cond2> ...
	GROUP BY ...
	ORDER BY ...
	LIMIT n
	OFFSET n

Bound values are returned in condition order. A raw query replaces all of
the above.

# Write statements

Insert, Update and Delete compile the statements used to persist records.
All statements use "?" placeholders; rebinding to the placeholder style of a
particular driver is left to the caller.
*/
package expr
