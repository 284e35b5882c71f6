/*
Sqlorm is a small object-relational mapping layer for SQL databases. It
provides a fluent builder for SELECT statements and an active record wrapper
around individual table rows, so that common create, read, update and delete
operations can be written without SQL.

It does not hide the database. Statements are run through database/sql (via
sqlx) and any part of a query can be written as raw SQL when the builder does
not cover it.

# Connecting

A [Conn] is created from a [Config]. The database client is created the first
time it is needed:

	conn := sqlorm.New(sqlorm.Config{
		ConnectionString: "sqlite:./contacts.db",
	})
	defer conn.Close()

The connection string starts with the driver: "sqlite:", "pgsql:", "pq:",
"mysql:", or is a "postgres://" URL.

# Querying

A [Query] is obtained from the Conn and built up with chained calls. Column
and table names are quoted for the database; values are always passed as
query arguments.

	contacts, err := conn.Query("contact").
		WhereGt("id", 1).
		OrderByAsc("id").
		Limit(2).
		FindMany(ctx)

Conditions are joined with AND in the order they are added. Every result row
becomes a [Record].

# Records

A Record is a mapping from column name to value. It remembers which fields
have been changed with [Record.Set] since it was loaded, and [Record.Save]
writes only those:

	contact := conn.NewRecord("contact", map[string]any{"name": "Testi"})
	res, err := contact.Save(ctx) // INSERT, res.Kind == sqlorm.Inserted

	contact.Set("email", "testi@example.com")
	res, err = contact.Save(ctx) // UPDATE of email only

Typed wrappers can be layered on top of Record by registering a
[RecordType]; see the example package.
*/
package sqlorm
