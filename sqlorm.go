// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlorm

import (
	"context"
	"database/sql"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/canonical/sqlorm/internal/convert"
	"github.com/canonical/sqlorm/internal/quote"
)

// Conn is a handle on a single database. It owns the database client, which
// is created on first use from the [Config].
type Conn struct {
	// mutex guards cfg, db and last.
	mutex sync.Mutex
	cfg   Config
	db    *sqlx.DB
	last  lastQuery

	stmts *statementCache
	types *typeRegistry
}

type lastQuery struct {
	sql  string
	args []any
}

// New returns a Conn for cfg. No connection is made until the client is
// needed.
func New(cfg Config) *Conn {
	return &Conn{
		cfg:   cfg.withDefaults(),
		stmts: newStatementCache(),
		types: newTypeRegistry(),
	}
}

// Open returns a Conn for the connection string with the default
// configuration.
func Open(connectionString string) *Conn {
	return New(Config{ConnectionString: connectionString})
}

// Configure sets a single configuration entry by key, e.g.
//
//	conn.Configure(sqlorm.KeyUsername, "fred")
//
// It fails once the client has been created.
func (c *Conn) Configure(key string, value any) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.db != nil {
		return &PreconditionError{Op: "configure " + key, Err: ErrConfigLocked}
	}
	cfg := c.cfg
	if err := cfg.set(key, value); err != nil {
		return err
	}
	c.cfg = cfg.withDefaults()
	return nil
}

// ConfigureDSN sets the connection string.
func (c *Conn) ConfigureDSN(connectionString string) error {
	return c.Configure(KeyConnectionString, connectionString)
}

// config returns a copy of the current configuration.
func (c *Conn) config() Config {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.cfg
}

// Client returns the database client, creating it on the first call. Every
// call returns the same client. A [*ConnectionError] is returned if the
// client cannot be created.
func (c *Conn) Client(ctx context.Context) (*sqlx.DB, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.db != nil {
		return c.db, nil
	}
	if err := checkQuoteChar(c.cfg.QuoteChar); err != nil {
		return nil, &PreconditionError{Op: "create client", Err: err}
	}
	db, err := openClient(ctx, c.cfg)
	if err != nil {
		if c.cfg.ErrorMode == ErrorModeLog {
			c.cfg.Logger.Printf("sqlorm: %s", err)
		}
		return nil, err
	}
	c.db = db
	return db, nil
}

// SetClient makes the Conn use db instead of creating its own client.
// Statements prepared on a previous client are closed.
func (c *Conn) SetClient(db *sqlx.DB) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.db == db {
		return nil
	}
	c.db = db
	return c.stmts.close()
}

// Close closes any cached statements and the client.
func (c *Conn) Close() error {
	err := c.stmts.close()
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.db == nil {
		return err
	}
	if cerr := c.db.Close(); err == nil {
		err = cerr
	}
	c.db = nil
	return err
}

// quoter returns the identifier quoter. The configured quote character is
// used if set, otherwise it is derived from the driver. An invalid quote
// character is rejected when the client is created.
func (c *Conn) quoter() quote.Quoter {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	switch q := []rune(c.cfg.QuoteChar); {
	case len(q) == 1:
		return quote.New(string(q))
	case len(q) == 2:
		return quote.NewPair(string(q[0]), string(q[1]))
	}
	if c.db != nil {
		return quote.ForDriver(c.db.DriverName())
	}
	return quote.ForDriver(driverFamily(c.cfg))
}

// QuoteIdentifier quotes each segment of a dotted identifier, leaving "*"
// as is.
func (c *Conn) QuoteIdentifier(identifier string) string {
	return c.quoter().Identifier(identifier)
}

// Register adds record types that can be named in [Conn.Query] and
// [Conn.NewRecord].
func (c *Conn) Register(types ...*RecordType) error {
	for _, t := range types {
		if err := c.types.register(t); err != nil {
			return err
		}
	}
	return nil
}

// resolve maps a table or record type name to a table and, for record
// types, the type.
func (c *Conn) resolve(tableOrType string) (string, *RecordType) {
	if t, ok := c.types.lookup(tableOrType); ok {
		return t.TableName(), t
	}
	return tableOrType, nil
}

// idColumn returns the primary key column of table.
func (c *Conn) idColumn(table string, rt *RecordType) string {
	if rt != nil && rt.IDColumn != "" {
		return rt.IDColumn
	}
	cfg := c.config()
	if col, ok := cfg.IDColumnOverrides[table]; ok {
		return col
	}
	return cfg.IDColumn
}

// Query returns a new [Query] on a table or a registered record type.
func (c *Conn) Query(tableOrType string) *Query {
	table, rt := c.resolve(tableOrType)
	return newQuery(c, table, rt)
}

// NewRecord returns a record that will be inserted on its first save. Every
// field in data is marked dirty.
func (c *Conn) NewRecord(tableOrType string, data map[string]any) *Record {
	table, rt := c.resolve(tableOrType)
	r := newRecord(c, table, rt)
	r.isNew = true
	if data != nil {
		r.Hydrate(data)
	}
	r.ForceAllDirty()
	return r
}

// LastQuery returns the SQL and arguments of the last statement run on the
// Conn.
func (c *Conn) LastQuery() (string, []any) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.last.sql, c.last.args
}

// row is a single result row with its columns in result order.
type row struct {
	columns []string
	values  map[string]any
}

// queryRows runs a SELECT and reads every row.
func (c *Conn) queryRows(ctx context.Context, query string, args []any) ([]row, error) {
	db, err := c.Client(ctx)
	if err != nil {
		return nil, err
	}
	query = db.Rebind(query)
	cfg := c.before(query, args)

	var rs *sqlx.Rows
	if cfg.Caching {
		var stmt *sqlx.Stmt
		stmt, err = c.stmts.prepare(ctx, db, query)
		if err == nil {
			rs, err = stmt.QueryxContext(ctx, args...)
		}
	} else {
		rs, err = db.QueryxContext(ctx, query, args...)
	}
	if err != nil {
		return nil, c.failed(cfg, query, args, err)
	}
	defer rs.Close()

	columns, err := rs.Columns()
	if err != nil {
		return nil, c.failed(cfg, query, args, err)
	}
	var rows []row
	for rs.Next() {
		values := map[string]any{}
		if err := rs.MapScan(values); err != nil {
			return nil, c.failed(cfg, query, args, err)
		}
		for k, v := range values {
			values[k] = convert.Normalize(v)
		}
		rows = append(rows, row{columns: columns, values: values})
	}
	if err := rs.Err(); err != nil {
		return nil, c.failed(cfg, query, args, err)
	}
	return rows, nil
}

// exec runs a statement that returns no rows.
func (c *Conn) exec(ctx context.Context, query string, args []any) (sql.Result, error) {
	db, err := c.Client(ctx)
	if err != nil {
		return nil, err
	}
	query = db.Rebind(query)
	cfg := c.before(query, args)

	var result sql.Result
	if cfg.Caching {
		var stmt *sqlx.Stmt
		stmt, err = c.stmts.prepare(ctx, db, query)
		if err == nil {
			result, err = stmt.ExecContext(ctx, args...)
		}
	} else {
		result, err = db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return nil, c.failed(cfg, query, args, err)
	}
	return result, nil
}

// before records and, if enabled, logs a statement about to run. It returns
// the configuration to run it with.
func (c *Conn) before(query string, args []any) Config {
	c.mutex.Lock()
	c.last = lastQuery{sql: query, args: args}
	cfg := c.cfg
	c.mutex.Unlock()
	if cfg.Logging {
		cfg.Logger.Printf("sqlorm: %s %v", query, args)
	}
	return cfg
}

// failed wraps a driver error in a QueryError.
func (c *Conn) failed(cfg Config, query string, args []any, err error) error {
	qerr := &QueryError{SQL: query, Args: args, Err: err}
	if cfg.ErrorMode == ErrorModeLog {
		cfg.Logger.Printf("sqlorm: %s", qerr)
	}
	return qerr
}
